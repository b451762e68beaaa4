package engine

import "sort"

// pendingQueue holds tasks waiting for dispatch, totally ordered by
// (priority desc, created_at asc, submission seq asc). All methods assume the
// engine lock is held.
type pendingQueue struct {
	tasks []*RenderTask
}

func taskLess(a, b *RenderTask) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.seq < b.seq
}

// push inserts a task and re-sorts the queue.
func (q *pendingQueue) push(t *RenderTask) {
	q.tasks = append(q.tasks, t)
	sort.SliceStable(q.tasks, func(i, j int) bool {
		return taskLess(q.tasks[i], q.tasks[j])
	})
}

// pop removes and returns the head of the queue, or nil when empty.
func (q *pendingQueue) pop() *RenderTask {
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// remove deletes the task with the given ID, preserving order of the rest.
// Returns nil when the ID is not queued.
func (q *pendingQueue) remove(jobID string) *RenderTask {
	for i, t := range q.tasks {
		if t.JobID == jobID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return t
		}
	}
	return nil
}

// find returns the queued task with the given ID, or nil.
func (q *pendingQueue) find(jobID string) *RenderTask {
	for _, t := range q.tasks {
		if t.JobID == jobID {
			return t
		}
	}
	return nil
}

func (q *pendingQueue) len() int {
	return len(q.tasks)
}
