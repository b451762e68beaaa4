package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// coordinatorLoop is the single control flow that moves tasks from pending
// into active. It wakes on submit and completion signals and additionally
// re-checks on a fixed interval. The loop only terminates on Stop or context
// cancellation; any panic inside a dispatch pass is caught and logged so one
// bad pass can never kill scheduling.
func (e *Engine) coordinatorLoop(ctx context.Context) {
	defer e.wg.Done()

	e.logger.Info("Coordinator loop started")

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		e.safeDispatch(ctx)

		select {
		case <-e.stopChan:
			e.logger.Info("Coordinator loop stopping")
			return
		case <-ctx.Done():
			e.logger.Info("Coordinator loop stopping - context canceled")
			return
		case <-e.kickChan:
		case <-ticker.C:
		}
	}
}

func (e *Engine) safeDispatch(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Coordinator dispatch pass panicked",
				slog.Any("panic", r),
			)
		}
	}()
	e.dispatchReady(ctx)
}

// dispatchReady moves queue heads into the active table while slots remain,
// then hands each one to the worker pool. The lock is released before the
// channel send so status queries never wait on dispatch.
func (e *Engine) dispatchReady(ctx context.Context) {
	for {
		e.mu.Lock()
		if len(e.active) >= e.maxJobs || e.pending.len() == 0 {
			e.mu.Unlock()
			return
		}
		task := e.pending.pop()
		task.Status = StatusRendering
		e.active[task.JobID] = task
		e.mu.Unlock()

		e.logger.Info("Dispatching render job",
			slog.String("job_id", task.JobID),
			slog.Int("priority", task.Priority),
		)

		select {
		case e.jobsChan <- task:
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// workerLoop is one slot of the bounded worker pool.
func (e *Engine) workerLoop(ctx context.Context, workerNum int) {
	defer e.wg.Done()

	e.logger.Debug("Render worker started", slog.Int("worker_num", workerNum))

	for {
		select {
		case <-e.stopChan:
			e.logger.Debug("Render worker stopping", slog.Int("worker_num", workerNum))
			return
		case <-ctx.Done():
			e.logger.Debug("Render worker stopping - context canceled", slog.Int("worker_num", workerNum))
			return
		case task := <-e.jobsChan:
			e.executeTask(ctx, task, workerNum)
			e.kick()
		}
	}
}

// executeTask runs one render and records the outcome exactly once. The
// renderer call happens outside the lock; a panic inside the renderer is
// contained and recorded as a failure of this task alone.
func (e *Engine) executeTask(ctx context.Context, task *RenderTask, workerNum int) {
	start := time.Now()

	e.logger.Info("Rendering scene",
		slog.String("job_id", task.JobID),
		slog.Int("worker_num", workerNum),
	)

	resultPath, err := e.safeRender(ctx, task.SceneConfig)

	e.mu.Lock()
	if _, ok := e.active[task.JobID]; !ok {
		// Canceled while rendering: the task already moved to completed
		// with status CANCELED, so the outcome is discarded.
		e.mu.Unlock()
		e.logger.Info("Discarding render outcome of canceled job",
			slog.String("job_id", task.JobID),
		)
		return
	}
	delete(e.active, task.JobID)
	if err != nil {
		task.Status = StatusFailed
		task.ErrorMessage = err.Error()
	} else {
		task.Status = StatusCompleted
		task.ResultPath = resultPath
	}
	e.completed[task.JobID] = task
	snap := task.snapshot()
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("Render job failed",
			slog.String("job_id", task.JobID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
	} else {
		e.logger.Info("Render job completed",
			slog.String("job_id", task.JobID),
			slog.String("result_path", resultPath),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	e.notifySinks(snap)
}

// safeRender shields the worker from renderer panics.
func (e *Engine) safeRender(ctx context.Context, sceneConfig map[string]any) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panicked: %v", r)
		}
	}()
	return e.renderer.Render(ctx, sceneConfig)
}
