package engine

import "time"

// Status represents the lifecycle state of a render job.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRendering Status = "RENDERING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
)

// StatusQueued is an alias for StatusPending: a queued job and a pending job
// are the same thing, a task sitting in the pending table waiting for dispatch.
const StatusQueued = StatusPending

// Terminal reports whether the status is final and will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// RenderTask is the unit of work tracked by the engine. The identity fields
// (JobID, SceneConfig, Priority, CreatedAt, EstimatedDuration) are set once at
// submission; Status, ResultPath and ErrorMessage are mutated by the
// coordinator and the executing worker, always under the engine lock.
type RenderTask struct {
	JobID             string
	SceneConfig       map[string]any
	Priority          int
	CreatedAt         time.Time
	EstimatedDuration int
	Status            Status
	ResultPath        string
	ErrorMessage      string

	// seq is the submission sequence number, used as the final tie-breaker
	// for pending ordering.
	seq uint64
}

// Snapshot is a point-in-time copy of a task's state, safe to hold after the
// engine lock is released. Snapshots of terminal tasks never change.
type Snapshot struct {
	JobID             string         `json:"job_id"`
	SceneConfig       map[string]any `json:"scene_config"`
	Priority          int            `json:"priority"`
	CreatedAt         time.Time      `json:"created_at"`
	EstimatedDuration int            `json:"estimated_duration"`
	Status            Status         `json:"status"`
	ResultPath        string         `json:"result_path,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
}

// snapshot must be called with the engine lock held.
func (t *RenderTask) snapshot() Snapshot {
	return Snapshot{
		JobID:             t.JobID,
		SceneConfig:       t.SceneConfig,
		Priority:          t.Priority,
		CreatedAt:         t.CreatedAt,
		EstimatedDuration: t.EstimatedDuration,
		Status:            t.Status,
		ResultPath:        t.ResultPath,
		ErrorMessage:      t.ErrorMessage,
	}
}
