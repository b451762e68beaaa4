package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/renderer"
)

const (
	// DefaultPollInterval is the coordinator's re-check interval when no
	// submit or completion signal arrives.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultWaitPollInterval is how often WaitForJob re-checks job status.
	DefaultWaitPollInterval = 1 * time.Second
)

// Sink receives a snapshot every time a job reaches a terminal status.
// Sinks are called outside the engine lock; errors are logged, never
// escalated to the job itself.
type Sink interface {
	JobFinished(ctx context.Context, snap Snapshot) error
}

// Config holds engine configuration, fixed at construction.
type Config struct {
	Logger   *slog.Logger
	Renderer renderer.SceneRenderer

	// MaxConcurrentJobs is the number of worker slots, the single
	// resource-bounding parameter.
	MaxConcurrentJobs int

	PollInterval     time.Duration
	WaitPollInterval time.Duration

	// Sinks receive terminal job snapshots (history archive, event
	// publisher). Optional.
	Sinks []Sink
}

// Engine owns the three job tables and exposes the scheduling surface:
// submit, status, cancel, queue status, wait, cleanup and the synchronous
// render bypass. All table access happens under one short mutex which is
// never held across a renderer call, so submissions and status queries are
// never blocked by in-progress renders.
type Engine struct {
	logger   *slog.Logger
	renderer renderer.SceneRenderer
	maxJobs  int

	pollInterval     time.Duration
	waitPollInterval time.Duration
	sinks            []Sink

	mu        sync.Mutex
	pending   pendingQueue
	active    map[string]*RenderTask
	completed map[string]*RenderTask
	seq       uint64
	started   bool

	jobsChan chan *RenderTask
	kickChan chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an engine. The renderer is required; MaxConcurrentJobs must be
// positive.
func New(cfg Config) (*Engine, error) {
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("engine: renderer is required")
	}
	if cfg.MaxConcurrentJobs <= 0 {
		return nil, fmt.Errorf("engine: max concurrent jobs must be greater than 0, got %d", cfg.MaxConcurrentJobs)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	waitPollInterval := cfg.WaitPollInterval
	if waitPollInterval <= 0 {
		waitPollInterval = DefaultWaitPollInterval
	}

	return &Engine{
		logger:           logger,
		renderer:         cfg.Renderer,
		maxJobs:          cfg.MaxConcurrentJobs,
		pollInterval:     pollInterval,
		waitPollInterval: waitPollInterval,
		sinks:            cfg.Sinks,
		active:           make(map[string]*RenderTask),
		completed:        make(map[string]*RenderTask),
		jobsChan:         make(chan *RenderTask),
		kickChan:         make(chan struct{}, 1),
		stopChan:         make(chan struct{}),
	}, nil
}

// Start spawns the coordinator loop and the worker pool. Jobs may be
// submitted before Start; they stay queued until the coordinator runs.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.mu.Unlock()

	e.logger.Info("Starting render engine",
		slog.Int("max_concurrent_jobs", e.maxJobs),
		slog.Duration("poll_interval", e.pollInterval),
	)

	for i := 0; i < e.maxJobs; i++ {
		e.wg.Add(1)
		go e.workerLoop(ctx, i)
	}

	e.wg.Add(1)
	go e.coordinatorLoop(ctx)

	return nil
}

// Stop terminates the coordinator and workers and waits for them to exit.
// In-flight renders run to completion. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.logger.Info("Stopping render engine")
		close(e.stopChan)
	})
	e.wg.Wait()
	e.logger.Info("Render engine stopped")
}

// SubmitJob validates and enqueues a render job and returns its ID without
// waiting for execution. estimatedSeconds is advisory only.
func (e *Engine) SubmitJob(sceneConfig map[string]any, priority, estimatedSeconds int) (string, error) {
	if len(sceneConfig) == 0 {
		return "", ErrEmptySceneConfig
	}

	task := &RenderTask{
		JobID:             uuid.New().String(),
		SceneConfig:       sceneConfig,
		Priority:          priority,
		CreatedAt:         time.Now(),
		EstimatedDuration: estimatedSeconds,
		Status:            StatusPending,
	}

	e.mu.Lock()
	e.seq++
	task.seq = e.seq
	e.pending.push(task)
	queued := e.pending.len()
	e.mu.Unlock()

	e.kick()

	e.logger.Info("Render job submitted",
		slog.String("job_id", task.JobID),
		slog.Int("priority", priority),
		slog.Int("queued", queued),
	)

	return task.JobID, nil
}

// GetJobStatus returns a snapshot of the job, or ErrJobNotFound.
func (e *Engine) GetJobStatus(jobID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.active[jobID]; ok {
		return t.snapshot(), nil
	}
	if t := e.pending.find(jobID); t != nil {
		return t.snapshot(), nil
	}
	if t, ok := e.completed[jobID]; ok {
		return t.snapshot(), nil
	}
	return Snapshot{}, ErrJobNotFound
}

// CancelJob cancels a job. A pending job is canceled outright and never
// dispatched. For an active job the cancellation is bookkeeping only: the
// in-flight render is not interrupted, but its eventual result is discarded
// and the job is recorded as CANCELED. Returns ErrJobFinished for terminal
// jobs and ErrJobNotFound for unknown IDs.
func (e *Engine) CancelJob(jobID string) error {
	e.mu.Lock()

	if t := e.pending.remove(jobID); t != nil {
		t.Status = StatusCanceled
		e.completed[jobID] = t
		snap := t.snapshot()
		e.mu.Unlock()

		e.logger.Info("Pending render job canceled", slog.String("job_id", jobID))
		e.notifySinks(snap)
		return nil
	}

	if t, ok := e.active[jobID]; ok {
		t.Status = StatusCanceled
		delete(e.active, jobID)
		e.completed[jobID] = t
		snap := t.snapshot()
		e.mu.Unlock()

		// The worker slot frees up for accounting purposes; the render
		// itself keeps running and its outcome will be discarded.
		e.kick()
		e.logger.Info("Active render job canceled, in-flight render will be discarded",
			slog.String("job_id", jobID),
		)
		e.notifySinks(snap)
		return nil
	}

	if _, ok := e.completed[jobID]; ok {
		e.mu.Unlock()
		return ErrJobFinished
	}

	e.mu.Unlock()
	return ErrJobNotFound
}

// Stats is a read-only view of the queue, returned by QueueStatus.
type Stats struct {
	Pending           int `json:"pending"`
	Active            int `json:"active"`
	Completed         int `json:"completed"`
	MaxConcurrentJobs int `json:"max_concurrent_jobs"`
}

// QueueStatus reports current table sizes and the configured bound.
func (e *Engine) QueueStatus() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Pending:           e.pending.len(),
		Active:            len(e.active),
		Completed:         len(e.completed),
		MaxConcurrentJobs: e.maxJobs,
	}
}

// ListJobs returns snapshots of every tracked job, newest first. A non-empty
// status filters the result.
func (e *Engine) ListJobs(status Status) []Snapshot {
	e.mu.Lock()
	snaps := make([]Snapshot, 0, e.pending.len()+len(e.active)+len(e.completed))
	for _, t := range e.pending.tasks {
		snaps = append(snaps, t.snapshot())
	}
	for _, t := range e.active {
		snaps = append(snaps, t.snapshot())
	}
	for _, t := range e.completed {
		snaps = append(snaps, t.snapshot())
	}
	e.mu.Unlock()

	if status != "" {
		filtered := snaps[:0]
		for _, s := range snaps {
			if s.Status == status {
				filtered = append(filtered, s)
			}
		}
		snaps = filtered
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps
}

// CleanupOldJobs removes terminal jobs whose creation time is older than
// maxAge and returns how many were removed. Pending and active jobs are
// never touched.
func (e *Engine) CleanupOldJobs(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	e.mu.Lock()
	removed := 0
	for id, t := range e.completed {
		if t.CreatedAt.Before(cutoff) {
			delete(e.completed, id)
			removed++
		}
	}
	e.mu.Unlock()

	if removed > 0 {
		e.logger.Info("Cleaned up old render jobs",
			slog.Int("removed", removed),
			slog.Duration("max_age", maxAge),
		)
	}
	return removed
}

// WaitForJob polls the job status until it reaches a terminal state or the
// timeout elapses. On completion it returns the result path; a failed job
// yields an error wrapping ErrJobFailed, a canceled job ErrJobCanceled, and
// an expired deadline ErrWaitTimeout. Purely observational: the job is never
// mutated and never canceled on timeout.
func (e *Engine) WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.waitPollInterval)
	defer ticker.Stop()

	for {
		snap, err := e.GetJobStatus(jobID)
		if err != nil {
			return "", err
		}

		switch snap.Status {
		case StatusCompleted:
			return snap.ResultPath, nil
		case StatusFailed:
			return "", fmt.Errorf("%w: %s", ErrJobFailed, snap.ErrorMessage)
		case StatusCanceled:
			return "", ErrJobCanceled
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// RenderSync invokes the renderer directly, bypassing the queue and the
// concurrency bound. No task is created and queue status is unaffected.
func (e *Engine) RenderSync(ctx context.Context, sceneConfig map[string]any) (string, error) {
	if len(sceneConfig) == 0 {
		return "", ErrEmptySceneConfig
	}
	return e.renderer.Render(ctx, sceneConfig)
}

// kick nudges the coordinator without blocking.
func (e *Engine) kick() {
	select {
	case e.kickChan <- struct{}{}:
	default:
	}
}

func (e *Engine) notifySinks(snap Snapshot) {
	for _, sink := range e.sinks {
		if err := sink.JobFinished(context.Background(), snap); err != nil {
			e.logger.Warn("Job sink failed",
				slog.String("job_id", snap.JobID),
				slog.String("status", string(snap.Status)),
				slog.String("error", err.Error()),
			)
		}
	}
}
