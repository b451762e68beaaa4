package engine

import "errors"

var (
	// ErrJobNotFound is returned when a job ID is absent from all three tables.
	ErrJobNotFound = errors.New("render job not found")

	// ErrJobFinished is returned when canceling a job that already reached a
	// terminal status.
	ErrJobFinished = errors.New("render job already finished")

	// ErrEmptySceneConfig is returned when a submission carries no scene
	// configuration. Rejected synchronously, nothing is enqueued.
	ErrEmptySceneConfig = errors.New("scene config must not be empty")

	// ErrWaitTimeout is returned by WaitForJob when the deadline passes before
	// the job reaches a terminal status. The job itself keeps running.
	ErrWaitTimeout = errors.New("timed out waiting for render job")

	// ErrJobFailed wraps the task's error message when WaitForJob observes a
	// failed render.
	ErrJobFailed = errors.New("render job failed")

	// ErrJobCanceled is returned by WaitForJob when the job was canceled.
	ErrJobCanceled = errors.New("render job canceled")

	// ErrAlreadyStarted is returned by Start when the engine is running.
	ErrAlreadyStarted = errors.New("engine already started")
)
