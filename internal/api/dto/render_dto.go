package dto

type SubmitJobRequest struct {
	SceneConfig       map[string]any `json:"scene_config" binding:"required"`
	Priority          int            `json:"priority"`
	EstimatedDuration int            `json:"estimated_duration"`
}

type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobResponse struct {
	JobID             string         `json:"job_id"`
	SceneConfig       map[string]any `json:"scene_config"`
	Priority          int            `json:"priority"`
	EstimatedDuration int            `json:"estimated_duration"`
	Status            string         `json:"status"`
	ResultPath        string         `json:"result_path,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	CreatedAt         string         `json:"created_at"`
}

type ListJobsRequest struct {
	Status string `form:"status"`
}

type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type WaitJobResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	ResultPath string `json:"result_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

type QueueStatusResponse struct {
	Pending           int `json:"pending"`
	Active            int `json:"active"`
	Completed         int `json:"completed"`
	MaxConcurrentJobs int `json:"max_concurrent_jobs"`
}

type CleanupRequest struct {
	MaxAge string `json:"max_age" binding:"required"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

type RenderSyncRequest struct {
	SceneConfig map[string]any `json:"scene_config" binding:"required"`
}

type RenderSyncResponse struct {
	OutputPath string `json:"output_path"`
}
