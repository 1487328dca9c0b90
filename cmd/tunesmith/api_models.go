package main

// Response payloads mirroring the daemon API. Kept separate from the daemon
// package so the CLI builds without linking the daemon's dependencies.

type processResult struct {
	TotalProcessed int      `json:"total_processed"`
	Successful     int      `json:"successful"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
}

type workerStatus struct {
	Running         bool    `json:"running"`
	Paused          bool    `json:"paused"`
	Processing      bool    `json:"processing"`
	LastRunAt       *string `json:"last_run_at"`
	NextRunAt       *string `json:"next_run_at"`
	TotalRuns       int     `json:"total_runs"`
	TotalProcessed  int     `json:"total_processed"`
	TotalSuccessful int     `json:"total_successful"`
	TotalFailed     int     `json:"total_failed"`
}

type statusPayload struct {
	Queue struct {
		Total      int `json:"total"`
		Pending    int `json:"pending"`
		Processing int `json:"processing"`
		Completed  int `json:"completed"`
		Failed     int `json:"failed"`
	} `json:"queue"`
	Percentages map[string]float64 `json:"percentages"`
	Worker      workerStatus       `json:"worker"`
}

type failedPayload struct {
	Failed []struct {
		Platform     string `json:"platform"`
		PlatformID   string `json:"platform_id"`
		URL          string `json:"url"`
		Title        string `json:"title"`
		RetryCount   int    `json:"retry_count"`
		ErrorMessage string `json:"error_message"`
		UpdatedAt    string `json:"updated_at"`
	} `json:"failed"`
}

type healthPayload struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llm_configured"`
	QueueOK       bool   `json:"queue_ok"`
	LLMError      string `json:"llm_error"`
}

type enqueuePayload struct {
	Platform   string `json:"platform"`
	PlatformID string `json:"platform_id"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
}
