package dto

// CommandResponse acknowledges a queued generation command
type CommandResponse struct {
	CommandID   string `json:"command_id"`
	Operation   string `json:"operation"`
	WorldID     string `json:"world_id,omitempty"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type CleanupRequest struct {
	WorldID string `form:"world_id"`
}

type ListRunsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListRunsResponse struct {
	Runs       []RunDTO `json:"runs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type RunDTO struct {
	RunID            string `json:"run_id"`
	WorldID          string `json:"world_id"`
	Mode             string `json:"mode"`
	AirportsScanned  int    `json:"airports_scanned"`
	AirportsToppedUp int    `json:"airports_topped_up"`
	JobsCreated      int    `json:"jobs_created"`
	JobsExpired      int64  `json:"jobs_expired"`
	Batches          int    `json:"batches"`
	Skipped          string `json:"skipped,omitempty"`
	Error            string `json:"error,omitempty"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at"`
	DurationMs       int64  `json:"duration_ms"`
}
