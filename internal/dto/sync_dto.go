package dto

import "time"

// SyncStatusRequest represents request for the per-source sync status
type SyncStatusRequest struct{}

// SyncRunSummary is the outcome of the latest run of a source
type SyncRunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMs   int64     `json:"duration_ms"`
	Fetched      int       `json:"fetched"`
	Created      int       `json:"created"`
	Updated      int       `json:"updated"`
	Errors       int       `json:"errors"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// SourceStatus describes one source
type SourceStatus struct {
	Source    string          `json:"source"`
	Count     int             `json:"count"`
	Running   bool            `json:"running"`
	Interval  string          `json:"interval"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt time.Time       `json:"next_run_at"`
	LastRun   *SyncRunSummary `json:"last_run,omitempty"`
}

// SyncStatusResponse lists every registered source
type SyncStatusResponse struct {
	Sources []SourceStatus `json:"sources"`
	Total   int            `json:"total"`
}

// ForceSyncRequest represents request to run a source on the next tick
type ForceSyncRequest struct{}

// ForceSyncResponse acknowledges a force-sync request
type ForceSyncResponse struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}
