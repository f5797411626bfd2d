package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncRun records one fetch→transform→upsert execution for a single source
type SyncRun struct {
	RunID        string    `json:"run_id"`
	Source       string    `json:"source"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Fetched      int       `json:"fetched"`
	Created      int       `json:"created"`
	Updated      int       `json:"updated"`
	Errors       int       `json:"errors"`
	Success      bool      `json:"success"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewSyncRun starts a run record for the given source
func NewSyncRun(source string, startedAt time.Time) *SyncRun {
	return &SyncRun{
		RunID:     uuid.New().String(),
		Source:    source,
		StartedAt: startedAt,
	}
}

// Fail marks the run failed with the classified cause
func (r *SyncRun) Fail(err error) {
	r.Success = false
	r.ErrorKind = KindOf(err)
	r.ErrorMessage = err.Error()
}

// Duration returns how long the run took, or zero while it is in flight
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
