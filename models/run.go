package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted" // transient empty fetch
	RunStatusFailed    RunStatus = "failed"
)

// RunReport summarizes one monitor cycle.
type RunReport struct {
	ID          string     `json:"id" db:"id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	RowsFetched int        `json:"rows_fetched" db:"rows_fetched"`
	RowsDropped int        `json:"rows_dropped" db:"rows_dropped"`
	Accepted    int        `json:"accepted" db:"accepted"`
	Excluded    int        `json:"excluded" db:"excluded"`
	NewListings int        `json:"new_listings" db:"new_listings"`
	Notified    bool       `json:"notified" db:"notified"`
	StateSaved  bool       `json:"state_saved" db:"state_saved"`
	Error       string     `json:"error" db:"error"`
}

// Duration is zero until the run finishes.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
