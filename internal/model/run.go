package model

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one run-log entry: a single execution of one or more criteria
// pipelines at a geography level.
type Run struct {
	ID         string     `json:"id"`
	Criteria   []string   `json:"criteria"`
	Geography  string     `json:"geography"`
	RowCount   int        `json:"row_count"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
