package core

import "time"

// Store defines the interface for the run ledger.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(mapping string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Record run operations
	RecordRecordRun(rr *RecordRun) error
	GetRecordRunsForRun(runID string) ([]*RecordRun, error)
}

// RunStatus represents the status of a conversion run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusValidated RunStatus = "validated"
)

// Run represents one conversion of a schema family.
type Run struct {
	ID          string
	Mapping     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// RecordRun represents the conversion of one record within a run.
type RecordRun struct {
	ID          string
	RunID       string
	Record      string
	SourceTable string
	TargetTable string
	Extracted   int64
	Inserted    int64
	StartedAt   time.Time
	ExecutionMS int64
}
