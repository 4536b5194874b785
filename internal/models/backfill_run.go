package models

import "time"

// RunStatus is the lifecycle state of one backfill run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SessionOrder selects the processing direction within a run. Priority
// descending is always the primary sort; order applies to the session date.
type SessionOrder string

const (
	OrderNewestFirst SessionOrder = "newest_first"
	OrderOldestFirst SessionOrder = "oldest_first"
)

// RunConfig is the configuration a backfill run executes under. It is
// serialized into the run row so a resumed run behaves identically to a
// continued one.
type RunConfig struct {
	DateFrom           *time.Time    `json:"dateFrom,omitempty"`
	DateTo             *time.Time    `json:"dateTo,omitempty"`
	TagFilter          []string      `json:"tagFilter,omitempty"`
	MaxSessionsPerRun  int           `json:"maxSessionsPerRun"`
	MaxSessionsPerHour int           `json:"maxSessionsPerHour"`
	CheckpointInterval int           `json:"checkpointInterval"`
	NormalizeClubs     bool          `json:"normalizeClubs"`
	AutoTag            bool          `json:"autoTag"`
	DryRun             bool          `json:"dryRun"`
	MaxRetries         int           `json:"maxRetries"`
	RetryDelayBase     time.Duration `json:"retryDelayBase"`
	FixedDelay         time.Duration `json:"fixedDelay,omitempty"`
	Order              SessionOrder  `json:"order"`
	NotifyOnComplete   bool          `json:"notifyOnComplete"`
	NotifyOnError      bool          `json:"notifyOnError"`
}

// BackfillRun is the serializable state of one orchestrator execution. It is
// the only thing checkpointed; resume is reload-and-continue over this struct.
type BackfillRun struct {
	RunID       string     `json:"runId" db:"run_id"`
	Status      RunStatus  `json:"status" db:"status"`
	StartedAt   time.Time  `json:"startedAt" db:"started_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`

	SessionsTotal     int   `json:"sessionsTotal" db:"sessions_total"`
	SessionsProcessed int   `json:"sessionsProcessed" db:"sessions_processed"`
	SessionsImported  int   `json:"sessionsImported" db:"sessions_imported"`
	SessionsSkipped   int   `json:"sessionsSkipped" db:"sessions_skipped"`
	SessionsFailed    int   `json:"sessionsFailed" db:"sessions_failed"`
	ShotsImported     int64 `json:"shotsImported" db:"shots_imported"`

	LastProcessedID  *string    `json:"lastProcessedId,omitempty" db:"last_processed_id"`
	LastCheckpointAt *time.Time `json:"lastCheckpointAt,omitempty" db:"last_checkpoint_at"`
	ErrorLog         []string   `json:"errorLog" db:"error_log"`
	Config           RunConfig  `json:"config" db:"config_snapshot"`
}

// Terminal reports whether the run has reached a final status.
func (r *BackfillRun) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusPaused:
		return true
	default:
		return false
	}
}

// AppendError records a run-level error, keeping the log bounded so a long
// run cannot grow the row without limit.
func (r *BackfillRun) AppendError(msg string) {
	const maxErrors = 200
	if len(r.ErrorLog) >= maxErrors {
		return
	}
	r.ErrorLog = append(r.ErrorLog, msg)
}
