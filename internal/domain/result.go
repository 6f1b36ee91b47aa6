// Package domain defines core business types and interfaces.
package domain

import "time"

// SkipReason explains why an automatic backup run did not create a snapshot.
type SkipReason string

const (
	// SkipDisabled means automatic backups are turned off.
	SkipDisabled SkipReason = "disabled"
	// SkipTooRecent means the newest snapshot is younger than the cadence threshold.
	SkipTooRecent SkipReason = "too_recent"
	// SkipDryRun means the run only reported what it would do.
	SkipDryRun SkipReason = "dry_run"
	// SkipLocked means another process holds the backup directory lock.
	SkipLocked SkipReason = "locked"
)

// String returns the string representation of the skip reason.
func (s SkipReason) String() string {
	return string(s)
}

// RunResult contains the result of one automatic backup run.
type RunResult struct {
	RunID       string        `json:"run_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	DryRun      bool          `json:"dry_run"`
	Skipped     bool          `json:"skipped"`
	SkipReason  SkipReason    `json:"skip_reason,omitempty"`
	BackupPath  string        `json:"backup_path,omitempty"`
	NestedFixed int           `json:"nested_fixed"`
	Cleaned     int           `json:"cleaned"`
	Snapshots   int           `json:"snapshots"`
	AutoRemove  int           `json:"auto_remove"`
	Errors      []string      `json:"errors,omitempty"`

	backupFailed bool
}

// NewRunResult creates a new RunResult.
func NewRunResult(runID string, dryRun bool) *RunResult {
	return &RunResult{
		RunID:     runID,
		StartTime: time.Now(),
		DryRun:    dryRun,
		Errors:    make([]string, 0),
	}
}

// Skip marks the run as skipped.
func (r *RunResult) Skip(reason SkipReason) {
	r.Skipped = true
	r.SkipReason = reason
}

// FailBackup records that snapshot creation failed.
func (r *RunResult) FailBackup(err error) {
	r.backupFailed = true
	r.AddError(err)
}

// Complete marks the run as complete.
// Cleanup errors are reported in Errors but do not fail the run.
func (r *RunResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = !r.backupFailed
}

// AddError adds an error to the run result.
func (r *RunResult) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}
