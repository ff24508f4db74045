package models

// RunStatus represents the lifecycle state of a site's warm run,
// as reported by the watch scheduler.
type RunStatus string

const (
	RunStatusUnset     RunStatus = ""          // Zero value = unset/unknown
	RunStatusPending   RunStatus = "pending"   // Scheduled but not started
	RunStatusRunning   RunStatus = "running"   // Warm run in progress
	RunStatusCompleted RunStatus = "completed" // Finished, possibly with per-URL failures
	RunStatusFailed    RunStatus = "failed"    // Aborted by a fatal failure
)

// String implements fmt.Stringer for logging
func (s RunStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the run has finished, successfully or not.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}
