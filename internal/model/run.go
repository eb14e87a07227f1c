package model

import "time"

// Observations is a fetcher's raw output, period key to value.
// NaN stands for a missing value.
type Observations map[string]float64

// FetchResult is what a collaborator hands to the core for one indicator.
// A non-nil Err is the explicit failure marker of a fetch.
type FetchResult struct {
	Name         string
	Frequency    Frequency
	Source       string
	Quality      DataQuality
	Observations Observations
	Extras       map[string]any
	Err          error
}

// Status is the outcome of one indicator within a run.
type Status string

const (
	StatusMerged  Status = "merged"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// IndicatorStatus reports what happened to one indicator during a run.
type IndicatorStatus struct {
	Name         string
	Status       Status
	Message      string
	Points       int
	CurrentValue *float64
	SignalValue  *float64
}

// RunResult is the run-level report: per-indicator statuses plus the
// outcome of the store-wide load and save.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Path       string
	BackupPath string
	Warnings   []string
	Statuses   []IndicatorStatus
	Err        error
}

// Count returns how many indicators ended with status s.
func (r *RunResult) Count(s Status) int {
	n := 0
	for _, st := range r.Statuses {
		if st.Status == s {
			n++
		}
	}
	return n
}

// OK reports whether the store was saved and no indicator failed.
func (r *RunResult) OK() bool {
	return r.Err == nil && r.Count(StatusFailed) == 0
}
