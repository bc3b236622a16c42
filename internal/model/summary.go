package model

import (
	"time"
)

// JobState is the lifecycle state of one per-table import job.
type JobState string

const (
	StatePending      JobState = "pending"
	StateParsing      JobState = "parsing"
	StateTransforming JobState = "transforming"
	StateLoading      JobState = "loading"
	StateCommitted    JobState = "committed"
	StateRolledBack   JobState = "rolled_back"
)

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// TableReport captures the outcome of one table import.
type TableReport struct {
	Kind      Kind
	Table     string
	State     JobState
	Phase     string // phase that failed, empty on success
	Error     string
	Processed int64 // records seen by the transformer
	Inserted  int64
	Rejected  int64 // excluded before the load transaction
	Failed    int64 // rows lost to a rolled-back load transaction
	Truncated int64 // unmatched entries dropped by index pairing
	// Derived holds inserted counts for tables recomputed in the same
	// transaction, keyed by table name.
	Derived  map[string]int64
	Duration time.Duration
}

// DanglingRef is a context element link that does not resolve to a billing code.
type DanglingRef struct {
	ContextCode string
	BillingCode string
}

// RunSummary is the operator-facing result of a pipeline run.
type RunSummary struct {
	RunID         string
	Tables        []TableReport
	Dangling      []DanglingRef
	ValidationErr string
	DurationTotal time.Duration
}

// Failed returns the reports of tables whose import did not commit.
func (s *RunSummary) Failed() []TableReport {
	var out []TableReport
	for _, t := range s.Tables {
		if t.State != StateCommitted {
			out = append(out, t)
		}
	}
	return out
}

// Success is true when every table committed. Dangling references never
// affect it.
func (s *RunSummary) Success() bool {
	return len(s.Failed()) == 0
}
