package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gyeh/ramqload/internal/model"
)

// ErrIllegalTransition is returned when a job is moved along an edge the
// state machine does not have.
var ErrIllegalTransition = errors.New("illegal job state transition")

var transitions = map[model.JobState][]model.JobState{
	model.StatePending:      {model.StateParsing},
	model.StateParsing:      {model.StateTransforming, model.StateRolledBack},
	model.StateTransforming: {model.StateLoading, model.StateRolledBack},
	model.StateLoading:      {model.StateCommitted, model.StateRolledBack},
}

func canTransition(from, to model.JobState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusRecorder persists job state changes.
type StatusRecorder interface {
	RecordJob(ctx context.Context, runID string, rep model.TableReport) error
}

// Job tracks one table import through its states. A job that ends in
// RolledBack is not retried; a new run starts a new job from Pending.
type Job struct {
	runID  string
	report model.TableReport
	rec    StatusRecorder
	log    zerolog.Logger
}

func newJob(runID string, kind model.Kind, rec StatusRecorder, log zerolog.Logger) *Job {
	return &Job{
		runID: runID,
		report: model.TableReport{
			Kind:  kind,
			Table: kind.Table().Name,
			State: model.StatePending,
		},
		rec: rec,
		log: log,
	}
}

// State returns the current state.
func (j *Job) State() model.JobState {
	return j.report.State
}

// Report returns a copy of the job's report.
func (j *Job) Report() model.TableReport {
	return j.report
}

// advance moves the job to state to and records the change. Recording
// failures are logged, not returned.
func (j *Job) advance(ctx context.Context, to model.JobState) error {
	from := j.report.State
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	j.report.State = to
	j.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("job state")
	if err := j.rec.RecordJob(ctx, j.runID, j.report); err != nil {
		j.log.Warn().Err(err).Str("state", string(to)).Msg("recording job status failed (non-fatal)")
	}
	return nil
}

// fail rolls the job back, keeping the phase and error in its report.
func (j *Job) fail(ctx context.Context, pe *PipelineError) error {
	j.report.Phase = pe.Phase
	j.report.Error = pe.Err.Error()
	return j.advance(ctx, model.StateRolledBack)
}

// MemoryRecorder keeps every recorded state change in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	history map[model.Kind][]model.JobState
	last    map[model.Kind]model.TableReport
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		history: make(map[model.Kind][]model.JobState),
		last:    make(map[model.Kind]model.TableReport),
	}
}

func (m *MemoryRecorder) RecordJob(_ context.Context, _ string, rep model.TableReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[rep.Kind] = append(m.history[rep.Kind], rep.State)
	m.last[rep.Kind] = rep
	return nil
}

// History returns the states recorded for kind, in order.
func (m *MemoryRecorder) History(kind model.Kind) []model.JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.JobState(nil), m.history[kind]...)
}

// Last returns the most recent report recorded for kind.
func (m *MemoryRecorder) Last(kind model.Kind) (model.TableReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.last[kind]
	return r, ok
}

type nopRecorder struct{}

func (nopRecorder) RecordJob(context.Context, string, model.TableReport) error { return nil }
