package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ramqload/internal/checkpoint"
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store/memstore"
)

var asOf = model.NewDate(2024, time.April, 1)

func fixtureSources() []Source {
	out := make([]Source, 0, len(model.AllKinds))
	for _, k := range model.AllKinds {
		out = append(out, Source{
			Kind:   k,
			Path:   filepath.Join("..", "..", "testdata", "ramq", string(k)+".xml"),
			Format: FormatXML,
		})
	}
	return out
}

func newPipeline(s *memstore.Store, rec StatusRecorder, opts Options) *Pipeline {
	opts.AsOf = asOf
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = 5 * time.Second
	}
	return New(s, rec, zerolog.Nop(), opts)
}

func reportFor(t *testing.T, s *model.RunSummary, kind model.Kind) model.TableReport {
	t.Helper()
	for _, r := range s.Tables {
		if r.Kind == kind {
			return r
		}
	}
	t.Fatalf("no report for %s", kind)
	return model.TableReport{}
}

func TestRun_AllFixtures(t *testing.T) {
	s := memstore.New()
	rec := NewMemoryRecorder()
	summary, err := newPipeline(s, rec, Options{Parallelism: 3}).Run(context.Background(), fixtureSources())
	require.NoError(t, err)

	assert.True(t, summary.Success())
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Tables, len(model.AllKinds))

	billing := reportFor(t, summary, model.KindBillingCodes)
	assert.Equal(t, model.StateCommitted, billing.State)
	assert.Equal(t, int64(5), billing.Processed)
	assert.Equal(t, int64(2), billing.Inserted)
	assert.Equal(t, int64(3), billing.Rejected)
	assert.Equal(t, int64(0), billing.Failed)
	assert.Equal(t, map[string]int64{"specialties": 2}, billing.Derived)

	est := reportFor(t, summary, model.KindEstablishments)
	assert.Equal(t, int64(2), est.Inserted)
	assert.Equal(t, int64(1), est.Rejected)
	assert.Equal(t, int64(1), est.Truncated)

	diag := reportFor(t, summary, model.KindDiagnosticCodes)
	assert.Equal(t, int64(2), diag.Inserted)
	assert.Equal(t, int64(1), diag.Rejected)

	assert.Equal(t, int64(3), reportFor(t, summary, model.KindContextElements).Inserted)

	// A dangling link is reported but does not fail the run.
	assert.Equal(t, []model.DanglingRef{{ContextCode: "C002", BillingCode: "99999"}}, summary.Dangling)
	assert.Empty(t, summary.ValidationErr)

	assert.Equal(t, []string{"00001", "00002"}, s.Keys("billing_codes"))
	assert.Equal(t, []string{"01", "06"}, s.Keys("specialties"))
	assert.Equal(t, []string{"12345", "23456"}, s.Keys("establishments"))

	assert.Equal(t, []model.JobState{
		model.StateParsing, model.StateTransforming, model.StateLoading, model.StateCommitted,
	}, rec.History(model.KindBillingCodes))
}

func TestRun_Idempotent(t *testing.T) {
	s := memstore.New()
	p := newPipeline(s, nil, Options{})

	_, err := p.Run(context.Background(), fixtureSources())
	require.NoError(t, err)
	before := map[string][][]any{}
	for _, k := range model.AllKinds {
		before[k.Table().Name] = s.Rows(k.Table().Name)
	}

	second, err := p.Run(context.Background(), fixtureSources())
	require.NoError(t, err)
	assert.True(t, second.Success())
	for name, rows := range before {
		assert.Equal(t, rows, s.Rows(name), name)
	}
}

func TestRun_ParseFailureKeepsPriorTable(t *testing.T) {
	s := memstore.New()
	_, err := newPipeline(s, nil, Options{}).Run(context.Background(), fixtureSources())
	require.NoError(t, err)

	broken := filepath.Join(t.TempDir(), "diagnostic_codes.xml")
	require.NoError(t, os.WriteFile(broken, []byte("<ramq_cod_diagn_v1><diagn><cod_diagn>X"), 0o644))

	rec := NewMemoryRecorder()
	summary, err := newPipeline(s, rec, Options{}).Run(context.Background(), []Source{
		{Kind: model.KindDiagnosticCodes, Path: broken, Format: FormatXML},
		{Kind: model.KindLocationCodes, Path: filepath.Join("..", "..", "testdata", "ramq", "location_codes.xml"), Format: FormatXML},
	})
	require.NoError(t, err)
	assert.False(t, summary.Success())

	diag := reportFor(t, summary, model.KindDiagnosticCodes)
	assert.Equal(t, model.StateRolledBack, diag.State)
	assert.Equal(t, PhaseParse, diag.Phase)
	assert.NotEmpty(t, diag.Error)
	assert.Equal(t, model.StateCommitted, reportFor(t, summary, model.KindLocationCodes).State)

	assert.Equal(t, []string{"250", "E11"}, s.Keys("diagnostic_codes"))
	assert.Equal(t, []model.JobState{model.StateParsing, model.StateRolledBack}, rec.History(model.KindDiagnosticCodes))
}

func TestRun_UnexpectedRoot(t *testing.T) {
	s := memstore.New()
	summary, err := newPipeline(s, nil, Options{}).Run(context.Background(), []Source{{
		Kind:   model.KindDiagnosticCodes,
		Path:   filepath.Join("..", "..", "testdata", "ramq", "billing_codes.xml"),
		Format: FormatXML,
	}})
	require.NoError(t, err)

	diag := reportFor(t, summary, model.KindDiagnosticCodes)
	assert.Equal(t, model.StateRolledBack, diag.State)
	assert.Equal(t, PhaseTransform, diag.Phase)
	assert.Contains(t, diag.Error, "unexpected root")
	assert.Empty(t, s.Keys("diagnostic_codes"))
}

func TestRun_LoadFailureRollsBack(t *testing.T) {
	s := memstore.New()
	s.FailAt("establishments", 2)

	summary, err := newPipeline(s, nil, Options{}).Run(context.Background(), fixtureSources())
	require.NoError(t, err)
	assert.False(t, summary.Success())
	require.Len(t, summary.Failed(), 1)

	est := reportFor(t, summary, model.KindEstablishments)
	assert.Equal(t, model.StateRolledBack, est.State)
	assert.Equal(t, PhaseLoad, est.Phase)
	assert.Equal(t, int64(2), est.Failed)
	assert.Equal(t, int64(0), est.Inserted)
	assert.Empty(t, s.Keys("establishments"))

	// Other tables are unaffected.
	assert.Equal(t, model.StateCommitted, reportFor(t, summary, model.KindBillingCodes).State)
}

func TestRun_FromCheckpoints(t *testing.T) {
	dir := t.TempDir()
	first := memstore.New()
	_, err := newPipeline(first, nil, Options{CheckpointDir: dir, Parquet: true}).
		Run(context.Background(), fixtureSources())
	require.NoError(t, err)

	var sources []Source
	for _, k := range model.AllKinds {
		sources = append(sources, Source{Kind: k, Path: checkpoint.Path(dir, k), Format: FormatCheckpoint})
	}
	second := memstore.New()
	summary, err := newPipeline(second, nil, Options{}).Run(context.Background(), sources)
	require.NoError(t, err)
	assert.True(t, summary.Success())

	billing := reportFor(t, summary, model.KindBillingCodes)
	assert.Equal(t, int64(5), billing.Processed)
	assert.Equal(t, int64(3), billing.Rejected)

	for _, k := range model.AllKinds {
		name := k.Table().Name
		assert.Equal(t, first.Rows(name), second.Rows(name), name)
	}
	assert.Equal(t, first.Rows("specialties"), second.Rows("specialties"))

	snap, err := checkpoint.ReadSnapshot(checkpoint.SnapshotPath(dir, model.KindEstablishments))
	require.NoError(t, err)
	assert.Len(t, snap, 2)
}

func TestRun_CheckpointRejectsEmptyKey(t *testing.T) {
	records := []model.Establishment{
		{IDLieuPhys: "12345", Name: "Hôpital"},
		{IDLieuPhys: "", Name: "Sans identifiant"},
	}
	path := checkpoint.Path(t.TempDir(), model.KindEstablishments)
	meta := checkpoint.Metadata{Kind: model.KindEstablishments, RecordCount: len(records)}
	require.NoError(t, checkpoint.Write(path, meta, records))

	s := memstore.New()
	summary, err := newPipeline(s, nil, Options{}).Run(context.Background(), []Source{
		{Kind: model.KindEstablishments, Path: path, Format: FormatCheckpoint},
	})
	require.NoError(t, err)

	est := reportFor(t, summary, model.KindEstablishments)
	assert.Equal(t, model.StateCommitted, est.State)
	assert.Equal(t, int64(1), est.Inserted)
	assert.Equal(t, int64(1), est.Rejected)
	assert.Equal(t, []string{"12345"}, s.Keys("establishments"))
}

func TestExtract_WritesCheckpointsOnly(t *testing.T) {
	dir := t.TempDir()
	s := memstore.New()
	results, err := newPipeline(s, nil, Options{CheckpointDir: dir}).Extract(context.Background(), fixtureSources())
	require.NoError(t, err)
	require.Len(t, results, len(model.AllKinds))
	for _, r := range results {
		require.NoError(t, r.Err, r.Kind)
		assert.FileExists(t, r.Checkpoint)
	}
	assert.Equal(t, 0, s.Commits)

	_, err = newPipeline(s, nil, Options{}).Extract(context.Background(), fixtureSources())
	assert.Error(t, err)
}

func TestRun_RejectsBadSources(t *testing.T) {
	p := newPipeline(memstore.New(), nil, Options{})

	_, err := p.Run(context.Background(), []Source{{Kind: "activity_sectors", Path: "x.xml", Format: FormatXML}})
	assert.ErrorContains(t, err, "unknown kind")

	dup := []Source{
		{Kind: model.KindLocationCodes, Path: "a.xml", Format: FormatXML},
		{Kind: model.KindLocationCodes, Path: "b.xml", Format: FormatXML},
	}
	_, err = p.Run(context.Background(), dup)
	assert.ErrorContains(t, err, "more than once")
}

func TestJob_Transitions(t *testing.T) {
	ctx := context.Background()
	j := newJob("run", model.KindLocationCodes, nopRecorder{}, zerolog.Nop())

	assert.ErrorIs(t, j.advance(ctx, model.StateLoading), ErrIllegalTransition)
	assert.ErrorIs(t, j.advance(ctx, model.StateRolledBack), ErrIllegalTransition)

	require.NoError(t, j.advance(ctx, model.StateParsing))
	require.NoError(t, j.advance(ctx, model.StateTransforming))
	require.NoError(t, j.advance(ctx, model.StateLoading))
	require.NoError(t, j.advance(ctx, model.StateCommitted))
	assert.True(t, j.State().Terminal())

	assert.ErrorIs(t, j.advance(ctx, model.StateRolledBack), ErrIllegalTransition)
	assert.ErrorIs(t, j.advance(ctx, model.StatePending), ErrIllegalTransition)
}

func TestWriteSummary(t *testing.T) {
	s := &model.RunSummary{
		RunID: "r1",
		Tables: []model.TableReport{
			{Kind: model.KindBillingCodes, Table: "billing_codes", State: model.StateCommitted,
				Processed: 5, Inserted: 2, Rejected: 3, Derived: map[string]int64{"specialties": 2}},
			{Kind: model.KindEstablishments, Table: "establishments", State: model.StateRolledBack,
				Processed: 3, Failed: 2, Phase: PhaseLoad, Error: "boom"},
		},
		Dangling: []model.DanglingRef{{ContextCode: "C002", BillingCode: "99999"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "billing_codes")
	assert.Contains(t, out, "specialties")
	assert.Contains(t, out, "FAILED establishments at load: boom")
	assert.Contains(t, out, "1 dangling link(s)")
	assert.Contains(t, out, "context element C002 -> billing code 99999")
}
