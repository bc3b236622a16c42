package ingest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/ramqload/internal/checkpoint"
	"github.com/gyeh/ramqload/internal/load"
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/normalize"
	"github.com/gyeh/ramqload/internal/store"
	"github.com/gyeh/ramqload/internal/transform"
	"github.com/gyeh/ramqload/internal/validate"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// Phases reported in PipelineError and TableReport.Phase.
const (
	PhaseParse      = "parse"
	PhaseTransform  = "transform"
	PhaseCheckpoint = "checkpoint"
	PhaseLoad       = "load"
	PhaseValidate   = "validate"
)

// PipelineError wraps an error with the phase and kind where it occurred.
type PipelineError struct {
	Phase string
	Kind  model.Kind
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// SourceFormat tells the pipeline how to read a Source.
type SourceFormat string

const (
	FormatXML        SourceFormat = "xml"
	FormatCheckpoint SourceFormat = "checkpoint"
)

// Source is one input file for one kind.
type Source struct {
	Kind   model.Kind
	Path   string
	Format SourceFormat
}

// Options configure a Pipeline.
type Options struct {
	// AsOf is the reference date for Establishment.IsActive. Zero means today.
	AsOf model.Date
	// CheckpointDir, when set, receives a JSON artifact per transformed kind.
	CheckpointDir string
	// Parquet adds a Parquet snapshot beside each JSON artifact.
	Parquet     bool
	Parallelism int
	LoadTimeout time.Duration
}

// Pipeline runs Parser → Transformer → Loader per kind, then the validator.
type Pipeline struct {
	store    store.Store
	loader   *load.Loader
	recorder StatusRecorder
	log      zerolog.Logger
	opts     Options
}

// New builds a Pipeline. A nil recorder discards status updates.
func New(s store.Store, rec StatusRecorder, log zerolog.Logger, opts Options) *Pipeline {
	if rec == nil {
		rec = nopRecorder{}
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = model.DateOf(time.Now())
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = len(model.AllKinds)
	}
	return &Pipeline{
		store:    s,
		loader:   load.New(s, opts.LoadTimeout, log),
		recorder: rec,
		log:      log,
		opts:     opts,
	}
}

func checkSources(sources []Source) error {
	seen := make(map[model.Kind]bool, len(sources))
	for _, src := range sources {
		if _, ok := transform.Lookup(src.Kind); !ok {
			return fmt.Errorf("unknown kind %q", src.Kind)
		}
		if seen[src.Kind] {
			// Two jobs on one table would race on the same replace-all.
			return fmt.Errorf("kind %s listed more than once", src.Kind)
		}
		seen[src.Kind] = true
		if src.Format != FormatXML && src.Format != FormatCheckpoint {
			return fmt.Errorf("%s: unknown source format %q", src.Kind, src.Format)
		}
	}
	return nil
}

// Run imports every source and then validates cross-table references.
// Per-table failures are reported in the summary and never stop other
// tables; the returned error is non-nil only for unusable input.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (*model.RunSummary, error) {
	totalStart := time.Now()
	if err := checkSources(sources); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().Int("sources", len(sources)).Int("parallelism", p.opts.Parallelism).Msg("starting run")

	reports := make([]model.TableReport, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)
	for i, src := range sources {
		g.Go(func() error {
			rep, err := p.runJob(gctx, runID, src, log)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Kind < reports[j].Kind })

	summary := &model.RunSummary{RunID: runID, Tables: reports}

	rep, err := validate.Validate(ctx, p.store)
	if err != nil {
		pe := &PipelineError{Phase: PhaseValidate, Err: err}
		summary.ValidationErr = pe.Error()
		log.Error().Err(err).Msg("referential validation failed")
	} else {
		summary.Dangling = rep.Dangling
		ev := log.Info()
		if !rep.OK() {
			ev = log.Warn()
		}
		ev.Int("context_elements", rep.ContextElements).
			Int("links_checked", rep.LinksChecked).
			Int("dangling", len(rep.Dangling)).
			Msg("referential validation complete")
	}

	summary.DurationTotal = time.Since(totalStart)
	log.Info().
		Int("tables", len(summary.Tables)).
		Int("failed", len(summary.Failed())).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("run complete")
	return summary, nil
}

// runJob drives one kind through its states. Only ErrIllegalTransition is
// returned; every other failure ends the job in RolledBack.
func (p *Pipeline) runJob(ctx context.Context, runID string, src Source, log zerolog.Logger) (model.TableReport, error) {
	start := time.Now()
	log = log.With().Str("kind", string(src.Kind)).Logger()
	job := newJob(runID, src.Kind, p.recorder, log)
	entity, _ := transform.Lookup(src.Kind)

	fail := func(phase string, err error) (model.TableReport, error) {
		pe := &PipelineError{Phase: phase, Kind: src.Kind, Err: err}
		log.Error().Err(err).Str("phase", phase).Msg("table import rolled back")
		terr := job.fail(ctx, pe)
		job.report.Duration = time.Since(start)
		return job.Report(), terr
	}

	// Parsing
	if err := job.advance(ctx, model.StateParsing); err != nil {
		return job.Report(), err
	}
	var (
		root *xmltree.Node
		out  *transform.Output
	)
	switch src.Format {
	case FormatXML:
		var err error
		if root, err = xmltree.ParseFile(src.Path); err != nil {
			return fail(PhaseParse, err)
		}
	case FormatCheckpoint:
		var err error
		if out, _, err = entity.ReadCheckpoint(src.Path, transform.Options{AsOf: p.opts.AsOf, Log: log}); err != nil {
			return fail(PhaseParse, err)
		}
	}

	// Transforming
	if err := job.advance(ctx, model.StateTransforming); err != nil {
		return job.Report(), err
	}
	if out == nil {
		var err error
		out, err = entity.Transform(root, transform.Options{AsOf: p.opts.AsOf, Log: log})
		if err != nil {
			return fail(PhaseTransform, err)
		}
		if p.opts.CheckpointDir != "" {
			if err := p.writeArtifacts(src, out); err != nil {
				return fail(PhaseCheckpoint, err)
			}
		}
	}
	job.report.Processed = out.Stats.Processed
	job.report.Rejected = out.Stats.Rejected
	job.report.Truncated = out.Stats.Truncated
	log.Info().
		Int64("processed", out.Stats.Processed).
		Int64("accepted", out.Stats.Accepted).
		Int64("rejected", out.Stats.Rejected).
		Int64("truncated", out.Stats.Truncated).
		Msg("transform complete")

	// Loading
	if err := job.advance(ctx, model.StateLoading); err != nil {
		return job.Report(), err
	}
	res := p.loader.Replace(ctx, src.Kind, out.Sets...)
	if res.Err != nil {
		job.report.Failed = res.Failed
		return fail(PhaseLoad, res.Err)
	}
	job.report.Inserted = res.Inserted
	if len(res.Derived) > 0 {
		job.report.Derived = res.Derived
	}
	if err := job.advance(ctx, model.StateCommitted); err != nil {
		return job.Report(), err
	}
	job.report.Duration = time.Since(start)
	return job.Report(), nil
}

// writeArtifacts stores the JSON checkpoint and, if enabled, the Parquet
// snapshot for one transformed kind.
func (p *Pipeline) writeArtifacts(src Source, out *transform.Output) error {
	sha, err := normalize.FileHash(src.Path)
	if err != nil {
		return err
	}
	meta := checkpoint.Metadata{
		Kind:          src.Kind,
		SourceFile:    src.Path,
		SourceSHA256:  sha,
		ExtractedAt:   time.Now().UTC(),
		RecordCount:   len(out.Rows()),
		RejectedCount: out.Stats.Rejected,
		Description:   src.Kind.Description(),
	}
	if err := checkpoint.Write(checkpoint.Path(p.opts.CheckpointDir, src.Kind), meta, out.Records()); err != nil {
		return err
	}
	if !p.opts.Parquet {
		return nil
	}
	if err := os.MkdirAll(p.opts.CheckpointDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return checkpoint.WriteSnapshot(checkpoint.SnapshotPath(p.opts.CheckpointDir, src.Kind), src.Kind, out.Rows())
}

// ExtractResult is the outcome of a parse-and-transform pass without a load.
type ExtractResult struct {
	Kind       model.Kind
	Stats      transform.Stats
	Checkpoint string
	Err        error
}

// Extract parses and transforms every XML source and writes checkpoints,
// without touching the store. The checkpoint directory must be set.
func (p *Pipeline) Extract(ctx context.Context, sources []Source) ([]ExtractResult, error) {
	if err := checkSources(sources); err != nil {
		return nil, err
	}
	if p.opts.CheckpointDir == "" {
		return nil, fmt.Errorf("extract requires a checkpoint directory")
	}

	results := make([]ExtractResult, len(sources))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = p.extractOne(src)
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Kind < results[j].Kind })
	return results, nil
}

func (p *Pipeline) extractOne(src Source) ExtractResult {
	log := p.log.With().Str("kind", string(src.Kind)).Logger()
	res := ExtractResult{Kind: src.Kind}
	if src.Format != FormatXML {
		res.Err = &PipelineError{Phase: PhaseParse, Kind: src.Kind, Err: fmt.Errorf("extract reads XML sources only")}
		return res
	}
	entity, _ := transform.Lookup(src.Kind)

	root, err := xmltree.ParseFile(src.Path)
	if err != nil {
		res.Err = &PipelineError{Phase: PhaseParse, Kind: src.Kind, Err: err}
		return res
	}
	out, err := entity.Transform(root, transform.Options{AsOf: p.opts.AsOf, Log: log})
	if err != nil {
		res.Err = &PipelineError{Phase: PhaseTransform, Kind: src.Kind, Err: err}
		return res
	}
	res.Stats = out.Stats
	if err := p.writeArtifacts(src, out); err != nil {
		res.Err = &PipelineError{Phase: PhaseCheckpoint, Kind: src.Kind, Err: err}
		return res
	}
	res.Checkpoint = checkpoint.Path(p.opts.CheckpointDir, src.Kind)
	log.Info().
		Int64("accepted", out.Stats.Accepted).
		Int64("rejected", out.Stats.Rejected).
		Str("checkpoint", res.Checkpoint).
		Msg("extract complete")
	return res
}
