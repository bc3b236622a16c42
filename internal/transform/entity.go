package transform

import (
	"fmt"
	"slices"

	"github.com/gyeh/ramqload/internal/checkpoint"
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// Output is the materialized result of transforming one kind.
type Output struct {
	Kind model.Kind
	// Sets holds the primary table first, then derived tables.
	Sets  []model.TableRows
	Stats Stats

	records any // typed slice, encoded as-is into checkpoints
}

// Rows returns the records destined for the kind's own table.
func (o *Output) Rows() []model.Record {
	return o.Sets[0].Rows
}

// Records returns the typed record slice.
func (o *Output) Records() any {
	return o.records
}

// Entity is the kind-independent face of a Descriptor, used by the pipeline
// to dispatch on model.Kind.
type Entity interface {
	RecordKind() model.Kind
	Layout() Layout
	Transform(root *xmltree.Node, opts Options) (*Output, error)
	ReadCheckpoint(path string, opts Options) (*Output, checkpoint.Metadata, error)
}

// Layout is where a kind's records sit in its XML extract.
type Layout struct {
	Roots    []string
	Path     []string
	KeyField string
}

func (d *Descriptor[T]) RecordKind() model.Kind { return d.Kind }

func (d *Descriptor[T]) Layout() Layout {
	return Layout{Roots: d.Roots, Path: d.Path, KeyField: d.KeyField}
}

// Transform checks the root element and runs a full pass.
func (d *Descriptor[T]) Transform(root *xmltree.Node, opts Options) (*Output, error) {
	records, stats, err := d.Collect(root, opts)
	if err != nil {
		return nil, err
	}
	return &Output{Kind: d.Kind, Sets: d.Sets(records), Stats: stats, records: records}, nil
}

// ReadCheckpoint rebuilds an Output from a JSON artifact written after an
// earlier transformation. Records are checked again and refreshed against
// opts.AsOf; failing records are rejected like their XML counterparts.
func (d *Descriptor[T]) ReadCheckpoint(path string, opts Options) (*Output, checkpoint.Metadata, error) {
	a, err := checkpoint.Read[T](path)
	if err != nil {
		return nil, checkpoint.Metadata{}, err
	}
	if a.Metadata.Kind != d.Kind {
		return nil, a.Metadata, fmt.Errorf("checkpoint %s holds %s, want %s", path, a.Metadata.Kind, d.Kind)
	}
	stats := Stats{
		Processed: int64(len(a.Records)) + a.Metadata.RejectedCount,
		Rejected:  a.Metadata.RejectedCount,
	}
	records := make([]T, 0, len(a.Records))
	for i, rec := range a.Records {
		if err := d.check(rec); err != nil {
			stats.reject(err)
			opts.Log.Warn().
				Err(err).
				Str("kind", string(d.Kind)).
				Int("record", i).
				Str("checkpoint", path).
				Msg("checkpoint record rejected")
			continue
		}
		if d.Refresh != nil {
			rec = d.Refresh(rec, opts)
		}
		records = append(records, rec)
	}
	stats.Accepted = int64(len(records))
	return &Output{Kind: d.Kind, Sets: d.Sets(records), Stats: stats, records: records}, a.Metadata, nil
}

var registry = map[model.Kind]Entity{
	model.KindBillingCodes:        BillingCodes,
	model.KindContextElements:     ContextElements,
	model.KindExplanatoryMessages: ExplanatoryMessages,
	model.KindDiagnosticCodes:     DiagnosticCodes,
	model.KindLocationCodes:       LocationCodes,
	model.KindEstablishments:      Establishments,
}

// All returns every Entity in canonical kind order.
func All() []Entity {
	out := make([]Entity, len(model.AllKinds))
	for i, k := range model.AllKinds {
		out[i] = registry[k]
	}
	return out
}

// ByRoot returns the Entity whose extract uses the given root element.
func ByRoot(tag string) (Entity, bool) {
	for _, e := range All() {
		if slices.Contains(e.Layout().Roots, tag) {
			return e, true
		}
	}
	return nil, false
}

// Lookup returns the Entity for kind.
func Lookup(kind model.Kind) (Entity, bool) {
	e, ok := registry[kind]
	return e, ok
}
