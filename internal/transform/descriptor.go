// Package transform maps parsed RAMQ extracts onto flat, typed records.
// A single generic Descriptor drives every record kind; each kind only
// supplies its root names, record path and field mapping.
package transform

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/rs/zerolog"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/xmltree"
)

var (
	// ErrUnexpectedRoot is returned when a document's root element is not one
	// of the versioned roots accepted for the kind. It is fatal for the file.
	ErrUnexpectedRoot = errors.New("unexpected root element")
	// ErrMissingKey marks records without their identifying field.
	ErrMissingKey = errors.New("missing identifying field")
	// ErrInvalidWindow marks records whose validity end precedes their start.
	ErrInvalidWindow = errors.New("validity end before validity start")
)

// FieldError reports a source field that could not be converted.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %s: %s", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// Options parameterize a transformation pass.
type Options struct {
	// AsOf is the reference date for derived activity flags.
	AsOf model.Date
	Log  zerolog.Logger
}

// Stats counts the outcome of one transformation pass.
type Stats struct {
	Processed int64
	Accepted  int64
	Rejected  int64
	// Truncated counts list entries dropped by index pairing.
	Truncated int64
	Reasons   map[string]int64
}

func (s *Stats) reject(err error) {
	s.Rejected++
	if s.Reasons == nil {
		s.Reasons = make(map[string]int64)
	}
	s.Reasons[reasonOf(err)]++
}

func reasonOf(err error) string {
	var fe *FieldError
	switch {
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, ErrInvalidWindow):
		return "invalid_window"
	case errors.As(err, &fe):
		return "invalid_" + fe.Field
	}
	return "other"
}

// Descriptor is the field-mapping description of one record kind.
type Descriptor[T model.Record] struct {
	Kind model.Kind
	// Roots lists the accepted root element names, one per extract version.
	Roots []string
	// Path leads from the root to each record element.
	Path []string
	// KeyField names the identifying source field, for diagnostics.
	KeyField string
	Map      func(n *xmltree.Node, m *mapper) T
	// Derive builds tables recomputed from this kind's records.
	Derive func(records []T) []model.TableRows
	// Refresh recomputes fields that depend on Options, such as activity
	// flags, for records read back from a checkpoint.
	Refresh func(rec T, opts Options) T
}

// CheckRoot verifies that root is one of the descriptor's versioned roots.
func (d *Descriptor[T]) CheckRoot(root *xmltree.Node) error {
	if root == nil || !slices.Contains(d.Roots, root.Tag) {
		tag := ""
		if root != nil {
			tag = root.Tag
		}
		return fmt.Errorf("%w: got <%s>, want one of %v", ErrUnexpectedRoot, tag, d.Roots)
	}
	return nil
}

// Records returns a lazy sequence over the accepted records below root.
// Each iteration walks the tree again and updates stats; rejected records
// are logged, counted and skipped.
func (d *Descriptor[T]) Records(root *xmltree.Node, stats *Stats, opts Options) iter.Seq[T] {
	return func(yield func(T) bool) {
		for i, n := range root.Path(d.Path...) {
			stats.Processed++
			rec, truncated, err := d.mapOne(n, opts)
			if err != nil {
				stats.reject(err)
				opts.Log.Warn().
					Err(err).
					Str("kind", string(d.Kind)).
					Int("record", i).
					Str(d.KeyField, n.Value(d.KeyField)).
					Msg("record rejected")
				continue
			}
			stats.Accepted++
			stats.Truncated += truncated
			if !yield(rec) {
				return
			}
		}
	}
}

func (d *Descriptor[T]) mapOne(n *xmltree.Node, opts Options) (T, int64, error) {
	m := &mapper{opts: opts}
	rec := d.Map(n, m)
	var zero T
	if m.err != nil {
		return zero, m.truncated, m.err
	}
	if err := d.check(rec); err != nil {
		return zero, m.truncated, err
	}
	return rec, m.truncated, nil
}

// check applies the record-level rules shared by extracts and checkpoints.
func (d *Descriptor[T]) check(rec T) error {
	if rec.Key() == "" {
		return fmt.Errorf("%w %s", ErrMissingKey, d.KeyField)
	}
	if !rec.Validity().Valid() {
		return ErrInvalidWindow
	}
	return nil
}

// Collect runs a full pass and materializes the accepted records.
func (d *Descriptor[T]) Collect(root *xmltree.Node, opts Options) ([]T, Stats, error) {
	var stats Stats
	if err := d.CheckRoot(root); err != nil {
		return nil, stats, err
	}
	records := slices.Collect(d.Records(root, &stats, opts))
	if records == nil {
		records = []T{}
	}
	return records, stats, nil
}

// Sets returns the primary table rows followed by any derived tables.
func (d *Descriptor[T]) Sets(records []T) []model.TableRows {
	sets := []model.TableRows{{Table: d.Kind.Table(), Rows: model.AsRecords(records)}}
	if d.Derive != nil {
		sets = append(sets, d.Derive(records)...)
	}
	return sets
}
