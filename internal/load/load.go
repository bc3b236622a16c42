// Package load replaces reference tables wholesale inside one transaction
// per record kind.
package load

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store"
)

// DefaultTimeout bounds a single table's load transaction.
const DefaultTimeout = 5 * time.Minute

// Result holds the outcome of one Replace call.
type Result struct {
	Received int64
	Inserted int64
	// Failed is the number of rows lost because the transaction rolled back.
	Failed int64
	// Derived holds inserted counts for secondary tables, keyed by table name.
	Derived  map[string]int64
	Deleted  int64
	Duration time.Duration
	Err      error
}

// Committed reports whether the transaction committed.
func (r Result) Committed() bool {
	return r.Err == nil
}

// Loader writes transformed records into a Store.
type Loader struct {
	store   store.Store
	timeout time.Duration
	log     zerolog.Logger
}

// New returns a Loader. A non-positive timeout selects DefaultTimeout.
func New(s store.Store, timeout time.Duration, log zerolog.Logger) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{store: s, timeout: timeout, log: log}
}

// Replace deletes and re-inserts every table in sets within one transaction.
// The first set is the kind's primary table; the rest are derived tables
// recomputed alongside it. On any failure, including the timeout, nothing
// is committed and every table keeps its prior contents.
func (l *Loader) Replace(ctx context.Context, kind model.Kind, sets ...model.TableRows) Result {
	start := time.Now()
	log := l.log.With().Str("kind", string(kind)).Logger()

	res := Result{Derived: make(map[string]int64)}
	var attempted int64
	for _, s := range sets {
		attempted += int64(len(s.Rows))
	}
	if len(sets) > 0 {
		res.Received = int64(len(sets[0].Rows))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var inserted, deleted int64
	derived := make(map[string]int64)
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		for i, s := range sets {
			n, err := tx.DeleteAll(ctx, s.Table)
			if err != nil {
				return fmt.Errorf("delete %s: %w", s.Table.Name, err)
			}
			deleted += n

			n, err = tx.Insert(ctx, s.Table, s.Rows)
			if err != nil {
				return fmt.Errorf("insert %s: %w", s.Table.Name, err)
			}
			if i == 0 {
				inserted = n
			} else {
				derived[s.Table.Name] = n
			}
		}
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		res.Failed = attempted
		log.Error().Err(err).
			Int64("rows_failed", res.Failed).
			Str("duration", res.Duration.String()).
			Msg("load rolled back")
		return res
	}

	res.Inserted = inserted
	res.Deleted = deleted
	res.Derived = derived
	ev := log.Info().
		Int64("rows_deleted", deleted).
		Int64("rows_inserted", inserted)
	for name, n := range derived {
		ev = ev.Int64(name, n)
	}
	ev.Str("duration", res.Duration.String()).Msg("load committed")
	return res
}
