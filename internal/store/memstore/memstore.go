// Package memstore is an in-memory Store. Each transaction works on a clone
// of the committed state, which replaces the committed state only on
// success, so rolled-back work is never visible.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store"
)

var (
	// ErrDuplicateKey is returned when an insert repeats a table's key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInjected is returned by inserts selected with FailAt.
	ErrInjected = errors.New("injected insert failure")
)

type tableState struct {
	schema model.Table
	rows   [][]any
	keys   map[string]bool
}

func (t *tableState) clone() *tableState {
	c := &tableState{
		schema: t.schema,
		rows:   append([][]any(nil), t.rows...),
		keys:   make(map[string]bool, len(t.keys)),
	}
	for k := range t.keys {
		c.keys[k] = true
	}
	return c
}

type state map[string]*tableState

func (s state) clone() state {
	c := make(state, len(s))
	for name, t := range s {
		c[name] = t.clone()
	}
	return c
}

// Store is safe for concurrent use; transactions are serialized.
type Store struct {
	mu     sync.Mutex
	state  state
	failAt map[string]int
	// Commits counts successful transactions.
	Commits int
	// Rollbacks counts transactions that did not commit.
	Rollbacks int
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{state: make(state), failAt: make(map[string]int)}
}

// FailAt makes the n-th row (1-based) inserted into table fail, once.
func (s *Store) FailAt(table string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt[table] = n
}

type tx struct {
	store  *Store
	state  state
	failAt map[string]int
}

func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, state: s.state.clone(), failAt: s.failAt}
	if err := fn(t); err != nil {
		s.Rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		s.Rollbacks++
		return fmt.Errorf("commit: %w", err)
	}
	s.state = t.state
	s.Commits++
	return nil
}

func (t *tx) table(schema model.Table) *tableState {
	ts, ok := t.state[schema.Name]
	if !ok {
		ts = &tableState{schema: schema, keys: make(map[string]bool)}
		t.state[schema.Name] = ts
	}
	return ts
}

func (t *tx) DeleteAll(ctx context.Context, schema model.Table) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ts := t.table(schema)
	n := int64(len(ts.rows))
	ts.rows = nil
	ts.keys = make(map[string]bool)
	return n, nil
}

func (t *tx) Insert(ctx context.Context, schema model.Table, rows []model.Record) (int64, error) {
	ts := t.table(schema)
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return int64(i), err
		}
		if n, ok := t.failAt[schema.Name]; ok && n == i+1 {
			delete(t.failAt, schema.Name)
			return int64(i), fmt.Errorf("%s row %d: %w", schema.Name, i+1, ErrInjected)
		}
		key := r.Key()
		if ts.keys[key] {
			return int64(i), fmt.Errorf("%s key %q: %w", schema.Name, key, ErrDuplicateKey)
		}
		ts.keys[key] = true
		ts.rows = append(ts.rows, r.CopyValues())
	}
	return int64(len(rows)), nil
}

// Rows returns the committed rows of a table in insertion order.
func (s *Store) Rows(table string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.state[table]
	if !ok {
		return nil
	}
	return append([][]any(nil), ts.rows...)
}

// Keys returns the committed keys of a table, sorted.
func (s *Store) Keys(table string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.state[table]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(ts.keys))
	for k := range ts.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) BillingCodeKeys(ctx context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, k := range s.Keys(model.BillingCodesTable.Name) {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *Store) ContextLinks(ctx context.Context) ([]model.ContextLink, error) {
	tbl := model.ContextElementsTable
	codeIdx := tbl.KeyIndex()
	linkIdx := tbl.ColumnIndex("linked_billing_codes")

	var links []model.ContextLink
	for _, row := range s.Rows(tbl.Name) {
		code, _ := row[codeIdx].(string)
		linked, _ := row[linkIdx].([]string)
		links = append(links, model.ContextLink{ContextCode: code, LinkedCodes: linked})
	}
	return links, nil
}
