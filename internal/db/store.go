package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ramqload/internal/model"
	embedsql "github.com/gyeh/ramqload/internal/sql"
	"github.com/gyeh/ramqload/internal/store"
)

// Schema holds every reference table.
const Schema = "ramq"

// PGStore is the Postgres-backed store.Store.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*PGStore)(nil)

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Pool returns the underlying pool.
func (s *PGStore) Pool() *pgxpool.Pool {
	return s.pool
}

// InTx runs fn in a database transaction. Rollback after a successful
// Commit is a no-op.
func (s *PGStore) InTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func tableIdent(t model.Table) pgx.Identifier {
	return pgx.Identifier{Schema, t.Name}
}

func (t pgTx) DeleteAll(ctx context.Context, table model.Table) (int64, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM "+tableIdent(table).Sanitize())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t pgTx) Insert(ctx context.Context, table model.Table, rows []model.Record) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	src := NewRecordSource(rows)
	n, err := t.tx.CopyFrom(ctx, tableIdent(table), table.Columns, src)
	if err != nil {
		return n, fmt.Errorf("copy near row %d: %w", src.Position(), err)
	}
	return n, nil
}

func (s *PGStore) BillingCodeKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, embedsql.BillingCodeKeys)
	if err != nil {
		return nil, err
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		out[c] = struct{}{}
	}
	return out, nil
}

func (s *PGStore) ContextLinks(ctx context.Context) ([]model.ContextLink, error) {
	rows, err := s.pool.Query(ctx, embedsql.ContextLinks)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ContextLink, error) {
		var l model.ContextLink
		err := row.Scan(&l.ContextCode, &l.LinkedCodes)
		return l, err
	})
}

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")
