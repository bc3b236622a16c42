// Package store defines the persistence boundary of the pipeline. The loader
// is the only writer; the validator and lookups only read.
package store

import (
	"context"

	"github.com/gyeh/ramqload/internal/model"
)

// Tx is the write side available inside one transaction.
type Tx interface {
	// DeleteAll removes every row of table and returns how many were removed.
	DeleteAll(ctx context.Context, table model.Table) (int64, error)
	// Insert bulk-inserts rows into table and returns how many were written.
	Insert(ctx context.Context, table model.Table, rows []model.Record) (int64, error)
}

// Store is a transactional destination for reference tables.
type Store interface {
	// InTx runs fn in a single transaction. The transaction commits only if
	// fn returns nil and ctx is still live; otherwise it rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// BillingCodeKeys returns the set of loaded billing codes.
	BillingCodeKeys(ctx context.Context) (map[string]struct{}, error)
	// ContextLinks returns every context element with its linked billing codes.
	ContextLinks(ctx context.Context) ([]model.ContextLink, error)
}
