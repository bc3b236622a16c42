package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ramqload/internal/model"
)

// minConns lets every kind hold its replace transaction at once, plus one
// connection for job status writes.
var minConns = int32(len(model.AllKinds)) + 1

// NewPool creates a pgxpool for the loader and pings it.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func poolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	params := cfg.ConnConfig.RuntimeParams
	// Replace transactions are bounded by the per-table load timeout.
	params["statement_timeout"] = "0"
	params["application_name"] = "ramqload"
	// Extract dates are Quebec calendar dates; import_jobs timestamps follow.
	if _, ok := params["timezone"]; !ok {
		params["timezone"] = "America/Montreal"
	}

	if cfg.MaxConns < minConns {
		cfg.MaxConns = minConns
	}
	return cfg, nil
}
