package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/ramqload/internal/model"
	embedsql "github.com/gyeh/ramqload/internal/sql"
)

// RecordJob upserts the current state of one import job into
// ramq.import_jobs.
func (s *PGStore) RecordJob(ctx context.Context, runID string, rep model.TableReport) error {
	_, err := s.pool.Exec(ctx, embedsql.UpsertImportJob,
		runID, string(rep.Kind), string(rep.State), rep.Phase, rep.Error,
		rep.Processed, rep.Inserted, rep.Rejected, rep.Failed, rep.Truncated,
	)
	if err != nil {
		return fmt.Errorf("record job %s/%s: %w", runID, rep.Kind, err)
	}
	return nil
}

// Jobs returns the recorded jobs of a run, ordered by kind.
func (s *PGStore) Jobs(ctx context.Context, runID string) ([]model.TableReport, error) {
	rows, err := s.pool.Query(ctx, embedsql.ImportJobsForRun, runID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TableReport, error) {
		var (
			r           model.TableReport
			kind, state string
		)
		err := row.Scan(&kind, &state, &r.Phase, &r.Error,
			&r.Processed, &r.Inserted, &r.Rejected, &r.Failed, &r.Truncated)
		r.Kind, r.State = model.Kind(kind), model.JobState(state)
		r.Table = r.Kind.Table().Name
		return r, err
	})
}
