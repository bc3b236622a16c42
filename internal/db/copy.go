package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/ramqload/internal/model"
)

// RecordSource implements pgx.CopyFromSource over a slice of records,
// emitting each row's values in table column order.
type RecordSource struct {
	rows []model.Record
	pos  int
}

// NewRecordSource creates a CopyFromSource backed by rows.
func NewRecordSource(rows []model.Record) *RecordSource {
	return &RecordSource{rows: rows, pos: -1}
}

// Next advances to the next row. Returns false when rows are exhausted.
func (s *RecordSource) Next() bool {
	s.pos++
	return s.pos < len(s.rows)
}

// Values returns the current row's values in COPY column order.
func (s *RecordSource) Values() ([]any, error) {
	return s.rows[s.pos].CopyValues(), nil
}

func (s *RecordSource) Err() error {
	return nil
}

// Position returns the 1-based index of the last row handed to COPY.
func (s *RecordSource) Position() int {
	return s.pos + 1
}

var _ pgx.CopyFromSource = (*RecordSource)(nil)
