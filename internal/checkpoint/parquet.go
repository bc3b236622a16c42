package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ramqload/internal/model"
)

// SnapshotRow is the flat Parquet layout of one record, for inspection with
// columnar tools. Payload holds the full record as JSON.
type SnapshotRow struct {
	Kind          string  `parquet:"kind"`
	Key           string  `parquet:"key"`
	Label         string  `parquet:"label"`
	ValidityStart *string `parquet:"validity_start,optional"`
	ValidityEnd   *string `parquet:"validity_end,optional"`
	Payload       string  `parquet:"payload"`
}

// SnapshotPath returns the conventional Parquet snapshot path for kind.
func SnapshotPath(dir string, kind model.Kind) string {
	return filepath.Join(dir, string(kind)+".parquet")
}

// SnapshotRows flattens records for WriteSnapshot.
func SnapshotRows(kind model.Kind, records []model.Record) ([]SnapshotRow, error) {
	rows := make([]SnapshotRow, len(records))
	for i, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode %s record %q: %w", kind, r.Key(), err)
		}
		w := r.Validity()
		rows[i] = SnapshotRow{
			Kind:          string(kind),
			Key:           r.Key(),
			Label:         r.Label(),
			ValidityStart: dateString(w.Start),
			ValidityEnd:   dateString(w.End),
			Payload:       string(payload),
		}
	}
	return rows, nil
}

// WriteSnapshot writes records of one kind to a Parquet file.
func WriteSnapshot(path string, kind model.Kind, records []model.Record) error {
	rows, err := SnapshotRows(kind, records)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[SnapshotRow](f)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close snapshot writer: %w", err)
	}
	return f.Close()
}

// ReadSnapshot reads back every row of a snapshot file.
func ReadSnapshot(path string) ([]SnapshotRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	if err := validateSchema(pf.Schema()); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[SnapshotRow](pf)
	defer reader.Close()

	rows := make([]SnapshotRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && n < len(rows) {
		return nil, fmt.Errorf("read snapshot rows: %w", err)
	}
	return rows[:n], nil
}

// validateSchema checks that a file carries every SnapshotRow column.
func validateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}
	for _, field := range snapshotSchema.Fields() {
		if !columns[field.Name()] {
			return fmt.Errorf("missing required column: %s", field.Name())
		}
	}
	return nil
}

var snapshotSchema = parquet.SchemaOf(SnapshotRow{})

func dateString(d *model.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
