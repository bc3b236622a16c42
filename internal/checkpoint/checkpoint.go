// Package checkpoint reads and writes the per-kind JSON artifact that sits
// between transformation and loading, so a load can be re-run without
// re-parsing XML.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gyeh/ramqload/internal/model"
)

// Metadata describes where an artifact's records came from.
type Metadata struct {
	Kind          model.Kind `json:"kind"`
	SourceFile    string     `json:"source_file"`
	SourceSHA256  string     `json:"source_sha256"`
	ExtractedAt   time.Time  `json:"extracted_at"`
	RecordCount   int        `json:"record_count"`
	RejectedCount int64      `json:"rejected_count"`
	Description   string     `json:"description"`
}

// Artifact is the on-disk layout of a checkpoint file.
type Artifact[T any] struct {
	Metadata Metadata `json:"metadata"`
	Records  []T      `json:"records"`
}

// Path returns the conventional artifact path for kind inside dir.
func Path(dir string, kind model.Kind) string {
	return filepath.Join(dir, string(kind)+".json")
}

// Write stores meta and records at path. The file is written beside its
// destination and renamed into place so readers never see a partial file.
func Write(path string, meta Metadata, records any) error {
	data, err := json.MarshalIndent(struct {
		Metadata Metadata `json:"metadata"`
		Records  any      `json:"records"`
	}{meta, records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Read loads an artifact and checks that its record count matches its
// metadata.
func Read[T any](path string) (*Artifact[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var a Artifact[T]
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if a.Records == nil {
		a.Records = []T{}
	}
	if a.Metadata.RecordCount != len(a.Records) {
		return nil, fmt.Errorf("checkpoint %s: metadata declares %d records, found %d",
			path, a.Metadata.RecordCount, len(a.Records))
	}
	return &a, nil
}
