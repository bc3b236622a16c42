package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gyeh/ramqload/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a ramqload run.
type Config struct {
	DSN          string
	LogFormat    string // "text" or "json"
	LogLevel     string
	ManifestPath string

	// Sources maps each kind to its input file.
	Sources       map[model.Kind]string
	CheckpointDir string
	Parquet       bool
	LoadTimeout   time.Duration
	Parallelism   int
	// AsOf is the "2006-01-02" reference date for establishment activity;
	// empty means today.
	AsOf string
}

// manifest is the on-disk YAML structure.
type manifest struct {
	Sources       map[string]string `yaml:"sources"`
	CheckpointDir string            `yaml:"checkpoint_dir"`
	Parquet       bool              `yaml:"parquet"`
	LoadTimeout   time.Duration     `yaml:"load_timeout"`
	Parallelism   int               `yaml:"parallelism"`
	AsOf          string            `yaml:"as_of"`
}

// LoadFromFile reads a YAML manifest and merges it into Config. Values
// already set on Config (from flags or the environment) win. Relative paths
// in the manifest are resolved against the manifest's directory.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	base := filepath.Dir(path)

	if c.Sources == nil {
		c.Sources = make(map[model.Kind]string, len(m.Sources))
	}
	for name, file := range m.Sources {
		kind, ok := model.ParseKind(name)
		if !ok {
			return fmt.Errorf("unknown kind %q in manifest sources", name)
		}
		if _, ok := c.Sources[kind]; !ok {
			c.Sources[kind] = resolve(base, file)
		}
	}
	if c.CheckpointDir == "" && m.CheckpointDir != "" {
		c.CheckpointDir = resolve(base, m.CheckpointDir)
	}
	c.Parquet = c.Parquet || m.Parquet
	if c.LoadTimeout == 0 {
		c.LoadTimeout = m.LoadTimeout
	}
	if c.Parallelism == 0 {
		c.Parallelism = m.Parallelism
	}
	if c.AsOf == "" {
		c.AsOf = m.AsOf
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Kinds returns the configured kinds in canonical order.
func (c *Config) Kinds() []model.Kind {
	var out []model.Kind
	for _, k := range model.AllKinds {
		if _, ok := c.Sources[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// AsOfDate parses AsOf, defaulting to today.
func (c *Config) AsOfDate() (model.Date, error) {
	if c.AsOf == "" {
		return model.DateOf(time.Now()), nil
	}
	d, err := model.ParseISODate(c.AsOf)
	if err != nil {
		return model.Date{}, fmt.Errorf("--as-of: %w", err)
	}
	return d, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured (use --manifest or --source kind=path)")
	}
	for _, k := range c.Kinds() {
		if _, err := os.Stat(c.Sources[k]); err != nil {
			return fmt.Errorf("%s source not accessible: %w", k, err)
		}
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("--log-format must be text or json, got %q", c.LogFormat)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("--parallelism must not be negative")
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("--load-timeout must not be negative")
	}
	if c.Parquet && c.CheckpointDir == "" {
		return fmt.Errorf("--parquet requires --checkpoint-dir")
	}
	if _, err := c.AsOfDate(); err != nil {
		return err
	}
	return nil
}

// ValidateWithDSN checks both sources and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or RAMQLOAD_DSN is required")
	}
	return nil
}
