package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gyeh/ramqload/internal/config"
	"github.com/gyeh/ramqload/internal/db"
	"github.com/gyeh/ramqload/internal/exitcode"
	"github.com/gyeh/ramqload/internal/logging"
	"github.com/gyeh/ramqload/internal/model"
)

const envPrefix = "RAMQLOAD"

var (
	cfg         config.Config
	sourceFlags map[string]string
)

var rootCmd = &cobra.Command{
	Use:   "ramqload",
	Short: "RAMQ reference-data XML → Postgres loader",
	Long: "Parses RAMQ reference-data XML extracts, normalizes them into typed records and " +
		"replaces the matching Postgres tables, one transaction per table.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setAllConfig(viper.New(), cmd.Flags())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set RAMQLOAD_DSN)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// setAllConfig fills every flag the user did not set on the command line
// from its RAMQLOAD_* environment variable, if present.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = fmt.Errorf("%s_%s: %w", envPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err)
		}
	})
	return flagErr
}

func setupLogger() zerolog.Logger {
	return logging.Setup(cfg.LogFormat, cfg.LogLevel)
}

// addSourceFlags registers the flags that select input files.
func addSourceFlags(f *pflag.FlagSet) {
	f.StringVar(&cfg.ManifestPath, "manifest", "", "YAML manifest listing sources and run options")
	f.StringToStringVar(&sourceFlags, "source", nil,
		"Source file per kind, e.g. --source billing_codes=cod_fact.xml (kinds: "+strings.Join(model.KindNames(), ", ")+")")
	f.StringVar(&cfg.AsOf, "as-of", "", "Reference date (YYYY-MM-DD) for establishment activity; defaults to today")
	f.IntVar(&cfg.Parallelism, "parallelism", 0, "Maximum tables processed concurrently (0 = all)")
}

// loadSources merges --source flags and the manifest into cfg.
func loadSources() error {
	cfg.Sources = make(map[model.Kind]string, len(sourceFlags))
	for name, path := range sourceFlags {
		kind, ok := model.ParseKind(name)
		if !ok {
			return fmt.Errorf("--source: unknown kind %q", name)
		}
		cfg.Sources[kind] = path
	}
	if cfg.ManifestPath != "" {
		if err := cfg.LoadFromFile(cfg.ManifestPath); err != nil {
			return err
		}
	}
	return nil
}

// openStore connects to Postgres or exits.
func openStore(ctx context.Context, log zerolog.Logger) *db.PGStore {
	if cfg.DSN == "" {
		log.Error().Msg("--dsn or RAMQLOAD_DSN is required")
		os.Exit(exitcode.UsageError)
	}
	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return db.NewStore(pool)
}
