package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ramqload/internal/db"
	"github.com/gyeh/ramqload/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()

	st := openStore(ctx, log)
	defer st.Pool().Close()

	applied, err := db.ApplyMigrations(ctx, st.Pool(), log)
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.LoadError)
	}

	log.Info().Int("applied", applied).Msg("schema up to date")
	return nil
}
