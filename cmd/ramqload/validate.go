package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ramqload/internal/exitcode"
	"github.com/gyeh/ramqload/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report context-element links that do not resolve to a loaded billing code",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()

	st := openStore(ctx, log)
	defer st.Pool().Close()

	rep, err := validate.Validate(ctx, st)
	if err != nil {
		log.Error().Err(err).Msg("validation failed")
		os.Exit(exitcode.LoadError)
	}

	fmt.Printf("%d context elements, %d links checked, %d dangling\n",
		rep.ContextElements, rep.LinksChecked, len(rep.Dangling))
	for _, d := range rep.Dangling {
		fmt.Printf("  context element %s -> billing code %s\n", d.ContextCode, d.BillingCode)
	}
	return nil
}
