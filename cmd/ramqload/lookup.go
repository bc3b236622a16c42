package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ramqload/internal/db"
	"github.com/gyeh/ramqload/internal/exitcode"
	"github.com/gyeh/ramqload/internal/model"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Read loaded reference records",
}

var lookupBillingCodeCmd = &cobra.Command{
	Use:   "billing-code <cod_fact>",
	Short: "Show a billing code and whether it is effective on a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookupBillingCode,
}

var lookupEstablishmentCmd = &cobra.Command{
	Use:   "establishment <id_lieu_phys>",
	Short: "Show an establishment by canonical or alternate id",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookupEstablishment,
}

var lookupOn string

func init() {
	lookupBillingCodeCmd.Flags().StringVar(&lookupOn, "on", "", "Date (YYYY-MM-DD) to check validity against; defaults to today")
	lookupEstablishmentCmd.Flags().StringVar(&lookupOn, "on", "", "Date (YYYY-MM-DD) to check validity against; defaults to today")
	lookupCmd.AddCommand(lookupBillingCodeCmd, lookupEstablishmentCmd)
	rootCmd.AddCommand(lookupCmd)
}

func lookupDate() model.Date {
	c := cfg
	c.AsOf = lookupOn
	d, err := c.AsOfDate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "--on: %v\n", err)
		os.Exit(exitcode.UsageError)
	}
	return d
}

func printRecord(rec any, w model.Window, on model.Date) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	fmt.Printf("effective on %s: %t\n", on, w.Contains(on))
	return nil
}

func exitLookup(err error) {
	if errors.Is(err, db.ErrNotFound) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.NotFound)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitcode.LoadError)
}

func runLookupBillingCode(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()
	on := lookupDate()

	st := openStore(ctx, log)
	defer st.Pool().Close()

	b, err := st.BillingCode(ctx, args[0])
	if err != nil {
		exitLookup(err)
	}
	return printRecord(b, b.Window, on)
}

func runLookupEstablishment(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()
	on := lookupDate()

	st := openStore(ctx, log)
	defer st.Pool().Close()

	e, err := st.Establishment(ctx, args[0])
	if err != nil {
		exitLookup(err)
	}
	if e.IDLieuPhys != args[0] {
		fmt.Printf("%s is an alternate id of %s\n", args[0], e.IDLieuPhys)
	}
	return printRecord(e, e.Window, on)
}
