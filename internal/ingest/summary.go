package ingest

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/gyeh/ramqload/internal/model"
)

// WriteSummary prints the operator-facing summary of a run: one line per
// table, then the dangling-reference report.
func WriteSummary(w io.Writer, s *model.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s (%.1fs)\n", s.RunID, s.DurationTotal.Seconds())
	fmt.Fprintln(tw, "TABLE\tSTATE\tPROCESSED\tINSERTED\tREJECTED\tFAILED\tTRUNCATED\t")
	for _, t := range s.Tables {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t\n",
			t.Table, t.State, t.Processed, t.Inserted, t.Rejected, t.Failed, t.Truncated)
		names := make([]string, 0, len(t.Derived))
		for name := range t.Derived {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "  %s\t(derived)\t\t%d\t\t\t\t\n", name, t.Derived[name])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, t := range s.Failed() {
		fmt.Fprintf(w, "FAILED %s at %s: %s\n", t.Table, t.Phase, t.Error)
	}
	if s.ValidationErr != "" {
		fmt.Fprintf(w, "validation did not run: %s\n", s.ValidationErr)
		return nil
	}
	if len(s.Dangling) == 0 {
		_, err := fmt.Fprintln(w, "referential check: all context links resolve")
		return err
	}
	fmt.Fprintf(w, "referential check: %d dangling link(s)\n", len(s.Dangling))
	for _, d := range s.Dangling {
		fmt.Fprintf(w, "  context element %s -> billing code %s\n", d.ContextCode, d.BillingCode)
	}
	return nil
}
