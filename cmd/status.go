package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show table counts and recent collection runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "status: counts")
		}
		fmt.Println("Records:")
		for _, table := range []string{"legislators", "expenditures", "amendments", "bills", "votes", "ballots"} {
			fmt.Printf("  %-14s %d\n", table, counts[table])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := st.ListCollections(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status: list collections")
		}
		if len(entries) == 0 {
			zap.L().Info("no collection runs recorded, run 'kritikos collect' first")
			return nil
		}

		fmt.Println()
		formatCollectionEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "number of collection runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatCollectionEntries writes a tabular view of collection runs to w.
func formatCollectionEntries(out io.Writer, entries []store.CollectionEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTARGET\tSOURCE\tSTATUS\tSTARTED\tDURATION\tFOUND\tSAVED\tSKIPPED\tERRORS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t------\t-------\t--------\t-----\t-----\t-------\t------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			e.ID,
			e.Target,
			e.Source,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.Found,
			e.Saved,
			e.Skipped,
			e.Errors,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
