package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loclift/growth-cli/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scoring run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a client's scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		clientID, _ := cmd.Flags().GetString("client")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListScoringRuns(ctx, clientID, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No scoring runs found.")
			return nil
		}

		formatScoringRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("client", "", "client identifier (required)")
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")
	_ = runsListCmd.MarkFlagRequired("client")

	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

func formatScoringRuns(out io.Writer, runs []model.ScoringRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tGEO\tVERTICAL\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---\t--------\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(r.ID), r.Geo, r.Vertical, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
