package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/loclift/growth-cli/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect keyword observation history and decay",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked keywords with usage counts and decay factors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tracker, fs, err := initTracker()
		if err != nil {
			return err
		}
		defer fs.Close() //nolint:errcheck

		entries := fs.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No keyword history recorded.")
			return nil
		}

		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		formatHistoryList(os.Stdout, tracker, keys, entries)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <keyword>",
	Short: "Show one keyword's history entry and decay factor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, fs, err := initTracker()
		if err != nil {
			return err
		}
		defer fs.Close() //nolint:errcheck

		e, found, err := tracker.Get(args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Printf("No history for %q (decay factor 1.00)\n", args[0])
			return nil
		}

		fmt.Printf("Keyword:      %s\n", history.Key(args[0]))
		fmt.Printf("First seen:   %s\n", e.FirstSeen.Format(time.RFC3339))
		fmt.Printf("Last seen:    %s\n", e.LastSeen.Format(time.RFC3339))
		fmt.Printf("Usage count:  %d\n", e.UsageCount)
		fmt.Printf("Avg conf:     %.2f\n", e.AvgConfidence)
		if e.LastRegion != "" {
			fmt.Printf("Last region:  %s\n", e.LastRegion)
		}
		fmt.Printf("Decay factor: %.2f\n", tracker.DecayFactor(args[0]))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func formatHistoryList(out io.Writer, tracker *history.Tracker, keys []string, entries map[string]history.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEYWORD\tUSES\tAVG_CONF\tLAST_SEEN\tDECAY")
	_, _ = fmt.Fprintln(w, "-------\t----\t--------\t---------\t-----")
	for _, k := range keys {
		e := entries[k]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\t%.2f\n",
			k, e.UsageCount, e.AvgConfidence,
			e.LastSeen.Format("2006-01-02"), tracker.DecayFactor(k))
	}
	_ = w.Flush()
}
