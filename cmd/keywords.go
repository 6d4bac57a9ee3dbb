package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/store"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List stored keyword records",
	Long: `Lists a client's keyword intelligence rows ordered by confidence.

Examples:
  keywords --client acme
  keywords --client acme --region WI --min-confidence 0.7 --limit 25`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		clientID, _ := cmd.Flags().GetString("client")
		region, _ := cmd.Flags().GetString("region")
		minConf, _ := cmd.Flags().GetFloat64("min-confidence")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.QueryKeywordRecords(ctx, store.KeywordFilter{
			ClientID:      clientID,
			Region:        region,
			MinConfidence: minConf,
			Limit:         limit,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No keyword records found.")
			return nil
		}

		formatKeywordRecords(os.Stdout, records)
		return nil
	},
}

func init() {
	f := keywordsCmd.Flags()
	f.String("client", "", "client identifier (required)")
	f.String("region", "", "filter by region")
	f.Float64("min-confidence", 0, "minimum confidence 0-1")
	f.Int("limit", 50, "max number of records to display")
	_ = keywordsCmd.MarkFlagRequired("client")

	rootCmd.AddCommand(keywordsCmd)
}

func formatKeywordRecords(out io.Writer, records []model.KeywordRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEYWORD\tTYPE\tREGION\tFREQ\tCONF\tLAST_SEEN")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t----\t----\t---------")
	for _, r := range records {
		keyword := r.Keyword
		if len(keyword) > 40 {
			keyword = keyword[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			keyword, r.KeywordType, r.Region, r.Frequency,
			r.ConfidenceScore, r.LastSeen.Format("2006-01-02"))
	}
	_ = w.Flush()
}
