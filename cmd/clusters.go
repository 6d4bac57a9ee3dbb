package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loclift/growth-cli/internal/geophrase"
	"github.com/loclift/growth-cli/internal/model"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Cluster stored geo phrases by city or service",
	Long: `Merges near-duplicate geo-phrase records, then groups them by city
(showing per-service coverage and the vertical's missing services) or by
service (showing per-city coverage and underserved known cities).

Examples:
  clusters --by city --vertical junk_removal
  clusters --by service --vertical junk_removal`,
	RunE: runClusters,
}

func init() {
	f := clustersCmd.Flags()
	f.String("by", "city", "cluster axis: city or service")
	f.String("vertical", "", "service vertical whose reference lists drive gap detection")

	rootCmd.AddCommand(clustersCmd)
}

func runClusters(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	by, _ := cmd.Flags().GetString("by")
	verticalName, _ := cmd.Flags().GetString("vertical")
	if by != "city" && by != "service" {
		return eris.Errorf("clusters: --by must be city or service (got %q)", by)
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	vert, err := vertical(verticalName)
	if err != nil {
		return err
	}

	records, err := st.ListGeoPhrases(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No geo phrases stored.")
		return nil
	}

	merged := geophrase.MergeSimilar(records)
	pairs := pairsFromRecords(merged)

	switch by {
	case "city":
		printCityClusters(os.Stdout, geophrase.ClusterByCity(pairs, vert.OpportunityServices))
	case "service":
		printServiceClusters(os.Stdout, geophrase.ClusterByService(pairs, vert.KnownCities))
	}
	return nil
}

func pairsFromRecords(records []model.GeoPhraseRecord) []geophrase.Pair {
	pairs := make([]geophrase.Pair, 0, len(records))
	for _, r := range records {
		pairs = append(pairs, geophrase.Pair{
			Service: r.Service,
			City:    r.City,
			Phrase:  r.GeoPhrase,
		})
	}
	return pairs
}

func printCityClusters(out io.Writer, clusters []geophrase.CityCluster) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CITY\tPHRASES\tSERVICES\tMISSING")
	_, _ = fmt.Fprintln(w, "----\t-------\t--------\t-------")
	for _, c := range clusters {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			c.City, len(c.Phrases), formatCounts(c.ServiceCounts), strings.Join(c.MissingServices, ", "))
	}
	_ = w.Flush()
}

func printServiceClusters(out io.Writer, clusters []geophrase.ServiceCluster) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tPHRASES\tCITIES\tUNDERSERVED")
	_, _ = fmt.Fprintln(w, "-------\t-------\t------\t-----------")
	for _, c := range clusters {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			c.Service, len(c.Phrases), formatCounts(c.CityCounts), strings.Join(c.UnderservedCities, ", "))
	}
	_ = w.Flush()
}

// formatCounts renders a count map as "a(2), b(1)" in stable key order.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s(%d)", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
