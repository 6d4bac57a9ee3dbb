package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loclift/growth-cli/internal/export"
	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/opportunity"
	"github.com/loclift/growth-cli/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score and rank growth opportunities",
	Long: `Scores every opportunity service in the vertical against the stored
keyword intelligence and an optional competitor-log snapshot, ranks the
candidates by tier and score, applies the cross-run duplication guard, and
persists the surfaced subset as a scoring run.

Examples:
  # Score one client against a competitor snapshot
  score --client acme --geo "Milwaukee, WI" --vertical junk_removal --logs logs.json

  # Score several clients concurrently
  score --clients acme,apex,badger --vertical junk_removal

  # Export the surfaced opportunities
  score --client acme --vertical junk_removal --xlsx opportunities.xlsx`,
	RunE: runScoreOpportunities,
}

func init() {
	f := scoreCmd.Flags()
	f.String("client", "", "client identifier")
	f.String("clients", "", "comma-separated client identifiers for batch scoring")
	f.String("geo", "", "target city (e.g. \"Milwaukee, WI\"); empty for a non-geo run")
	f.String("vertical", "", "service vertical (e.g. junk_removal)")
	f.String("logs", "", "path to a JSON array of competitor logs")
	f.String("services", "", "comma-separated services (overrides the vertical's list)")
	f.Float64("job-value", 0, "average job value for ROI projection (overrides config)")
	f.String("xlsx", "", "write surfaced opportunities to an XLSX workbook")
	f.String("json", "", "write the full result to a JSON file")
	f.Bool("no-save", false, "score without persisting the run")

	rootCmd.AddCommand(scoreCmd)
}

func runScoreOpportunities(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _ := cmd.Flags().GetString("client")
	clientsFlag, _ := cmd.Flags().GetString("clients")
	geo, _ := cmd.Flags().GetString("geo")
	verticalName, _ := cmd.Flags().GetString("vertical")
	logsPath, _ := cmd.Flags().GetString("logs")
	servicesFlag, _ := cmd.Flags().GetString("services")
	jobValue, _ := cmd.Flags().GetFloat64("job-value")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	jsonPath, _ := cmd.Flags().GetString("json")
	noSave, _ := cmd.Flags().GetBool("no-save")

	clients := splitAndTrim(clientsFlag)
	if client != "" {
		clients = append([]string{client}, clients...)
	}
	if len(clients) == 0 {
		return eris.New("score: --client or --clients is required")
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	tracker, fs, err := initTracker()
	if err != nil {
		return err
	}
	defer fs.Close() //nolint:errcheck

	vert, err := vertical(verticalName)
	if err != nil {
		return err
	}
	vocab, err := initVocabulary(verticalName, vert)
	if err != nil {
		return err
	}
	seasons, err := initSeasons()
	if err != nil {
		return err
	}

	services := vert.OpportunityServices
	if servicesFlag != "" {
		services = splitAndTrim(servicesFlag)
	}
	if len(services) == 0 {
		return eris.Errorf("score: vertical %q defines no opportunity services; pass --services", verticalName)
	}

	if jobValue <= 0 {
		jobValue = vert.AvgJobValue
	}
	if jobValue <= 0 {
		jobValue = cfg.Scoring.AvgJobValue
	}

	var logs []model.CompetitorLog
	if logsPath != "" {
		if logs, err = readCompetitorLogs(logsPath); err != nil {
			return err
		}
	}

	log := zap.L().With(zap.String("command", "score"))
	scorer := opportunity.NewScorer(st, tracker, vocab, seasons, opportunity.WithLogger(log))

	var mu sync.Mutex
	results := make(map[string]*opportunity.Result, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentClients)
	for _, c := range clients {
		c := c
		g.Go(func() error {
			res, err := scoreClient(gctx, st, scorer, c, opportunity.Input{
				ClientID:    c,
				Geo:         geo,
				Vertical:    verticalName,
				Services:    services,
				Logs:        logs,
				AvgJobValue: jobValue,
			}, noSave)
			if err != nil {
				return err
			}
			mu.Lock()
			results[c] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range clients {
		res := results[c]
		if len(clients) > 1 {
			fmt.Printf("\n== %s ==\n", c)
		}
		printOpportunities(os.Stdout, res)
	}

	if len(clients) == 1 {
		res := results[clients[0]]
		if xlsxPath != "" {
			if err := export.WriteWorkbook(xlsxPath, res); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", xlsxPath)
		}
		if jsonPath != "" {
			if err := export.WriteJSON(jsonPath, res); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", jsonPath)
		}
	}
	return nil
}

func scoreClient(ctx context.Context, st store.Store, scorer *opportunity.Scorer, clientID string, in opportunity.Input, noSave bool) (*opportunity.Result, error) {
	records, err := st.ListKeywordRecords(ctx, clientID)
	if err != nil {
		return nil, eris.Wrapf(err, "score: load records for %s", clientID)
	}
	in.Records = records

	res, err := scorer.Score(ctx, in)
	if err != nil {
		return nil, eris.Wrapf(err, "score: %s", clientID)
	}
	if !noSave {
		if err := st.SaveScoringRun(ctx, res.Run, res.Surfaced); err != nil {
			return nil, eris.Wrapf(err, "score: save run for %s", clientID)
		}
	}
	return res, nil
}

func readCompetitorLogs(path string) ([]model.CompetitorLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "score: read logs %s", path)
	}
	var logs []model.CompetitorLog
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, eris.Wrapf(err, "score: parse logs %s", path)
	}
	return logs, nil
}

func printOpportunities(out io.Writer, res *opportunity.Result) {
	if len(res.Surfaced) == 0 {
		fmt.Fprintln(out, "No opportunities surfaced.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tGEO\tSCORE\tTIER\tCONF\tMENTIONS\tSEASON")
	_, _ = fmt.Fprintln(w, "-------\t---\t-----\t----\t----\t--------\t------")
	for _, c := range res.Surfaced {
		season := c.Seasonality.CurrentSeason
		if c.Seasonality.Match {
			season += " *"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\t%d\t%s\n",
			c.Service, c.Geo, c.Score, c.Tier, c.ConfidenceScore, c.CompetitorMentions, season)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\nRun %s: %d candidate(s), %d surfaced\n",
		res.Run.ID, len(res.Candidates), len(res.Surfaced))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
