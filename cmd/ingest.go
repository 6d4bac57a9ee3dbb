package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loclift/growth-cli/internal/ingest"
	"github.com/loclift/growth-cli/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <competitor-log.json>...",
	Short: "Ingest extracted competitor profiles",
	Long: `Runs the intake pipeline over one or more competitor log files: gates
keywords through the service-intent vocabulary, detects embedded city+state
geo phrases, scores confidence, and upserts keyword and geo-phrase records.

Each file holds one competitor log:

  {
    "competitor_name": "Badger Hauling",
    "website_quality": 62,
    "profile": {
      "seo_keywords": ["junk removal milwaukee wi"],
      "service_city_phrases": ["garage cleanout in madison"],
      "calls_to_action": ["Get a free quote"]
    }
  }

Examples:
  # Ingest one competitor for a client
  ingest badger.json --client acme --region WI --vertical junk_removal

  # Ingest a whole directory of logs
  ingest logs/*.json --client acme --region WI --vertical junk_removal`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.String("client", "", "client identifier (required)")
	f.String("region", "", "region the observations belong to (e.g. WI)")
	f.String("vertical", "", "service vertical (e.g. junk_removal)")
	f.Float64("competitor-strength", 0, "competitor strength 0-1 (0=unknown)")
	_ = ingestCmd.MarkFlagRequired("client")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	clientID, _ := cmd.Flags().GetString("client")
	region, _ := cmd.Flags().GetString("region")
	verticalName, _ := cmd.Flags().GetString("vertical")
	strength, _ := cmd.Flags().GetFloat64("competitor-strength")

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

	log := zap.L().With(zap.String("command", "ingest"), zap.String("client_id", clientID))
	pipeline := ingest.NewPipeline(st, tracker, vocab, ingest.WithLogger(log))

	var total ingest.Result
	for _, path := range args {
		cl, err := readCompetitorLog(path)
		if err != nil {
			return err
		}

		in := ingest.Input{
			ClientID:    clientID,
			CompanyName: cl.CompetitorName,
			Region:      region,
			Vertical:    verticalName,
			SourceURL:   cl.Profile.WebsiteURL,
			KnownCities: vert.KnownCities,
			Profile:     cl.Profile,
		}
		if cl.WebsiteQuality != nil {
			in.SourceQuality = cl.WebsiteQuality
		}
		if strength > 0 {
			in.CompetitorStrength = &strength
		}

		res, err := pipeline.IngestProfile(ctx, in)
		if err != nil {
			return eris.Wrapf(err, "ingest: %s", path)
		}
		log.Info("profile ingested",
			zap.String("file", path),
			zap.Int("considered", res.Considered),
			zap.Int("gated", res.Gated),
			zap.Int("upserted", res.Upserted),
			zap.Int("geo_phrases", res.GeoPhrases))

		total.Considered += res.Considered
		total.Gated += res.Gated
		total.Upserted += res.Upserted
		total.GeoPhrases += res.GeoPhrases
	}

	fmt.Printf("Ingested %d file(s): %d keywords considered, %d gated, %d upserted, %d geo phrases\n",
		len(args), total.Considered, total.Gated, total.Upserted, total.GeoPhrases)
	return nil
}

func readCompetitorLog(path string) (*model.CompetitorLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	var cl model.CompetitorLog
	if err := json.Unmarshal(data, &cl); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", path)
	}
	return &cl, nil
}

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate keyword confidence from accumulated row signals",
	Long: `Re-runs the row-based confidence formula over every stored keyword
record for a client. Stored confidence only moves up: the recompute floors at
the intent score and never regresses an existing value.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		clientID, _ := cmd.Flags().GetString("client")
		verticalName, _ := cmd.Flags().GetString("vertical")

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
		vocab, err := initVocabulary(verticalName, vert)
		if err != nil {
			return err
		}

		pipeline := ingest.NewPipeline(st, nil, vocab,
			ingest.WithLogger(zap.L().With(zap.String("command", "recalc"))))
		updated, err := pipeline.RecalculateConfidence(ctx, clientID, verticalName, vert.KnownCities)
		if err != nil {
			return err
		}
		fmt.Printf("Recalculated confidence for client %s: %d record(s) raised\n", clientID, updated)
		return nil
	},
}

func init() {
	recalcCmd.Flags().String("client", "", "client identifier (required)")
	recalcCmd.Flags().String("vertical", "", "service vertical")
	_ = recalcCmd.MarkFlagRequired("client")

	rootCmd.AddCommand(recalcCmd)
}
