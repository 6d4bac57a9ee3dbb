package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loclift/growth-cli/internal/config"
	"github.com/loclift/growth-cli/internal/history"
	"github.com/loclift/growth-cli/internal/seasonality"
	"github.com/loclift/growth-cli/internal/store"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "growth.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initTracker() (*history.Tracker, *history.FileStore, error) {
	fs, err := history.NewFileStore(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return history.NewTracker(fs), fs, nil
}

func initVocabulary(verticalName string, vert config.Vertical) (*taxonomy.Vocabulary, error) {
	vocab := taxonomy.New()
	if err := vocab.LoadNegatives(cfg.Taxonomy.NegativesPath); err != nil {
		return nil, err
	}
	if vert.NegativeKeywordsPath != "" {
		if err := vocab.LoadNegativesFor(verticalName, vert.NegativeKeywordsPath); err != nil {
			return nil, err
		}
	}
	return vocab, nil
}

func initSeasons() (*seasonality.Checker, error) {
	seasons := seasonality.New()
	if err := seasons.LoadRules(cfg.Seasonality.RulesPath); err != nil {
		return nil, err
	}
	return seasons, nil
}

// vertical returns the named vertical's config, zero-valued when undefined.
func vertical(name string) (config.Vertical, error) {
	verticals, err := config.LoadVerticals(cfg.VerticalsPath)
	if err != nil {
		return config.Vertical{}, err
	}
	return verticals[name], nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("Migrations applied.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
