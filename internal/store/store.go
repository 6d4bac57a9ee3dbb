// Package store persists keyword records, geo phrases, and scoring runs
// behind a backend-neutral interface. SQLite covers the single-operator CLI
// case; Postgres serves shared agency deployments.
package store

import (
	"context"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/opportunity"
)

// KeywordFilter specifies criteria for listing keyword records.
type KeywordFilter struct {
	ClientID      string  `json:"client_id,omitempty"`
	Region        string  `json:"region,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Limit         int     `json:"limit,omitempty"`
	Offset        int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for the intelligence engine.
//
// Upsert semantics: keyword records replace whole rows (the ingest pipeline
// does the read-modify-write); geo phrases merge — frequency accumulates,
// confidence only moves up, source URLs only grow.
type Store interface {
	// Keyword records
	GetKeywordRecord(ctx context.Context, clientID, keyword, region string) (*model.KeywordRecord, error)
	UpsertKeywordRecord(ctx context.Context, rec *model.KeywordRecord) error
	ListKeywordRecords(ctx context.Context, clientID string) ([]model.KeywordRecord, error)
	QueryKeywordRecords(ctx context.Context, filter KeywordFilter) ([]model.KeywordRecord, error)

	// Geo phrases
	UpsertGeoPhrase(ctx context.Context, rec *model.GeoPhraseRecord) error
	ListGeoPhrases(ctx context.Context) ([]model.GeoPhraseRecord, error)

	// Scoring runs
	SaveScoringRun(ctx context.Context, run model.ScoringRun, candidates []model.OpportunityCandidate) error
	ListScoringRuns(ctx context.Context, clientID string, limit int) ([]model.ScoringRun, error)
	RecentRecommendations(ctx context.Context, clientID string, runs int) ([]opportunity.Recommendation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
