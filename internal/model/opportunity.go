package model

import "time"

// Tier buckets opportunities by score.
type Tier string

const (
	TierNearTerm     Tier = "near_term"    // score > 65
	TierGrowth       Tier = "growth"       // score 40-65
	TierExperimental Tier = "experimental" // score < 40
)

// SortPriority returns the tier's sort rank; lower sorts first.
func (t Tier) SortPriority() int {
	switch t {
	case TierNearTerm:
		return 0
	case TierGrowth:
		return 1
	default:
		return 2
	}
}

// TierFor maps a 0-100 score to its tier.
func TierFor(score int) Tier {
	switch {
	case score > 65:
		return TierNearTerm
	case score >= 40:
		return TierGrowth
	default:
		return TierExperimental
	}
}

// SeasonalityInfo records whether a service aligned with the current season
// at scoring time and what boost was applied.
type SeasonalityInfo struct {
	CurrentSeason string  `json:"current_season"`
	Match         bool    `json:"match"`
	BoostApplied  float64 `json:"boost_applied"`
}

// ROIProjection is a deterministic low/expected/high outcome range.
type ROIProjection struct {
	MonthlySearches  int            `json:"monthly_searches"`
	EstimatedLeads   map[string]int `json:"estimated_leads"`
	EstimatedRevenue map[string]int `json:"estimated_revenue"`
	Assumptions      []string       `json:"assumptions"`
}

// OpportunityCandidate is one scored (service, geo) opportunity within a run.
// Score is an int in [0,100]; cross-run identity is (client, service, geo).
type OpportunityCandidate struct {
	Service            string            `json:"service"`
	Geo                string            `json:"geo,omitempty"`
	CompetitorMentions int               `json:"competitor_mentions"`
	ConfidenceScore    float64           `json:"confidence_score"`
	Score              int               `json:"score"`
	Tier               Tier              `json:"tier"`
	Duplicate          bool              `json:"duplicate"`
	WhyRecommended     map[string]string `json:"why_recommended"`
	Seasonality        SeasonalityInfo   `json:"seasonality"`
	ROI                *ROIProjection    `json:"roi_projection,omitempty"`
}

// ScoringRun records one opportunity-scoring invocation for a client. The
// duplication guard walks these to find the cutoff for "recently recommended".
type ScoringRun struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Geo       string    `json:"geo,omitempty"`
	Vertical  string    `json:"vertical"`
	CreatedAt time.Time `json:"created_at"`
}
