// Package estimate turns an opportunity score into a deterministic ROI
// projection. The numbers are heuristic ranges, not forecasts; every run over
// the same inputs produces the same projection.
package estimate

import (
	"fmt"
	"math"

	"github.com/loclift/growth-cli/internal/model"
)

const (
	// Monthly-search heuristic bounds.
	minMonthlySearches = 150
	maxMonthlySearches = 2000
	geoMultiplier      = 1.15

	// Conversion rates for the low / expected / high bands.
	convLow      = 0.003
	convExpected = 0.013
	convHigh     = 0.03

	// DefaultJobValue is the average revenue per closed lead when the
	// client has not configured one.
	DefaultJobValue = 350
)

// Project builds the low/expected/high projection for a scored opportunity.
// Score is the 0-100 opportunity score; hasGeo marks city-targeted
// opportunities, which search more narrowly but convert better. A
// non-positive avgJobValue falls back to DefaultJobValue.
func Project(score int, hasGeo bool, avgJobValue float64) *model.ROIProjection {
	if avgJobValue <= 0 {
		avgJobValue = DefaultJobValue
	}

	searches := float64(80 + score*10)
	if hasGeo {
		searches *= geoMultiplier
	}
	monthly := clampInt(int(math.Round(searches)), minMonthlySearches, maxMonthlySearches)

	leads := map[string]int{
		"low":      int(math.Round(float64(monthly) * convLow)),
		"expected": int(math.Round(float64(monthly) * convExpected)),
		"high":     int(math.Round(float64(monthly) * convHigh)),
	}
	revenue := make(map[string]int, len(leads))
	for band, n := range leads {
		revenue[band] = int(math.Round(float64(n) * avgJobValue))
	}

	return &model.ROIProjection{
		MonthlySearches:  monthly,
		EstimatedLeads:   leads,
		EstimatedRevenue: revenue,
		Assumptions: []string{
			fmt.Sprintf("monthly searches estimated from opportunity score %d, clamped to %d-%d", score, minMonthlySearches, maxMonthlySearches),
			fmt.Sprintf("lead conversion bands: %.1f%% / %.1f%% / %.1f%% of searches", convLow*100, convExpected*100, convHigh*100),
			fmt.Sprintf("average job value $%.0f", avgJobValue),
		},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
