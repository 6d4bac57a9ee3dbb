package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loclift/growth-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "growth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testKeywordRecord(keyword string) *model.KeywordRecord {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &model.KeywordRecord{
		ClientID:        "acme",
		Keyword:         keyword,
		Region:          "WI",
		KeywordType:     model.KeywordTypeServiceCity,
		Frequency:       3,
		ConfidenceScore: 0.8,
		FirstSeen:       now,
		LastSeen:        now,
		CompanyName:     "Acme Hauling",
		SourceURL:       "https://example.com/services",
	}
}

func TestGetKeywordRecord_Missing(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.GetKeywordRecord(context.Background(), "acme", "junk removal", "WI")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpsertKeywordRecord_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testKeywordRecord("junk removal milwaukee")
	require.NoError(t, s.UpsertKeywordRecord(ctx, rec))

	got, err := s.GetKeywordRecord(ctx, "acme", "junk removal milwaukee", "WI")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Frequency)
	assert.Equal(t, model.KeywordTypeServiceCity, got.KeywordType)
	assert.InDelta(t, 0.8, got.ConfidenceScore, 1e-9)
	assert.True(t, got.FirstSeen.Equal(rec.FirstSeen))

	rec.Frequency = 5
	rec.ConfidenceScore = 0.91
	rec.LastSeen = rec.LastSeen.Add(48 * time.Hour)
	require.NoError(t, s.UpsertKeywordRecord(ctx, rec))

	got, err = s.GetKeywordRecord(ctx, "acme", "junk removal milwaukee", "WI")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Frequency)
	assert.InDelta(t, 0.91, got.ConfidenceScore, 1e-9)
	assert.True(t, got.FirstSeen.Equal(rec.FirstSeen), "first_seen should not move on update")
	assert.True(t, got.LastSeen.Equal(rec.LastSeen))

	all, err := s.ListKeywordRecords(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, all, 1, "same (client, keyword, region) must stay one row")
}

func TestQueryKeywordRecords_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	low := testKeywordRecord("appliance pickup")
	low.ConfidenceScore = 0.3
	high := testKeywordRecord("junk removal milwaukee")
	high.ConfidenceScore = 0.9
	other := testKeywordRecord("garage cleanout")
	other.ClientID = "someone-else"

	for _, rec := range []*model.KeywordRecord{low, high, other} {
		require.NoError(t, s.UpsertKeywordRecord(ctx, rec))
	}

	got, err := s.QueryKeywordRecords(ctx, KeywordFilter{ClientID: "acme", MinConfidence: 0.5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "junk removal milwaukee", got[0].Keyword)

	got, err = s.QueryKeywordRecords(ctx, KeywordFilter{ClientID: "acme"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "junk removal milwaukee", got[0].Keyword, "highest confidence first")

	got, err = s.QueryKeywordRecords(ctx, KeywordFilter{ClientID: "acme", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "appliance pickup", got[0].Keyword)
}

func TestUpsertGeoPhrase_MergeSemantics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.GeoPhraseRecord{
		City:            "madison",
		State:           "WI",
		Service:         "junk removal",
		GeoPhrase:       "junk removal madison",
		ConfidenceScore: 0.7,
		Frequency:       1,
		SourceURLs:      []string{"https://a.example.com"},
	}
	require.NoError(t, s.UpsertGeoPhrase(ctx, first))

	second := &model.GeoPhraseRecord{
		City:            "madison",
		State:           "WI",
		Service:         "junk removal",
		GeoPhrase:       "madison junk removal",
		ConfidenceScore: 0.9,
		Frequency:       2,
		SourceURLs:      []string{"https://a.example.com", "https://b.example.com"},
	}
	require.NoError(t, s.UpsertGeoPhrase(ctx, second))

	// Lower-confidence observation must not drag the record back down.
	third := &model.GeoPhraseRecord{
		City:            "madison",
		State:           "WI",
		Service:         "junk removal",
		GeoPhrase:       "junk haul madison",
		ConfidenceScore: 0.5,
		Frequency:       1,
		SourceURLs:      []string{"https://c.example.com"},
	}
	require.NoError(t, s.UpsertGeoPhrase(ctx, third))

	phrases, err := s.ListGeoPhrases(ctx)
	require.NoError(t, err)
	require.Len(t, phrases, 1)

	got := phrases[0]
	assert.Equal(t, "madison junk removal", got.GeoPhrase, "phrase follows the highest-confidence observation")
	assert.InDelta(t, 0.9, got.ConfidenceScore, 1e-9)
	assert.Equal(t, 4, got.Frequency)
	assert.ElementsMatch(t, []string{
		"https://a.example.com",
		"https://b.example.com",
		"https://c.example.com",
	}, got.SourceURLs)
}

func TestUpsertGeoPhrase_DistinctKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := model.GeoPhraseRecord{
		City: "madison", State: "WI", Service: "junk removal",
		GeoPhrase: "junk removal madison", ConfidenceScore: 0.7, Frequency: 1,
	}
	otherCity := base
	otherCity.City = "milwaukee"
	otherCity.GeoPhrase = "junk removal milwaukee"
	otherService := base
	otherService.Service = "appliance removal"
	otherService.GeoPhrase = "appliance removal madison"

	for _, rec := range []model.GeoPhraseRecord{base, otherCity, otherService} {
		r := rec
		require.NoError(t, s.UpsertGeoPhrase(ctx, &r))
	}

	phrases, err := s.ListGeoPhrases(ctx)
	require.NoError(t, err)
	assert.Len(t, phrases, 3)
}

func saveRun(t *testing.T, s *SQLiteStore, clientID string, createdAt time.Time, candidates ...model.OpportunityCandidate) model.ScoringRun {
	t.Helper()
	run := model.ScoringRun{
		ID:        clientID + "-" + createdAt.Format("20060102T150405"),
		ClientID:  clientID,
		Geo:       "Milwaukee, WI",
		Vertical:  "junk_removal",
		CreatedAt: createdAt,
	}
	require.NoError(t, s.SaveScoringRun(context.Background(), run, candidates))
	return run
}

func TestSaveAndListScoringRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	cand := model.OpportunityCandidate{
		Service:            "garage cleanout",
		Geo:                "Milwaukee, WI",
		CompetitorMentions: 1,
		ConfidenceScore:    0.82,
		Score:              71,
		Tier:               model.TierNearTerm,
		WhyRecommended:     map[string]string{"confidence": "strong keyword signal"},
		Seasonality:        model.SeasonalityInfo{CurrentSeason: "spring", Match: true, BoostApplied: 0.15},
		ROI: &model.ROIProjection{
			MonthlySearches:  790,
			EstimatedLeads:   map[string]int{"low": 2, "expected": 10, "high": 23},
			EstimatedRevenue: map[string]int{"low": 700, "expected": 3500, "high": 8050},
		},
	}
	saveRun(t, s, "acme", base, cand)
	saveRun(t, s, "acme", base.Add(24*time.Hour))
	saveRun(t, s, "other", base.Add(2*time.Hour))

	runs, err := s.ListScoringRuns(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt), "newest first")
	assert.Equal(t, "junk_removal", runs[0].Vertical)
}

func TestRecentRecommendations_WindowAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	// Oldest run falls outside a 2-run window.
	saveRun(t, s, "acme", base, model.OpportunityCandidate{
		Service: "estate cleanout", Geo: "Madison, WI", Score: 55, Tier: model.TierGrowth,
	})
	saveRun(t, s, "acme", base.Add(24*time.Hour), model.OpportunityCandidate{
		Service: "garage cleanout", Geo: "Milwaukee, WI", Score: 71, Tier: model.TierNearTerm,
	})
	saveRun(t, s, "acme", base.Add(48*time.Hour),
		model.OpportunityCandidate{
			Service: "appliance removal", Geo: "Milwaukee, WI", Score: 48, Tier: model.TierGrowth,
		},
		model.OpportunityCandidate{
			Service: "garage cleanout", Geo: "Milwaukee, WI", Score: 1,
			Tier: model.TierExperimental, Duplicate: true,
		},
	)

	recent, err := s.RecentRecommendations(context.Background(), "acme", 2)
	require.NoError(t, err)

	services := make([]string, 0, len(recent))
	for _, r := range recent {
		services = append(services, r.Service)
	}
	assert.ElementsMatch(t, []string{"garage cleanout", "appliance removal"}, services)
	assert.NotContains(t, services, "estate cleanout", "outside the run window")
}
