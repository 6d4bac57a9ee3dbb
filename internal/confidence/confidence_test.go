package confidence

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 0.8, Normalize(0.8), 1e-9)
	assert.InDelta(t, 0.8, Normalize(80), 1e-9, "legacy 0-100 scale divides by 100")
	assert.InDelta(t, 1.0, Normalize(150), 1e-9)
	assert.InDelta(t, 0.0, Normalize(-3), 1e-9)
}

func TestIntentScore(t *testing.T) {
	vocab := taxonomy.New(taxonomy.WithNegatives("junk_removal", []string{"free junk"}))
	geoTerms := []string{"milwaukee", "madison"}

	tests := []struct {
		name    string
		keyword string
		want    float64
	}{
		{"service plus known city", "junk removal milwaukee", 0.92},
		{"service plus state abbrev", "junk removal waukesha wi", 0.92},
		{"service only", "junk removal", 0.75},
		{"excluded fluff", "best junk removal", 0.35},
		{"ambiguous", "spring refresh", 0.52},
		{"negative keyword", "free junk pickup", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntentScore(tt.keyword, geoTerms, "junk_removal", vocab)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWeighted(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("all neutral defaults", func(t *testing.T) {
		// freq 0, quality 0.5, type seo 0.7, strength 0.5, recency 1.0
		got := Weighted(WeightedInputs{KeywordType: model.KeywordTypeSEO, Now: now})
		want := 0.30*0 + 0.25*0.5 + 0.20*0.7 + 0.15*0.5 + 0.10*1.0
		assert.InDelta(t, want, got, 1e-9)
	})

	t.Run("saturated signals clamp to one", func(t *testing.T) {
		got := Weighted(WeightedInputs{
			Frequency:          100,
			SourceQuality:      ptr(100.0),
			KeywordType:        model.KeywordTypeServiceCity,
			CompetitorStrength: ptr(1.0),
			Recency:            ptr(1.0),
			Now:                now,
		})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("recency from last seen", func(t *testing.T) {
		fresh := Weighted(WeightedInputs{
			Frequency: 5, KeywordType: model.KeywordTypeSEO,
			LastSeen: ptr(now.Add(-2 * 24 * time.Hour)), Now: now,
		})
		stale := Weighted(WeightedInputs{
			Frequency: 5, KeywordType: model.KeywordTypeSEO,
			LastSeen: ptr(now.Add(-120 * 24 * time.Hour)), Now: now,
		})
		assert.Greater(t, fresh, stale)
		assert.InDelta(t, 0.10*(1.0-0.3), fresh-stale, 1e-9)
	})
}

func TestRecencyScore(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{2 * day, 1.0},
		{10 * day, 0.85},
		{45 * day, 0.6},
		{200 * day, 0.3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, recencyScore(now.Add(-tt.age), now), 1e-9)
	}
}

func TestLogFrequency(t *testing.T) {
	assert.Zero(t, logFrequency(0, 20))
	assert.InDelta(t, 1.0, logFrequency(20, 20), 1e-9)
	assert.InDelta(t, 1.0, logFrequency(500, 20), 1e-9, "capped at one")

	// Log compression: the first few observations carry most of the weight.
	one := logFrequency(1, 20)
	ten := logFrequency(10, 20)
	assert.Greater(t, one, 0.2)
	assert.Greater(t, ten-one, 0.0)
	assert.Less(t, logFrequency(20, 20)-ten, ten-one)

	want := math.Log10(6) / math.Log10(21)
	assert.InDelta(t, want, logFrequency(5, 20), 1e-9)
}

func TestTypeWeight(t *testing.T) {
	assert.InDelta(t, 1.0, TypeWeight(model.KeywordTypeServiceCity), 1e-9)
	assert.InDelta(t, 1.0, TypeWeight(model.KeywordTypeServiceGeo), 1e-9)
	assert.InDelta(t, 0.7, TypeWeight(model.KeywordTypeSEO), 1e-9)
	assert.InDelta(t, 0.4, TypeWeight(model.KeywordTypeGeo), 1e-9)
	assert.InDelta(t, 0.5, TypeWeight(model.KeywordType("mystery")), 1e-9)
}

func TestFromRecord(t *testing.T) {
	t.Run("nil view", func(t *testing.T) {
		assert.Zero(t, FromRecord(nil))
	})

	t.Run("strong row", func(t *testing.T) {
		rec := &model.KeywordRecord{
			Frequency:          50,
			InTitleH1Count:     5,
			KeywordTypeWeight:  1.0,
			TopCompetitorCount: 0,
		}
		// 0.30*1 + 0.25*1 + 0.25*1 + 0.20*1
		assert.InDelta(t, 1.0, FromRecord(rec), 1e-9)
	})

	t.Run("weak incumbents earn a bonus", func(t *testing.T) {
		base := &model.KeywordRecord{
			Frequency:          8,
			KeywordTypeWeight:  0.7,
			TopCompetitorCount: 3,
			AvgSourceQuality:   80,
		}
		weak := &model.KeywordRecord{
			Frequency:          8,
			KeywordTypeWeight:  0.7,
			TopCompetitorCount: 3,
			AvgSourceQuality:   40,
		}
		assert.InDelta(t, 0.20*0.2, FromRecord(weak)-FromRecord(base), 1e-9)
	})
}

func TestGeoPhrase(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		// freq 0, quality 0, kwConf neutral 0.5, city weight 1.0
		got := GeoPhrase(GeoPhraseInputs{})
		want := 0.25*0.5 + 0.10*1.0
		assert.InDelta(t, want, got, 1e-9)
	})

	t.Run("legacy quality scale", func(t *testing.T) {
		a := GeoPhrase(GeoPhraseInputs{AvgSourceQuality: 0.8})
		b := GeoPhrase(GeoPhraseInputs{AvgSourceQuality: 80})
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("full signals", func(t *testing.T) {
		got := GeoPhrase(GeoPhraseInputs{
			Frequency:            50,
			AvgSourceQuality:     100,
			KeywordConfidence:    ptr(0.9),
			CityPopulationWeight: ptr(0.8),
		})
		want := 0.35*1 + 0.30*1 + 0.25*0.9 + 0.10*0.8
		assert.InDelta(t, want, got, 1e-9)
	})
}
