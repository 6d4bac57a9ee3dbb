// Package confidence implements the keyword and geo-phrase confidence
// formulas. All scores are floats clamped to [0,1]; legacy 0-100 inputs are
// normalized on the way in. Missing signals fall back to neutral values so a
// score is always computable from partial data.
package confidence

import (
	"math"
	"strings"
	"time"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

// Weighted keyword confidence factors (sum = 1.0).
const (
	frequencyWeight          = 0.30
	sourceQualityWeight      = 0.25
	keywordTypeWeight        = 0.20
	competitorStrengthWeight = 0.15
	recencyWeight            = 0.10
)

// Intent-based confidence rubric.
const (
	intentServiceGeo = 0.92 // core service + city/state
	intentService    = 0.75 // core service only
	intentAmbiguous  = 0.52 // ambiguous but related
	intentWeak       = 0.35 // generic / weak intent
)

// DefaultMaxFrequency caps the frequency normalization scale for the
// weighted formula.
const DefaultMaxFrequency = 20

// geoAbbrevTokens is the closed list of state abbreviations treated as a geo
// signal inside intent scoring. Deliberately excludes ambiguous tokens like
// "in" that collide with ordinary words.
var geoAbbrevTokens = map[string]struct{}{
	"wi": {}, "az": {}, "tx": {}, "ca": {}, "fl": {}, "il": {}, "oh": {},
	"mi": {}, "mn": {}, "co": {}, "nv": {}, "or": {}, "wa": {},
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Normalize maps a stored confidence onto the canonical [0,1] range,
// dividing legacy 0-100 values by 100 before clamping.
func Normalize(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return Clamp01(v)
}

// IntentScore classifies a single keyword by service intent strength:
// 0.92 for service+geo, 0.75 service-only, 0.35 weak excluded-term matches
// that slipped past the gate, 0.52 for ambiguous-but-related, and 0 for
// negative keywords. This value acts as a floor: the weighted recompute must
// never push stored confidence below it.
func IntentScore(keyword string, geoTerms []string, vertical string, vocab *taxonomy.Vocabulary) float64 {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return 0
	}
	if vocab.IsNegative(k, vertical) {
		return 0
	}

	hasService := vocab.HasServiceTerm(k)

	hasGeo := false
	for _, g := range geoTerms {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" && strings.Contains(k, g) {
			hasGeo = true
			break
		}
	}
	if !hasGeo {
		for _, tok := range strings.Fields(k) {
			if _, ok := geoAbbrevTokens[strings.Trim(tok, ".,")]; ok {
				hasGeo = true
				break
			}
		}
	}

	if vocab.HasExcludedTerm(k) {
		return intentWeak
	}
	if hasService && hasGeo {
		return intentServiceGeo
	}
	if hasService {
		return intentService
	}
	return intentAmbiguous
}

// WeightedInputs carries the signals for the weighted confidence formula.
// Pointer fields distinguish "missing" (neutral 0.5 or fresh recency) from
// an explicit zero.
type WeightedInputs struct {
	Frequency          int
	MaxFrequency       int      // defaults to DefaultMaxFrequency
	SourceQuality      *float64 // 0-100
	KeywordType        model.KeywordType
	CompetitorStrength *float64   // 0-1
	Recency            *float64   // 0-1 override; computed from LastSeen when nil
	LastSeen           *time.Time // nil means never seen -> treat as fresh
	Now                time.Time  // zero means time.Now
}

// Weighted computes the multi-factor keyword confidence:
//
//	score = 0.30*freq + 0.25*quality + 0.20*type + 0.15*strength + 0.10*recency
//
// Frequency is log-compressed so early observations matter far more than the
// fiftieth. Missing quality/strength default to neutral 0.5.
func Weighted(in WeightedInputs) float64 {
	maxFreq := in.MaxFrequency
	if maxFreq <= 0 {
		maxFreq = DefaultMaxFrequency
	}
	freqNorm := logFrequency(in.Frequency, maxFreq)

	quality := 0.5
	if in.SourceQuality != nil {
		quality = Clamp01(*in.SourceQuality / 100)
	}

	strength := 0.5
	if in.CompetitorStrength != nil {
		strength = Clamp01(*in.CompetitorStrength)
	}

	recency := 1.0
	switch {
	case in.Recency != nil:
		recency = Clamp01(*in.Recency)
	case in.LastSeen != nil:
		recency = recencyScore(*in.LastSeen, in.now())
	}

	score := frequencyWeight*freqNorm +
		sourceQualityWeight*quality +
		keywordTypeWeight*TypeWeight(in.KeywordType) +
		competitorStrengthWeight*strength +
		recencyWeight*recency
	return Clamp01(score)
}

func (in WeightedInputs) now() time.Time {
	if in.Now.IsZero() {
		return time.Now().UTC()
	}
	return in.Now
}

// TypeWeight ranks keyword types by intent value: service_city/service_geo
// outrank seo outrank geo. Unknown types are neutral.
func TypeWeight(t model.KeywordType) float64 {
	switch t {
	case model.KeywordTypeServiceCity, model.KeywordTypeServiceGeo:
		return 1.0
	case model.KeywordTypeSEO:
		return 0.7
	case model.KeywordTypeGeo:
		return 0.4
	case model.KeywordTypeService, model.KeywordTypeModifier, model.KeywordTypeLongTail:
		return 0.6
	default:
		return 0.5
	}
}

// recencyScore: recent observations keep full weight, stale ones fade.
func recencyScore(lastSeen, now time.Time) float64 {
	days := now.Sub(lastSeen).Hours() / 24
	switch {
	case days < 7:
		return 1.0
	case days < 30:
		return 0.85
	case days < 90:
		return 0.6
	default:
		return 0.3
	}
}

// logFrequency maps a raw observation count onto [0,1] with log10
// compression: min(1, log10(1+freq)/log10(1+max)).
func logFrequency(freq, maxFreq int) float64 {
	if freq <= 0 {
		return 0
	}
	if maxFreq <= 0 {
		return 1
	}
	return math.Min(1, math.Log10(1+float64(freq))/math.Log10(1+float64(maxFreq)))
}
