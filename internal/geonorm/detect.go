// Package geonorm detects embedded city+state fragments inside keyword
// strings and splits them into (service, geo, normalized keyword). It is a
// best-effort lexical heuristic over an enumerated state table, not a
// geocoder: a token like "in" is also the Indiana abbreviation, so callers
// must confirm the detected geo with LooksLikePlace before trusting it.
package geonorm

import (
	"regexp"
	"strings"

	"github.com/loclift/growth-cli/internal/taxonomy"
)

const (
	// GeoConfidence is assigned on a confirmed city+state match.
	GeoConfidence = 0.94
	// ServiceConfidence is the plain service-only classification default.
	ServiceConfidence = 0.75
)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// cityStopwords can never be the city token of a geo phrase. Without this,
// "junk removal near me" reads as the city "near" in Maine.
var cityStopwords = map[string]struct{}{
	"near": {}, "me": {}, "my": {}, "your": {}, "the": {}, "a": {}, "an": {},
	"in": {}, "to": {}, "for": {}, "and": {}, "of": {}, "by": {}, "around": {},
}

// Normalization is the result of DetectAndNormalize.
type Normalization struct {
	Service           string  `json:"service"`
	Geo               string  `json:"geo"`
	NormalizedKeyword string  `json:"normalized_keyword"`
	IsGeoPhrase       bool    `json:"is_geo_phrase"`
	Confidence        float64 `json:"confidence"`
}

// DetectAndNormalize scans a keyword for a state abbreviation or full state
// name, takes the token immediately before it as the city and everything
// before that (stopping at "in") as the service, and normalizes the result to
// "{service} {city} {state_abbrev}". Empty input returns a zero-confidence
// non-geo result; strings with no detectable state come back as a plain
// service classification.
func DetectAndNormalize(keyword string) Normalization {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return Normalization{NormalizedKeyword: keyword}
	}
	words := strings.Fields(k)

	// Right-to-left so a trailing real state wins over an earlier "in"
	// (Indiana) false positive.
	for i := len(words) - 1; i >= 0; i-- {
		clean := strings.Trim(words[i], ".,")
		var abbrev string
		switch {
		case len(clean) == 2 && IsStateAbbrev(clean):
			abbrev = clean
		default:
			if ab, ok := StateAbbrev(clean); ok {
				abbrev = ab
			} else {
				continue
			}
		}

		var cityWords []string
		if i > 0 {
			cityWords = words[i-1 : i]
			if _, stop := cityStopwords[strings.Trim(cityWords[0], ".,")]; stop {
				continue
			}
		}
		before := words[:max(0, i-1)]
		service := strings.Join(before, " ")
		if idx := indexOf(before, "in"); idx >= 0 {
			service = strings.Join(before[:idx], " ")
		} else if len(before) == 0 {
			service = strings.Join(words, " ")
		}
		geo := strings.TrimSpace(strings.Join(append(append([]string{}, cityWords...), abbrev), " "))
		if geo == "" {
			continue
		}
		service = strings.TrimSpace(service)
		if service == "" {
			continue
		}
		normalized := collapse(service + " " + geo)
		return Normalization{
			Service:           service,
			Geo:               geo,
			NormalizedKeyword: normalized,
			IsGeoPhrase:       true,
			Confidence:        GeoConfidence,
		}
	}

	return Normalization{
		Service:           k,
		NormalizedKeyword: k,
		IsGeoPhrase:       false,
		Confidence:        ServiceConfidence,
	}
}

// LooksLikePlace rejects "cities" that are actually service terms — the
// sanity check for the Indiana-style false positive. Callers must apply it
// to Normalization.Geo before persisting a geo phrase.
func LooksLikePlace(name string, vocab *taxonomy.Vocabulary) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 2 {
		return false
	}
	for _, t := range []string{"removal", "haul", "cleanout", "pickup", "disposal"} {
		if strings.Contains(n, t) {
			return false
		}
	}
	if vocab != nil && vocab.IsServiceWord(n) {
		return false
	}
	return true
}

// ParseCityState splits "Charlotte NC" into ("Charlotte", "NC"). The state is
// empty when the last token is not a 2-letter abbreviation.
func ParseCityState(region string) (city, state string) {
	region = strings.TrimSpace(region)
	if region == "" {
		return "", ""
	}
	parts := strings.Fields(region)
	last := strings.ToLower(parts[len(parts)-1])
	if len(parts) >= 2 && len(last) == 2 && IsStateAbbrev(last) {
		return strings.Join(parts[:len(parts)-1], " "), strings.ToUpper(last)
	}
	return region, ""
}

func collapse(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

func indexOf(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}
