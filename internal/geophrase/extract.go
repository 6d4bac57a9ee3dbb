// Package geophrase extracts (service, city) pairs from free-text keyword
// lists and clusters them by city, by service, and across near-duplicate
// phrasings. Normalization is vocabulary-driven: lowercase, stop words
// removed, city nicknames canonicalized (phx -> phoenix).
package geophrase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/loclift/growth-cli/internal/geonorm"
	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

// Pair is one extracted (service, city) observation. Service and City are
// lowercase and trimmed; Phrase preserves the source text that produced the
// pair.
type Pair struct {
	Service string `json:"service"`
	City    string `json:"city"`
	Phrase  string `json:"phrase,omitempty"`
}

type pairKey struct {
	service string
	city    string
}

// stopwords are removed from extracted phrases before matching.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "are": {}, "was": {}, "have": {}, "has": {},
	"you": {}, "not": {}, "but": {}, "they": {}, "all": {}, "can": {},
	"her": {}, "his": {}, "been": {}, "had": {}, "its": {}, "our": {},
	"out": {}, "who": {}, "how": {}, "why": {}, "what": {}, "when": {},
	"where": {}, "into": {}, "some": {}, "just": {}, "than": {}, "then": {},
	"only": {}, "about": {}, "like": {}, "over": {}, "more": {},
}

// cityCanonical maps common nicknames and airport-style abbreviations to
// canonical city names.
var cityCanonical = map[string]string{
	"phx": "phoenix", "la": "los angeles", "lax": "los angeles",
	"l.a.": "los angeles", "sf": "san francisco", "sfo": "san francisco",
	"nyc": "new york", "chi": "chicago", "ord": "chicago",
	"hou": "houston", "iah": "houston", "philly": "philadelphia",
	"phl": "philadelphia", "sd": "san diego", "dc": "washington",
	"dca": "washington", "mia": "miami", "atl": "atlanta",
	"den": "denver", "sea": "seattle", "slc": "salt lake city",
	"vegas": "las vegas", "lv": "las vegas", "tpa": "tampa",
	"stl": "st louis", "mil": "milwaukee", "mke": "milwaukee",
	"clt": "charlotte", "scotts": "scottsdale", "temp": "tempe",
}

var (
	wsRe           = regexp.MustCompile(`\s+`)
	trailingPrepRe = regexp.MustCompile(`(?i)\s+(in|near|around)\s*$`)
	punctRe        = regexp.MustCompile(`[,.]`)
)

// Extractor turns raw phrase lists into deduplicated (service, city) pairs.
type Extractor struct {
	vocab *taxonomy.Vocabulary
}

// NewExtractor builds an Extractor over the given vocabulary.
func NewExtractor(vocab *taxonomy.Vocabulary) *Extractor {
	return &Extractor{vocab: vocab}
}

// Extract walks every input phrase, first through the geo normalizer (with
// the looks-like-a-place check always applied), then through a
// longest-match-first search against the known-city set, and returns
// deduplicated (service, city) pairs.
func (x *Extractor) Extract(seoKeywords, serviceCityPhrases, knownCities []string) []Pair {
	var all []string
	for _, src := range [][]string{seoKeywords, serviceCityPhrases} {
		for _, p := range src {
			if s := strings.TrimSpace(p); s != "" {
				all = append(all, s)
			}
		}
	}

	knownSet := buildKnownCitySet(knownCities)

	seen := make(map[pairKey]struct{})
	var result []Pair
	add := func(service, city, phrase string) {
		k := pairKey{service: service, city: city}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, Pair{Service: service, City: city, Phrase: phrase})
		}
	}

	for _, phrase := range all {
		// 1. Embedded "service in city state" / "service city st" shapes.
		norm := geonorm.DetectAndNormalize(phrase)
		if norm.IsGeoPhrase && norm.Service != "" && norm.Geo != "" && x.vocab.HasServiceTerm(norm.Service) {
			cityPart, _ := geonorm.ParseCityState(norm.Geo)
			if cityPart != "" && geonorm.LooksLikePlace(cityPart, x.vocab) {
				service := normalizePhrase(norm.Service)
				city := CanonicalCity(normalizeCity(cityPart))
				if service != "" && city != "" {
					add(service, city, phrase)
					continue
				}
			}
		}
		// Invalid geo ("in" parsed as Indiana) falls through to city matching.

		// 2. Known-city substring search.
		if len(knownSet) == 0 {
			continue
		}
		if service, city, ok := findCityInPhrase(phrase, knownSet, x.vocab); ok {
			if geonorm.LooksLikePlace(city, x.vocab) {
				service = normalizePhrase(service)
				city = CanonicalCity(city)
				if service != "" && city != "" {
					add(service, city, phrase)
				}
			}
		}
	}

	return result
}

// ExtractFromProfile extracts pairs from an upstream profile record.
func (x *Extractor) ExtractFromProfile(p model.Profile, knownCities []string) []Pair {
	return x.Extract(p.SEOKeywords, p.ServiceCityPhrases, knownCities)
}

// buildKnownCitySet normalizes known cities and expands them with bare city
// names (dropping a trailing state abbreviation) and nickname aliases that
// point at a known canonical city.
func buildKnownCitySet(knownCities []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range knownCities {
		n := normalizeCity(c)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
		parts := strings.Fields(n)
		if len(parts) >= 2 && len(parts[len(parts)-1]) == 2 {
			set[strings.Join(parts[:len(parts)-1], " ")] = struct{}{}
		}
	}
	for abbrev, canonical := range cityCanonical {
		for k := range set {
			if k == canonical {
				set[abbrev] = struct{}{}
				break
			}
			if rest, ok := strings.CutPrefix(k, canonical+" "); ok {
				set[abbrev+" "+rest] = struct{}{}
				break
			}
		}
	}
	return set
}

// findCityInPhrase looks for a known city inside the phrase, longest match
// first, and returns the service-bearing remainder before or after it.
func findCityInPhrase(phrase string, known map[string]struct{}, vocab *taxonomy.Vocabulary) (service, city string, ok bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return "", "", false
	}

	cities := make([]string, 0, len(known))
	for c := range known {
		if c != "" {
			cities = append(cities, c)
		}
	}
	sort.Slice(cities, func(i, j int) bool {
		if len(cities[i]) != len(cities[j]) {
			return len(cities[i]) > len(cities[j])
		}
		return cities[i] < cities[j]
	})

	for _, c := range cities {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(c) + `\b`)
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(p)
		if loc == nil {
			continue
		}
		before := strings.TrimSpace(p[:loc[0]])
		after := strings.TrimSpace(p[loc[1]:])
		if before != "" && vocab.HasServiceTerm(before) {
			if svc := cleanService(collapseWS(before)); svc != "" {
				return svc, c, true
			}
		}
		if after != "" && vocab.HasServiceTerm(after) {
			if svc := cleanService(collapseWS(after)); svc != "" {
				return svc, c, true
			}
		}
	}
	return "", "", false
}

// cleanService trims trailing prepositions (in, near, around).
func cleanService(raw string) string {
	return strings.TrimSpace(trailingPrepRe.ReplaceAllString(raw, ""))
}

// CanonicalCity maps nicknames/abbreviations to canonical city names,
// whole-phrase first, then word by word ("phx az" -> "phoenix az").
func CanonicalCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return ""
	}
	if canonical, ok := cityCanonical[c]; ok {
		return canonical
	}
	words := strings.Fields(c)
	out := make([]string, 0, len(words))
	for _, w := range words {
		clean := punctRe.ReplaceAllString(w, "")
		if canonical, ok := cityCanonical[clean]; ok {
			out = append(out, canonical)
		} else {
			out = append(out, w)
		}
	}
	return collapseWS(strings.Join(out, " "))
}

// normalizeCity lowercases, folds diacritics, and collapses whitespace for
// matching: "San José" and "san jose" are the same city.
func normalizeCity(city string) string {
	return collapseWS(foldDiacritics(strings.ToLower(strings.TrimSpace(city))))
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		return s
	}
	return out
}

// normalizePhrase lowercases, removes stop words, collapses whitespace.
func normalizePhrase(phrase string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func collapseWS(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}
