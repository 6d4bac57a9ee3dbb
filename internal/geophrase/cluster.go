package geophrase

import (
	"sort"
	"strings"
)

// CityCluster groups observations for a single city: the source phrases,
// per-service counts, and the reference services this city has no coverage
// for.
type CityCluster struct {
	City            string         `json:"city"`
	Phrases         []string       `json:"phrases"`
	ServiceCounts   map[string]int `json:"service_counts"`
	MissingServices []string       `json:"missing_services"`
}

// ServiceCluster is the transpose: per-service city coverage and the known
// cities with no observations for that service.
type ServiceCluster struct {
	Service           string         `json:"service"`
	Phrases           []string       `json:"phrases"`
	CityCounts        map[string]int `json:"city_counts"`
	UnderservedCities []string       `json:"underserved_cities"`
}

// synonymGroups collapse interchangeable service words when deciding
// whether two phrasings describe the same service.
var synonymGroups = [][]string{
	{"junk", "waste", "trash", "debris", "garbage"},
	{"cleanout", "clean out", "clean-up", "cleanup"},
	{"haul", "hauling"},
}

// genericTerms are too common to signal a match on their own: "junk removal"
// and "appliance removal" share "removal" but are different services.
var genericTerms = map[string]struct{}{
	"removal": {}, "haul": {}, "hauling": {}, "cleaning": {},
	"cleanout": {}, "clean": {}, "pickup": {}, "disposal": {},
	"dispose": {}, "repair": {}, "rental": {},
}

// synonymCanonical maps each synonym to its group's first entry.
var synonymCanonical = func() map[string]string {
	m := make(map[string]string)
	for _, group := range synonymGroups {
		for _, w := range group {
			m[w] = group[0]
		}
	}
	return m
}()

// serviceTokens normalizes a service phrase into canonicalized word tokens,
// with generic terms removed.
func serviceTokens(service string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(service)) {
		if canonical, ok := synonymCanonical[w]; ok {
			w = canonical
		}
		if _, generic := genericTerms[w]; generic {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// ServicesMatch reports whether two service phrasings describe the same
// service: identical after synonym canonicalization, one containing the
// other, or sharing a distinctive non-generic canonical token.
func ServicesMatch(a, b string) bool {
	ca := canonicalService(a)
	cb := canonicalService(b)
	if ca == "" || cb == "" {
		return false
	}
	if ca == cb || strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		return true
	}
	ta := serviceTokens(a)
	tb := serviceTokens(b)
	for w := range ta {
		if _, ok := tb[w]; ok {
			return true
		}
	}
	return false
}

// canonicalService rewrites every word through the synonym table so that
// "waste hauling" and "junk haul" compare equal token-for-token.
func canonicalService(service string) string {
	words := strings.Fields(strings.ToLower(service))
	for i, w := range words {
		if canonical, ok := synonymCanonical[w]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

// hasMatchingService reports whether any service in the list matches the
// candidate under synonym rules.
func hasMatchingService(services []string, candidate string) bool {
	for _, s := range services {
		if ServicesMatch(s, candidate) {
			return true
		}
	}
	return false
}

// ClusterByCity groups pairs per city. Missing services are computed against
// referenceServices; when that list is empty, the union of all observed
// services stands in.
func ClusterByCity(pairs []Pair, referenceServices []string) []CityCluster {
	byCity := make(map[string]*CityCluster)
	var observed []string
	for _, p := range pairs {
		if p.City == "" || p.Service == "" {
			continue
		}
		c := byCity[p.City]
		if c == nil {
			c = &CityCluster{City: p.City, ServiceCounts: make(map[string]int)}
			byCity[p.City] = c
		}
		if phrase := pairPhrase(p); !containsString(c.Phrases, phrase) {
			c.Phrases = append(c.Phrases, phrase)
		}
		c.ServiceCounts[p.Service]++
		if !hasMatchingService(observed, p.Service) {
			observed = append(observed, p.Service)
		}
	}

	reference := referenceServices
	if len(reference) == 0 {
		reference = observed
	}
	reference = append([]string(nil), reference...)
	sort.Strings(reference)

	cities := make([]string, 0, len(byCity))
	for c := range byCity {
		cities = append(cities, c)
	}
	sort.Strings(cities)

	clusters := make([]CityCluster, 0, len(cities))
	for _, city := range cities {
		c := byCity[city]
		have := make([]string, 0, len(c.ServiceCounts))
		for s := range c.ServiceCounts {
			have = append(have, s)
		}
		for _, ref := range reference {
			if !hasMatchingService(have, ref) {
				c.MissingServices = append(c.MissingServices, ref)
			}
		}
		clusters = append(clusters, *c)
	}
	return clusters
}

// ClusterByService groups pairs per service, synonym-tolerant: the first
// observed phrasing names the cluster. Underserved cities are computed
// against knownCities, or the union of observed cities when none are given.
func ClusterByService(pairs []Pair, knownCities []string) []ServiceCluster {
	var groups []*ServiceCluster
	find := func(service string) *ServiceCluster {
		for _, g := range groups {
			if ServicesMatch(g.Service, service) {
				return g
			}
		}
		return nil
	}

	var observed []string
	for _, p := range pairs {
		if p.City == "" || p.Service == "" {
			continue
		}
		if !containsString(observed, p.City) {
			observed = append(observed, p.City)
		}
		g := find(p.Service)
		if g == nil {
			g = &ServiceCluster{Service: p.Service, CityCounts: make(map[string]int)}
			groups = append(groups, g)
		}
		if phrase := pairPhrase(p); !containsString(g.Phrases, phrase) {
			g.Phrases = append(g.Phrases, phrase)
		}
		g.CityCounts[p.City]++
	}

	cities := knownCities
	if len(cities) == 0 {
		cities = observed
	}
	cities = normalizeCities(cities)
	sort.Strings(cities)

	sort.Slice(groups, func(i, j int) bool { return groups[i].Service < groups[j].Service })

	clusters := make([]ServiceCluster, 0, len(groups))
	for _, g := range groups {
		for _, c := range cities {
			if g.CityCounts[c] == 0 {
				g.UnderservedCities = append(g.UnderservedCities, c)
			}
		}
		clusters = append(clusters, *g)
	}
	return clusters
}

func normalizeCities(cities []string) []string {
	out := make([]string, 0, len(cities))
	for _, c := range cities {
		n := CanonicalCity(normalizeCity(c))
		if n != "" && !containsString(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func pairPhrase(p Pair) string {
	if p.Phrase != "" {
		return p.Phrase
	}
	return strings.TrimSpace(p.Service + " " + p.City)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
