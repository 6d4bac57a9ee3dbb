package model

import "time"

// GeoPhraseRecord is a normalized "service + city (+ state)" phrase observed
// across competitor content. Semantically keyed by (city, state, service)
// after canonicalization. Confidence only moves up; SourceURLs only grows.
type GeoPhraseRecord struct {
	ID              int64     `json:"id"`
	City            string    `json:"city"`
	State           string    `json:"state,omitempty"`
	Service         string    `json:"service"`
	GeoPhrase       string    `json:"geo_phrase"`
	ConfidenceScore float64   `json:"confidence_score"`
	Frequency       int       `json:"frequency"`
	SourceURLs      []string  `json:"source_urls,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// AddSourceURL appends a URL if it is non-empty and not already present.
func (g *GeoPhraseRecord) AddSourceURL(url string) {
	if url == "" {
		return
	}
	for _, u := range g.SourceURLs {
		if u == url {
			return
		}
	}
	g.SourceURLs = append(g.SourceURLs, url)
}
