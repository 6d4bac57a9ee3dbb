package model

// ContentSignals carries page-structure hints from the upstream extraction.
// The engine only reads TitleKeywords.
type ContentSignals struct {
	TitleKeywords []string `json:"title_keywords,omitempty"`
}

// Profile is the extracted competitor profile handed to the engine by the
// upstream scrape/extract collaborators. Only these fields are read.
type Profile struct {
	CompanyName        string         `json:"company_name,omitempty"`
	WebsiteURL         string         `json:"website_url,omitempty"`
	SEOKeywords        []string       `json:"seo_keywords,omitempty"`
	ServiceCityPhrases []string       `json:"service_city_phrases,omitempty"`
	GeoKeywords        []string       `json:"geo_keywords,omitempty"`
	ContentSignals     ContentSignals `json:"content_signals,omitempty"`
	CallsToAction      []string       `json:"calls_to_action,omitempty"`
}

// CompetitorLog is one competitor's research snapshot, already materialized by
// the caller. WebsiteQuality is 0-100; nil when the site was never scored.
type CompetitorLog struct {
	CompetitorName string   `json:"competitor_name,omitempty"`
	Services       []string `json:"services,omitempty"`
	Profile        Profile  `json:"profile,omitempty"`
	WebsiteQuality *float64 `json:"website_quality,omitempty"`
	RawText        string   `json:"raw_text,omitempty"`
}
