// Package model defines the core record types shared across the intelligence engine.
package model

import "time"

// KeywordType classifies how a keyword was observed.
type KeywordType string

const (
	KeywordTypeService     KeywordType = "service"
	KeywordTypeGeo         KeywordType = "geo"
	KeywordTypeServiceGeo  KeywordType = "service_geo"
	KeywordTypeServiceCity KeywordType = "service_city"
	KeywordTypeSEO         KeywordType = "seo"
	KeywordTypeModifier    KeywordType = "modifier"
	KeywordTypeLongTail    KeywordType = "long_tail"
	KeywordTypeBrand       KeywordType = "brand"
)

// KeywordRecord is the persisted intelligence row for a (keyword, region) pair.
// Confidence is stored canonically in [0,1]; legacy rows in [0,100] are
// normalized on read and write.
type KeywordRecord struct {
	ID                 int64       `json:"id"`
	Keyword            string      `json:"keyword"`
	Region             string      `json:"region"`
	KeywordType        KeywordType `json:"keyword_type"`
	GeoPhrase          string      `json:"geo_phrase,omitempty"`
	Frequency          int         `json:"frequency"`
	ConfidenceScore    float64     `json:"confidence_score"`
	AvgSourceQuality   float64     `json:"avg_source_quality"`
	TopCompetitorCount int         `json:"top_competitor_count"`
	KeywordTypeWeight  float64     `json:"keyword_type_weight"`
	InTitleH1Count     int         `json:"in_title_h1_count"`
	FirstSeen          time.Time   `json:"first_seen"`
	LastSeen           time.Time   `json:"last_seen"`
	ClientID           string      `json:"client_id,omitempty"`
	CompanyName        string      `json:"company_name,omitempty"`
	SourceURL          string      `json:"source_url,omitempty"`
}

// RecordSignals is the per-row signal bundle consumed by the row-based
// confidence recompute. Both persisted rows and in-memory candidates expose it.
type RecordSignals struct {
	Frequency          int
	InTitleH1Count     int
	KeywordTypeWeight  float64
	TopCompetitorCount int
	AvgSourceQuality   float64 // 0-100 or already-normalized 0-1
}

// KeywordRecordView is implemented by anything the confidence scorer can read
// row signals from, so scoring depends on the interface rather than on a
// specific persistence row shape.
type KeywordRecordView interface {
	Signals() RecordSignals
}

// Signals implements KeywordRecordView.
func (r *KeywordRecord) Signals() RecordSignals {
	return RecordSignals{
		Frequency:          r.Frequency,
		InTitleH1Count:     r.InTitleH1Count,
		KeywordTypeWeight:  r.KeywordTypeWeight,
		TopCompetitorCount: r.TopCompetitorCount,
		AvgSourceQuality:   r.AvgSourceQuality,
	}
}
