package geophrase

import (
	"strings"

	"github.com/loclift/growth-cli/internal/model"
)

// MergeSimilar collapses geo-phrase records that name the same city and a
// synonym-matching service. The survivor accumulates frequency, unions source
// URLs, and adopts the phrasing of whichever record carried the highest
// confidence. Input order is preserved: the first record of each group anchors
// its position.
func MergeSimilar(records []model.GeoPhraseRecord) []model.GeoPhraseRecord {
	var merged []model.GeoPhraseRecord
	for _, rec := range records {
		idx := -1
		for i := range merged {
			if sameLocation(merged[i], rec) && ServicesMatch(merged[i].Service, rec.Service) {
				idx = i
				break
			}
		}
		if idx < 0 {
			cp := rec
			cp.SourceURLs = append([]string(nil), rec.SourceURLs...)
			merged = append(merged, cp)
			continue
		}
		dst := &merged[idx]
		dst.Frequency += rec.Frequency
		if rec.ConfidenceScore > dst.ConfidenceScore {
			dst.ConfidenceScore = rec.ConfidenceScore
			dst.GeoPhrase = rec.GeoPhrase
			dst.Service = rec.Service
			dst.City = rec.City
		}
		if dst.State == "" {
			dst.State = rec.State
		}
		for _, u := range rec.SourceURLs {
			dst.AddSourceURL(u)
		}
	}
	return merged
}

// sameLocation matches on city, with a blank state acting as a wildcard so
// "madison" and "madison wi" collapse into one record.
func sameLocation(a, b model.GeoPhraseRecord) bool {
	if !strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(b.City)) {
		return false
	}
	as, bs := strings.TrimSpace(a.State), strings.TrimSpace(b.State)
	return as == "" || bs == "" || strings.EqualFold(as, bs)
}
