package confidence

import (
	"github.com/loclift/growth-cli/internal/model"
)

// Row-based confidence factors (sum = 1.0). Used on the recompute path when
// per-row signals (title/H1 hits, top-competitor counts) are available.
const (
	rowFrequencyWeight      = 0.30
	rowTitleH1Weight        = 0.25
	rowGeoRelevanceWeight   = 0.25
	rowLowCompetitionWeight = 0.20
)

const (
	rowFreqMax  = 50 // frequency at which the frequency factor saturates
	rowTitleMax = 5  // title/H1 hits at which that factor saturates
)

// FromRecord recomputes keyword confidence from accumulated row signals:
//
//	confidence = 0.30*frequency + 0.25*titleH1 + 0.25*geoRelevance + 0.20*lowCompetition
//
// The low-competition factor rises when few top competitors carry the keyword,
// with a further bonus when the sites that do carry it average below 50/100
// quality — weak incumbents are easier to outrank.
func FromRecord(view model.KeywordRecordView) float64 {
	if view == nil {
		return 0
	}
	sig := view.Signals()

	frequencyScore := logFrequency(sig.Frequency, rowFreqMax)

	titleScore := 0.0
	if sig.InTitleH1Count > 0 {
		titleScore = min(1, float64(sig.InTitleH1Count)/rowTitleMax)
	}

	geoRelevance := Clamp01(sig.KeywordTypeWeight)

	compPresence := 0.0
	if sig.TopCompetitorCount > 0 {
		compPresence = min(1, float64(sig.TopCompetitorCount)/5)
	}
	lowCompetition := 1 - compPresence
	avgQual := sig.AvgSourceQuality
	if avgQual > 1 {
		avgQual /= 100
	}
	if avgQual > 0 && avgQual < 0.5 {
		lowCompetition = min(1, lowCompetition+0.2)
	}

	score := rowFrequencyWeight*frequencyScore +
		rowTitleH1Weight*titleScore +
		rowGeoRelevanceWeight*geoRelevance +
		rowLowCompetitionWeight*lowCompetition
	return Clamp01(score)
}
