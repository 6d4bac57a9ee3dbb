package confidence

// Geo-phrase confidence factors (sum = 1.0).
const (
	phraseFrequencyWeight   = 0.35
	phraseQualityWeight     = 0.30
	phraseKeywordConfWeight = 0.25
	phraseCityPopWeight     = 0.10
)

// GeoPhraseInputs carries the signals for a service+city phrase score.
// KeywordConfidence defaults to neutral 0.5; CityPopulationWeight defaults to
// 1.0 (no penalty when population data is unknown).
type GeoPhraseInputs struct {
	Frequency            int
	AvgSourceQuality     float64 // 0-100 or 0-1
	KeywordConfidence    *float64
	CityPopulationWeight *float64
}

// GeoPhrase computes the confidence of a service+city phrase:
//
//	confidence = 0.35*frequency + 0.30*sourceQuality + 0.25*keywordConfidence + 0.10*cityPopulation
func GeoPhrase(in GeoPhraseInputs) float64 {
	frequencyScore := logFrequency(in.Frequency, rowFreqMax)

	quality := in.AvgSourceQuality
	if quality > 1 {
		quality /= 100
	}
	quality = Clamp01(quality)

	kwConf := 0.5
	if in.KeywordConfidence != nil {
		kwConf = Clamp01(*in.KeywordConfidence)
	}

	cityWeight := 1.0
	if in.CityPopulationWeight != nil {
		cityWeight = Clamp01(*in.CityPopulationWeight)
	}

	score := phraseFrequencyWeight*frequencyScore +
		phraseQualityWeight*quality +
		phraseKeywordConfWeight*kwConf +
		phraseCityPopWeight*cityWeight
	return Clamp01(score)
}
