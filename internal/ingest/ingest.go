// Package ingest runs the intake pipeline over extracted competitor
// profiles: gate, geo-normalize, score, upsert, record history. One pipeline
// run is sequential and single-writer per client; concurrency, if any,
// belongs to the caller and must not share a client.
package ingest

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loclift/growth-cli/internal/confidence"
	"github.com/loclift/growth-cli/internal/geonorm"
	"github.com/loclift/growth-cli/internal/history"
	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

// RecordStore is the persistence surface the pipeline writes through.
type RecordStore interface {
	GetKeywordRecord(ctx context.Context, clientID, keyword, region string) (*model.KeywordRecord, error)
	UpsertKeywordRecord(ctx context.Context, rec *model.KeywordRecord) error
	ListKeywordRecords(ctx context.Context, clientID string) ([]model.KeywordRecord, error)
	UpsertGeoPhrase(ctx context.Context, rec *model.GeoPhraseRecord) error
}

// Input is one profile's worth of intake.
type Input struct {
	ClientID           string
	CompanyName        string
	Region             string
	Vertical           string
	SourceURL          string
	SourceQuality      *float64 // 0-100; nil when the site was never scored
	CompetitorStrength *float64 // 0-1
	KnownCities        []string
	Profile            model.Profile
}

// Result summarizes what one intake run did.
type Result struct {
	Considered int
	Gated      int
	Upserted   int
	GeoPhrases int
}

// Pipeline wires the gate, normalizer, scorers, store, and history tracker.
type Pipeline struct {
	store   RecordStore
	tracker *history.Tracker
	vocab   *taxonomy.Vocabulary
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the pipeline clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline builds a Pipeline. tracker may be nil to skip history updates.
func NewPipeline(store RecordStore, tracker *history.Tracker, vocab *taxonomy.Vocabulary, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		tracker: tracker,
		vocab:   vocab,
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// typePriority resolves the keyword type kept when the same keyword arrives
// from multiple profile fields.
var typePriority = map[model.KeywordType]int{
	model.KeywordTypeServiceCity: 3,
	model.KeywordTypeGeo:         2,
	model.KeywordTypeSEO:         1,
}

type candidate struct {
	keyword string
	kwType  model.KeywordType
}

// IngestProfile runs the full intake for one extracted profile. Keywords
// that fail the service-intent gate are dropped silently; everything else is
// scored and upserted, and a geo-phrase record is written for confirmed
// service+city phrases.
func (p *Pipeline) IngestProfile(ctx context.Context, in Input) (*Result, error) {
	res := &Result{}
	now := p.now()

	titleHits := make(map[string]struct{}, len(in.Profile.ContentSignals.TitleKeywords))
	for _, t := range in.Profile.ContentSignals.TitleKeywords {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			titleHits[t] = struct{}{}
		}
	}

	for _, cand := range dedupeCandidates(in.Profile) {
		res.Considered++
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "ingest: canceled")
		}
		if !p.vocab.PassesGate(cand.keyword, in.Vertical) {
			res.Gated++
			continue
		}

		intent := confidence.IntentScore(cand.keyword, in.KnownCities, in.Vertical, p.vocab)
		if intent == 0 {
			res.Gated++
			continue
		}

		norm := geonorm.DetectAndNormalize(cand.keyword)
		keyword := cand.keyword
		kwType := cand.kwType
		validGeo := false
		if norm.IsGeoPhrase {
			city, _ := geonorm.ParseCityState(norm.Geo)
			validGeo = city != "" && geonorm.LooksLikePlace(city, p.vocab)
		}
		if validGeo {
			keyword = norm.NormalizedKeyword
			if kwType != model.KeywordTypeServiceCity {
				kwType = model.KeywordTypeServiceGeo
			}
		}

		rec, err := p.upsertKeyword(ctx, in, keyword, kwType, norm, validGeo, intent, now, titleHits)
		if err != nil {
			return res, err
		}
		res.Upserted++

		if p.tracker != nil {
			if err := p.tracker.Observe(keyword, rec.ConfidenceScore, in.Region); err != nil {
				return res, eris.Wrap(err, "ingest: record history")
			}
		}

		if validGeo {
			if err := p.upsertGeoPhrase(ctx, in, norm, rec, now); err != nil {
				return res, err
			}
			res.GeoPhrases++
		}
	}

	p.log.Debug("profile ingested",
		zap.String("client_id", in.ClientID),
		zap.String("company", in.CompanyName),
		zap.Int("considered", res.Considered),
		zap.Int("gated", res.Gated),
		zap.Int("upserted", res.Upserted),
		zap.Int("geo_phrases", res.GeoPhrases))
	return res, nil
}

func (p *Pipeline) upsertKeyword(ctx context.Context, in Input, keyword string, kwType model.KeywordType, norm geonorm.Normalization, validGeo bool, intent float64, now time.Time, titleHits map[string]struct{}) (*model.KeywordRecord, error) {
	existing, err := p.store.GetKeywordRecord(ctx, in.ClientID, keyword, in.Region)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: load keyword %q", keyword)
	}

	rec := existing
	if rec == nil {
		rec = &model.KeywordRecord{
			Keyword:     keyword,
			Region:      in.Region,
			KeywordType: kwType,
			ClientID:    in.ClientID,
			CompanyName: in.CompanyName,
			SourceURL:   in.SourceURL,
			FirstSeen:   now,
		}
	}
	rec.Frequency++
	rec.LastSeen = now
	if validGeo {
		rec.GeoPhrase = norm.NormalizedKeyword
	}
	if typePriority[kwType] > typePriority[rec.KeywordType] {
		rec.KeywordType = kwType
	}
	rec.KeywordTypeWeight = confidence.TypeWeight(rec.KeywordType)

	if in.SourceQuality != nil {
		q := *in.SourceQuality
		n := float64(rec.Frequency)
		rec.AvgSourceQuality = (rec.AvgSourceQuality*(n-1) + q) / n
		if q > 70 {
			rec.TopCompetitorCount++
		}
	}
	if _, hit := titleHits[strings.ToLower(keyword)]; hit {
		rec.InTitleH1Count++
	}

	weighted := confidence.Weighted(confidence.WeightedInputs{
		Frequency:          rec.Frequency,
		SourceQuality:      in.SourceQuality,
		KeywordType:        rec.KeywordType,
		CompetitorStrength: in.CompetitorStrength,
		LastSeen:           &rec.LastSeen,
		Now:                now,
	})

	// Intent acts as a floor and stored confidence never regresses.
	conf := confidence.Normalize(rec.ConfidenceScore)
	for _, v := range []float64{weighted, intent} {
		if v > conf {
			conf = v
		}
	}
	rec.ConfidenceScore = conf

	if err := p.store.UpsertKeywordRecord(ctx, rec); err != nil {
		return nil, eris.Wrapf(err, "ingest: upsert keyword %q", keyword)
	}
	return rec, nil
}

func (p *Pipeline) upsertGeoPhrase(ctx context.Context, in Input, norm geonorm.Normalization, rec *model.KeywordRecord, now time.Time) error {
	city, state := geonorm.ParseCityState(norm.Geo)
	kwConf := rec.ConfidenceScore
	conf := confidence.GeoPhrase(confidence.GeoPhraseInputs{
		Frequency:         rec.Frequency,
		AvgSourceQuality:  rec.AvgSourceQuality,
		KeywordConfidence: &kwConf,
	})
	gp := &model.GeoPhraseRecord{
		City:            city,
		State:           state,
		Service:         norm.Service,
		GeoPhrase:       norm.NormalizedKeyword,
		ConfidenceScore: conf,
		Frequency:       1,
		CreatedAt:       now,
	}
	if in.SourceURL != "" {
		gp.SourceURLs = []string{in.SourceURL}
	}
	if err := p.store.UpsertGeoPhrase(ctx, gp); err != nil {
		return eris.Wrapf(err, "ingest: upsert geo phrase %q", norm.NormalizedKeyword)
	}
	return nil
}

// RecalculateConfidence recomputes every stored keyword's confidence from its
// accumulated row signals, holding the intent floor. Confidence only moves
// up; a recompute below the current stored value leaves the row untouched.
func (p *Pipeline) RecalculateConfidence(ctx context.Context, clientID, vertical string, knownCities []string) (int, error) {
	records, err := p.store.ListKeywordRecords(ctx, clientID)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: list keyword records")
	}

	updated := 0
	for i := range records {
		rec := &records[i]
		conf := confidence.FromRecord(rec)
		if intent := confidence.IntentScore(rec.Keyword, knownCities, vertical, p.vocab); intent > conf {
			conf = intent
		}
		if conf <= confidence.Normalize(rec.ConfidenceScore) {
			continue
		}
		rec.ConfidenceScore = conf
		if err := p.store.UpsertKeywordRecord(ctx, rec); err != nil {
			return updated, eris.Wrapf(err, "ingest: recompute keyword %q", rec.Keyword)
		}
		updated++
	}
	return updated, nil
}

// dedupeCandidates flattens the profile's keyword fields into unique
// candidates, keeping the highest-priority type when the same keyword shows
// up in more than one field.
func dedupeCandidates(p model.Profile) []candidate {
	byKeyword := make(map[string]int) // keyword -> index into out
	var out []candidate

	add := func(raw string, t model.KeywordType) {
		k := strings.ToLower(strings.TrimSpace(raw))
		if k == "" {
			return
		}
		if i, ok := byKeyword[k]; ok {
			if typePriority[t] > typePriority[out[i].kwType] {
				out[i].kwType = t
			}
			return
		}
		byKeyword[k] = len(out)
		out = append(out, candidate{keyword: k, kwType: t})
	}

	for _, s := range p.ServiceCityPhrases {
		add(s, model.KeywordTypeServiceCity)
	}
	for _, s := range p.GeoKeywords {
		add(s, model.KeywordTypeGeo)
	}
	for _, s := range p.SEOKeywords {
		add(s, model.KeywordTypeSEO)
	}
	return out
}

var wordRe = regexp.MustCompile(`[a-zA-Z]{3,}`)

// extractStopwords are dropped from free-text keyword extraction.
var extractStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "are": {}, "was": {}, "have": {}, "has": {},
	"you": {}, "not": {}, "but": {}, "they": {}, "all": {}, "can": {},
	"our": {}, "out": {}, "about": {}, "will": {}, "more": {}, "than": {},
	"when": {}, "where": {}, "what": {}, "how": {}, "why": {}, "who": {},
	"get": {}, "its": {}, "into": {}, "over": {}, "just": {}, "like": {},
}

// ExtractKeywords pulls candidate keyword tokens out of free text: runs of
// three or more letters, lowercased, stop words removed, order preserved,
// deduplicated.
func ExtractKeywords(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, w := range wordRe.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if _, stop := extractStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
