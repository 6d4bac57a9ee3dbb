// Package opportunity ranks (service, geo) growth opportunities for a client
// from already-materialized competitor logs and keyword records. Scoring is
// deterministic: the same snapshot always produces the same ranked list and
// the same explanations.
package opportunity

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loclift/growth-cli/internal/estimate"
	"github.com/loclift/growth-cli/internal/geophrase"
	"github.com/loclift/growth-cli/internal/history"
	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/seasonality"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

// Base score factors (sum = 1.0, scaled to 0-100).
const (
	confidenceWeight = 0.5
	geoWeight        = 0.3
	noveltyWeight    = 0.2

	geoBonusWithCity = 1.0
	geoBonusNoCity   = 0.3

	mentionPenalty  = 5
	intentVerbBonus = 5

	// GuardWindow is how many prior scoring runs the duplication guard
	// looks back over.
	GuardWindow = 2
	// duplicateScore replaces the computed score for guarded pairs.
	duplicateScore = 1
)

// Surfacing thresholds.
const (
	surfaceLimit      = 10
	surfaceMinScore   = 40
	backfillFloor     = 3
	backfillMinScore  = 20
	neutralConfidence = 0.5
)

// Recommendation is one previously persisted (service, geo) pair.
type Recommendation struct {
	Service string
	Geo     string
}

// RunLog is the slice of the store the duplication guard needs: the pairs
// recommended in the client's most recent scoring runs.
type RunLog interface {
	RecentRecommendations(ctx context.Context, clientID string, runs int) ([]Recommendation, error)
}

// Input is one scoring invocation's snapshot. Services is the vertical's
// opportunity-service list; Logs and Records are already loaded by the
// caller. Geo is the target city ("" for a non-geo run).
type Input struct {
	ClientID    string
	Geo         string
	Vertical    string
	Services    []string
	Logs        []model.CompetitorLog
	Records     []model.KeywordRecord
	AvgJobValue float64
}

// Result is the full ranked candidate list plus the surfaced subset that
// gets persisted, and the run row recording the invocation.
type Result struct {
	Run        model.ScoringRun
	Candidates []model.OpportunityCandidate
	Surfaced   []model.OpportunityCandidate
}

// Scorer evaluates opportunities. Build one with NewScorer.
type Scorer struct {
	runs    RunLog
	tracker *history.Tracker
	vocab   *taxonomy.Vocabulary
	seasons *seasonality.Checker
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the scorer's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scorer) { s.log = log }
}

// NewScorer builds a Scorer. runs may be nil, which disables the duplication
// guard; tracker may be nil, which disables decay.
func NewScorer(runs RunLog, tracker *history.Tracker, vocab *taxonomy.Vocabulary, seasons *seasonality.Checker, opts ...Option) *Scorer {
	s := &Scorer{
		runs:    runs,
		tracker: tracker,
		vocab:   vocab,
		seasons: seasons,
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates every candidate service against the snapshot and returns
// the ranked result. Candidates caught by the duplication guard come back
// with score 1 and duplicate=true instead of being re-scored.
func (s *Scorer) Score(ctx context.Context, in Input) (*Result, error) {
	guarded, err := s.guardedPairs(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.OpportunityCandidate, 0, len(in.Services))
	for _, service := range in.Services {
		service = strings.TrimSpace(strings.ToLower(service))
		if service == "" {
			continue
		}
		candidates = append(candidates, s.scoreService(service, in, guarded))
	}

	rank(candidates)

	res := &Result{
		Run: model.ScoringRun{
			ID:        uuid.NewString(),
			ClientID:  in.ClientID,
			Geo:       in.Geo,
			Vertical:  in.Vertical,
			CreatedAt: s.now(),
		},
		Candidates: candidates,
		Surfaced:   surface(candidates),
	}
	s.log.Debug("scored opportunities",
		zap.String("client_id", in.ClientID),
		zap.String("geo", in.Geo),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("surfaced", len(res.Surfaced)))
	return res, nil
}

func (s *Scorer) guardedPairs(ctx context.Context, clientID string) (map[Recommendation]struct{}, error) {
	guarded := make(map[Recommendation]struct{})
	if s.runs == nil || clientID == "" {
		return guarded, nil
	}
	recent, err := s.runs.RecentRecommendations(ctx, clientID, GuardWindow)
	if err != nil {
		return nil, eris.Wrap(err, "opportunity: load recent recommendations")
	}
	for _, r := range recent {
		guarded[Recommendation{
			Service: strings.ToLower(strings.TrimSpace(r.Service)),
			Geo:     strings.ToLower(strings.TrimSpace(r.Geo)),
		}] = struct{}{}
	}
	return guarded, nil
}

func (s *Scorer) scoreService(service string, in Input, guarded map[Recommendation]struct{}) model.OpportunityCandidate {
	cand := model.OpportunityCandidate{
		Service: service,
		Geo:     in.Geo,
	}

	key := Recommendation{Service: service, Geo: strings.ToLower(strings.TrimSpace(in.Geo))}
	if _, dup := guarded[key]; dup {
		cand.Score = duplicateScore
		cand.Duplicate = true
		cand.ConfidenceScore = neutralConfidence
		cand.Tier = model.TierFor(cand.Score)
		cand.WhyRecommended = explainDuplicate(service, in.Geo)
		return cand
	}

	mentioners := mentioningLogs(in.Logs, service)
	cand.CompetitorMentions = len(mentioners)

	conf, kwStats := s.serviceConfidence(service, in.Records)
	cand.ConfidenceScore = conf

	geoBonus := geoBonusNoCity
	if in.Geo != "" {
		geoBonus = geoBonusWithCity
	}
	base := conf*confidenceWeight + geoBonus*geoWeight + 1.0*noveltyWeight
	score := int(math.Round(base * 100))

	lowQuality := lowQualityDominatorBonus(mentioners)
	missing := missingServiceCityBonus(in.Logs, service, in.Geo)
	unused := highFreqUnusedBonus(kwStats, len(mentioners))
	weakCTA := weakConversionBonus(mentioners)
	score += lowQuality + missing + unused + weakCTA

	score -= len(mentioners) * mentionPenalty
	if score < 0 {
		score = 0
	}

	intentVerb := s.vocab != nil && s.vocab.HasServiceVerb(service)
	if intentVerb {
		score = minInt(100, score+intentVerbBonus)
	}

	if s.seasons != nil {
		cand.Seasonality = s.seasons.Check(service, in.Vertical)
		if cand.Seasonality.Match {
			score = minInt(100, int(math.Round(float64(score)*(1+cand.Seasonality.BoostApplied))))
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 1 {
		score = 1
	}
	cand.Score = score
	cand.Tier = model.TierFor(score)
	cand.WhyRecommended = explain(explainInputs{
		service:    service,
		geo:        in.Geo,
		confidence: conf,
		mentions:   len(mentioners),
		lowQuality: lowQuality,
		missing:    missing,
		unused:     unused,
		weakCTA:    weakCTA,
		intentVerb: intentVerb,
		seasonal:   cand.Seasonality,
	})
	cand.ROI = estimate.Project(score, in.Geo != "", in.AvgJobValue)
	return cand
}

// keywordStats aggregates the keyword records backing one service.
type keywordStats struct {
	totalFrequency int
	maxConfidence  float64 // 0-1
}

// serviceConfidence takes the max decayed confidence across the service's
// keyword records, clamped to [0,1]. Decay applies per keyword, so a
// worn-out keyword cannot suppress a fresh synonym with slightly lower raw
// confidence. Services with no keyword support score a neutral 0.5.
func (s *Scorer) serviceConfidence(service string, records []model.KeywordRecord) (float64, keywordStats) {
	var stats keywordStats
	best := -1.0
	for _, r := range records {
		if !geophrase.ServicesMatch(r.Keyword, service) {
			continue
		}
		stats.totalFrequency += r.Frequency
		conf := r.ConfidenceScore
		if conf > 1 {
			conf /= 100
		}
		if conf > stats.maxConfidence {
			stats.maxConfidence = conf
		}
		if s.tracker != nil {
			conf *= s.tracker.DecayFactor(r.Keyword)
		}
		if conf > best {
			best = conf
		}
	}
	if best < 0 {
		return neutralConfidence, stats
	}
	if best > 1 {
		best = 1
	}
	return best, stats
}

// mentioningLogs returns the competitor logs that cover the service, by
// synonym-tolerant match against their service lists or a substring hit in
// their raw text.
func mentioningLogs(logs []model.CompetitorLog, service string) []model.CompetitorLog {
	var out []model.CompetitorLog
	for _, l := range logs {
		if logMentions(l, service) {
			out = append(out, l)
		}
	}
	return out
}

func logMentions(l model.CompetitorLog, service string) bool {
	for _, s := range l.Services {
		if geophrase.ServicesMatch(s, service) {
			return true
		}
	}
	return l.RawText != "" && strings.Contains(strings.ToLower(l.RawText), service)
}

// lowQualityDominatorBonus rewards services whose covering competitors run
// weak websites: avg quality <40 is worth 8, <55 is 5, <70 is 2.
func lowQualityDominatorBonus(mentioners []model.CompetitorLog) int {
	var sum float64
	var n int
	for _, l := range mentioners {
		if l.WebsiteQuality != nil {
			sum += *l.WebsiteQuality
			n++
		}
	}
	if n == 0 {
		return 0
	}
	switch avg := sum / float64(n); {
	case avg < 40:
		return 8
	case avg < 55:
		return 5
	case avg < 70:
		return 2
	default:
		return 0
	}
}

// missingServiceCityBonus pays out when no competitor page combines the
// service with the target city.
func missingServiceCityBonus(logs []model.CompetitorLog, service, geo string) int {
	city := strings.ToLower(strings.TrimSpace(geo))
	if city == "" {
		return 0
	}
	for _, l := range logs {
		phrases := make([]string, 0, len(l.Profile.ServiceCityPhrases)+len(l.Profile.SEOKeywords))
		phrases = append(phrases, l.Profile.ServiceCityPhrases...)
		phrases = append(phrases, l.Profile.SEOKeywords...)
		for _, p := range phrases {
			lp := strings.ToLower(p)
			if strings.Contains(lp, city) && geophrase.ServicesMatch(lp, service) {
				return 0
			}
		}
	}
	return 8
}

// highFreqUnusedBonus rewards keyword demand the competition is not acting
// on. Tiers on total frequency and best confidence, with an extra kick when
// fewer than two competitors cover the service.
func highFreqUnusedBonus(stats keywordStats, competitorCount int) int {
	unused := 0
	if competitorCount < 2 {
		unused = 2
	}
	conf := stats.maxConfidence * 100
	switch {
	case stats.totalFrequency >= 8 && conf >= 70:
		return minInt(8, 6+unused)
	case stats.totalFrequency >= 5 && conf >= 50:
		return minInt(8, 4+unused)
	case stats.totalFrequency >= 3:
		if unused > 0 {
			unused = 1
		}
		return 2 + unused
	default:
		return 0
	}
}

// weakConversionBonus rewards services whose covering competitors show no
// calls to action: avg 0 is worth 6, under 1.5 is 3.
func weakConversionBonus(mentioners []model.CompetitorLog) int {
	var total int
	for _, l := range mentioners {
		total += len(l.Profile.CallsToAction)
	}
	var avg float64
	if len(mentioners) > 0 {
		avg = float64(total) / float64(len(mentioners))
	}
	switch {
	case avg == 0:
		return 6
	case avg < 1.5:
		return 3
	default:
		return 0
	}
}

// rank sorts by tier first, score descending within tier, service name as
// the deterministic tiebreak.
func rank(candidates []model.OpportunityCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if pa, pb := a.Tier.SortPriority(), b.Tier.SortPriority(); pa != pb {
			return pa < pb
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Service < b.Service
	})
}

// surface picks the persisted subset: the top 10 non-duplicates scoring at
// least 40, backfilled to 3 with the next-highest non-duplicates at 20+.
func surface(ranked []model.OpportunityCandidate) []model.OpportunityCandidate {
	var out []model.OpportunityCandidate
	for _, c := range ranked {
		if c.Duplicate {
			continue
		}
		if c.Score >= surfaceMinScore && len(out) < surfaceLimit {
			out = append(out, c)
		}
	}
	if len(out) >= backfillFloor {
		return out
	}
	for _, c := range ranked {
		if len(out) >= backfillFloor {
			break
		}
		if c.Duplicate || c.Score >= surfaceMinScore || c.Score < backfillMinScore {
			continue
		}
		out = append(out, c)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
