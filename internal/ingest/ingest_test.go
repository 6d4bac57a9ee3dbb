package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/taxonomy"
)

type memStore struct {
	keywords map[string]*model.KeywordRecord
	phrases  map[string]*model.GeoPhraseRecord
}

func newMemStore() *memStore {
	return &memStore{
		keywords: make(map[string]*model.KeywordRecord),
		phrases:  make(map[string]*model.GeoPhraseRecord),
	}
}

func kwKey(clientID, keyword, region string) string {
	return fmt.Sprintf("%s|%s|%s", clientID, strings.ToLower(keyword), strings.ToLower(region))
}

func (m *memStore) GetKeywordRecord(ctx context.Context, clientID, keyword, region string) (*model.KeywordRecord, error) {
	if r, ok := m.keywords[kwKey(clientID, keyword, region)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) UpsertKeywordRecord(ctx context.Context, rec *model.KeywordRecord) error {
	cp := *rec
	m.keywords[kwKey(rec.ClientID, rec.Keyword, rec.Region)] = &cp
	return nil
}

func (m *memStore) ListKeywordRecords(ctx context.Context, clientID string) ([]model.KeywordRecord, error) {
	var out []model.KeywordRecord
	for _, r := range m.keywords {
		if r.ClientID == clientID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) UpsertGeoPhrase(ctx context.Context, rec *model.GeoPhraseRecord) error {
	key := fmt.Sprintf("%s|%s|%s", rec.City, rec.State, rec.Service)
	if cur, ok := m.phrases[key]; ok {
		cur.Frequency += rec.Frequency
		if rec.ConfidenceScore > cur.ConfidenceScore {
			cur.ConfidenceScore = rec.ConfidenceScore
		}
		for _, u := range rec.SourceURLs {
			cur.AddSourceURL(u)
		}
		return nil
	}
	cp := *rec
	m.phrases[key] = &cp
	return nil
}

func quality(q float64) *float64 { return &q }

func testPipeline(store RecordStore, at time.Time) *Pipeline {
	return NewPipeline(store, nil, taxonomy.New(), WithClock(func() time.Time { return at }))
}

func TestIngestProfileGate(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, time.Now().UTC())

	res, err := p.IngestProfile(context.Background(), Input{
		ClientID: "c1",
		Region:   "Milwaukee WI",
		Vertical: "junk_removal",
		Profile: model.Profile{
			SEOKeywords: []string{"friendly professional team", "junk removal"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Considered)
	assert.Equal(t, 1, res.Gated)
	assert.Equal(t, 1, res.Upserted)
	assert.Len(t, store.keywords, 1)
}

func TestIngestProfileGeoPhrase(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, time.Now().UTC())

	res, err := p.IngestProfile(context.Background(), Input{
		ClientID:  "c1",
		Region:    "Milwaukee WI",
		Vertical:  "junk_removal",
		SourceURL: "https://rival.example",
		Profile: model.Profile{
			ServiceCityPhrases: []string{"junk removal milwaukee wi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GeoPhrases)

	gp, ok := store.phrases["milwaukee|WI|junk removal"]
	require.True(t, ok)
	assert.Equal(t, "junk removal milwaukee wi", gp.GeoPhrase)
	assert.Equal(t, []string{"https://rival.example"}, gp.SourceURLs)
	assert.Greater(t, gp.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, gp.ConfidenceScore, 1.0)

	rec, err := store.GetKeywordRecord(context.Background(), "c1", "junk removal milwaukee wi", "Milwaukee WI")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.KeywordTypeServiceCity, rec.KeywordType)
	// Service + geo co-occurrence floors confidence at the intent score.
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.92)
	assert.LessOrEqual(t, rec.ConfidenceScore, 1.0)
}

func TestIngestProfileFrequencyMonotonic(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	in := Input{
		ClientID:      "c1",
		Region:        "Madison WI",
		Vertical:      "junk_removal",
		SourceQuality: quality(80),
		Profile: model.Profile{
			SEOKeywords: []string{"appliance removal"},
		},
	}

	var last time.Time
	for i := 0; i < 3; i++ {
		last = base.AddDate(0, 0, i)
		p := testPipeline(store, last)
		_, err := p.IngestProfile(context.Background(), in)
		require.NoError(t, err)
	}

	rec, err := store.GetKeywordRecord(context.Background(), "c1", "appliance removal", "Madison WI")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Frequency)
	assert.Equal(t, last, rec.LastSeen)
	assert.Equal(t, base, rec.FirstSeen)
	assert.InDelta(t, 80, rec.AvgSourceQuality, 1e-9)
	// Quality over 70 counts the source as a top competitor each time.
	assert.Equal(t, 3, rec.TopCompetitorCount)
}

func TestIngestProfileTypePriority(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, time.Now().UTC())

	_, err := p.IngestProfile(context.Background(), Input{
		ClientID: "c1",
		Region:   "Milwaukee WI",
		Vertical: "junk_removal",
		Profile: model.Profile{
			SEOKeywords:        []string{"junk removal milwaukee wi"},
			ServiceCityPhrases: []string{"junk removal milwaukee wi"},
		},
	})
	require.NoError(t, err)

	rec, err := store.GetKeywordRecord(context.Background(), "c1", "junk removal milwaukee wi", "Milwaukee WI")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Frequency, "same keyword from two fields ingests once")
	assert.Equal(t, model.KeywordTypeServiceCity, rec.KeywordType)
}

func TestIngestProfileConfidenceNeverRegresses(t *testing.T) {
	store := newMemStore()
	at := time.Now().UTC()

	in := Input{
		ClientID: "c1",
		Region:   "Milwaukee WI",
		Vertical: "junk_removal",
		Profile: model.Profile{
			ServiceCityPhrases: []string{"junk removal milwaukee wi"},
		},
	}
	p := testPipeline(store, at)
	_, err := p.IngestProfile(context.Background(), in)
	require.NoError(t, err)

	first, err := store.GetKeywordRecord(context.Background(), "c1", "junk removal milwaukee wi", "Milwaukee WI")
	require.NoError(t, err)

	// A later low-quality observation must not drag confidence down.
	in.SourceQuality = quality(5)
	_, err = testPipeline(store, at.AddDate(0, 0, 1)).IngestProfile(context.Background(), in)
	require.NoError(t, err)

	second, err := store.GetKeywordRecord(context.Background(), "c1", "junk removal milwaukee wi", "Milwaukee WI")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.ConfidenceScore, first.ConfidenceScore)
}

func TestRecalculateConfidenceFloor(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, time.Now().UTC())

	require.NoError(t, store.UpsertKeywordRecord(context.Background(), &model.KeywordRecord{
		Keyword:  "junk removal milwaukee wi",
		Region:   "Milwaukee WI",
		ClientID: "c1",
		// Sparse row signals would recompute very low on their own.
		Frequency:       1,
		ConfidenceScore: 0.1,
		KeywordType:     model.KeywordTypeServiceCity,
	}))

	updated, err := p.RecalculateConfidence(context.Background(), "c1", "junk_removal", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	rec, err := store.GetKeywordRecord(context.Background(), "c1", "junk removal milwaukee wi", "Milwaukee WI")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.92)
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "strips short words and stopwords",
			text: "We haul junk and debris from your garage",
			want: []string{"haul", "junk", "debris", "garage"},
		},
		{
			name: "deduplicates preserving order",
			text: "junk junk removal junk",
			want: []string{"junk", "removal"},
		},
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.text))
		})
	}
}
