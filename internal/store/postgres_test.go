package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loclift/growth-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresGetKeywordRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT .+ FROM keyword_records`).
		WithArgs("acme", "junk removal", "WI").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetKeywordRecord(context.Background(), "acme", "junk removal", "WI")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetKeywordRecord_Found(t *testing.T) {
	s, mock := newMockPostgres(t)
	seen := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	rows := mock.NewRows([]string{
		"id", "client_id", "keyword", "region", "keyword_type", "geo_phrase", "frequency",
		"confidence_score", "avg_source_quality", "top_competitor_count", "keyword_type_weight",
		"in_title_h1_count", "first_seen", "last_seen", "company_name", "source_url",
	}).AddRow(
		int64(7), "acme", "junk removal milwaukee", "WI", "service_city", "junk removal milwaukee", 3,
		0.8, 75.0, 2, 1.0,
		1, seen, seen, "Acme Hauling", "https://example.com",
	)
	mock.ExpectQuery(`SELECT .+ FROM keyword_records`).
		WithArgs("acme", "junk removal milwaukee", "WI").
		WillReturnRows(rows)

	rec, err := s.GetKeywordRecord(context.Background(), "acme", "junk removal milwaukee", "WI")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.KeywordTypeServiceCity, rec.KeywordType)
	assert.Equal(t, 3, rec.Frequency)
	assert.InDelta(t, 0.8, rec.ConfidenceScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertKeywordRecord(t *testing.T) {
	s, mock := newMockPostgres(t)
	seen := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO keyword_records`).
		WithArgs("acme", "junk removal", "WI", "service_city", "",
			3, 0.8, 75.0, 2, 1.0, 1, seen, seen, "Acme Hauling", "https://example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertKeywordRecord(context.Background(), &model.KeywordRecord{
		ClientID:           "acme",
		Keyword:            "junk removal",
		Region:             "WI",
		KeywordType:        model.KeywordTypeServiceCity,
		Frequency:          3,
		ConfidenceScore:    0.8,
		AvgSourceQuality:   75.0,
		TopCompetitorCount: 2,
		KeywordTypeWeight:  1.0,
		InTitleH1Count:     1,
		FirstSeen:          seen,
		LastSeen:           seen,
		CompanyName:        "Acme Hauling",
		SourceURL:          "https://example.com",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertGeoPhrase_Insert(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT .+ FROM geo_phrases`).
		WithArgs("madison", "WI", "junk removal").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO geo_phrases`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertGeoPhrase(context.Background(), &model.GeoPhraseRecord{
		City:            "madison",
		State:           "WI",
		Service:         "junk removal",
		GeoPhrase:       "junk removal madison",
		ConfidenceScore: 0.7,
		Frequency:       1,
		SourceURLs:      []string{"https://a.example.com"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertGeoPhrase_Merge(t *testing.T) {
	s, mock := newMockPostgres(t)

	rows := mock.NewRows([]string{"id", "geo_phrase", "confidence_score", "frequency", "source_urls"}).
		AddRow(int64(4), "junk removal madison", 0.7, 2, []byte(`["https://a.example.com"]`))
	mock.ExpectQuery(`SELECT .+ FROM geo_phrases`).
		WithArgs("madison", "WI", "junk removal").
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE geo_phrases SET`).
		WithArgs("madison junk removal", 0.9, 3,
			[]byte(`["https://a.example.com","https://b.example.com"]`), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpsertGeoPhrase(context.Background(), &model.GeoPhraseRecord{
		City:            "madison",
		State:           "WI",
		Service:         "junk removal",
		GeoPhrase:       "madison junk removal",
		ConfidenceScore: 0.9,
		Frequency:       1,
		SourceURLs:      []string{"https://b.example.com"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveScoringRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scoring_runs`).
		WithArgs("run-1", "acme", "Milwaukee, WI", "junk_removal", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO opportunities`).
		WithArgs("run-1", "garage cleanout", "Milwaukee, WI", 0, 0.82,
			71, "near_term", false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	run := model.ScoringRun{
		ID: "run-1", ClientID: "acme", Geo: "Milwaukee, WI",
		Vertical: "junk_removal", CreatedAt: created,
	}
	err := s.SaveScoringRun(context.Background(), run, []model.OpportunityCandidate{{
		Service:         "garage cleanout",
		Geo:             "Milwaukee, WI",
		ConfidenceScore: 0.82,
		Score:           71,
		Tier:            model.TierNearTerm,
		WhyRecommended:  map[string]string{"confidence": "strong keyword signal"},
	}})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecentRecommendations(t *testing.T) {
	s, mock := newMockPostgres(t)

	rows := mock.NewRows([]string{"service", "geo"}).
		AddRow("garage cleanout", "Milwaukee, WI").
		AddRow("appliance removal", "Milwaukee, WI")
	mock.ExpectQuery(`SELECT o.service, o.geo FROM opportunities`).
		WithArgs("acme", 2).
		WillReturnRows(rows)

	recent, err := s.RecentRecommendations(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "garage cleanout", recent[0].Service)
	assert.NoError(t, mock.ExpectationsWereMet())
}
