package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/opportunity"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS keyword_records (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id            TEXT NOT NULL DEFAULT '',
	keyword              TEXT NOT NULL,
	region               TEXT NOT NULL DEFAULT '',
	keyword_type         TEXT NOT NULL DEFAULT 'seo',
	geo_phrase           TEXT NOT NULL DEFAULT '',
	frequency            INTEGER NOT NULL DEFAULT 0,
	confidence_score     REAL NOT NULL DEFAULT 0,
	avg_source_quality   REAL NOT NULL DEFAULT 0,
	top_competitor_count INTEGER NOT NULL DEFAULT 0,
	keyword_type_weight  REAL NOT NULL DEFAULT 0,
	in_title_h1_count    INTEGER NOT NULL DEFAULT 0,
	first_seen           DATETIME NOT NULL,
	last_seen            DATETIME NOT NULL,
	company_name         TEXT NOT NULL DEFAULT '',
	source_url           TEXT NOT NULL DEFAULT '',
	UNIQUE (client_id, keyword, region)
);

CREATE TABLE IF NOT EXISTS geo_phrases (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	city             TEXT NOT NULL,
	state            TEXT NOT NULL DEFAULT '',
	service          TEXT NOT NULL,
	geo_phrase       TEXT NOT NULL,
	confidence_score REAL NOT NULL DEFAULT 0,
	frequency        INTEGER NOT NULL DEFAULT 0,
	source_urls      TEXT NOT NULL DEFAULT '[]',
	created_at       DATETIME NOT NULL,
	UNIQUE (city, state, service)
);

CREATE TABLE IF NOT EXISTS scoring_runs (
	id         TEXT PRIMARY KEY,
	client_id  TEXT NOT NULL,
	geo        TEXT NOT NULL DEFAULT '',
	vertical   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id              TEXT NOT NULL REFERENCES scoring_runs(id),
	service             TEXT NOT NULL,
	geo                 TEXT NOT NULL DEFAULT '',
	competitor_mentions INTEGER NOT NULL DEFAULT 0,
	confidence_score    REAL NOT NULL DEFAULT 0,
	score               INTEGER NOT NULL DEFAULT 0,
	tier                TEXT NOT NULL DEFAULT 'experimental',
	duplicate           INTEGER NOT NULL DEFAULT 0,
	why_recommended     TEXT NOT NULL DEFAULT '{}',
	seasonality         TEXT NOT NULL DEFAULT '{}',
	roi_projection      TEXT
);

CREATE INDEX IF NOT EXISTS idx_keyword_records_client ON keyword_records(client_id);
CREATE INDEX IF NOT EXISTS idx_keyword_records_confidence ON keyword_records(confidence_score);
CREATE INDEX IF NOT EXISTS idx_geo_phrases_city ON geo_phrases(city);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_client ON scoring_runs(client_id, created_at);
CREATE INDEX IF NOT EXISTS idx_opportunities_run_id ON opportunities(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const keywordColumns = `id, client_id, keyword, region, keyword_type, geo_phrase, frequency,
	confidence_score, avg_source_quality, top_competitor_count, keyword_type_weight,
	in_title_h1_count, first_seen, last_seen, company_name, source_url`

func (s *SQLiteStore) GetKeywordRecord(ctx context.Context, clientID, keyword, region string) (*model.KeywordRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+keywordColumns+` FROM keyword_records
		 WHERE client_id = ? AND keyword = ? AND region = ?`,
		clientID, keyword, region,
	)
	rec, err := scanKeyword(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *SQLiteStore) UpsertKeywordRecord(ctx context.Context, rec *model.KeywordRecord) error {
	if rec == nil {
		return eris.New("sqlite: nil keyword record")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO keyword_records (client_id, keyword, region, keyword_type, geo_phrase,
			frequency, confidence_score, avg_source_quality, top_competitor_count,
			keyword_type_weight, in_title_h1_count, first_seen, last_seen, company_name, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_id, keyword, region) DO UPDATE SET
			keyword_type = excluded.keyword_type,
			geo_phrase = excluded.geo_phrase,
			frequency = excluded.frequency,
			confidence_score = excluded.confidence_score,
			avg_source_quality = excluded.avg_source_quality,
			top_competitor_count = excluded.top_competitor_count,
			keyword_type_weight = excluded.keyword_type_weight,
			in_title_h1_count = excluded.in_title_h1_count,
			last_seen = excluded.last_seen,
			company_name = excluded.company_name,
			source_url = excluded.source_url`,
		rec.ClientID, rec.Keyword, rec.Region, string(rec.KeywordType), rec.GeoPhrase,
		rec.Frequency, rec.ConfidenceScore, rec.AvgSourceQuality, rec.TopCompetitorCount,
		rec.KeywordTypeWeight, rec.InTitleH1Count, rec.FirstSeen.UTC(), rec.LastSeen.UTC(),
		rec.CompanyName, rec.SourceURL,
	)
	return eris.Wrapf(err, "sqlite: upsert keyword %q", rec.Keyword)
}

func (s *SQLiteStore) ListKeywordRecords(ctx context.Context, clientID string) ([]model.KeywordRecord, error) {
	return s.QueryKeywordRecords(ctx, KeywordFilter{ClientID: clientID})
}

func (s *SQLiteStore) QueryKeywordRecords(ctx context.Context, filter KeywordFilter) ([]model.KeywordRecord, error) {
	query := `SELECT ` + keywordColumns + ` FROM keyword_records WHERE 1=1`
	var args []any

	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence_score >= ?`
		args = append(args, filter.MinConfidence)
	}
	query += ` ORDER BY confidence_score DESC, frequency DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query keyword records")
	}
	defer rows.Close()

	var out []model.KeywordRecord
	for rows.Next() {
		rec, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query keyword records iterate")
}

func (s *SQLiteStore) UpsertGeoPhrase(ctx context.Context, rec *model.GeoPhraseRecord) error {
	if rec == nil {
		return eris.New("sqlite: nil geo phrase record")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, geo_phrase, confidence_score, frequency, source_urls FROM geo_phrases
		 WHERE city = ? AND state = ? AND service = ?`,
		rec.City, rec.State, rec.Service,
	)

	var id int64
	var phrase string
	var conf float64
	var freq int
	var urlsJSON string
	err := row.Scan(&id, &phrase, &conf, &freq, &urlsJSON)
	switch {
	case err == sql.ErrNoRows:
		urls, mErr := json.Marshal(rec.SourceURLs)
		if mErr != nil {
			return eris.Wrap(mErr, "sqlite: marshal source urls")
		}
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO geo_phrases (city, state, service, geo_phrase, confidence_score, frequency, source_urls, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.City, rec.State, rec.Service, rec.GeoPhrase, rec.ConfidenceScore, rec.Frequency, string(urls), created.UTC(),
		)
		return eris.Wrapf(err, "sqlite: insert geo phrase %q", rec.GeoPhrase)
	case err != nil:
		return eris.Wrap(err, "sqlite: load geo phrase")
	}

	merged := model.GeoPhraseRecord{GeoPhrase: phrase, ConfidenceScore: conf, Frequency: freq}
	if err := json.Unmarshal([]byte(urlsJSON), &merged.SourceURLs); err != nil {
		return eris.Wrap(err, "sqlite: unmarshal source urls")
	}
	merged.Frequency += rec.Frequency
	if rec.ConfidenceScore > merged.ConfidenceScore {
		merged.ConfidenceScore = rec.ConfidenceScore
		merged.GeoPhrase = rec.GeoPhrase
	}
	for _, u := range rec.SourceURLs {
		merged.AddSourceURL(u)
	}
	urls, err := json.Marshal(merged.SourceURLs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal source urls")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE geo_phrases SET geo_phrase = ?, confidence_score = ?, frequency = ?, source_urls = ? WHERE id = ?`,
		merged.GeoPhrase, merged.ConfidenceScore, merged.Frequency, string(urls), id,
	)
	return eris.Wrapf(err, "sqlite: update geo phrase %q", rec.GeoPhrase)
}

func (s *SQLiteStore) ListGeoPhrases(ctx context.Context) ([]model.GeoPhraseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, city, state, service, geo_phrase, confidence_score, frequency, source_urls, created_at
		 FROM geo_phrases ORDER BY confidence_score DESC, frequency DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geo phrases")
	}
	defer rows.Close()

	var out []model.GeoPhraseRecord
	for rows.Next() {
		var rec model.GeoPhraseRecord
		var urlsJSON string
		if err := rows.Scan(&rec.ID, &rec.City, &rec.State, &rec.Service, &rec.GeoPhrase,
			&rec.ConfidenceScore, &rec.Frequency, &urlsJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geo phrase")
		}
		if err := json.Unmarshal([]byte(urlsJSON), &rec.SourceURLs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal source urls")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list geo phrases iterate")
}

func (s *SQLiteStore) SaveScoringRun(ctx context.Context, run model.ScoringRun, candidates []model.OpportunityCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save scoring run")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scoring_runs (id, client_id, geo, vertical, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ClientID, run.Geo, run.Vertical, run.CreatedAt.UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert scoring run %s", run.ID)
	}

	for _, c := range candidates {
		why, roi, seasonal, err := marshalCandidate(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO opportunities (run_id, service, geo, competitor_mentions, confidence_score,
				score, tier, duplicate, why_recommended, seasonality, roi_projection)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, c.Service, c.Geo, c.CompetitorMentions, c.ConfidenceScore,
			c.Score, string(c.Tier), boolInt(c.Duplicate), why, seasonal, nullIfEmpty(roi),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert opportunity %q", c.Service)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit scoring run")
}

func (s *SQLiteStore) ListScoringRuns(ctx context.Context, clientID string, limit int) ([]model.ScoringRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, geo, vertical, created_at FROM scoring_runs
		 WHERE client_id = ? ORDER BY created_at DESC LIMIT ?`,
		clientID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scoring runs")
	}
	defer rows.Close()

	var out []model.ScoringRun
	for rows.Next() {
		var r model.ScoringRun
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Geo, &r.Vertical, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scoring run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scoring runs iterate")
}

func (s *SQLiteStore) RecentRecommendations(ctx context.Context, clientID string, runs int) ([]opportunity.Recommendation, error) {
	if runs <= 0 {
		runs = opportunity.GuardWindow
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.service, o.geo FROM opportunities o
		 WHERE o.duplicate = 0 AND o.run_id IN (
			SELECT id FROM scoring_runs WHERE client_id = ? ORDER BY created_at DESC LIMIT ?
		 )`,
		clientID, runs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent recommendations")
	}
	defer rows.Close()

	var out []opportunity.Recommendation
	for rows.Next() {
		var r opportunity.Recommendation
		if err := rows.Scan(&r.Service, &r.Geo); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recommendation")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: recent recommendations iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanKeyword(row scannable) (*model.KeywordRecord, error) {
	var rec model.KeywordRecord
	var kwType string
	err := row.Scan(&rec.ID, &rec.ClientID, &rec.Keyword, &rec.Region, &kwType, &rec.GeoPhrase,
		&rec.Frequency, &rec.ConfidenceScore, &rec.AvgSourceQuality, &rec.TopCompetitorCount,
		&rec.KeywordTypeWeight, &rec.InTitleH1Count, &rec.FirstSeen, &rec.LastSeen,
		&rec.CompanyName, &rec.SourceURL)
	if err != nil {
		if err == sql.ErrNoRows || err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "store: scan keyword record")
	}
	rec.KeywordType = model.KeywordType(kwType)
	return &rec, nil
}

func marshalCandidate(c model.OpportunityCandidate) (why, roi, seasonal string, err error) {
	whyJSON, err := json.Marshal(c.WhyRecommended)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal why_recommended")
	}
	seasonalJSON, err := json.Marshal(c.Seasonality)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal seasonality")
	}
	roiJSON := ""
	if c.ROI != nil {
		b, err := json.Marshal(c.ROI)
		if err != nil {
			return "", "", "", eris.Wrap(err, "store: marshal roi")
		}
		roiJSON = string(b)
	}
	return string(whyJSON), roiJSON, string(seasonalJSON), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
