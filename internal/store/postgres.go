package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/opportunity"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests hand in a pgxmock pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS keyword_records (
	id                   BIGSERIAL PRIMARY KEY,
	client_id            TEXT NOT NULL DEFAULT '',
	keyword              TEXT NOT NULL,
	region               TEXT NOT NULL DEFAULT '',
	keyword_type         TEXT NOT NULL DEFAULT 'seo',
	geo_phrase           TEXT NOT NULL DEFAULT '',
	frequency            INTEGER NOT NULL DEFAULT 0,
	confidence_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_source_quality   DOUBLE PRECISION NOT NULL DEFAULT 0,
	top_competitor_count INTEGER NOT NULL DEFAULT 0,
	keyword_type_weight  DOUBLE PRECISION NOT NULL DEFAULT 0,
	in_title_h1_count    INTEGER NOT NULL DEFAULT 0,
	first_seen           TIMESTAMPTZ NOT NULL,
	last_seen            TIMESTAMPTZ NOT NULL,
	company_name         TEXT NOT NULL DEFAULT '',
	source_url           TEXT NOT NULL DEFAULT '',
	UNIQUE (client_id, keyword, region)
);

CREATE TABLE IF NOT EXISTS geo_phrases (
	id               BIGSERIAL PRIMARY KEY,
	city             TEXT NOT NULL,
	state            TEXT NOT NULL DEFAULT '',
	service          TEXT NOT NULL,
	geo_phrase       TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	frequency        INTEGER NOT NULL DEFAULT 0,
	source_urls      JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (city, state, service)
);

CREATE TABLE IF NOT EXISTS scoring_runs (
	id         TEXT PRIMARY KEY,
	client_id  TEXT NOT NULL,
	geo        TEXT NOT NULL DEFAULT '',
	vertical   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                  BIGSERIAL PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES scoring_runs(id),
	service             TEXT NOT NULL,
	geo                 TEXT NOT NULL DEFAULT '',
	competitor_mentions INTEGER NOT NULL DEFAULT 0,
	confidence_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	score               INTEGER NOT NULL DEFAULT 0,
	tier                TEXT NOT NULL DEFAULT 'experimental',
	duplicate           BOOLEAN NOT NULL DEFAULT FALSE,
	why_recommended     JSONB NOT NULL DEFAULT '{}',
	seasonality         JSONB NOT NULL DEFAULT '{}',
	roi_projection      JSONB
);

CREATE INDEX IF NOT EXISTS idx_keyword_records_client ON keyword_records(client_id);
CREATE INDEX IF NOT EXISTS idx_keyword_records_confidence ON keyword_records(confidence_score);
CREATE INDEX IF NOT EXISTS idx_geo_phrases_city ON geo_phrases(city);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_client ON scoring_runs(client_id, created_at);
CREATE INDEX IF NOT EXISTS idx_opportunities_run_id ON opportunities(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgKeywordColumns = `id, client_id, keyword, region, keyword_type, geo_phrase, frequency,
	confidence_score, avg_source_quality, top_competitor_count, keyword_type_weight,
	in_title_h1_count, first_seen, last_seen, company_name, source_url`

func (s *PostgresStore) GetKeywordRecord(ctx context.Context, clientID, keyword, region string) (*model.KeywordRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgKeywordColumns+` FROM keyword_records
		 WHERE client_id = $1 AND keyword = $2 AND region = $3`,
		clientID, keyword, region,
	)
	rec, err := scanKeyword(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *PostgresStore) UpsertKeywordRecord(ctx context.Context, rec *model.KeywordRecord) error {
	if rec == nil {
		return eris.New("postgres: nil keyword record")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO keyword_records (client_id, keyword, region, keyword_type, geo_phrase,
			frequency, confidence_score, avg_source_quality, top_competitor_count,
			keyword_type_weight, in_title_h1_count, first_seen, last_seen, company_name, source_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (client_id, keyword, region) DO UPDATE SET
			keyword_type = EXCLUDED.keyword_type,
			geo_phrase = EXCLUDED.geo_phrase,
			frequency = EXCLUDED.frequency,
			confidence_score = EXCLUDED.confidence_score,
			avg_source_quality = EXCLUDED.avg_source_quality,
			top_competitor_count = EXCLUDED.top_competitor_count,
			keyword_type_weight = EXCLUDED.keyword_type_weight,
			in_title_h1_count = EXCLUDED.in_title_h1_count,
			last_seen = EXCLUDED.last_seen,
			company_name = EXCLUDED.company_name,
			source_url = EXCLUDED.source_url`,
		rec.ClientID, rec.Keyword, rec.Region, string(rec.KeywordType), rec.GeoPhrase,
		rec.Frequency, rec.ConfidenceScore, rec.AvgSourceQuality, rec.TopCompetitorCount,
		rec.KeywordTypeWeight, rec.InTitleH1Count, rec.FirstSeen.UTC(), rec.LastSeen.UTC(),
		rec.CompanyName, rec.SourceURL,
	)
	return eris.Wrapf(err, "postgres: upsert keyword %q", rec.Keyword)
}

func (s *PostgresStore) ListKeywordRecords(ctx context.Context, clientID string) ([]model.KeywordRecord, error) {
	return s.QueryKeywordRecords(ctx, KeywordFilter{ClientID: clientID})
}

func (s *PostgresStore) QueryKeywordRecords(ctx context.Context, filter KeywordFilter) ([]model.KeywordRecord, error) {
	query := `SELECT ` + pgKeywordColumns + ` FROM keyword_records WHERE TRUE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ClientID != "" {
		query += ` AND client_id = ` + arg(filter.ClientID)
	}
	if filter.Region != "" {
		query += ` AND region = ` + arg(filter.Region)
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence_score >= ` + arg(filter.MinConfidence)
	}
	query += ` ORDER BY confidence_score DESC, frequency DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query keyword records")
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
	return out, eris.Wrap(rows.Err(), "postgres: query keyword records iterate")
}

func (s *PostgresStore) UpsertGeoPhrase(ctx context.Context, rec *model.GeoPhraseRecord) error {
	if rec == nil {
		return eris.New("postgres: nil geo phrase record")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, geo_phrase, confidence_score, frequency, source_urls FROM geo_phrases
		 WHERE city = $1 AND state = $2 AND service = $3`,
		rec.City, rec.State, rec.Service,
	)

	var id int64
	var phrase string
	var conf float64
	var freq int
	var urlsJSON []byte
	err := row.Scan(&id, &phrase, &conf, &freq, &urlsJSON)
	switch {
	case err == pgx.ErrNoRows:
		urls, mErr := json.Marshal(rec.SourceURLs)
		if mErr != nil {
			return eris.Wrap(mErr, "postgres: marshal source urls")
		}
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO geo_phrases (city, state, service, geo_phrase, confidence_score, frequency, source_urls, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.City, rec.State, rec.Service, rec.GeoPhrase, rec.ConfidenceScore, rec.Frequency, urls, created.UTC(),
		)
		return eris.Wrapf(err, "postgres: insert geo phrase %q", rec.GeoPhrase)
	case err != nil:
		return eris.Wrap(err, "postgres: load geo phrase")
	}

	merged := model.GeoPhraseRecord{GeoPhrase: phrase, ConfidenceScore: conf, Frequency: freq}
	if err := json.Unmarshal(urlsJSON, &merged.SourceURLs); err != nil {
		return eris.Wrap(err, "postgres: unmarshal source urls")
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
		return eris.Wrap(err, "postgres: marshal source urls")
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE geo_phrases SET geo_phrase = $1, confidence_score = $2, frequency = $3, source_urls = $4 WHERE id = $5`,
		merged.GeoPhrase, merged.ConfidenceScore, merged.Frequency, urls, id,
	)
	return eris.Wrapf(err, "postgres: update geo phrase %q", rec.GeoPhrase)
}

func (s *PostgresStore) ListGeoPhrases(ctx context.Context) ([]model.GeoPhraseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, city, state, service, geo_phrase, confidence_score, frequency, source_urls, created_at
		 FROM geo_phrases ORDER BY confidence_score DESC, frequency DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geo phrases")
	}
	defer rows.Close()

	var out []model.GeoPhraseRecord
	for rows.Next() {
		var rec model.GeoPhraseRecord
		var urlsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.City, &rec.State, &rec.Service, &rec.GeoPhrase,
			&rec.ConfidenceScore, &rec.Frequency, &urlsJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geo phrase")
		}
		if err := json.Unmarshal(urlsJSON, &rec.SourceURLs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal source urls")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list geo phrases iterate")
}

func (s *PostgresStore) SaveScoringRun(ctx context.Context, run model.ScoringRun, candidates []model.OpportunityCandidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save scoring run")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scoring_runs (id, client_id, geo, vertical, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.ClientID, run.Geo, run.Vertical, run.CreatedAt.UTC(),
	); err != nil {
		return eris.Wrapf(err, "postgres: insert scoring run %s", run.ID)
	}

	for _, c := range candidates {
		why, roi, seasonal, err := marshalCandidate(c)
		if err != nil {
			return err
		}
		var roiArg any
		if roi != "" {
			roiArg = []byte(roi)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO opportunities (run_id, service, geo, competitor_mentions, confidence_score,
				score, tier, duplicate, why_recommended, seasonality, roi_projection)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			run.ID, c.Service, c.Geo, c.CompetitorMentions, c.ConfidenceScore,
			c.Score, string(c.Tier), c.Duplicate, []byte(why), []byte(seasonal), roiArg,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert opportunity %q", c.Service)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit scoring run")
}

func (s *PostgresStore) ListScoringRuns(ctx context.Context, clientID string, limit int) ([]model.ScoringRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, geo, vertical, created_at FROM scoring_runs
		 WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`,
		clientID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scoring runs")
	}
	defer rows.Close()

	var out []model.ScoringRun
	for rows.Next() {
		var r model.ScoringRun
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Geo, &r.Vertical, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scoring run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scoring runs iterate")
}

func (s *PostgresStore) RecentRecommendations(ctx context.Context, clientID string, runs int) ([]opportunity.Recommendation, error) {
	if runs <= 0 {
		runs = opportunity.GuardWindow
	}
	rows, err := s.pool.Query(ctx,
		`SELECT o.service, o.geo FROM opportunities o
		 WHERE NOT o.duplicate AND o.run_id IN (
			SELECT id FROM scoring_runs WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2
		 )`,
		clientID, runs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent recommendations")
	}
	defer rows.Close()

	var out []opportunity.Recommendation
	for rows.Next() {
		var r opportunity.Recommendation
		if err := rows.Scan(&r.Service, &r.Geo); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recommendation")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: recent recommendations iterate")
}
