package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/db"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// PostgresStore implements Store against the energy_comms warehouse schema.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. The search
// path is pinned to the energy_comms schema so table names stay unqualified.
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
	pgxCfg.ConnConfig.RuntimeParams["search_path"] = "energy_comms,public"

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of
// the pool's lifecycle.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS energy_comms;

CREATE TABLE IF NOT EXISTS energy_comms.qualifying_areas (
	record_key          TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL,
	tract_id_fips       TEXT NOT NULL DEFAULT '',
	tract_name          TEXT NOT NULL DEFAULT '',
	county_id_fips      TEXT NOT NULL DEFAULT '',
	county_name         TEXT NOT NULL DEFAULT '',
	state_id_fips       TEXT NOT NULL DEFAULT '',
	state_abbr          TEXT NOT NULL DEFAULT '',
	state_name          TEXT NOT NULL DEFAULT '',
	geoid               TEXT NOT NULL DEFAULT '',
	site_name           TEXT NOT NULL DEFAULT '',
	qualifying_criteria TEXT NOT NULL,
	qualifying_area     TEXT NOT NULL DEFAULT '',
	latitude            DOUBLE PRECISION,
	longitude           DOUBLE PRECISION,
	site_geometry       TEXT NOT NULL DEFAULT '',
	area_geometry       TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS energy_comms.run_log (
	id          TEXT PRIMARY KEY,
	criteria    JSONB NOT NULL,
	geography   TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_areas_criteria ON energy_comms.qualifying_areas(qualifying_criteria);
CREATE INDEX IF NOT EXISTS idx_areas_state ON energy_comms.qualifying_areas(state_id_fips);
CREATE INDEX IF NOT EXISTS idx_areas_geoid ON energy_comms.qualifying_areas(geoid);
CREATE INDEX IF NOT EXISTS idx_run_log_started ON energy_comms.run_log(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Pool returns the underlying pool for callers that need direct query
// access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

var areaColumns = []string{
	"record_key", "run_id", "tract_id_fips", "tract_name", "county_id_fips",
	"county_name", "state_id_fips", "state_abbr", "state_name", "geoid",
	"site_name", "qualifying_criteria", "qualifying_area", "latitude",
	"longitude", "site_geometry", "area_geometry",
}

func (s *PostgresStore) SaveAreas(ctx context.Context, runID string, areas []model.Area) (int64, error) {
	rows := make([][]any, 0, len(areas))
	for _, a := range areas {
		rows = append(rows, []any{
			recordKey(a), runID, a.TractIDFIPS, a.TractName, a.CountyIDFIPS,
			a.CountyName, a.StateIDFIPS, a.StateAbbr, a.StateName, a.GeoID,
			a.SiteName, a.Criteria, a.Level, a.Latitude,
			a.Longitude, a.SiteGeometry, a.AreaGeometry,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "qualifying_areas",
		Columns:      areaColumns,
		ConflictKeys: []string{"record_key"},
	}, rows)
	return n, eris.Wrap(err, "postgres: save areas")
}

func (s *PostgresStore) ListAreas(ctx context.Context, filter AreaFilter) ([]model.Area, error) {
	query := `
		SELECT tract_id_fips, tract_name, county_id_fips, county_name,
		       state_id_fips, state_abbr, state_name, geoid, site_name,
		       qualifying_criteria, qualifying_area, latitude, longitude,
		       site_geometry, area_geometry
		FROM qualifying_areas WHERE 1=1`
	var args []any

	if filter.Criteria != "" {
		args = append(args, filter.Criteria)
		query += ` AND qualifying_criteria = $1`
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += placeholderf(` AND (state_id_fips = $%d OR state_abbr = $%d)`, len(args), len(args))
	}
	if filter.GeoID != "" {
		args = append(args, filter.GeoID)
		query += placeholderf(` AND geoid = $%d`, len(args))
	}
	query += ` ORDER BY qualifying_criteria, geoid, site_name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += placeholderf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += placeholderf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list areas")
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		err := rows.Scan(
			&a.TractIDFIPS, &a.TractName, &a.CountyIDFIPS, &a.CountyName,
			&a.StateIDFIPS, &a.StateAbbr, &a.StateName, &a.GeoID, &a.SiteName,
			&a.Criteria, &a.Level, &a.Latitude, &a.Longitude,
			&a.SiteGeometry, &a.AreaGeometry,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan area")
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "postgres: list areas iterate")
}

func (s *PostgresStore) StartRun(ctx context.Context, criteria []string, geography string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Criteria:  criteria,
		Geography: geography,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal criteria")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_log (id, criteria, geography, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(criteriaJSON), geography, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, rowCount int, runErr error) error {
	status := model.RunStatusComplete
	errText := ""
	if runErr != nil {
		status = model.RunStatusFailed
		errText = runErr.Error()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_log SET row_count = $1, status = $2, error = $3, finished_at = $4 WHERE id = $5`,
		rowCount, string(status), errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, criteria, geography, row_count, status, error, started_at, finished_at
		FROM run_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var criteriaJSON []byte
		var status string
		if err := rows.Scan(&r.ID, &criteriaJSON, &r.Geography, &r.RowCount, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if err := json.Unmarshal(criteriaJSON, &r.Criteria); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal criteria")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func placeholderf(format string, args ...int) string {
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	return fmt.Sprintf(format, anyArgs...)
}
