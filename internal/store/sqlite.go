package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// zero-infrastructure default backend.
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
CREATE TABLE IF NOT EXISTS qualifying_areas (
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
	latitude            REAL,
	longitude           REAL,
	site_geometry       TEXT NOT NULL DEFAULT '',
	area_geometry       TEXT NOT NULL DEFAULT '',
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_log (
	id          TEXT PRIMARY KEY,
	criteria    TEXT NOT NULL,
	geography   TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_areas_criteria ON qualifying_areas(qualifying_criteria);
CREATE INDEX IF NOT EXISTS idx_areas_state ON qualifying_areas(state_id_fips);
CREATE INDEX IF NOT EXISTS idx_areas_geoid ON qualifying_areas(geoid);
CREATE INDEX IF NOT EXISTS idx_run_log_started ON run_log(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAreas(ctx context.Context, runID string, areas []model.Area) (int64, error) {
	if len(areas) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO qualifying_areas (
			record_key, run_id, tract_id_fips, tract_name, county_id_fips,
			county_name, state_id_fips, state_abbr, state_name, geoid,
			site_name, qualifying_criteria, qualifying_area, latitude,
			longitude, site_geometry, area_geometry, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var written int64
	for _, a := range areas {
		_, err := stmt.ExecContext(ctx,
			recordKey(a), runID, a.TractIDFIPS, a.TractName, a.CountyIDFIPS,
			a.CountyName, a.StateIDFIPS, a.StateAbbr, a.StateName, a.GeoID,
			a.SiteName, a.Criteria, a.Level, a.Latitude,
			a.Longitude, a.SiteGeometry, a.AreaGeometry, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert area %s", a.GeoID)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit areas")
	}
	return written, nil
}

func (s *SQLiteStore) ListAreas(ctx context.Context, filter AreaFilter) ([]model.Area, error) {
	query := `
		SELECT tract_id_fips, tract_name, county_id_fips, county_name,
		       state_id_fips, state_abbr, state_name, geoid, site_name,
		       qualifying_criteria, qualifying_area, latitude, longitude,
		       site_geometry, area_geometry
		FROM qualifying_areas WHERE 1=1`
	var args []any

	if filter.Criteria != "" {
		query += ` AND qualifying_criteria = ?`
		args = append(args, filter.Criteria)
	}
	if filter.State != "" {
		query += ` AND (state_id_fips = ? OR state_abbr = ?)`
		args = append(args, filter.State, filter.State)
	}
	if filter.GeoID != "" {
		query += ` AND geoid = ?`
		args = append(args, filter.GeoID)
	}
	query += ` ORDER BY qualifying_criteria, geoid, site_name`

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
		return nil, eris.Wrap(err, "sqlite: list areas")
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		var lat, lon sql.NullFloat64
		err := rows.Scan(
			&a.TractIDFIPS, &a.TractName, &a.CountyIDFIPS, &a.CountyName,
			&a.StateIDFIPS, &a.StateAbbr, &a.StateName, &a.GeoID, &a.SiteName,
			&a.Criteria, &a.Level, &lat, &lon,
			&a.SiteGeometry, &a.AreaGeometry,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area")
		}
		if lat.Valid {
			a.Latitude = &lat.Float64
		}
		if lon.Valid {
			a.Longitude = &lon.Float64
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "sqlite: list areas iterate")
}

func (s *SQLiteStore) StartRun(ctx context.Context, criteria []string, geography string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Criteria:  criteria,
		Geography: geography,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal criteria")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_log (id, criteria, geography, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(criteriaJSON), geography, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, rowCount int, runErr error) error {
	status := model.RunStatusComplete
	errText := ""
	if runErr != nil {
		status = model.RunStatusFailed
		errText = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_log SET row_count = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		rowCount, string(status), errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, criteria, geography, row_count, status, error, started_at, finished_at
		FROM run_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var criteriaJSON, status string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &criteriaJSON, &r.Geography, &r.RowCount, &status, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		if err := json.Unmarshal([]byte(criteriaJSON), &r.Criteria); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal criteria")
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
