package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS energy_comms").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAreas(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_qualifying_areas"}, areaColumns).
		WillReturnResult(3)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.SaveAreas(context.Background(), "run-1", testAreas())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAreas(t *testing.T) {
	s, mock := newMockStore(t)

	lat, lon := 32.45, -99.73
	rows := pgxmock.NewRows([]string{
		"tract_id_fips", "tract_name", "county_id_fips", "county_name",
		"state_id_fips", "state_abbr", "state_name", "geoid", "site_name",
		"qualifying_criteria", "qualifying_area", "latitude", "longitude",
		"site_geometry", "area_geometry",
	}).AddRow(
		"", "", "48441", "Taylor County",
		"48", "TX", "Texas", "48441", "Sample Mine",
		model.CriteriaCoalMine, "county", &lat, &lon,
		"POINT (-99.73 32.45)", "",
	).AddRow(
		"", "", "01005", "Barbour County",
		"01", "AL", "Alabama", "01005", "",
		model.CriteriaFossilEmployment, "MSA or non-MSA", nil, nil,
		"", "",
	)

	mock.ExpectQuery("SELECT (.+) FROM qualifying_areas").
		WithArgs(model.CriteriaCoalMine, 1000).
		WillReturnRows(rows)

	areas, err := s.ListAreas(context.Background(), AreaFilter{Criteria: model.CriteriaCoalMine})
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, "Sample Mine", areas[0].SiteName)
	require.NotNil(t, areas[0].Latitude)
	assert.Equal(t, 32.45, *areas[0].Latitude)
	assert.Nil(t, areas[1].Latitude)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStartRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO run_log").
		WithArgs(pgxmock.AnyArg(), `["coal"]`, "county", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.StartRun(context.Background(), []string{"coal"}, "county")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE run_log").
		WithArgs(42, "complete", "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), "run-1", 42, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRun_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE run_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "no-such-run", 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestPostgresListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)
	rows := pgxmock.NewRows([]string{
		"id", "criteria", "geography", "row_count", "status", "error", "started_at", "finished_at",
	}).AddRow(
		"run-2", []byte(`["coal","employment"]`), "county", 900, "complete", "", started, &finished,
	).AddRow(
		"run-1", []byte(`["brownfields"]`), "tract", 0, "failed", "epa: download failed", started.Add(-time.Hour), nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM run_log").
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"coal", "employment"}, runs[0].Criteria)
	assert.Equal(t, 900, runs[0].RowCount)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, model.RunStatusFailed, runs[1].Status)
	assert.Nil(t, runs[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
