// Package store persists qualifying-area records and the run log, either in
// a local SQLite database or a Postgres warehouse.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// AreaFilter narrows ListAreas results.
type AreaFilter struct {
	// Criteria matches the qualifying_criteria column exactly.
	Criteria string
	// State matches either the state FIPS code or the USPS abbreviation.
	State  string
	GeoID  string
	Limit  int
	Offset int
}

// Store is the persistence interface shared by the SQLite and Postgres
// backends.
type Store interface {
	Migrate(ctx context.Context) error

	// SaveAreas upserts qualifying-area records, keyed by their record key,
	// and returns the number of rows written.
	SaveAreas(ctx context.Context, runID string, areas []model.Area) (int64, error)
	ListAreas(ctx context.Context, filter AreaFilter) ([]model.Area, error)

	StartRun(ctx context.Context, criteria []string, geography string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, rowCount int, runErr error) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	Close() error
}

// Open picks a backend from the DSN: postgres:// style connection strings go
// to Postgres, anything else is treated as a SQLite path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgres(ctx, dsn, nil)
	}
	return NewSQLite(dsn)
}

// recordKey identifies a qualifying-area record across runs so repeated
// pipeline runs update rather than duplicate it. Site records are
// distinguished by site name and coordinates.
func recordKey(a model.Area) string {
	lat, lon := "", ""
	if a.Latitude != nil {
		lat = fmt.Sprintf("%.6f", *a.Latitude)
	}
	if a.Longitude != nil {
		lon = fmt.Sprintf("%.6f", *a.Longitude)
	}
	return strings.Join([]string{a.Criteria, a.Level, a.GeoID, a.SiteName, lat, lon}, "|")
}
