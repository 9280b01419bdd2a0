package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/output"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/pipeline"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/store"
)

// env bundles the shared dependencies of the pipeline commands.
type env struct {
	coord *pipeline.Coordinator
	store store.Store
}

// initEnv builds the fetcher, optional store, and coordinator. withStore
// enables run logging and persistence to the configured store.
func initEnv(ctx context.Context, withStore bool) (*env, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	var st store.Store
	if withStore {
		var err error
		st, err = openStore(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &env{
		coord: pipeline.New(cfg, f, f, st),
		store: st,
	}, nil
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// openStore opens and migrates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q (valid: sqlite, postgres)", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// writeOutput writes the combined table to a file, falling back to the
// configured output path and format.
func writeOutput(areas []model.Area, outPath, format string) error {
	if outPath == "" {
		outPath = cfg.Output.Path
	}
	if format == "" {
		format = cfg.Output.Format
	}

	var err error
	switch format {
	case "csv":
		err = output.WriteCSVFile(outPath, areas)
	case "geojson":
		err = output.WriteGeoJSONFile(outPath, areas)
	default:
		return eris.Errorf("unknown output format %q (valid: csv, geojson)", format)
	}
	if err != nil {
		return err
	}

	zap.L().Info("output written",
		zap.String("path", outPath),
		zap.String("format", format),
		zap.Int("areas", len(areas)),
	)
	return nil
}

// parseGeographyFlag validates a --geography style flag value.
func parseGeographyFlag(value string) (model.Geography, error) {
	if value == "" {
		return model.GeographyCounty, nil
	}
	return model.ParseGeography(value)
}
