// Package pipeline coordinates the criteria runs: extraction, transforms,
// criteria evaluation, and persistence.
package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/config"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/qualify"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/store"
)

// Options selects what a criteria run covers.
type Options struct {
	// Geography is the layer coal and brownfield sites resolve to. Defaults
	// to county.
	Geography model.Geography
	// Update forces fresh downloads of cached source files.
	Update bool
	// ProposedRetirements selects coal generators with planned retirement
	// dates instead of already-retired ones.
	ProposedRetirements bool
}

func (o Options) geography() model.Geography {
	if o.Geography == "" {
		return model.GeographyCounty
	}
	return o.Geography
}

// Coordinator runs the criteria pipelines. The store is optional; without
// one, results are only returned to the caller.
type Coordinator struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	poster  extract.Poster
	store   store.Store

	mu      sync.Mutex
	atlases map[model.Geography]*census.Atlas
}

// New creates a Coordinator. st may be nil.
func New(cfg *config.Config, f fetcher.Fetcher, poster extract.Poster, st store.Store) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		fetcher: f,
		poster:  poster,
		store:   st,
		atlases: make(map[model.Geography]*census.Atlas),
	}
}

// RunEmployment executes the fossil employment + unemployment criteria.
func (c *Coordinator) RunEmployment(ctx context.Context, opts Options) ([]model.Area, error) {
	return c.logged(ctx, []string{"employment"}, qualify.EmploymentLevel, func(ctx context.Context) ([]model.Area, error) {
		return c.employmentAreas(ctx, opts)
	})
}

// RunCoal executes the coal closure criteria.
func (c *Coordinator) RunCoal(ctx context.Context, opts Options) ([]model.Area, error) {
	return c.logged(ctx, []string{"coal"}, string(opts.geography()), func(ctx context.Context) ([]model.Area, error) {
		return c.coalAreas(ctx, opts)
	})
}

// RunBrownfields executes the brownfields criteria.
func (c *Coordinator) RunBrownfields(ctx context.Context, opts Options) ([]model.Area, error) {
	return c.logged(ctx, []string{"brownfields"}, string(opts.geography()), func(ctx context.Context) ([]model.Area, error) {
		return c.brownfieldAreas(ctx, opts)
	})
}

// logged wraps a criteria run with run-log bookkeeping and persistence.
func (c *Coordinator) logged(ctx context.Context, criteria []string, geography string, fn func(context.Context) ([]model.Area, error)) ([]model.Area, error) {
	log := zap.L().With(zap.Strings("criteria", criteria), zap.String("geography", geography))

	var run *model.Run
	if c.store != nil {
		var err error
		run, err = c.store.StartRun(ctx, criteria, geography)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: start run")
		}
		log = log.With(zap.String("run_id", run.ID))
	}
	log.Info("pipeline: starting criteria run")

	areas, err := fn(ctx)

	if run != nil {
		if err == nil {
			if _, saveErr := c.store.SaveAreas(ctx, run.ID, areas); saveErr != nil {
				err = eris.Wrap(saveErr, "pipeline: save areas")
			}
		}
		if finishErr := c.store.FinishRun(ctx, run.ID, len(areas), err); finishErr != nil {
			log.Warn("pipeline: finish run", zap.Error(finishErr))
		}
	}

	if err != nil {
		log.Error("pipeline: criteria run failed", zap.Error(err))
		return nil, err
	}
	log.Info("pipeline: criteria run complete", zap.Int("areas", len(areas)))
	return areas, nil
}

// atlas loads a boundary layer once and caches it for the process lifetime.
func (c *Coordinator) atlas(ctx context.Context, layer model.Geography, update bool) (*census.Atlas, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.atlases[layer]; ok {
		return a, nil
	}

	a, err := census.LoadAtlas(ctx, c.fetcher, layer, census.DownloadOptions{
		Year:        c.cfg.Census.TIGERYear,
		DataDir:     c.cfg.DataDir,
		Update:      update,
		FTPFallback: c.cfg.Census.FTPFallback,
	})
	if err != nil {
		return nil, err
	}
	c.atlases[layer] = a
	return a, nil
}

// namer loads the county and state layers used to fill naming columns.
func (c *Coordinator) namer(ctx context.Context, update bool) (qualify.Namer, error) {
	counties, err := c.atlas(ctx, model.GeographyCounty, update)
	if err != nil {
		return qualify.Namer{}, err
	}
	states, err := c.atlas(ctx, model.GeographyState, update)
	if err != nil {
		return qualify.Namer{}, err
	}
	return qualify.Namer{Counties: counties, States: states}, nil
}
