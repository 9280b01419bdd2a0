package pipeline

import (
	"context"
	"time"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/qualify"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

func (c *Coordinator) coalAreas(ctx context.Context, opts Options) ([]model.Area, error) {
	rawMines, err := extract.Mines(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	mines := transform.CoalMines(rawMines)

	// The latest published EIA-860 covers the previous calendar year.
	currentYear := time.Now().Year()
	generators, plants, err := extract.EIA860(ctx, c.fetcher, currentYear-1, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}

	var coalPlants []transform.CoalPlant
	if opts.ProposedRetirements {
		coalPlants = transform.ProposedRetirements(generators, plants, time.Now())
	} else {
		coalPlants = transform.CoalPlants(generators, plants)
	}

	atlas, err := c.atlas(ctx, opts.geography(), opts.Update)
	if err != nil {
		return nil, err
	}
	namer, err := c.namer(ctx, opts.Update)
	if err != nil {
		return nil, err
	}
	return qualify.CoalAreas(mines, coalPlants, atlas, namer), nil
}
