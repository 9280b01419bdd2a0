package pipeline

import (
	"context"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/qualify"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

func (c *Coordinator) brownfieldAreas(ctx context.Context, opts Options) ([]model.Area, error) {
	sites, err := extract.Brownfields(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	zipToCounty, err := extract.ZipCountyCrosswalk(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	records := transform.Brownfields(sites, zipToCounty)

	// Counties come from the ZIP crosswalk; only the tract layer needs a
	// spatial lookup.
	var tracts *census.Atlas
	if opts.geography() == model.GeographyTract {
		tracts, err = c.atlas(ctx, model.GeographyTract, opts.Update)
		if err != nil {
			return nil, err
		}
	}

	namer, err := c.namer(ctx, opts.Update)
	if err != nil {
		return nil, err
	}
	return qualify.BrownfieldAreas(records, tracts, namer), nil
}
