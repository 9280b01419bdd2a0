package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/qualify"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// qcewConcurrency bounds the per-year QCEW download fan-out. The BLS
// download host throttles aggressively.
const qcewConcurrency = 4

func (c *Coordinator) employmentAreas(ctx context.Context, opts Options) ([]model.Area, error) {
	obs, err := extract.NationalUnemployment(ctx, c.poster, c.cfg.BLS.APIKey)
	if err != nil {
		return nil, err
	}
	national := transform.NationalAnnualAverages(obs)

	lauRows, err := extract.LAURates(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	rates := transform.LAUAnnualAverages(lauRows)

	lauAreas, err := extract.LAUAreas(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	localAreas := transform.LAUAreaInfo(lauAreas)

	titleRows, err := extract.QCEWAreaTitles(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	titles := transform.AreaTitles(titleRows)

	defs, err := extract.MSADefinitions(ctx, c.fetcher, c.cfg.DataDir, opts.Update)
	if err != nil {
		return nil, err
	}
	crosswalk := transform.MSACrosswalk(defs)

	records, err := c.qcewRecords(ctx, opts.Update)
	if err != nil {
		return nil, err
	}

	fossil := qualify.FossilEmployment(records, titles, crosswalk)
	unemployment := qualify.UnemploymentRates(national, rates, localAreas, crosswalk)

	namer, err := c.namer(ctx, opts.Update)
	if err != nil {
		return nil, err
	}
	return qualify.EmploymentAreas(fossil, unemployment, namer), nil
}

// keepQCEW keeps only the records the employment criteria read: the
// all-industries total and the fossil NAICS industries.
func keepQCEW(rec extract.QCEWRecord) bool {
	if rec.IndustryCode == "10" && rec.OwnCode == 0 {
		return true
	}
	return qualify.IsFossilIndustry(rec.IndustryCode)
}

// qcewRecords downloads and parses every published QCEW year concurrently.
// The newest year is often not published yet; its absence is tolerated with
// a warning, any other year's failure aborts the run.
func (c *Coordinator) qcewRecords(ctx context.Context, update bool) ([]extract.QCEWRecord, error) {
	years := extract.QCEWYears(c.cfg.BLS.StartYear)
	if len(years) == 0 {
		return nil, eris.Errorf("qcew: no years to process from start year %d", c.cfg.BLS.StartYear)
	}
	newest := years[len(years)-1]

	results := make([][]extract.QCEWRecord, len(years))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(qcewConcurrency)
	for i, year := range years {
		g.Go(func() error {
			zipPath, err := extract.DownloadQCEW(ctx, c.fetcher, year, c.cfg.DataDir, update)
			if err != nil {
				if year == newest {
					zap.L().Warn("qcew: newest year not yet published, skipping",
						zap.Int("year", year), zap.Error(err))
					return nil
				}
				return err
			}

			recs, err := extract.QCEWRecords(ctx, zipPath, keepQCEW)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []extract.QCEWRecord
	for _, recs := range results {
		all = append(all, recs...)
	}
	zap.L().Info("qcew: records extracted",
		zap.Int("years", len(years)), zap.Int("records", len(all)))
	return all, nil
}
