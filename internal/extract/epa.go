package extract

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
)

const (
	// See https://www.epa.gov/re-powering/how-identify-sites#looking for
	// details on the screening dataset.
	epaSitesURL = "https://www.epa.gov/system/files/documents/2022-04/re-powering-screening-dataset-2022.xlsx"

	// USPS zip to county crosswalk, Q4 2021 vintage, from HUD:
	// https://www.huduser.gov/portal/datasets/usps_crosswalk.html
	hudCrosswalkURL = "https://www.huduser.gov/portal/datasets/usps/ZIP_COUNTY_122021.xlsx"
)

// BrownfieldSite is one candidate site from the EPA RE-Powering screening
// dataset.
type BrownfieldSite struct {
	SiteName  string
	ZipCode   string
	State     string
	Latitude  string
	Longitude string
}

// Brownfields downloads the EPA RE-Powering screening dataset and parses the
// sites sheet.
func Brownfields(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]BrownfieldSite, error) {
	zap.L().Info("epa: extracting brownfields data")

	dir := filepath.Join(dataDir, "epa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "epa: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, epaSitesURL, filepath.Join(dir, filepath.Base(epaSitesURL)), update)
	if err != nil {
		return nil, eris.Wrap(err, "epa: download screening dataset")
	}

	// The sheet name in the published workbook carries a trailing space;
	// ReadXLSX matches names case and whitespace insensitively.
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: "re-powering sites"})
	if err != nil {
		return nil, eris.Wrap(err, "epa: read screening dataset")
	}
	if len(rows) == 0 {
		return nil, eris.New("epa: sites sheet has no header row")
	}

	cols := fetcher.MapColumns(rows[0])
	var sites []BrownfieldSite
	for _, row := range rows[1:] {
		site := BrownfieldSite{
			SiteName:  fetcher.Col(row, cols, "site name"),
			ZipCode:   fetcher.Col(row, cols, "zip code"),
			State:     fetcher.Col(row, cols, "state"),
			Latitude:  fetcher.Col(row, cols, "latitude"),
			Longitude: fetcher.Col(row, cols, "longitude"),
		}
		if site.SiteName == "" {
			continue
		}
		sites = append(sites, site)
	}

	zap.L().Info("epa: parsed brownfield sites", zap.Int("sites", len(sites)))
	return sites, nil
}

// ZipCountyCrosswalk downloads the HUD USPS crosswalk and returns a zip code
// to county FIPS map. Zips spanning several counties keep the first listed
// county.
func ZipCountyCrosswalk(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) (map[string]string, error) {
	dir := filepath.Join(dataDir, "epa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "epa: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, hudCrosswalkURL, filepath.Join(dir, filepath.Base(hudCrosswalkURL)), update)
	if err != nil {
		return nil, eris.Wrap(err, "epa: download HUD zip-county crosswalk")
	}

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "epa: read HUD zip-county crosswalk")
	}
	if len(rows) == 0 {
		return nil, eris.New("epa: crosswalk has no header row")
	}

	cols := fetcher.MapColumns(rows[0])
	crosswalk := make(map[string]string)
	for _, row := range rows[1:] {
		zip := zfill(fetcher.Col(row, cols, "zip"), 5)
		county := zfill(fetcher.Col(row, cols, "county"), 5)
		if zip == "00000" || county == "00000" {
			continue
		}
		if _, ok := crosswalk[zip]; !ok {
			crosswalk[zip] = county
		}
	}
	return crosswalk, nil
}
