package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
)

const (
	eia860URLPattern        = "https://www.eia.gov/electricity/data/eia860/xls/eia860%d.zip"
	eia860ArchiveURLPattern = "https://www.eia.gov/electricity/data/eia860/archive/xls/eia860%d.zip"
)

// Generator is one row of the EIA-860 generator workbook. String fields hold
// the workbook values verbatim; the transform parses and filters them.
type Generator struct {
	ReportYear      int
	UtilityID       string
	PlantCode       string
	PlantName       string
	State           string
	County          string
	GeneratorID     string
	Technology      string
	EnergySource    string
	OperatingYear   string
	RetirementYear  string
	RetirementMonth string
	Retired         bool // true when the row came from the retired sheet
}

// Plant carries the coordinates EIA-860 publishes at the plant level.
type Plant struct {
	PlantCode string
	Latitude  string
	Longitude string
}

// EIA860 downloads one year's EIA-860 filing and parses the generator and
// plant workbooks. Recent years live under the main data path, older ones
// under the archive; both are tried.
func EIA860(ctx context.Context, f fetcher.Fetcher, year int, dataDir string, update bool) ([]Generator, []Plant, error) {
	dir := filepath.Join(dataDir, "eia860")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, eris.Wrapf(err, "eia860: create %s", dir)
	}

	zipPath := filepath.Join(dir, fmt.Sprintf("eia860%d.zip", year))
	got, err := f.DownloadCached(ctx, fmt.Sprintf(eia860URLPattern, year), zipPath, update)
	if err != nil {
		zap.L().Debug("eia860: main URL failed, trying archive",
			zap.Int("year", year), zap.Error(err))
		got, err = f.DownloadCached(ctx, fmt.Sprintf(eia860ArchiveURLPattern, year), zipPath, update)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "eia860: download %d filing", year)
		}
	}

	extractDir := filepath.Join(dir, fmt.Sprintf("eia860%d", year))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, nil, eris.Wrapf(err, "eia860: create %s", extractDir)
	}

	genPath, err := fetcher.ExtractZIPMatch(got, "3_1_Generator", extractDir)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "eia860: %d generator workbook", year)
	}
	plantPath, err := fetcher.ExtractZIPMatch(got, "2___Plant", extractDir)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "eia860: %d plant workbook", year)
	}

	var generators []Generator
	for _, sheet := range []struct {
		name    string
		retired bool
	}{
		{"Operable", false},
		{"Retired and Canceled", true},
	} {
		gens, err := parseGeneratorSheet(genPath, sheet.name, year, sheet.retired)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "eia860: %d sheet %s", year, sheet.name)
		}
		generators = append(generators, gens...)
	}

	plants, err := parsePlantSheet(plantPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "eia860: %d plant workbook", year)
	}

	zap.L().Info("eia860: parsed filing",
		zap.Int("year", year),
		zap.Int("generators", len(generators)),
		zap.Int("plants", len(plants)),
	)
	return generators, plants, nil
}

func parseGeneratorSheet(path, sheetName string, year int, retired bool) ([]Generator, error) {
	// Row one is a banner; headers sit on row two.
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: sheetName, SkipRows: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("sheet has no header row")
	}

	cols := fetcher.MapColumns(rows[0])
	var gens []Generator
	for _, row := range rows[1:] {
		g := Generator{
			ReportYear:      year,
			UtilityID:       fetcher.Col(row, cols, "utility id"),
			PlantCode:       fetcher.Col(row, cols, "plant code"),
			PlantName:       fetcher.Col(row, cols, "plant name"),
			State:           fetcher.Col(row, cols, "state"),
			County:          fetcher.Col(row, cols, "county"),
			GeneratorID:     fetcher.Col(row, cols, "generator id"),
			Technology:      fetcher.Col(row, cols, "technology"),
			EnergySource:    fetcher.Col(row, cols, "energy source 1"),
			OperatingYear:   fetcher.Col(row, cols, "operating year"),
			RetirementYear:  fetcher.Col(row, cols, "retirement year"),
			RetirementMonth: fetcher.Col(row, cols, "retirement month"),
			Retired:         retired,
		}
		if g.PlantCode == "" {
			continue // trailing notes rows
		}
		gens = append(gens, g)
	}
	return gens, nil
}

func parsePlantSheet(path string) ([]Plant, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: "Plant", SkipRows: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("sheet has no header row")
	}

	cols := fetcher.MapColumns(rows[0])
	var plants []Plant
	for _, row := range rows[1:] {
		p := Plant{
			PlantCode: fetcher.Col(row, cols, "plant code"),
			Latitude:  fetcher.Col(row, cols, "latitude"),
			Longitude: fetcher.Col(row, cols, "longitude"),
		}
		if p.PlantCode == "" {
			continue
		}
		plants = append(plants, p)
	}
	return plants, nil
}
