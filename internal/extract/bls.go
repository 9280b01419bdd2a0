// Package extract downloads the raw source datasets and parses them into
// typed records. Each source caches its raw files under the data inputs
// directory so repeat runs do not refetch.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
)

const (
	blsAPIURL = "https://api.bls.gov/publicAPI/v2/timeseries/data/"

	// National unemployment rate, seasonally adjusted, from the Current
	// Population Survey.
	cpsNationalSeriesID = "LNS14000000"

	lauBaseURL = "https://download.bls.gov/pub/time.series/la/"

	qcewURLPattern = "https://data.bls.gov/cew/data/files/%d/csv/%d_annual_by_area.zip"

	areaTitlesURL = "https://www.bls.gov/cew/classifications/areas/area-titles-xlsx.xlsx"

	msaDefinitionsURL = "https://www.bls.gov/oes/2021/may/area_definitions_m2021.xlsx"
)

// LAUDataFiles are the flat files carrying monthly local area unemployment
// observations from 2010 on. Each covers a five year window.
var LAUDataFiles = []string{
	"la.data.0.CurrentU10-14",
	"la.data.0.CurrentU15-19",
	"la.data.0.CurrentU20-24",
}

const lauAreaFile = "la.area"

// Poster posts a JSON payload and returns the response body. The BLS
// timeseries API only accepts POST requests.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload io.Reader) (io.ReadCloser, error)
}

// CPSObservation is one monthly observation from the BLS timeseries API.
type CPSObservation struct {
	SeriesID string
	Year     int
	Period   string // "M01".."M12", or "M13" for annual averages
	Value    float64
}

type blsAPIRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type blsAPIResponse struct {
	Status  string `json:"status"`
	Message []string
	Results struct {
		Series []struct {
			SeriesID string `json:"seriesID"`
			Data     []struct {
				Year   string `json:"year"`
				Period string `json:"period"`
				Value  string `json:"value"`
			} `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// NationalUnemployment fetches the national unemployment rate series from the
// BLS timeseries API. The API caps each request at ten years of data, so the
// range since 2009 is fetched in two windows and concatenated.
func NationalUnemployment(ctx context.Context, poster Poster, apiKey string) ([]CPSObservation, error) {
	currentYear := time.Now().Year()
	windows := [][2]string{
		{"2009", "2018"},
		{"2019", strconv.Itoa(currentYear)},
	}
	if currentYear > 2028 {
		zap.L().Warn("bls: only retrieving national unemployment data up to 2028")
	}

	var obs []CPSObservation
	for _, window := range windows {
		payload, err := json.Marshal(blsAPIRequest{
			SeriesID:        []string{cpsNationalSeriesID},
			StartYear:       window[0],
			EndYear:         window[1],
			RegistrationKey: apiKey,
		})
		if err != nil {
			return nil, eris.Wrap(err, "bls: encode timeseries request")
		}
		body, err := poster.PostJSON(ctx, blsAPIURL, bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrapf(err, "bls: timeseries request %s-%s", window[0], window[1])
		}

		var resp blsAPIResponse
		err = json.NewDecoder(body).Decode(&resp)
		body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "bls: decode timeseries response")
		}
		if resp.Status != "REQUEST_SUCCEEDED" {
			return nil, eris.Errorf("bls: timeseries API returned status %s: %s",
				resp.Status, strings.Join(resp.Message, "; "))
		}

		for _, series := range resp.Results.Series {
			for _, d := range series.Data {
				year, err := strconv.Atoi(d.Year)
				if err != nil {
					return nil, eris.Wrapf(err, "bls: series %s year %q", series.SeriesID, d.Year)
				}
				value, err := strconv.ParseFloat(d.Value, 64)
				if err != nil {
					return nil, eris.Wrapf(err, "bls: series %s value %q", series.SeriesID, d.Value)
				}
				obs = append(obs, CPSObservation{
					SeriesID: series.SeriesID,
					Year:     year,
					Period:   d.Period,
					Value:    value,
				})
			}
		}
	}

	zap.L().Info("bls: fetched national unemployment series",
		zap.String("series", cpsNationalSeriesID),
		zap.Int("observations", len(obs)),
	)
	return obs, nil
}

// LAURow is one observation from the LAU flat files. Values stay as strings
// here: the files mark missing data with "-" and carry footnote codes.
type LAURow struct {
	SeriesID string
	Year     int
	Period   string
	Value    string
}

// LAUArea maps an LAU area code to its display name.
type LAUArea struct {
	AreaType string
	AreaCode string
	AreaText string
}

// LAURates downloads and parses the LAU monthly observation files.
func LAURates(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]LAURow, error) {
	if time.Now().Year() > 2024 {
		zap.L().Warn("bls: local area unemployment data is only extracted up to year 2024")
	}

	var rows []LAURow
	for _, filename := range LAUDataFiles {
		path, err := cacheLAUFile(ctx, f, dataDir, filename, update)
		if err != nil {
			return nil, err
		}
		fileRows, err := parseLAURates(ctx, path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// LAUAreas downloads and parses the LAU area code table.
func LAUAreas(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]LAUArea, error) {
	path, err := cacheLAUFile(ctx, f, dataDir, lauAreaFile, update)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bls: open %s", path)
	}
	defer file.Close()

	var areas []LAUArea
	records, errCh := fetcher.StreamCSV(ctx, file, fetcher.CSVOptions{
		Delimiter: '\t',
		HasHeader: true,
		TrimSpace: true,
	})
	for record := range records {
		if len(record) < 3 {
			continue
		}
		areas = append(areas, LAUArea{
			AreaType: record[0],
			AreaCode: record[1],
			AreaText: record[2],
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "bls: parse %s", lauAreaFile)
	}
	return areas, nil
}

func cacheLAUFile(ctx context.Context, f fetcher.Fetcher, dataDir, filename string, update bool) (string, error) {
	dir := filepath.Join(dataDir, "lau")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "bls: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, lauBaseURL+filename, filepath.Join(dir, filename), update)
	if err != nil {
		return "", eris.Wrapf(err, "bls: download %s", filename)
	}
	return path, nil
}

func parseLAURates(ctx context.Context, path string) ([]LAURow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bls: open %s", path)
	}
	defer file.Close()

	var rows []LAURow
	records, errCh := fetcher.StreamCSV(ctx, file, fetcher.CSVOptions{
		Delimiter: '\t',
		HasHeader: true,
		TrimSpace: true,
	})
	for record := range records {
		if len(record) < 4 {
			continue
		}
		year, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, eris.Wrapf(err, "bls: %s: series %s year %q", filepath.Base(path), record[0], record[1])
		}
		rows = append(rows, LAURow{
			SeriesID: record[0],
			Year:     year,
			Period:   record[2],
			Value:    record[3],
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "bls: parse %s", filepath.Base(path))
	}
	return rows, nil
}

// QCEWRecord is one annual average row from the QCEW annual-by-area files.
type QCEWRecord struct {
	AreaFIPS     string
	OwnCode      int
	IndustryCode string
	Year         int
	AnnualAvgEmp int
}

// QCEWYears lists every year with published annual QCEW files, 2010 through
// the year before the current one.
func QCEWYears(startYear int) []int {
	var years []int
	for y := startYear; y < time.Now().Year(); y++ {
		years = append(years, y)
	}
	return years
}

// DownloadQCEW caches the annual-by-area zip for one year and returns its
// path. The most recent year may not be published yet; the caller decides
// whether that is fatal.
func DownloadQCEW(ctx context.Context, f fetcher.Fetcher, year int, dataDir string, update bool) (string, error) {
	dir := filepath.Join(dataDir, "qcew")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "qcew: create %s", dir)
	}

	url := fmt.Sprintf(qcewURLPattern, year, year)
	path := filepath.Join(dir, fmt.Sprintf("%d_annual_by_area.zip", year))
	got, err := f.DownloadCached(ctx, url, path, update)
	if err != nil {
		return "", eris.Wrapf(err, "qcew: download %d annual data", year)
	}
	return got, nil
}

// QCEWRecords parses every per-area CSV inside an annual-by-area zip,
// keeping only records the filter accepts. Filtering during the scan keeps
// memory bounded: a single year holds millions of rows, nearly all of them
// for industries this pipeline never looks at.
func QCEWRecords(ctx context.Context, zipPath string, keep func(QCEWRecord) bool) ([]QCEWRecord, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "qcew: open %s", zipPath)
	}
	defer zr.Close()

	var records []QCEWRecord
	for _, entry := range zr.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}
		entryRecords, err := parseQCEWEntry(ctx, entry, keep)
		if err != nil {
			return nil, eris.Wrapf(err, "qcew: %s: %s", filepath.Base(zipPath), entry.Name)
		}
		records = append(records, entryRecords...)
	}
	return records, nil
}

func parseQCEWEntry(ctx context.Context, entry *zip.File, keep func(QCEWRecord) bool) ([]QCEWRecord, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	headerCh := make(chan []string, 1)
	records, errCh := fetcher.StreamCSV(ctx, rc, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	header := <-headerCh
	cols := fetcher.MapColumns(header)
	var out []QCEWRecord
	for record := range records {
		rec, err := qcewRecordFromRow(record, cols)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

func qcewRecordFromRow(record []string, cols map[string]int) (QCEWRecord, error) {
	areaFIPS := fetcher.Col(record, cols, "area_fips")
	ownCode, err := strconv.Atoi(fetcher.Col(record, cols, "own_code"))
	if err != nil {
		return QCEWRecord{}, eris.Wrapf(err, "area %s own_code", areaFIPS)
	}
	year, err := strconv.Atoi(fetcher.Col(record, cols, "year"))
	if err != nil {
		return QCEWRecord{}, eris.Wrapf(err, "area %s year", areaFIPS)
	}
	emp, err := strconv.Atoi(fetcher.Col(record, cols, "annual_avg_emplvl"))
	if err != nil {
		return QCEWRecord{}, eris.Wrapf(err, "area %s annual_avg_emplvl", areaFIPS)
	}
	return QCEWRecord{
		AreaFIPS:     areaFIPS,
		OwnCode:      ownCode,
		IndustryCode: fetcher.Col(record, cols, "industry_code"),
		Year:         year,
		AnnualAvgEmp: emp,
	}, nil
}

// AreaTitle maps a QCEW area FIPS code to its display title.
type AreaTitle struct {
	AreaFIPS  string
	AreaTitle string
}

// QCEWAreaTitles downloads and parses the QCEW area title workbook.
func QCEWAreaTitles(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]AreaTitle, error) {
	dir := filepath.Join(dataDir, "qcew")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "qcew: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, areaTitlesURL, filepath.Join(dir, "area-titles.xlsx"), update)
	if err != nil {
		return nil, eris.Wrap(err, "qcew: download area titles")
	}

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "qcew: read area titles workbook")
	}
	if len(rows) == 0 {
		return nil, eris.New("qcew: area titles workbook is empty")
	}

	cols := fetcher.MapColumns(rows[0])
	var titles []AreaTitle
	for _, row := range rows[1:] {
		fips := fetcher.Col(row, cols, "area_fips")
		if fips == "" {
			continue
		}
		// Leading zeros are lost when the workbook stores codes as numbers.
		for len(fips) < 5 {
			fips = "0" + fips
		}
		titles = append(titles, AreaTitle{
			AreaFIPS:  fips,
			AreaTitle: fetcher.Col(row, cols, "area_title"),
		})
	}
	return titles, nil
}

// MSADefinition is one row of the OES area definitions workbook, tying a
// county to its May 2021 MSA or nonmetropolitan area.
type MSADefinition struct {
	StateFIPS    string
	CountyFIPS   string
	TownshipFIPS string
	MSACode      string
	MSAName      string
	CountyName   string
	StateAbbr    string
}

// MSADefinitions downloads and parses the MSA definitions workbook.
func MSADefinitions(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]MSADefinition, error) {
	dir := filepath.Join(dataDir, "msa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "bls: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, msaDefinitionsURL, filepath.Join(dir, "area_definitions_m2021.xlsx"), update)
	if err != nil {
		return nil, eris.Wrap(err, "bls: download MSA definitions")
	}

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "bls: read MSA definitions workbook")
	}
	if len(rows) == 0 {
		return nil, eris.New("bls: MSA definitions workbook is empty")
	}

	// Header names in this workbook carry stray trailing spaces
	// ("May 2021 MSA code "). MapColumns trims them.
	cols := fetcher.MapColumns(rows[0])
	var defs []MSADefinition
	for _, row := range rows[1:] {
		def := MSADefinition{
			StateFIPS:    zfill(fetcher.Col(row, cols, "fips code"), 2),
			CountyFIPS:   zfill(fetcher.Col(row, cols, "county code"), 3),
			TownshipFIPS: zfill(fetcher.Col(row, cols, "township code"), 3),
			MSACode:      fetcher.Col(row, cols, "may 2021 msa code"),
			MSAName:      fetcher.Col(row, cols, "may 2021 msa name"),
			CountyName:   fetcher.Col(row, cols, "county name"),
			StateAbbr:    fetcher.Col(row, cols, "state"),
		}
		if def.StateFIPS == "" && def.MSACode == "" {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func zfill(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
