package extract

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
)

const (
	mshaMinesURL    = "https://arlweb.msha.gov/OpenGovernmentData/DataSets/Mines.zip"
	mshaMetadataURL = "https://arlweb.msha.gov/OpenGovernmentData/DataSets/Mines_Definition_File.txt"
)

// Mine is one row of the MSHA mine dataset. Coordinates and dates stay as
// strings: the source leaves them blank or malformed for many closed mines,
// and the transform decides what to do with those.
type Mine struct {
	MineID       string
	MineName     string
	CoalMetalInd string
	Status       string
	StatusDate   string // MM/DD/YYYY
	Latitude     string
	Longitude    string
}

// Mines downloads the MSHA mine dataset and parses it. The zip must contain
// exactly one file, Mines.txt, pipe-delimited and Latin-1 encoded.
func Mines(ctx context.Context, f fetcher.Fetcher, dataDir string, update bool) ([]Mine, error) {
	zap.L().Info("msha: retrieving mine data")

	dir := filepath.Join(dataDir, "msha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "msha: create %s", dir)
	}

	zipPath, err := f.DownloadCached(ctx, mshaMinesURL, filepath.Join(dir, "Mines.zip"), update)
	if err != nil {
		return nil, eris.Wrap(err, "msha: download mines zip")
	}

	txtPath, err := fetcher.ExtractZIPSingle(zipPath, dir)
	if err != nil {
		return nil, eris.Wrap(err, "msha: extract mines zip")
	}
	if filepath.Base(txtPath) != "Mines.txt" {
		return nil, eris.Errorf("msha: zip contains %s, expected Mines.txt", filepath.Base(txtPath))
	}

	file, err := os.Open(txtPath)
	if err != nil {
		return nil, eris.Wrapf(err, "msha: open %s", txtPath)
	}
	defer file.Close()

	headerCh := make(chan []string, 1)
	records, errCh := fetcher.StreamCSV(ctx, charmap.ISO8859_1.NewDecoder().Reader(file), fetcher.CSVOptions{
		Delimiter:  '|',
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	cols := fetcher.MapColumns(<-headerCh)
	var mines []Mine
	for record := range records {
		mines = append(mines, Mine{
			MineID:       fetcher.Col(record, cols, "mine_id"),
			MineName:     fetcher.Col(record, cols, "current_mine_name"),
			CoalMetalInd: fetcher.Col(record, cols, "coal_metal_ind"),
			Status:       fetcher.Col(record, cols, "current_mine_status"),
			StatusDate:   fetcher.Col(record, cols, "current_status_dt"),
			Latitude:     fetcher.Col(record, cols, "latitude"),
			Longitude:    fetcher.Col(record, cols, "longitude"),
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "msha: parse Mines.txt")
	}

	zap.L().Info("msha: parsed mine records", zap.Int("mines", len(mines)))
	return mines, nil
}

// MinesMetadata downloads the column definition file alongside the data.
func MinesMetadata(ctx context.Context, f fetcher.Fetcher, dataDir string) (string, error) {
	dir := filepath.Join(dataDir, "msha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "msha: create %s", dir)
	}
	path, err := f.DownloadCached(ctx, mshaMetadataURL, filepath.Join(dir, "metadata.txt"), true)
	if err != nil {
		return "", eris.Wrap(err, "msha: download metadata")
	}
	return path, nil
}
