package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// fakeFetcher serves canned fixture bytes keyed by URL substring, so extract
// functions can run their full download-cache-parse path against local data.
type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) lookup(url string) ([]byte, error) {
	for key, content := range f.files {
		if strings.Contains(url, key) {
			return content, nil
		}
	}
	return nil, fmt.Errorf("no fixture for %s", url)
}

func (f *fakeFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	content, err := f.lookup(url)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeFetcher) DownloadToFile(_ context.Context, url, path string) (int64, error) {
	content, err := f.lookup(url)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (f *fakeFetcher) DownloadCached(ctx context.Context, url, path string, _ bool) (string, error) {
	if _, err := f.DownloadToFile(ctx, url, path); err != nil {
		return "", err
	}
	return path, nil
}

// zipBytes builds an in-memory zip with the given file names and contents.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// xlsxBytes builds an in-memory workbook. Sheets are name → rows of cells.
func xlsxBytes(t *testing.T, sheets []sheetFixture) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, fixture := range sheets {
		sheet, err := f.AddSheet(fixture.name)
		require.NoError(t, err)
		for _, row := range fixture.rows {
			r := sheet.AddRow()
			for _, cell := range row {
				r.AddCell().Value = cell
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

type sheetFixture struct {
	name string
	rows [][]string
}
