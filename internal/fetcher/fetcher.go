// Package fetcher downloads and parses source data from HTTP, FTP, CSV,
// XLSX, and ZIP sources.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadCached fetches the URL to path unless a non-empty file is already
	// there. Passing update forces a fresh download. Returns the local path.
	DownloadCached(ctx context.Context, url string, path string, update bool) (string, error)
}
