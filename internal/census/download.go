package census

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// DownloadOptions configures boundary downloads.
type DownloadOptions struct {
	Year        int
	DataDir     string
	Update      bool
	FTPFallback bool
}

// Download fetches the TIGER/Line ZIPs for a layer, extracts them, and
// returns the paths of the extracted .shp files. ZIPs already present in the
// data dir are reused unless Update is set. When the HTTP host fails and
// FTPFallback is enabled, the Census FTP mirror is tried before giving up.
func Download(ctx context.Context, f fetcher.Fetcher, layer model.Geography, opts DownloadOptions) ([]string, error) {
	log := zap.L().With(
		zap.String("component", "census.download"),
		zap.String("layer", string(layer)),
	)

	urls, err := LayerURLs(layer, opts.Year)
	if err != nil {
		return nil, err
	}
	ftpURLs, err := LayerFTPURLs(layer, opts.Year)
	if err != nil {
		return nil, err
	}

	destDir := filepath.Join(opts.DataDir, "tiger", string(layer))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "census: create dest dir")
	}

	var shpPaths []string
	for i, url := range urls {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		zipName := url[strings.LastIndex(url, "/")+1:]
		zipPath := filepath.Join(destDir, zipName)

		if _, err := f.DownloadCached(ctx, url, zipPath, opts.Update); err != nil {
			if !opts.FTPFallback {
				return nil, eris.Wrapf(err, "census: download %s", zipName)
			}
			log.Warn("http download failed, trying FTP mirror",
				zap.String("zip", zipName), zap.Error(err))
			ftpf := fetcher.NewFTPFetcher(fetcher.FTPOptions{})
			if _, ferr := ftpf.DownloadCached(ctx, ftpURLs[i], zipPath, opts.Update); ferr != nil {
				return nil, eris.Wrapf(ferr, "census: download %s (http and ftp)", zipName)
			}
		}

		extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
		shpPath, err := extractShapefile(zipPath, extractDir)
		if err != nil {
			return nil, eris.Wrapf(err, "census: extract %s", zipName)
		}
		shpPaths = append(shpPaths, shpPath)
	}

	log.Info("boundary files ready", zap.Int("files", len(shpPaths)))
	return shpPaths, nil
}

// extractShapefile unpacks a TIGER ZIP and returns the .shp path inside it.
// An already-extracted .shp is reused.
func extractShapefile(zipPath, extractDir string) (string, error) {
	if shpPath, err := findFileByExt(extractDir, ".shp"); err == nil {
		return shpPath, nil
	}

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create extract dir")
	}
	if _, err := fetcher.ExtractZIP(zipPath, extractDir); err != nil {
		return "", err
	}

	return findFileByExt(extractDir, ".shp")
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
