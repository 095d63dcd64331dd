package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/config/source"
	"github.com/ekisa-team/toolvision/internal/xfs"
)

// Locator finds the dataset on local storage or fetches it from its remote source.
type Locator struct {
	config     *config.Config
	downloader source.Downloader
}

// NewLocator creates a Locator.
func NewLocator(cfg *config.Config, downloader source.Downloader) *Locator {
	return &Locator{
		config:     cfg,
		downloader: downloader,
	}
}

// Locate returns the dataset directory, downloading it when the local copy is absent.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	dir := l.config.DatasetDir()
	if xfs.IsDir(dir) {
		slog.Info("Using local dataset", "path", dir)
		return dir, nil
	}

	slog.Info("Dataset not found, attempting to download", "path", dir)

	downloadDir := l.config.DownloadDir()
	if err := source.EnsureDirectory(downloadDir); err != nil {
		return "", err
	}

	location, cached, err := l.downloader.Download(ctx, &l.config.Dataset, downloadDir)
	if err != nil {
		return "", fmt.Errorf("failed to download dataset into %s: %w", downloadDir, err)
	}
	if location == "" {
		location = downloadDir
	}

	slog.Info("Dataset downloaded", "path", location, "cached", cached)
	return location, nil
}

// LocateManifest locates the dataset and returns the path of its manifest.
func (l *Locator) LocateManifest(ctx context.Context) (string, error) {
	dir, err := l.Locate(ctx)
	if err != nil {
		return "", err
	}

	return ManifestPath(dir, l.config.Dataset.Manifest)
}
