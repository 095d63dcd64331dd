package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ekisa-team/toolvision/internal/config"
)

// ErrUnsupportedSource is returned for source types without a downloader.
var ErrUnsupportedSource = errors.New("unsupported dataset source")

// Downloader fetches a dataset into a local directory.
type Downloader interface {
	// Download fetches the dataset described by datasetConfig into targetDir.
	// It returns the dataset location and whether an existing download was reused.
	Download(ctx context.Context, datasetConfig *config.DatasetConfig, targetDir string) (string, bool, error)
}

// GetDownloader returns the downloader for a source type.
func GetDownloader(sourceType config.SourceType, apiKey string) (Downloader, error) {
	switch sourceType {
	case config.SourceTypeRoboflow:
		return NewRoboflowDownloader(apiKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}
}

// EnsureDirectory creates path and its parents if needed.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
