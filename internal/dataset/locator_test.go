package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/envvar"
)

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, datasetConfig *config.DatasetConfig, targetDir string) (string, bool, error) {
	args := m.Called(ctx, datasetConfig, targetDir)
	return args.String(0), args.Bool(1), args.Error(2)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(envvar.ToolvisionWorkDir, "")

	cfg := config.DefaultConfig()
	cfg.Storage.WorkDir = t.TempDir()
	return cfg
}

func TestLocator_UsesLocalDataset(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DatasetDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DatasetDir(), "data.yaml"), []byte("nc: 0\n"), 0o644))

	downloader := new(MockDownloader)
	locator := NewLocator(cfg, downloader)

	manifest, err := locator.LocateManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.DatasetDir(), "data.yaml"), manifest)

	downloader.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestLocator_DownloadsMissingDataset(t *testing.T) {
	cfg := testConfig(t)
	downloadDir := cfg.DownloadDir()

	downloader := new(MockDownloader)
	downloader.On("Download", mock.Anything, &cfg.Dataset, downloadDir).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(filepath.Join(downloadDir, "data.yaml"), []byte("nc: 0\n"), 0o644))
		}).
		Return(downloadDir, false, nil).Once()

	locator := NewLocator(cfg, downloader)

	manifest, err := locator.LocateManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(downloadDir, "data.yaml"), manifest)
	assert.DirExists(t, downloadDir)

	downloader.AssertExpectations(t)
}

func TestLocator_ManifestMissingAfterDownload(t *testing.T) {
	cfg := testConfig(t)

	downloader := new(MockDownloader)
	downloader.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("", false, nil)

	_, err := NewLocator(cfg, downloader).LocateManifest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestNotFound)
	assert.Contains(t, err.Error(), filepath.Join(cfg.DownloadDir(), "data.yaml"))
}

func TestLocator_DownloadFailure(t *testing.T) {
	cfg := testConfig(t)

	downloader := new(MockDownloader)
	downloader.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("", false, errors.New("network down"))

	_, err := NewLocator(cfg, downloader).Locate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}
