package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/toolvision/internal/config"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func datasetConfig() *config.DatasetConfig {
	cfg := config.DefaultConfig().Dataset
	return &cfg
}

type fakeRoboflow struct {
	server      *httptest.Server
	lookups     atomic.Int32
	generations atomic.Int32
	exportAfter int32
	archive     []byte
	apiKey      string
}

func newFakeRoboflow(t *testing.T, archive []byte, exportAfter int32) *fakeRoboflow {
	f := &fakeRoboflow{archive: archive, exportAfter: exportAfter, apiKey: "secret"}

	mux := http.NewServeMux()
	mux.HandleFunc("/daad-mobility/cholec80/3/yolov11", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != f.apiKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if r.Method == http.MethodPost {
			f.generations.Add(1)
			w.WriteHeader(http.StatusOK)
			return
		}

		n := f.lookups.Add(1)
		if n <= f.exportAfter {
			fmt.Fprint(w, `{"version": {}}`)
			return
		}
		fmt.Fprintf(w, `{"export": {"link": "%s/download/cholec80.zip", "format": "yolov11"}}`, f.server.URL)
	})
	mux.HandleFunc("/download/cholec80.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(f.archive)))
		_, _ = w.Write(f.archive)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRoboflow) downloader(apiKey string) *RoboflowDownloader {
	return NewRoboflowDownloader(apiKey,
		WithAPIURL(f.server.URL),
		WithRetry(3, time.Millisecond),
		WithExportPoll(time.Millisecond, time.Second),
		WithProgressBar(false),
	)
}

func TestRoboflowDownloader_DownloadAndCache(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"data.yaml":           "nc: 1\nnames: ['Grasper']\n",
		"train/labels/a.txt":  "0 0.5 0.5 0.1 0.1\n",
		"README.roboflow.txt": "exported",
	})
	rf := newFakeRoboflow(t, archive, 0)
	target := filepath.Join(t.TempDir(), "datasets", "cholec80")

	location, cached, err := rf.downloader("secret").Download(context.Background(), datasetConfig(), target)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, target, location)

	assert.FileExists(t, filepath.Join(target, "data.yaml"))
	assert.FileExists(t, filepath.Join(target, "train", "labels", "a.txt"))
	assert.NoFileExists(t, filepath.Join(target, archiveFilename))
	assert.FileExists(t, filepath.Join(target, markerFilename))

	_, cached, err = rf.downloader("secret").Download(context.Background(), datasetConfig(), target)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.EqualValues(t, 1, rf.lookups.Load())
}

func TestRoboflowDownloader_MarkerMismatchRedownloads(t *testing.T) {
	rf := newFakeRoboflow(t, zipBytes(t, map[string]string{"data.yaml": "nc: 0\n"}), 0)
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, markerFilename), []byte("workspace: other\n"), 0o644))

	_, cached, err := rf.downloader("secret").Download(context.Background(), datasetConfig(), target)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.EqualValues(t, 1, rf.lookups.Load())
}

func TestRoboflowDownloader_GeneratesMissingExport(t *testing.T) {
	rf := newFakeRoboflow(t, zipBytes(t, map[string]string{"data.yaml": "nc: 0\n"}), 1)

	_, _, err := rf.downloader("secret").Download(context.Background(), datasetConfig(), t.TempDir())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rf.generations.Load())
	assert.EqualValues(t, 2, rf.lookups.Load())
}

func TestRoboflowDownloader_PollsUntilExportReady(t *testing.T) {
	rf := newFakeRoboflow(t, zipBytes(t, map[string]string{"data.yaml": "nc: 0\n"}), 4)

	d := NewRoboflowDownloader("secret",
		WithAPIURL(rf.server.URL),
		WithRetry(1, time.Millisecond),
		WithExportPoll(time.Millisecond, time.Second),
		WithProgressBar(false),
	)

	target := t.TempDir()
	_, _, err := d.Download(context.Background(), datasetConfig(), target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "data.yaml"))
	assert.EqualValues(t, 1, rf.generations.Load())
	assert.EqualValues(t, 5, rf.lookups.Load())
}

func TestRoboflowDownloader_ExportPollTimeout(t *testing.T) {
	rf := newFakeRoboflow(t, nil, 1<<20)

	d := NewRoboflowDownloader("secret",
		WithAPIURL(rf.server.URL),
		WithRetry(1, time.Millisecond),
		WithExportPoll(time.Millisecond, 20*time.Millisecond),
		WithProgressBar(false),
	)

	_, _, err := d.Download(context.Background(), datasetConfig(), t.TempDir())
	assert.ErrorIs(t, err, ErrMissingExport)
	assert.EqualValues(t, 1, rf.generations.Load())
}

func TestRoboflowDownloader_Unauthorized(t *testing.T) {
	rf := newFakeRoboflow(t, nil, 0)

	_, _, err := rf.downloader("wrong-key").Download(context.Background(), datasetConfig(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NotContains(t, err.Error(), "wrong-key")
}

func TestRoboflowDownloader_InvalidSource(t *testing.T) {
	cfg := datasetConfig()
	cfg.Source.Roboflow = nil

	_, _, err := NewRoboflowDownloader("k").Download(context.Background(), cfg, t.TempDir())
	assert.Error(t, err)

	cfg.SetRoboflowSource(config.RoboflowSource{Workspace: "w"})
	_, _, err = NewRoboflowDownloader("k").Download(context.Background(), cfg, t.TempDir())
	assert.Error(t, err)
}

func TestRoboflowDownloader_ExportURL(t *testing.T) {
	d := NewRoboflowDownloader("k e y")
	u := d.exportURL(config.RoboflowSource{Workspace: "daad-mobility", Project: "cholec80", Version: 3, Format: "yolov11"})

	assert.Equal(t, "https://api.roboflow.com/daad-mobility/cholec80/3/yolov11?api_key=k+e+y&nocache=true", u)
}

func TestUnzip_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(archive, zipBytes(t, map[string]string{"../escape.txt": "x"}), 0o644))

	err := Unzip(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestGetDownloader(t *testing.T) {
	d, err := GetDownloader(config.SourceTypeRoboflow, "key")
	require.NoError(t, err)
	assert.IsType(t, &RoboflowDownloader{}, d)

	_, err = GetDownloader("s3", "key")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
