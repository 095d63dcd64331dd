package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/ekisa-team/toolvision/internal/config"
)

const (
	defaultRoboflowAPIURL = "https://api.roboflow.com"
	defaultRetryDelay     = 2 * time.Second
	defaultMaxRetries     = 3
	defaultTimeout        = 30 * time.Minute
	defaultExportInterval = 5 * time.Second
	defaultExportTimeout  = 10 * time.Minute
	markerFilename        = ".toolvision-downloaded"
	archiveFilename       = "roboflow.zip"
)

// ErrMissingExport means the dataset version has not been exported in the requested format yet.
var ErrMissingExport = errors.New("roboflow: export not available yet")

// RoboflowDownloader downloads a dataset version export from Roboflow.
type RoboflowDownloader struct {
	client         *http.Client
	apiKey         string
	apiURL         string
	retryDelay     time.Duration
	maxRetries     int
	exportInterval time.Duration
	exportTimeout  time.Duration
	progressBar    bool
}

// RoboflowOption configures a RoboflowDownloader.
type RoboflowOption func(*RoboflowDownloader)

// WithExportPoll overrides how often and how long a freshly requested export is polled for.
func WithExportPoll(interval, timeout time.Duration) RoboflowOption {
	return func(d *RoboflowDownloader) {
		d.exportInterval = interval
		d.exportTimeout = timeout
	}
}

// WithAPIURL overrides the Roboflow API base URL.
func WithAPIURL(apiURL string) RoboflowOption {
	return func(d *RoboflowDownloader) {
		d.apiURL = apiURL
	}
}

// WithRetry overrides the number of attempts and the delay between them.
func WithRetry(maxRetries int, delay time.Duration) RoboflowOption {
	return func(d *RoboflowDownloader) {
		d.maxRetries = maxRetries
		d.retryDelay = delay
	}
}

// WithProgressBar toggles the terminal progress bar while downloading.
func WithProgressBar(enabled bool) RoboflowOption {
	return func(d *RoboflowDownloader) {
		d.progressBar = enabled
	}
}

// NewRoboflowDownloader creates a downloader authenticating with apiKey.
func NewRoboflowDownloader(apiKey string, opts ...RoboflowOption) *RoboflowDownloader {
	d := &RoboflowDownloader{
		client:         &http.Client{Timeout: defaultTimeout},
		apiKey:         apiKey,
		retryDelay:     defaultRetryDelay,
		maxRetries:     defaultMaxRetries,
		exportInterval: defaultExportInterval,
		exportTimeout:  defaultExportTimeout,
		progressBar:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type exportResponse struct {
	Export *struct {
		Link   string `json:"link"`
		Format string `json:"format"`
	} `json:"export"`
}

// Download downloads a Roboflow dataset export into targetDir and unpacks it there.
func (d *RoboflowDownloader) Download(ctx context.Context, datasetConfig *config.DatasetConfig, targetDir string) (string, bool, error) {
	source, err := datasetConfig.GetSource()
	if err != nil {
		return "", false, fmt.Errorf("failed to get dataset source: %w", err)
	}

	rf, ok := source.(config.RoboflowSource)
	if !ok {
		return "", false, fmt.Errorf("invalid source type: %T", source)
	}

	if rf.Workspace == "" || rf.Project == "" || rf.Version <= 0 {
		return "", false, fmt.Errorf("invalid roboflow source: %s/%s/%d", rf.Workspace, rf.Project, rf.Version)
	}
	if rf.Format == "" {
		rf.Format = "yolov11"
	}

	markerPath := filepath.Join(targetDir, markerFilename)
	markerContent := d.markerContent(rf)

	if _, err := os.Stat(markerPath); err == nil && !rf.ForceDownload {
		if !d.shouldRedownload(markerPath, markerContent) {
			slog.Info("Dataset already downloaded and up-to-date (marker match), skipping", "project", rf.Project, "path", targetDir)
			return targetDir, true, nil
		}
	}

	if err := EnsureDirectory(targetDir); err != nil {
		return "", false, err
	}

	var lastErr error
	for attempt := range d.maxRetries {
		if attempt > 0 {
			slog.Info("Retrying download", "project", rf.Project, "attempt", attempt+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", false, fmt.Errorf("download canceled: %w", ctx.Err())
			case <-time.After(d.retryDelay):
			}
		} else {
			slog.Info("Downloading dataset", "workspace", rf.Workspace, "project", rf.Project, "version", rf.Version, "format", rf.Format, "path", targetDir)
		}

		err := d.downloadOnce(ctx, rf, targetDir)
		if err == nil {
			if err := os.WriteFile(markerPath, []byte(markerContent), 0o644); err != nil {
				slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
			} else {
				slog.Info("Download marker updated", "path", markerPath)
			}

			slog.Info("Dataset downloaded successfully", "project", rf.Project, "path", targetDir, "attempt", attempt+1)
			return targetDir, false, nil
		}

		lastErr = err
		slog.Error("Failed to download dataset", "project", rf.Project, "path", targetDir, "attempt", attempt+1, "error", err)

		if errors.Is(err, context.Canceled) {
			return "", false, fmt.Errorf("download canceled: %w", err)
		}
	}

	return "", false, lastErr
}

func (d *RoboflowDownloader) downloadOnce(ctx context.Context, rf config.RoboflowSource, targetDir string) error {
	link, err := d.exportLink(ctx, rf)
	if errors.Is(err, ErrMissingExport) {
		slog.Info("Requesting dataset export", "project", rf.Project, "format", rf.Format)
		if reqErr := d.requestExport(ctx, rf); reqErr != nil {
			return reqErr
		}
		link, err = d.awaitExport(ctx, rf)
	}
	if err != nil {
		return err
	}

	archive := filepath.Join(targetDir, archiveFilename)
	size, err := d.fetch(ctx, link, archive)
	if err != nil {
		return err
	}
	slog.Info("Dataset archive downloaded", "path", archive, "size", humanize.Bytes(uint64(size)))

	if err := Unzip(archive, targetDir); err != nil {
		return err
	}

	if err := os.Remove(archive); err != nil {
		slog.Warn("Failed to remove dataset archive", "path", archive, "error", err)
	}

	return nil
}

// exportURL mirrors the Roboflow client: {api}/{workspace}/{project}/{version}/{format}.
func (d *RoboflowDownloader) exportURL(rf config.RoboflowSource) string {
	base := d.apiURL
	if rf.APIURL != "" {
		base = rf.APIURL
	}
	if base == "" {
		base = defaultRoboflowAPIURL
	}

	u := fmt.Sprintf("%s/%s/%s/%d/%s", base,
		url.PathEscape(rf.Workspace), url.PathEscape(rf.Project), rf.Version, url.PathEscape(rf.Format))
	return u + "?" + url.Values{"api_key": {d.apiKey}, "nocache": {"true"}}.Encode()
}

func (d *RoboflowDownloader) exportLink(ctx context.Context, rf config.RoboflowSource) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.exportURL(rf), http.NoBody)
	if err != nil {
		return "", pkgerrors.Wrap(redact(err), "failed to create export request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(redact(err), "failed to query roboflow export")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", pkgerrors.Errorf("roboflow export lookup returned %s: %s", resp.Status, body)
	}

	var payload exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(err, "failed to decode roboflow export response")
	}

	if payload.Export == nil || payload.Export.Link == "" {
		return "", ErrMissingExport
	}

	return payload.Export.Link, nil
}

// requestExport asks Roboflow to generate the export; the next lookup picks it up.
func (d *RoboflowDownloader) requestExport(ctx context.Context, rf config.RoboflowSource) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.exportURL(rf), http.NoBody)
	if err != nil {
		return pkgerrors.Wrap(redact(err), "failed to create export generation request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(redact(err), "failed to request roboflow export")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.Errorf("roboflow export generation returned %s", resp.Status)
	}

	return nil
}

// awaitExport polls the export lookup until Roboflow has generated the export.
func (d *RoboflowDownloader) awaitExport(ctx context.Context, rf config.RoboflowSource) (string, error) {
	deadline := time.Now().Add(d.exportTimeout)
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for export canceled: %w", ctx.Err())
		case <-time.After(d.exportInterval):
		}

		link, err := d.exportLink(ctx, rf)
		if !errors.Is(err, ErrMissingExport) {
			return link, err
		}

		if time.Now().After(deadline) {
			return "", pkgerrors.Wrapf(err, "export %s/%d/%s not ready after %s", rf.Project, rf.Version, rf.Format, d.exportTimeout)
		}
		slog.Debug("Waiting for dataset export", "project", rf.Project, "format", rf.Format)
	}
}

// fetch downloads link into filePath, showing a progress bar when enabled.
func (d *RoboflowDownloader) fetch(ctx context.Context, link, filePath string) (size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to create download request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed downloading dataset archive")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, pkgerrors.Errorf("dataset archive download returned %s", resp.Status)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed creating file %q", filePath)
	}

	var w io.Writer = file
	if d.progressBar {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading dataset")
		defer func() { _ = bar.Close() }()
		w = io.MultiWriter(file, bar)
	}

	size, err = io.Copy(w, resp.Body)
	if err != nil {
		_ = file.Close()
		return 0, pkgerrors.Wrapf(err, "downloading to %q", filePath)
	}

	if err := file.Close(); err != nil {
		return 0, pkgerrors.Wrapf(err, "failed closing %q", filePath)
	}

	return size, nil
}

// markerContent generates the expected content of the marker file.
// Used to detect if we need to redownload due to config change.
func (d *RoboflowDownloader) markerContent(rf config.RoboflowSource) string {
	return fmt.Sprintf("workspace: %s\nproject: %s\nversion: %d\nformat: %s\n", rf.Workspace, rf.Project, rf.Version, rf.Format)
}

// shouldRedownload checks if the dataset should be redownloaded by comparing marker content.
func (d *RoboflowDownloader) shouldRedownload(markerPath, expectedContent string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		slog.Debug("Marker file missing or unreadable", "path", markerPath, "error", err)
		return true
	}

	if string(content) != expectedContent {
		slog.Info("Dataset config changed (marker mismatch), will redownload",
			"marker_path", markerPath,
			"expected_snippet", expectedContent,
			"actual_snippet", string(content))
		return true
	}

	return false
}

// redact strips the query string, which carries the API key, from URL errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		}
	}
	return err
}
