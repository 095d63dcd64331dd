package ultralytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ekisa-team/toolvision/internal/backend"
)

// Backend implements backend.Trainer on top of the Ultralytics `yolo` CLI.
type Backend struct {
	executor *backend.Executor
	task     string
	output   io.Writer
}

// Option configures the Backend.
type Option func(*Backend)

// WithOutput sets where the framework's console output is echoed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(b *Backend) {
		b.output = w
	}
}

// NewBackend creates a new Ultralytics backend for the given binary and task.
// Training has no deadline; it blocks until the framework exits.
func NewBackend(binary, task string, opts ...Option) (*Backend, error) {
	executor, err := backend.NewExecutor(binary, 0)
	if err != nil {
		return nil, err
	}

	return NewBackendWithExecutor(executor, task, opts...), nil
}

// NewBackendWithExecutor creates a backend around an existing executor.
func NewBackendWithExecutor(executor *backend.Executor, task string, opts ...Option) *Backend {
	if task == "" {
		task = "detect"
	}

	b := &Backend{
		executor: executor,
		task:     task,
		output:   os.Stdout,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Provider returns the backend provider.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderUltralytics
}

// Train runs `yolo <task> train` and reports the run directory it wrote to.
func (b *Backend) Train(ctx context.Context, req *backend.TrainRequest) (*backend.TrainResult, error) {
	args := buildTrainArgs(b.task, req)
	slog.Debug("Starting training", "binary", b.executor.BinaryPath(), "args", strings.Join(args, " "))

	start := time.Now()
	saveDir, err := b.run(ctx, args, nil)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	if saveDir == "" {
		saveDir = filepath.Join(req.Project, req.Name)
		slog.Warn("Framework did not report a save directory, assuming project/name", "save_dir", saveDir)
	}

	return &backend.TrainResult{
		SaveDir:     saveDir,
		BestWeights: filepath.Join(saveDir, "weights", "best.pt"),
		LastWeights: filepath.Join(saveDir, "weights", "last.pt"),
		Duration:    time.Since(start),
	}, nil
}

// Predict runs `yolo <task> predict` and reads the per-frame label files back.
func (b *Backend) Predict(ctx context.Context, req *backend.PredictRequest) (*backend.PredictResult, error) {
	args := buildPredictArgs(b.task, req)
	slog.Debug("Starting inference", "binary", b.executor.BinaryPath(), "args", strings.Join(args, " "))

	var (
		refs         []frameRef
		streamFrames int
	)
	saveDir, err := b.run(ctx, args, func(line string) {
		ref, ok := parseFrameLine(line)
		switch {
		case !ok:
		case ref.stream:
			streamFrames++
		default:
			refs = append(refs, ref)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	if streamFrames > 0 {
		slog.Warn("Per-frame detections are not collected for stream sources", "source", req.Source, "frames", streamFrames)
	}

	if saveDir == "" {
		if req.Project == "" || req.Name == "" {
			return nil, fmt.Errorf("inference finished but no save directory was reported")
		}
		saveDir = filepath.Join(req.Project, req.Name)
	}

	frames, err := readFrames(saveDir, refs, req.ClassNames)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}

	return &backend.PredictResult{
		SaveDir: saveDir,
		Frames:  frames,
	}, nil
}

// run streams the command's output to b.output, hands every line to onLine
// and returns the last reported save directory.
func (b *Backend) run(ctx context.Context, args []string, onLine func(string)) (string, error) {
	stream, err := b.executor.Stream(ctx, args, nil)
	if err != nil {
		return "", err
	}

	var saveDir string
	for chunk := range stream {
		if chunk.Done {
			if chunk.Error != nil {
				return "", chunk.Error
			}
			continue
		}

		line := string(chunk.Data)
		if _, err := fmt.Fprintln(b.output, line); err != nil {
			slog.Debug("Failed to echo framework output", "error", err)
		}

		if dir, ok := parseSaveDir(line); ok {
			saveDir = dir
		}
		if onLine != nil {
			onLine(line)
		}
	}

	return saveDir, nil
}

// Close cleans up resources. Each call spawns its own process, so there is nothing to release.
func (b *Backend) Close() error {
	return nil
}
