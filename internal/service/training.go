package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/checkpoint"
	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/device"
)

// ManifestLocator finds the dataset manifest, fetching the dataset if needed.
type ManifestLocator interface {
	LocateManifest(ctx context.Context) (string, error)
}

// Training runs train, finetune and resume jobs.
type Training struct {
	config  *config.Config
	trainer backend.Trainer
	locator ManifestLocator
	probe   device.Probe
	watch   bool
}

// TrainingOption configures Training.
type TrainingOption func(*Training)

// WithCheckpointWatch logs checkpoint writes under the runs directory while training.
func WithCheckpointWatch(enabled bool) TrainingOption {
	return func(s *Training) {
		s.watch = enabled
	}
}

// NewTraining creates a new Training service.
func NewTraining(cfg *config.Config, trainer backend.Trainer, locator ManifestLocator, probe device.Probe, opts ...TrainingOption) *Training {
	s := &Training{
		config:  cfg,
		trainer: trainer,
		locator: locator,
		probe:   probe,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Train trains the base model with the train profile.
func (s *Training) Train(ctx context.Context) (*backend.TrainResult, error) {
	return s.run(ctx, s.config.Profiles.Train, s.config.Model.Base, false)
}

// Finetune fine-tunes weights with the finetune profile. An empty weights
// falls back to the profile's weights, then to the base model.
func (s *Training) Finetune(ctx context.Context, weights string) (*backend.TrainResult, error) {
	profile := s.config.Profiles.Finetune

	model := weights
	if model == "" {
		model = profile.Weights
	}
	if model == "" {
		model = s.config.Model.Base
	}

	return s.run(ctx, profile, model, false)
}

// Resume continues the latest run. Without any run it returns checkpoint.ErrNoRuns
// and does not start a fresh training.
func (s *Training) Resume(ctx context.Context) (*backend.TrainResult, error) {
	dev, _ := device.Select(ctx, s.probe)

	runsDir := s.config.RunsDir()
	resolution, err := checkpoint.Resolve(runsDir, s.config.Resume.RunPrefix, s.config.Model.Base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve checkpoint: %w", err)
	}

	if !resolution.HasRun() {
		slog.Warn("No previous training runs found", "runs_dir", runsDir, "prefix", s.config.Resume.RunPrefix)
		return nil, checkpoint.ErrNoRuns
	}

	switch resolution.Kind {
	case checkpoint.KindLast:
		slog.Info("Resuming from checkpoint", "path", resolution.Weights)
	case checkpoint.KindBest:
		slog.Info("Resuming from best weights", "path", resolution.Weights)
	default:
		slog.Warn("No checkpoint found in run, starting from base model", "run", resolution.RunDir, "model", resolution.Weights)
	}

	manifest, err := s.locator.LocateManifest(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Training with dataset", "manifest", manifest)
	slog.Info("Resuming training in", "run", resolution.RunDir)

	profile := s.config.Profiles.Resume
	profile.Name = resolution.RunName()

	return s.train(ctx, s.request(profile, manifest, resolution.Weights, dev, true))
}

// run is the shared train/finetune flow: device, dataset, invoke.
func (s *Training) run(ctx context.Context, profile config.TrainProfile, model string, resume bool) (*backend.TrainResult, error) {
	dev, _ := device.Select(ctx, s.probe)

	manifest, err := s.locator.LocateManifest(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Training with dataset", "manifest", manifest, "model", model, "run", profile.Name)

	return s.train(ctx, s.request(profile, manifest, model, dev, resume))
}

func (s *Training) request(profile config.TrainProfile, manifest, model string, dev device.Device, resume bool) *backend.TrainRequest {
	return &backend.TrainRequest{
		Data:         manifest,
		Model:        model,
		Device:       string(dev),
		Epochs:       profile.Epochs,
		Patience:     profile.Patience,
		Batch:        profile.Batch,
		ImgSize:      profile.ImgSize,
		Project:      s.config.RunsDir(),
		Name:         profile.Name,
		Resume:       resume,
		Augmentation: profile.Augmentation,
	}
}

func (s *Training) train(ctx context.Context, req *backend.TrainRequest) (*backend.TrainResult, error) {
	if s.watch {
		watcher, err := checkpoint.NewWatcher(req.Project, nil)
		if err != nil {
			slog.Warn("Checkpoint watcher disabled", "error", err)
		} else {
			defer func() {
				slog.Debug("Checkpoint watcher stopped", "saves", watcher.Saves())
				_ = watcher.Close()
			}()
		}
	}

	res, err := s.trainer.Train(ctx, req)
	if err != nil {
		return nil, err
	}

	slog.Info("Training finished", "save_dir", res.SaveDir, "duration", res.Duration)
	return res, nil
}
