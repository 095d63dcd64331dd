package service

import (
	"context"
	"log/slog"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/dataset"
	"github.com/ekisa-team/toolvision/internal/xfs"
)

// PredictOptions are the inference inputs, mirroring the predict command's flags.
type PredictOptions struct {
	Model   string
	Source  string
	Conf    float64
	IoU     float64
	ImgSize int
	Save    bool
	Show    bool

	// Data is an optional manifest used for class names.
	Data string
}

// Inference runs predictions with trained weights.
type Inference struct {
	config  *config.Config
	trainer backend.Trainer
}

// NewInference creates a new Inference service.
func NewInference(cfg *config.Config, trainer backend.Trainer) *Inference {
	return &Inference{
		config:  cfg,
		trainer: trainer,
	}
}

// Predict runs the framework's predict entry point on opts.Source.
func (s *Inference) Predict(ctx context.Context, opts PredictOptions) (*backend.PredictResult, error) {
	slog.Info("Loading model from", "model", opts.Model)

	names, err := s.classNames(opts.Data)
	if err != nil {
		return nil, err
	}

	slog.Info("Running inference on", "source", opts.Source)

	return s.trainer.Predict(ctx, &backend.PredictRequest{
		Model:      opts.Model,
		Source:     opts.Source,
		Conf:       opts.Conf,
		IoU:        opts.IoU,
		ImgSize:    opts.ImgSize,
		Save:       opts.Save,
		Show:       opts.Show,
		Project:    s.config.Predict.Project,
		Name:       s.config.Predict.Name,
		ClassNames: names,
	})
}

// classNames loads class names from data, or from the local dataset manifest
// when data is empty. Only an explicit data path is required to exist.
func (s *Inference) classNames(data string) ([]string, error) {
	if data == "" {
		candidate, err := dataset.ManifestPath(s.config.DatasetDir(), s.config.Dataset.Manifest)
		if err != nil || !xfs.IsFile(candidate) {
			slog.Warn("No dataset manifest found, detections are labelled class_<id>; pass --data for class names", "dataset_dir", s.config.DatasetDir())
			return nil, nil
		}
		data = candidate
	}

	manifest, err := dataset.LoadManifest(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded class names", "manifest", manifest.Path, "classes", len(manifest.Names))
	return manifest.Names, nil
}
