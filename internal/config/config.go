package config

import (
	"errors"
)

// SourceType represents the type of dataset source.
type SourceType string

const (
	// SourceTypeRoboflow represents a Roboflow dataset version export.
	SourceTypeRoboflow SourceType = "roboflow"
)

// Config holds the main configuration for the application.
type Config struct {
	Version  string         `json:"version"           yaml:"version"`
	Storage  StorageConfig  `json:"storage,omitempty" yaml:"storage,omitempty"`
	Dataset  DatasetConfig  `json:"dataset"           yaml:"dataset"`
	Backend  BackendConfig  `json:"backend"           yaml:"backend"`
	Model    ModelConfig    `json:"model"             yaml:"model"`
	Profiles ProfilesConfig `json:"profiles"          yaml:"profiles"`
	Resume   ResumeConfig   `json:"resume"            yaml:"resume"`
	Predict  PredictConfig  `json:"predict"           yaml:"predict"`
}

// StorageConfig holds the directories datasets and training runs live in.
type StorageConfig struct {
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	RunsDir string `json:"runs_dir,omitempty" yaml:"runs_dir,omitempty"`
}

// DatasetConfig describes where the dataset is expected locally and where it comes from otherwise.
type DatasetConfig struct {
	Dir         string       `json:"dir"          yaml:"dir"`
	Manifest    string       `json:"manifest"     yaml:"manifest"`
	DownloadDir string       `json:"download_dir" yaml:"download_dir"`
	Source      SourceConfig `json:"source"       yaml:"source"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	Roboflow *RoboflowSource `json:"roboflow,omitempty" yaml:"roboflow,omitempty"`
}

// BackendConfig selects the external training/inference framework.
type BackendConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Binary   string `json:"binary"   yaml:"binary"`
	Task     string `json:"task"     yaml:"task"`
}

// ModelConfig holds the base model identifier used when no trained weights apply.
type ModelConfig struct {
	Base string `json:"base" yaml:"base"`
}

// ProfilesConfig holds one training profile per training command.
type ProfilesConfig struct {
	Train    TrainProfile `json:"train"    yaml:"train"`
	Finetune TrainProfile `json:"finetune" yaml:"finetune"`
	Resume   TrainProfile `json:"resume"   yaml:"resume"`
}

// TrainProfile is the hyperparameter record handed to the training framework.
type TrainProfile struct {
	Name         string       `json:"name"              yaml:"name"`
	Weights      string       `json:"weights,omitempty" yaml:"weights,omitempty"`
	Epochs       int          `json:"epochs"            yaml:"epochs"`
	Patience     int          `json:"patience"          yaml:"patience"`
	Batch        int          `json:"batch"             yaml:"batch"` // -1 lets the framework pick
	ImgSize      int          `json:"imgsz"             yaml:"imgsz"`
	Augmentation Augmentation `json:"augmentation"      yaml:"augmentation"`
}

// Augmentation holds augmentation magnitudes.
type Augmentation struct {
	Mosaic      float64 `json:"mosaic"       yaml:"mosaic"`
	CloseMosaic int     `json:"close_mosaic" yaml:"close_mosaic"`
	Perspective float64 `json:"perspective"  yaml:"perspective"`
	Degrees     float64 `json:"degrees"      yaml:"degrees"`
	Scale       float64 `json:"scale"        yaml:"scale"`
	Translate   float64 `json:"translate"    yaml:"translate"`
	Shear       float64 `json:"shear"        yaml:"shear"`
	HSVH        float64 `json:"hsv_h"        yaml:"hsv_h"`
	HSVS        float64 `json:"hsv_s"        yaml:"hsv_s"`
	HSVV        float64 `json:"hsv_v"        yaml:"hsv_v"`
	FlipLR      float64 `json:"fliplr"       yaml:"fliplr"`
	MixUp       float64 `json:"mixup"        yaml:"mixup"`
	CopyPaste   float64 `json:"copy_paste"   yaml:"copy_paste"`
}

// ResumeConfig holds the run directory prefix scanned when resuming.
type ResumeConfig struct {
	RunPrefix string `json:"run_prefix" yaml:"run_prefix"`
}

// PredictConfig holds inference defaults.
type PredictConfig struct {
	Project string  `json:"project,omitempty" yaml:"project,omitempty"`
	Name    string  `json:"name,omitempty"    yaml:"name,omitempty"`
	Conf    float64 `json:"conf"              yaml:"conf"`
	IoU     float64 `json:"iou"               yaml:"iou"`
	ImgSize int     `json:"imgsz"             yaml:"imgsz"`
}

// -------------------------
// Source definitions
// -------------------------

// DatasetSource represents a remote source for a dataset.
type DatasetSource interface {
	Type() SourceType
}

// RoboflowSource represents a dataset version hosted on Roboflow.
// The API key is never stored in config; it is read from ROBOFLOW_API_KEY.
type RoboflowSource struct {
	Workspace     string `json:"workspace"                yaml:"workspace"`
	Project       string `json:"project"                  yaml:"project"`
	Version       int    `json:"version"                  yaml:"version"`
	Format        string `json:"format"                   yaml:"format"`
	APIURL        string `json:"api_url,omitempty"        yaml:"api_url,omitempty"`
	ForceDownload bool   `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Roboflow source type.
func (r RoboflowSource) Type() SourceType {
	return SourceTypeRoboflow
}

// GetSource returns the active source for the dataset.
func (d *DatasetConfig) GetSource() (DatasetSource, error) {
	if d.Source.Roboflow != nil {
		return *d.Source.Roboflow, nil
	}

	return nil, errors.New("no source configured for dataset")
}

// SetRoboflowSource sets the Roboflow source.
func (d *DatasetConfig) SetRoboflowSource(source RoboflowSource) {
	d.Source.Roboflow = &source
}
