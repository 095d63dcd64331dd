package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the default path for the toolvision config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "toolvision", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "toolvision")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "toolvision")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "toolvision")
		}
		return filepath.Join(home, ".config", "toolvision")
	}
}

// surgicalAugmentation favours colour jitter over geometry: surgical cameras are
// mostly static while lighting, blood and metal reflections vary a lot.
func surgicalAugmentation(closeMosaic int) Augmentation {
	return Augmentation{
		Mosaic:      1.0,
		CloseMosaic: closeMosaic,
		Perspective: 0.0,
		Degrees:     10.0,
		Scale:       0.3,
		Translate:   0.1,
		Shear:       0.0,
		HSVH:        0.01,
		HSVS:        0.5,
		HSVV:        0.3,
		FlipLR:      0.5,
		MixUp:       0.0,
		CopyPaste:   0.1,
	}
}

// DefaultConfig returns the built-in configuration for the Cholec80 surgical tool dataset.
func DefaultConfig() *Config {
	return &Config{
		Version: "v1",
		Storage: StorageConfig{
			WorkDir: ".",
			RunsDir: "surgical_tool_training_runs",
		},
		Dataset: DatasetConfig{
			Dir:         "Cholec80.v3-cholec80-10.yolov11",
			Manifest:    "data.yaml",
			DownloadDir: filepath.Join("datasets", "cholec80"),
			Source: SourceConfig{
				Roboflow: &RoboflowSource{
					Workspace: "daad-mobility",
					Project:   "cholec80",
					Version:   3,
					Format:    "yolov11",
				},
			},
		},
		Backend: BackendConfig{
			Provider: "ultralytics",
			Binary:   "yolo",
			Task:     "detect",
		},
		Model: ModelConfig{
			Base: "yolo11m.pt",
		},
		Profiles: ProfilesConfig{
			Train: TrainProfile{
				Name:         "yolo11m_cholec80_run1",
				Epochs:       100,
				Patience:     20,
				Batch:        -1,
				ImgSize:      1280,
				Augmentation: surgicalAugmentation(10),
			},
			Finetune: TrainProfile{
				Name:         "yolo11m_cholec80_finetune_imgsz1280_run1",
				Epochs:       30,
				Patience:     10,
				Batch:        4,
				ImgSize:      1280,
				Augmentation: surgicalAugmentation(5),
			},
			Resume: TrainProfile{
				Epochs:       100,
				Patience:     20,
				Batch:        -1,
				ImgSize:      1280,
				Augmentation: surgicalAugmentation(10),
			},
		},
		Resume: ResumeConfig{
			RunPrefix: "yolo11m_cholec80_run",
		},
		Predict: PredictConfig{
			Conf:    0.25,
			IoU:     0.45,
			ImgSize: 1280,
		},
	}
}
