package backend

import (
	"context"
	"time"

	"github.com/ekisa-team/toolvision/internal/config"
)

// Provider is a string identifier for a training/inference framework.
type Provider string

const (
	ProviderUltralytics Provider = "ultralytics"
)

// Trainer is the single seam between toolvision and the external framework
// that owns model construction, the training loop and NMS.
type Trainer interface {
	// Provider returns the backend identifier.
	Provider() Provider

	// Train runs a (possibly resumed) training job and blocks until it finishes.
	Train(ctx context.Context, req *TrainRequest) (*TrainResult, error)

	// Predict runs inference and returns per-frame detections.
	Predict(ctx context.Context, req *PredictRequest) (*PredictResult, error)

	// Close cleans up resources.
	Close() error
}

// TrainRequest is the configuration record handed to the framework's train entry point.
type TrainRequest struct {
	// Data is the path to the dataset manifest.
	Data string

	// Model is a weights path or a base model identifier.
	Model string

	// Device is "cpu" or a GPU index.
	Device string

	Epochs   int
	Patience int
	Batch    int
	ImgSize  int

	// Project and Name form the run directory, Project/Name.
	Project string
	Name    string

	// Resume continues the run the Model checkpoint belongs to.
	Resume bool

	Augmentation config.Augmentation
}

// TrainResult reports where a training run wrote its artifacts.
type TrainResult struct {
	SaveDir     string
	BestWeights string
	LastWeights string
	Duration    time.Duration
}

// PredictRequest is the configuration record handed to the framework's predict entry point.
type PredictRequest struct {
	Model   string
	Source  string
	Device  string
	Conf    float64
	IoU     float64
	ImgSize int
	Save    bool
	Show    bool

	// Project and Name override where predictions are written.
	Project string
	Name    string

	// ClassNames maps class ids to names. Missing ids are rendered as "class_<id>".
	ClassNames []string
}

// PredictResult contains the result of an inference run.
type PredictResult struct {
	SaveDir string
	Frames  []Frame
}

// Frame holds the detections for one image or video frame.
type Frame struct {
	// Index is the 1-based position of the frame in the run output.
	Index int `json:"index"`

	// Source is the image or video the frame came from.
	Source string `json:"source"`

	// VideoFrame is the frame number inside a video, 0 for still images.
	VideoFrame int `json:"video_frame,omitempty"`

	Detections []Detection `json:"detections"`
}

// Detection is an object the model found in a frame.
type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Box is a normalized center/size bounding box.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// StreamChunk represents a single line of output from a running command.
type StreamChunk struct {
	// Data is the line content, without its terminator.
	Data []byte

	// Stderr is set when the line was read from the standard error stream.
	Stderr bool

	// Done indicates if this is the final chunk.
	Done bool

	// Error if something went wrong.
	Error error
}
