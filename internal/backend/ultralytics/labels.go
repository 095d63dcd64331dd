package ultralytics

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekisa-team/toolvision/internal/backend"
)

// labelPath returns the label file the framework writes for a frame:
// labels/<stem>.txt for images, labels/<stem>_<frame>.txt for video frames.
func labelPath(saveDir string, ref frameRef) string {
	base := filepath.Base(ref.source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if ref.video {
		stem = fmt.Sprintf("%s_%d", stem, ref.videoFrame)
	}
	return filepath.Join(saveDir, "labels", stem+".txt")
}

// readFrames loads the detections of every referenced frame.
// Frames without a label file had no detections.
func readFrames(saveDir string, refs []frameRef, classNames []string) ([]backend.Frame, error) {
	frames := make([]backend.Frame, 0, len(refs))
	for i, ref := range refs {
		detections, err := readLabelFile(labelPath(saveDir, ref), classNames)
		if err != nil {
			return nil, err
		}

		frames = append(frames, backend.Frame{
			Index:      i + 1,
			Source:     ref.source,
			VideoFrame: ref.videoFrame,
			Detections: detections,
		})
	}

	return frames, nil
}

// readLabelFile parses "cls x y w h conf" lines.
func readLabelFile(path string, classNames []string) ([]backend.Detection, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var detections []backend.Detection
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 6 {
			return nil, fmt.Errorf("%s:%d: expected 6 fields, got %d", path, lineNo, len(fields))
		}

		classID, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: class id: %w", path, lineNo, err)
		}

		var values [5]float64
		for i := range values {
			if values[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
				return nil, fmt.Errorf("%s:%d: field %d: %w", path, lineNo, i+2, err)
			}
		}

		detections = append(detections, backend.Detection{
			ClassID:    classID,
			ClassName:  className(classNames, classID),
			Confidence: values[4],
			Box:        backend.Box{X: values[0], Y: values[1], W: values[2], H: values[3]},
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}

	return detections, nil
}

func className(names []string, id int) string {
	if id >= 0 && id < len(names) && names[id] != "" {
		return names[id]
	}
	return fmt.Sprintf("class_%d", id)
}
