package ultralytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSaveDir(t *testing.T) {
	dir, ok := parseSaveDir("Results saved to \x1b[1mruns/detect/train2\x1b[0m")
	assert.True(t, ok)
	assert.Equal(t, "runs/detect/train2", dir)

	dir, ok = parseSaveDir("Results saved to /abs/surgical_tool_training_runs/yolo11m_cholec80_run1  ")
	assert.True(t, ok)
	assert.Equal(t, "/abs/surgical_tool_training_runs/yolo11m_cholec80_run1", dir)

	_, ok = parseSaveDir("Epoch 3/100")
	assert.False(t, ok)
}

func TestParseFrameLine(t *testing.T) {
	ref, ok := parseFrameLine("image 1/2 /data/frames/clip 01.jpg: 736x1280 2 Grasper, 1 Hook, 45.2ms")
	assert.True(t, ok)
	assert.Equal(t, frameRef{source: "/data/frames/clip 01.jpg"}, ref)

	ref, ok = parseFrameLine("video 1/1 (frame 5/300) /data/video01.mp4: 736x1280 (no detections), 10.2ms")
	assert.True(t, ok)
	assert.Equal(t, frameRef{source: "/data/video01.mp4", video: true, videoFrame: 5}, ref)

	ref, ok = parseFrameLine("0: 736x1280 2 Graspers, 1 Hook, 15.2ms")
	assert.True(t, ok)
	assert.Equal(t, frameRef{stream: true}, ref)

	_, ok = parseFrameLine("Speed: 1.2ms preprocess, 10.0ms inference per image")
	assert.False(t, ok)
}
