package ultralytics

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

	// "Results saved to runs/detect/train2"
	savedPattern = regexp.MustCompile(`Results saved to (.+?)\s*$`)

	// "image 1/2 /data/a.jpg: 736x1280 2 Grasper, 45.2ms"
	// "video 1/1 (frame 5/300) /data/v.mp4: 736x1280 (no detections), 10.2ms"
	framePattern = regexp.MustCompile(`^(image|video) \d+/\d+ (?:\(frame (\d+)/\d+\) )?(.+?): \d+x\d+ `)

	// "0: 736x1280 2 Graspers, 15.2ms" for streams and webcams
	streamPattern = regexp.MustCompile(`^\d+: \d+x\d+ `)
)

// frameRef identifies one predicted frame as reported on the console.
type frameRef struct {
	source     string
	video      bool
	videoFrame int

	// stream frames carry no source path to find their label file by.
	stream bool
}

// stripANSI removes terminal escape sequences.
func stripANSI(line string) string {
	return ansiPattern.ReplaceAllString(line, "")
}

// parseSaveDir extracts the run directory from a "Results saved to" line.
func parseSaveDir(line string) (string, bool) {
	m := savedPattern.FindStringSubmatch(stripANSI(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// parseFrameLine extracts the frame a per-frame inference line refers to.
func parseFrameLine(line string) (frameRef, bool) {
	line = strings.TrimSpace(stripANSI(line))

	m := framePattern.FindStringSubmatch(line)
	if m == nil {
		if streamPattern.MatchString(line) {
			return frameRef{stream: true}, true
		}
		return frameRef{}, false
	}

	ref := frameRef{source: m[3], video: m[1] == "video"}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return frameRef{}, false
		}
		ref.videoFrame = n
	}

	return ref, true
}
