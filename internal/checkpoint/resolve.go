package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ekisa-team/toolvision/internal/xfs"
)

const (
	WeightsDir  = "weights"
	LastWeights = "last.pt"
	BestWeights = "best.pt"
)

// Kind tells which artifact a Resolution points at.
type Kind string

const (
	// KindLast is the most recent epoch checkpoint.
	KindLast Kind = "last"

	// KindBest is the lowest validation loss checkpoint.
	KindBest Kind = "best"

	// KindBase is the base model identifier used when no checkpoint exists.
	KindBase Kind = "base"
)

// Resolution is the outcome of checkpoint resolution.
type Resolution struct {
	// RunDir is the selected run directory, empty when no run matched.
	RunDir string

	// Weights is the weights path, or the base model identifier for KindBase.
	Weights string

	Kind Kind
}

// HasRun reports whether a run directory was found.
func (r Resolution) HasRun() bool {
	return r.RunDir != ""
}

// RunName returns the base name of the selected run directory.
func (r Resolution) RunName() string {
	if r.RunDir == "" {
		return ""
	}
	return filepath.Base(r.RunDir)
}

// ListRuns returns the run directories under baseDir whose name starts with
// prefix, latest first. "Latest" is plain descending lexicographic order, so
// unpadded suffixes sort wrong: run9 comes before run10.
func ListRuns(baseDir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs in %s: %w", baseDir, err)
	}

	var runs []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		runs = append(runs, entry.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))

	for i, name := range runs {
		runs[i] = filepath.Join(baseDir, name)
	}

	return runs, nil
}

// Resolve picks the checkpoint to resume from: the latest run's last.pt,
// else its best.pt, else baseModel. Missing runs are not an error; the
// returned Resolution has an empty RunDir and KindBase.
func Resolve(baseDir, prefix, baseModel string) (Resolution, error) {
	runs, err := ListRuns(baseDir, prefix)
	if err != nil {
		return Resolution{}, err
	}

	if len(runs) == 0 {
		return Resolution{Weights: baseModel, Kind: KindBase}, nil
	}

	latest := runs[0]
	weights := filepath.Join(latest, WeightsDir)

	if last := filepath.Join(weights, LastWeights); xfs.IsFile(last) {
		return Resolution{RunDir: latest, Weights: last, Kind: KindLast}, nil
	}
	if best := filepath.Join(weights, BestWeights); xfs.IsFile(best) {
		return Resolution{RunDir: latest, Weights: best, Kind: KindBest}, nil
	}

	return Resolution{RunDir: latest, Weights: baseModel, Kind: KindBase}, nil
}
