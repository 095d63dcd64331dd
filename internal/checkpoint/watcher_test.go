package checkpoint

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() map[Kind]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	kinds := make(map[Kind]string)
	for _, e := range l.events {
		kinds[e.Kind] = e.Path
	}
	return kinds
}

func TestWatcher_ReportsCheckpointsInNewRuns(t *testing.T) {
	root := filepath.Join(t.TempDir(), "surgical_tool_training_runs")
	log := &eventLog{}

	w, err := NewWatcher(root, log.add, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	weights := filepath.Join(root, "yolo11m_cholec80_run1", WeightsDir)
	require.NoError(t, os.MkdirAll(weights, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(weights, LastWeights), []byte("epoch1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(weights, BestWeights), []byte("epoch1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(weights, "epoch1.pt"), []byte("epoch1"), 0o644))

	assert.Eventually(t, func() bool {
		return len(log.kinds()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	kinds := log.kinds()
	assert.Equal(t, filepath.Join(weights, LastWeights), kinds[KindLast])
	assert.Equal(t, filepath.Join(weights, BestWeights), kinds[KindBest])
	assert.GreaterOrEqual(t, w.Saves(), uint32(2))
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestKindOf(t *testing.T) {
	kind, ok := kindOf(filepath.Join("runs", "run1", WeightsDir, LastWeights))
	assert.True(t, ok)
	assert.Equal(t, KindLast, kind)

	_, ok = kindOf(filepath.Join("runs", "run1", LastWeights))
	assert.False(t, ok)

	_, ok = kindOf(filepath.Join("runs", "run1", WeightsDir, "epoch10.pt"))
	assert.False(t, ok)
}
