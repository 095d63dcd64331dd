package checkpoint

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Event reports a checkpoint file written by the training framework.
type Event struct {
	Path  string
	Kind  Kind
	Count uint32
}

// Watcher watches a runs directory and reports last.pt/best.pt writes while training is running.
type Watcher struct {
	root     string
	onSave   func(Event)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	saves    atomic.Uint32
	timers   map[string]*time.Timer
	mu       sync.Mutex
	done     chan struct{}
	closed   sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a checkpoint file must be quiet before it is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher starts watching root (created if missing) and every directory below it.
// onSave may be nil.
func NewWatcher(root string, onSave func(Event), opts ...WatcherOption) (*Watcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		onSave:   onSave,
		watcher:  fw,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(root, false); err != nil {
		_ = fw.Close()
		return nil, err
	}

	go w.watch()

	return w, nil
}

// addTree watches dir and its subdirectories. With report set, checkpoint
// files already present are reported, covering writes that raced the watch.
func (w *Watcher) addTree(dir string, report bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}

		if report {
			w.schedule(path)
		}
		return nil
	})
}

// watch processes file system events until Close.
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name, true); err != nil {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}

// schedule debounces a report for path if it is a checkpoint file.
func (w *Watcher) schedule(path string) {
	kind, ok := kindOf(path)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.report(path, kind)
	})
}

func (w *Watcher) report(path string, kind Kind) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	count := w.saves.Add(1)
	slog.Info("Checkpoint saved", "kind", kind, "path", path, "count", count)

	if w.onSave != nil {
		w.onSave(Event{Path: path, Kind: kind, Count: count})
	}
}

// Saves returns the number of checkpoint writes reported so far.
func (w *Watcher) Saves() uint32 {
	return w.saves.Load()
}

// Close stops watching. Pending reports are dropped.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		w.mu.Lock()
		close(w.done)
		for _, timer := range w.timers {
			timer.Stop()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func kindOf(path string) (Kind, bool) {
	if filepath.Base(filepath.Dir(path)) != WeightsDir {
		return "", false
	}

	switch filepath.Base(path) {
	case LastWeights:
		return KindLast, true
	case BestWeights:
		return KindBest, true
	default:
		return "", false
	}
}
