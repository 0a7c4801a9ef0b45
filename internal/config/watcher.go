package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/govbizai/matchcore/pkg/types"
)

// ReloadEvent reports the outcome of one hot-reload attempt.
type ReloadEvent struct {
	Timestamp time.Time
	Config    types.Config
	Error     error
}

// Watcher monitors a config file on disk and reloads it on change,
// debouncing bursts of filesystem events into a single reload. Adapted
// from the teacher's internal/policy.FileWatcher, narrowed from a
// directory of policy files to a single YAML config file (spec.md
// §6.5 values can change between batch runs without a restart).
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *zap.Logger

	current atomic.Value // types.Config

	debounceTimeout time.Duration
	mu              sync.Mutex
	debounceTimer   *time.Timer

	eventChan chan ReloadEvent
	stopChan  chan struct{}
	isWatching bool
}

// NewWatcher builds a Watcher over path, seeded with the already-loaded
// initial config.
func NewWatcher(path string, initial types.Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:         fsw,
		path:            path,
		logger:          logger,
		debounceTimeout: 500 * time.Millisecond,
		eventChan:       make(chan ReloadEvent, 4),
		stopChan:        make(chan struct{}),
	}
	w.current.Store(initial)
	return w, nil
}

// Watch starts watching path's parent directory (fsnotify does not
// reliably watch a single file across editors' write-replace-rename
// sequences) and reloads on any event naming path itself.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.isWatching {
		w.mu.Unlock()
		return fmt.Errorf("config watcher already running")
	}
	w.isWatching = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.isWatching = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.logger.Info("watching config file for changes", zap.String("path", w.path))
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.isWatching = false
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			w.debounce()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceTimeout, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path, w.logger)
	event := ReloadEvent{Timestamp: time.Now(), Config: cfg, Error: err}
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config", zap.Error(err))
	} else {
		w.current.Store(cfg)
		w.logger.Info("config reloaded", zap.String("path", w.path))
	}
	select {
	case w.eventChan <- event:
	default:
		w.logger.Warn("config reload event dropped, channel full")
	}
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() types.Config {
	return w.current.Load().(types.Config)
}

// Events returns the channel reload outcomes are published on.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.eventChan
}

// Stop stops watching and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isWatching {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	return w.watcher.Close()
}
