package prompt

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/logging"
)

// Watcher reloads a registry when its prompt file changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	path     string
	bus      *event.Bus
	log      zerolog.Logger

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewWatcher creates a watcher for path. bus may be nil.
func NewWatcher(registry *Registry, path string, bus *event.Bus) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the parent directory; editors often replace files by rename.
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		registry: registry,
		path:     absPath,
		bus:      bus,
		log:      logging.Component("prompt"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("prompt watcher error")
		}
	}
}

func (w *Watcher) reload() {
	if err := w.registry.LoadFile(context.Background(), w.path); err != nil {
		// Partial writes are common; the next event retries.
		w.log.Warn().Err(err).Str("path", w.path).Msg("prompt reload failed, keeping previous prompts")
		return
	}

	names := w.registry.List()
	w.log.Info().Str("path", w.path).Int("count", len(names)).Msg("prompts reloaded")

	if w.bus != nil {
		w.bus.Publish(event.Event{
			Type: event.PromptsReloaded,
			Data: event.PromptsReloadedData{Path: w.path, Names: names},
		})
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
