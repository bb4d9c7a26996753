package curriculum

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultReloadDelay batches rapid saves of the curriculum file.
const DefaultReloadDelay = 250 * time.Millisecond

// Watcher reloads a FileProvider when its file changes and then calls
// onReload, typically TopicCache.Reset.
type Watcher struct {
	provider *FileProvider
	onReload func()
	logger   *zap.Logger
	delay    time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for provider's file.
func NewWatcher(provider *FileProvider, onReload func(), logger *zap.Logger) (*Watcher, error) {
	if provider.Path() == "" {
		return nil, errors.New("curriculum: built-in curriculum cannot be watched")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		provider: provider,
		onReload: onReload,
		logger:   logger,
		delay:    DefaultReloadDelay,
		watcher:  fw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	// Editors often replace files by rename, so watch the directory.
	if err := w.watcher.Add(filepath.Dir(w.provider.Path())); err != nil {
		return err
	}
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("close curriculum watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	target := filepath.Clean(w.provider.Path())
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.delay)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("curriculum watcher error", zap.Error(err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	if err := w.provider.Reload(); err != nil {
		w.logger.Warn("curriculum reload failed, keeping previous version",
			zap.String("path", w.provider.Path()), zap.Error(err))
		return
	}
	w.logger.Info("curriculum reloaded", zap.String("path", w.provider.Path()))
	if w.onReload != nil {
		w.onReload()
	}
}
