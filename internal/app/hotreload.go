package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// AssetWatcher watches asset files and calls a callback once changes
// settle. Editors write through temp files and renames, so the parent
// directories are watched and events are filtered by file name.
type AssetWatcher struct {
	watcher   *fsnotify.Watcher
	files     map[string]struct{}
	dirs      []string
	debouncer *Debouncer
	logger    *zap.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewAssetWatcher prepares a watcher for files. onChange runs on a timer
// goroutine, delay after the last relevant event.
func NewAssetWatcher(files []string, delay time.Duration, onChange func(), logger *zap.Logger) (*AssetWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &AssetWatcher{
		watcher: watcher,
		files:   make(map[string]struct{}, len(files)),
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	seen := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = filepath.Clean(f)
		}
		w.files[abs] = struct{}{}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	w.debouncer = NewDebouncer(delay, onChange)
	return w, nil
}

// Start begins watching. It returns once every directory is registered.
func (w *AssetWatcher) Start(ctx context.Context) error {
	watched := 0
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("Failed to watch asset directory",
				zap.String("path", dir),
				zap.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 && len(w.dirs) > 0 {
		return fmt.Errorf("failed to watch any of %d asset directories", len(w.dirs))
	}

	w.logger.Info("Started asset watcher",
		zap.Int("files", len(w.files)),
		zap.Int("directories", watched))

	go w.watchLoop(ctx)
	return nil
}

func (w *AssetWatcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return

		case <-ctx.Done():
			w.logger.Info("Asset watcher context cancelled")
			return
		}
	}
}

func (w *AssetWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Clean(event.Name)
	if strings.HasSuffix(name, "~") || strings.HasPrefix(filepath.Base(name), ".") {
		return
	}
	if _, ok := w.files[name]; !ok {
		return
	}
	w.logger.Debug("Asset changed", zap.String("file", name), zap.String("operation", event.Op.String()))
	w.debouncer.Trigger()
}

// Stop ends the watch loop and cancels a pending callback.
func (w *AssetWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.debouncer.Stop()
		close(w.stopCh)
		err = w.watcher.Close()
	})
	return err
}

// Done is closed when the watch loop exits.
func (w *AssetWatcher) Done() <-chan struct{} {
	return w.doneCh
}
