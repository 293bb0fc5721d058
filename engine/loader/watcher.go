package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/fsnotify/fsnotify"
)

func (l *loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		w.Close()
		return ErrClosed
	}
	if l.watcher != nil {
		l.mu.Unlock()
		w.Close()
		return fmt.Errorf("loader is already watching")
	}
	l.watcher = w
	clear(l.watchedDirs)
	for path := range l.paths {
		l.watchDirLocked(filepath.Dir(path))
	}
	l.mu.Unlock()

	go l.watchLoop(ctx, w)
	common.Logger().Info("asset hot reload enabled", "root", l.root)
	return nil
}

// watchDirLocked adds dir to the active watcher once. Must be called with l.mu held.
func (l *loader) watchDirLocked(dir string) {
	if l.watcher == nil || l.watchedDirs[dir] {
		return
	}
	if err := l.watcher.Add(dir); err != nil {
		common.Logger().Warn("cannot watch asset directory", "dir", dir, "error", err)
		return
	}
	l.watchedDirs[dir] = true
}

// watchLoop collects file events and flushes them once per debounce interval, so an editor
// that writes a file in several steps triggers one reload.
func (l *loader) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	ticker := time.NewTicker(l.debounce)
	defer ticker.Stop()
	defer l.stopWatching(w)

	pending := make(map[string]fsnotify.Op)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.Events:
			if !ok {
				return
			}
			pending[filepath.Clean(evt.Name)] |= evt.Op
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("file watcher error", "error", err)
		case <-ticker.C:
			for path, op := range pending {
				l.handleFileEvent(path, op)
			}
			clear(pending)
		}
	}
}

func (l *loader) handleFileEvent(path string, op fsnotify.Op) {
	l.mu.Lock()
	h, known := l.paths[path]
	l.mu.Unlock()
	if !known {
		return
	}

	switch {
	case op.Has(fsnotify.Write) || op.Has(fsnotify.Create):
		common.Logger().Debug("asset changed on disk", "path", path, "op", op.String())
		if _, err := l.Reload(path); err != nil {
			common.Logger().Warn("asset reload not scheduled", "path", path, "error", err)
		}
	case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
		l.mu.Lock()
		delete(l.paths, path)
		l.done = append(l.done, completedLoad{path: path, handle: h, removed: true})
		l.mu.Unlock()
	}
}

func (l *loader) stopWatching(w *fsnotify.Watcher) {
	l.mu.Lock()
	if l.watcher == w {
		l.watcher = nil
	}
	l.mu.Unlock()
	w.Close()
}
