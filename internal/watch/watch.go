// internal/watch/watch.go
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher wraps fsnotify over a repository working directory and coalesces
// rapid event bursts into single change notifications.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	marker   string
	debounce time.Duration
	logger   *zap.Logger

	Changes chan string
	Errors  chan error
	done    chan struct{}
}

// New creates a watcher rooted at root. marker names the metadata directory
// to skip (along with common dependency directories).
func New(root, marker string, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		marker:   marker,
		debounce: 200 * time.Millisecond,
		logger:   logger,
		Changes:  make(chan string, 1),
		Errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case w.marker, ".git", "node_modules", "vendor":
			if path != w.root {
				return fs.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Start forwards debounced events until Close. New directories are added to
// the watch set as they appear.
func (w *Watcher) Start() {
	go func() {
		var pending string
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-w.done:
				return
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.Errors <- err
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
						if err := w.addRecursive(ev.Name); err != nil {
							w.logger.Warn("watching new directory", zap.String("path", ev.Name), zap.Error(err))
						}
					}
				}
				pending = ev.Name
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case w.Changes <- pending:
				default:
				}
			}
		}
	}()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
