// Package watch re-runs a callback whenever LookML files under a project
// tree change. Intended for iterating on a model locally while keeping a
// fresh provenance report on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces editor save bursts into one rescan.
const debounceDelay = 250 * time.Millisecond

// Watcher triggers rescans on file changes.
type Watcher struct {
	root   string
	logger *slog.Logger
}

// New creates a watcher for the project rooted at root.
func New(root string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{root: root, logger: logger}
}

// Run blocks until the context is cancelled, invoking onChange after
// every debounced batch of .lkml changes. Newly created directories are
// added to the watch set as they appear.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root)

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&fsnotify.Create != 0 {
				// Could be a new directory; extend the watch set.
				_ = watchDirRecursive(watcher, event.Name)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".lkml") {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				w.logger.Debug("file changed, rescanning", "file", name)
				onChange()
			})

		case err := <-watcher.Errors:
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the
// watcher. Non-directories are ignored.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
