package server

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// Watcher monitors the content tree and coalesces bursts of file events into
// a single rebuild trigger after a quiet window.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
}

// NewWatcher creates a watcher over root. onChange runs on the watcher
// goroutine after events settle for the debounce window.
func NewWatcher(root string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if onChange == nil {
		return nil, bferrors.ValidationError("onChange callback is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityFatal, "creating file watcher")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		_ = fsw.Close()
		return nil, bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityFatal, "resolving content path")
	}

	return &Watcher{
		root:     absRoot,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		stopChan: make(chan struct{}),
	}, nil
}

// Start registers the content tree and begins the watch loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	slog.Info("Watching content directory", "path", w.root, "debounce", w.debounce)
	go w.watchLoop(ctx)
	return nil
}

// Stop terminates the watch loop and closes the underlying watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", "error", err)
	}
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
	if err != nil {
		return bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityFatal, "watching content tree").WithContext("root", root)
	}
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	// The timer starts drained; events arm it.
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

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
			if w.ignored(event.Name) {
				continue
			}
			// New subdirectories must be registered to keep the watch
			// recursive.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			slog.Debug("Content change detected", "file", event.Name, "op", event.Op.String())
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		case <-timer.C:
			pending = false
			w.onChange()
		}
	}
}

// ignored filters editor temp files and hidden paths out of the trigger set.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return true
	}
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}
