package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCompiled = "compiled"
	EventRemoved  = "removed"
)

// EventCallback is called after a watcher-driven change to a document's
// results.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the inbox root and processes document
// changes until ctx is cancelled. It calls cb (if non-nil) after each
// successful change.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a debounced Sync that removes results of
// documents that no longer exist and compiles documents not yet seen.
func Watch(ctx context.Context, p *Processor, logger *slog.Logger, cb EventCallback) error {
	root := p.docs.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ctx, p); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					processNewDir(ctx, p, root, absPath, logger, notify)
					continue
				}
			}

			if strings.HasPrefix(filepath.Base(absPath), ".") || !storage.IsDocument(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if procErr := p.Process(ctx, rel); procErr != nil {
					logger.Warn("watcher: compile failed", slog.String("path", rel), slog.String("error", procErr.Error()))
					continue
				}
				logger.Debug("watcher: compiled", slog.String("path", rel))
				notify(EventCompiled, rel)

			case ev.Op&fsnotify.Remove != 0:
				if rmErr := p.Remove(rel); rmErr != nil {
					logger.Warn("watcher: remove failed", slog.String("path", rel), slog.String("error", rmErr.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", rel))
				notify(EventRemoved, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create when it stays inside the inbox.
				if rmErr := p.Remove(rel); rmErr != nil {
					logger.Warn("watcher: rename remove failed", slog.String("path", rel), slog.String("error", rmErr.Error()))
				} else {
					notify(EventRemoved, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// processNewDir compiles any documents already present in a newly created
// directory.
func processNewDir(ctx context.Context, p *Processor, root, dirPath string, logger *slog.Logger, notify EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsDocument(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if procErr := p.Process(ctx, rel); procErr == nil {
			logger.Debug("watcher: compiled from new dir", slog.String("path", rel))
			notify(EventCompiled, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
