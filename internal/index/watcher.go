package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/parser"
	"github.com/starford/camroll/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, loc models.Locator, path string)

// Watch starts an fsnotify watcher on the library root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(kind string, loc models.Locator, rel string) {
		if cb != nil {
			cb(kind, loc, rel)
		}
	}

	// reconcileTimer debounces rename reconciliation.
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

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(ctx, db, store, logger, emit)

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
					indexNewDir(ctx, db, store, absPath, logger, emit)
					continue
				}
			}

			if !parser.IsMedia(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				f, statErr := store.Stat(rel)
				if statErr != nil {
					logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", statErr.Error()))
					continue
				}
				loc, created, idxErr := indexFile(ctx, db, store, f)
				if idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if created {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				emit(kind, loc, rel)

			case ev.Op&fsnotify.Remove != 0:
				loc, delErr := db.DeleteByPath(ctx, rel)
				if delErr != nil {
					// Already removed through the service.
					logger.Debug("watcher: delete skipped", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				emit(EventDeleted, loc, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create if it stays inside the library.
				if loc, delErr := db.DeleteByPath(ctx, rel); delErr == nil {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					emit(EventDeleted, loc, rel)
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

// reconcile is a lightweight sync: it removes index entries without a file on
// disk and indexes files that are missing or changed.
func reconcile(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, emit EventCallback) {
	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	files, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]models.MediaFile, len(files))
	for _, f := range files {
		disk[f.Path] = f
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if loc, delErr := db.DeleteByPath(ctx, p); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			emit(EventDeleted, loc, p)
		}
	}

	for p, f := range disk {
		if cs, ok := checksums[p]; ok && cs == f.Checksum {
			continue
		}
		if loc, created, idxErr := indexFile(ctx, db, store, f); idxErr == nil {
			kind := EventUpdated
			if created {
				kind = EventCreated
			}
			logger.Debug("reconcile: indexed", slog.String("path", p))
			emit(kind, loc, p)
		}
	}
}

// indexNewDir indexes any media files found in a newly created directory.
func indexNewDir(ctx context.Context, db *DB, store storage.Provider, dirPath string, logger *slog.Logger, emit EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !parser.IsMedia(path) {
			return nil
		}
		rel, relErr := filepath.Rel(store.Root(), path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		f, statErr := store.Stat(rel)
		if statErr != nil {
			return nil
		}
		if loc, created, idxErr := indexFile(ctx, db, store, f); idxErr == nil && created {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			emit(EventCreated, loc, rel)
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
