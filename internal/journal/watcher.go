package journal

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/checksum"
	"github.com/starford/inkpact/internal/storage"
)

// settle is how long a path must stay quiet before it is compared. The
// server journals its own writes right after the rename, well inside it.
const settle = 250 * time.Millisecond

// ChangeCallback is called for every external change. action is ActionSave
// or ActionDelete and path is relative to the data root.
type ChangeCallback func(action, path string)

// Watch starts an fsnotify watcher on the data root and journals tracked
// files whose content differs from the last recorded checksum. It runs until
// ctx is cancelled.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	timer := time.NewTimer(settle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			for rel := range pending {
				compare(ctx, db, store, rel, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}
			if strings.HasPrefix(filepath.Base(ev.Name), storage.TempPrefix) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !Tracked(rel) {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(settle)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// compare journals rel if its current state differs from the last record.
func compare(ctx context.Context, db *DB, store storage.Provider, rel string, logger *slog.Logger, cb ChangeCallback) {
	prev, err := db.Checksum(rel)
	if err != nil {
		logger.Warn("watcher: checksum lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	data, err := store.Read(rel)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if prev == "" {
			return
		}
		if err := db.Record(ctx, Entry{Action: ActionDelete, Target: rel, Source: SourceExternal}); err != nil {
			logger.Warn("watcher: record failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Info("watcher: external delete", slog.String("path", rel))
		if cb != nil {
			cb(ActionDelete, rel)
		}
	case err != nil:
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
	default:
		cs := checksum.Sum(data)
		if cs == prev {
			return
		}
		e := Entry{Action: ActionSave, Target: rel, Size: int64(len(data)), Checksum: cs, Source: SourceExternal}
		if err := db.Record(ctx, e); err != nil {
			logger.Warn("watcher: record failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Info("watcher: external edit", slog.String("path", rel))
		if cb != nil {
			cb(ActionSave, rel)
		}
	}
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
