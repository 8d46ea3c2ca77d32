package journal

import (
	"context"
	"log/slog"

	"github.com/starford/inkpact/internal/storage"
)

// Sync brings the known checksums up to date with the data directory.
// Files edited or removed while the server was down are journaled as
// external changes; files seen for the first time are recorded silently.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (int, error) {
	metas, err := store.Walk("")
	if err != nil {
		return 0, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return 0, err
	}

	changed := 0
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !Tracked(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}

		prev, seen := known[m.Path]
		if prev == m.Checksum {
			continue
		}
		e := Entry{Action: ActionSave, Target: m.Path, Size: m.Size, Checksum: m.Checksum, Source: SourceExternal}
		if !seen {
			// First sight: baseline only, do not report as activity.
			if err := db.baseline(ctx, e); err != nil {
				logger.Warn("sync: baseline failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			}
			continue
		}
		if err := db.Record(ctx, e); err != nil {
			logger.Warn("sync: record failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		changed++
		logger.Debug("sync: external edit", slog.String("path", m.Path))
	}

	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.Record(ctx, Entry{Action: ActionDelete, Target: p, Source: SourceExternal}); err != nil {
			logger.Warn("sync: record delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		changed++
		logger.Debug("sync: removed", slog.String("path", p))
	}
	return changed, nil
}

func (db *DB) baseline(ctx context.Context, e Entry) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO files (path, checksum, size) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET checksum = excluded.checksum, size = excluded.size
	`, e.Target, e.Checksum, e.Size)
	return err
}
