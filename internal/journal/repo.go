package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Actions recorded in the activity log.
const (
	ActionSave   = "save"
	ActionUpload = "upload"
	ActionDelete = "delete"
)

// Sources of a recorded change.
const (
	SourceServer   = "server"
	SourceExternal = "external"
)

// Entry is one row of the activity log.
type Entry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Kind      string    `json:"kind,omitempty"`
	Count     int       `json:"count,omitempty"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

var trackedExt = map[string]bool{
	".json": true, ".md": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Tracked reports whether changes to p are journaled and watched.
func Tracked(p string) bool {
	return trackedExt[strings.ToLower(path.Ext(p))]
}

// Record appends e to the activity log and updates the checksum the target
// was last written with. A delete forgets the target.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.Source == "" {
		e.Source = SourceServer
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity (action, target, kind, count, size, checksum, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Action, e.Target, e.Kind, e.Count, e.Size, e.Checksum, e.Source, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("journal: insert activity: %w", err)
	}

	if e.Action == ActionDelete {
		_, err = tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, e.Target)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO files (path, checksum, size, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				checksum   = excluded.checksum,
				size       = excluded.size,
				updated_at = excluded.updated_at
		`, e.Target, e.Checksum, e.Size, e.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("journal: update files: %w", err)
	}
	return tx.Commit()
}

// List returns the most recent entries, newest first.
func (db *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, action, target, kind, count, size, checksum, source, created_at
		FROM activity
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Target, &e.Kind, &e.Count, &e.Size, &e.Checksum, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Checksum returns the checksum target was last written with, or "" if unknown.
func (db *DB) Checksum(target string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, target).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("journal: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns every known file with its last checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("journal: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
