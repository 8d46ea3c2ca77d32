package journal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/inkpact/internal/checksum"
	"github.com/starford/inkpact/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM activity`).Scan(&count); err != nil {
		t.Fatalf("activity table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&count); err != nil {
		t.Fatalf("files table missing: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_ = db.Record(ctx, Entry{Action: ActionSave, Target: "blogs.json", Kind: "blog", Count: 2, Size: 40, Checksum: "a1"})
	_ = db.Record(ctx, Entry{Action: ActionUpload, Target: "thumbnails/blogs/x.png", Kind: "image", Size: 10, Checksum: "b2"})

	entries, err := db.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Action != ActionUpload || entries[1].Count != 2 {
		t.Errorf("entries = %+v", entries)
	}
	if entries[0].Source != SourceServer {
		t.Errorf("source = %q, want %q", entries[0].Source, SourceServer)
	}

	cs, err := db.Checksum("blogs.json")
	if err != nil || cs != "a1" {
		t.Errorf("checksum = %q, %v, want a1", cs, err)
	}
}

func TestRecordDeleteForgetsChecksum(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Record(ctx, Entry{Action: ActionUpload, Target: "thumbnails/books/c.png", Checksum: "c"})
	_ = db.Record(ctx, Entry{Action: ActionDelete, Target: "thumbnails/books/c.png"})

	cs, _ := db.Checksum("thumbnails/books/c.png")
	if cs != "" {
		t.Errorf("checksum = %q, want empty", cs)
	}
	entries, _ := db.List(ctx, 0)
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2", len(entries))
	}
}

func TestTracked(t *testing.T) {
	cases := map[string]bool{
		"blogs.json":             true,
		"blogs/1.md":             true,
		"thumbnails/blogs/a.PNG": true,
		"journal.db":             false,
		"notes.txt":              false,
	}
	for p, want := range cases {
		if got := Tracked(p); got != want {
			t.Errorf("Tracked(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestSync(t *testing.T) {
	dir, store, db := testEnv(t)
	ctx := context.Background()

	_ = os.WriteFile(filepath.Join(dir, "books.json"), []byte(`{"books":[]}`), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "gone.md"), []byte("# gone"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644)

	n, err := Sync(ctx, db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 0 {
		t.Errorf("first sync changed = %d, want 0", n)
	}
	if cs, _ := db.Checksum("books.json"); cs != checksum.Sum([]byte(`{"books":[]}`)) {
		t.Errorf("books.json not baselined")
	}
	if cs, _ := db.Checksum("ignored.txt"); cs != "" {
		t.Errorf("untracked file baselined")
	}

	_ = os.WriteFile(filepath.Join(dir, "books.json"), []byte(`{"books":[{}]}`), 0o644)
	_ = os.Remove(filepath.Join(dir, "gone.md"))

	n, err = Sync(ctx, db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 2 {
		t.Errorf("second sync changed = %d, want 2", n)
	}
	entries, _ := db.List(ctx, 10)
	for _, e := range entries {
		if e.Source != SourceExternal {
			t.Errorf("entry %+v not external", e)
		}
	}
}

func TestWatcher_ReportsExternalEdit(t *testing.T) {
	dir, store, db := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, quietLogger(), func(action, path string) {
		mu.Lock()
		events = append(events, action+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "profiles.json"), []byte(`[]`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "save:profiles.json" {
				return true
			}
		}
		return false
	}, "expected save:profiles.json callback")
}

func TestWatcher_IgnoresJournaledWrite(t *testing.T) {
	_, store, db := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, quietLogger(), func(action, path string) {
		mu.Lock()
		events = append(events, action+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	content := []byte(`{"blogs": []}`)
	if err := store.Write("blogs.json", content); err != nil {
		t.Fatal(err)
	}
	_ = db.Record(ctx, Entry{Action: ActionSave, Target: "blogs.json", Size: int64(len(content)), Checksum: checksum.Sum(content)})

	time.Sleep(3 * settle)
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store, db := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "blogs")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "7.md"), []byte("# Seven"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum("blogs/7.md")
		return cs != ""
	}, "file in new subdir not journaled by watcher")
}

func TestWatcher_ExternalDelete(t *testing.T) {
	dir, store, db := testEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "del.md"), []byte("# bye"), 0o644)
	if _, err := Sync(context.Background(), db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum("del.md")
		return cs == ""
	}, "deleted file still journaled")
}
