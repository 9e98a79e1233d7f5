package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/vmunix/reelbox/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// With in-memory SQLite, multiple connections create separate databases.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := migrations.Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// addTestFile inserts a record with sensible defaults for the fields the
// test does not care about.
func addTestFile(t *testing.T, store *Store, group, season, episode, resolution string, msgID int64) *FileRecord {
	t.Helper()
	f := &FileRecord{
		GroupKey:   group,
		Season:     season,
		Episode:    episode,
		Resolution: resolution,
		FileID:     "file-" + group + season + episode + resolution,
		Storage:    StorageRef{ChatID: -100123, MessageID: msgID},
		Kind:       KindVideo,
	}
	if err := store.AddFile(context.Background(), f); err != nil {
		t.Fatalf("add test file: %v", err)
	}
	return f
}

func ptr[T any](v T) *T {
	return &v
}
