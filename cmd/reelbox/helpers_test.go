package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmunix/reelbox/internal/catalog"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seedCatalog creates a catalog file with two series and returns its path.
func seedCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelbox.db")
	ctx := context.Background()

	db, err := catalog.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := catalog.NewStore(db)
	files := []*catalog.FileRecord{
		{GroupKey: "Breaking Bad", Season: "S01", Episode: "E01", Resolution: "720p", FileID: "bb1", SizeBytes: 1536},
		{GroupKey: "Breaking Bad", Season: "S01", Episode: "E02", Resolution: "720p", FileID: "bb2"},
		{GroupKey: "Breaking Bad", Season: "S01", Episode: "E01", Resolution: "1080p", FileID: "bb3"},
		{GroupKey: "Dark", Season: "S01", Episode: "E01", Resolution: "480p", FileID: "d1"},
	}
	for i, f := range files {
		f.Kind = catalog.KindVideo
		f.Storage = catalog.StorageRef{ChatID: -100, MessageID: int64(i + 1)}
		require.NoError(t, store.AddFile(ctx, f))
	}
	return path
}
