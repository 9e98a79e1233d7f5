package codec

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/reelbox/internal/catalog"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := catalog.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEncode_ShapeAndIdempotence(t *testing.T) {
	c := New(setupTestDB(t), nil)
	ctx := context.Background()

	tok, err := c.Encode(ctx, "Breaking Bad")
	require.NoError(t, err)
	assert.Len(t, tok, TokenLength)
	assert.True(t, ValidToken(tok))
	assert.LessOrEqual(t, len("s:"+tok), 64)

	again, err := c.Encode(ctx, "Breaking Bad")
	require.NoError(t, err)
	assert.Equal(t, tok, again)

	other, err := c.Encode(ctx, "Better Call Saul")
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestEncode_NormalizesKey(t *testing.T) {
	c := New(setupTestDB(t), nil)
	ctx := context.Background()

	a, err := c.Encode(ctx, "  Dark ")
	require.NoError(t, err)
	b, err := c.Encode(ctx, "Dark")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_EmptyKey(t *testing.T) {
	c := New(setupTestDB(t), nil)
	_, err := c.Encode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := New(setupTestDB(t), nil)
	ctx := context.Background()

	names := []string{"Dark", "Ðàðê", "Shōgun (2024)", "a|b:c", strings.Repeat("Long Name ", 40)}
	for _, name := range names {
		tok, err := c.Encode(ctx, name)
		require.NoError(t, err)

		got, found, err := c.Decode(ctx, tok)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, catalog.NormalizeGroupKey(name), got)
	}
}

func TestDecode_UnknownToken(t *testing.T) {
	c := New(setupTestDB(t), nil)
	ctx := context.Background()

	got, found, err := c.Decode(ctx, "AAAAAAAAAAAA")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)

	assert.Equal(t, UnknownGroup, c.DecodeOrUnknown(ctx, "AAAAAAAAAAAA"))
}

func TestDecode_MalformedToken(t *testing.T) {
	c := New(setupTestDB(t), nil)
	ctx := context.Background()

	for _, tok := range []string{"", "short", "has space!!!", "waytoolongtokenvalue"} {
		_, found, err := c.Decode(ctx, tok)
		require.NoError(t, err, tok)
		assert.False(t, found, tok)
	}
}

func TestDecode_TouchesLastAccessed(t *testing.T) {
	db := setupTestDB(t)
	c := New(db, nil)
	ctx := context.Background()

	tok, err := c.Encode(ctx, "Dark")
	require.NoError(t, err)
	_, err = db.Exec("UPDATE series_mapping SET last_accessed_at = '2020-01-01 00:00:00' WHERE token = ?", tok)
	require.NoError(t, err)

	_, found, err := c.Decode(ctx, tok)
	require.NoError(t, err)
	require.True(t, found)

	m, err := c.Get(ctx, tok)
	require.NoError(t, err)
	assert.Greater(t, m.LastAccessedAt.Year(), 2020)
}

func TestEncode_ResolvesCollision(t *testing.T) {
	db := setupTestDB(t)
	c := New(db, nil)
	ctx := context.Background()

	// occupy the natural token of "Dark" with another series
	natural := derive("Dark", 0)
	_, err := db.Exec(`INSERT INTO series_mapping (token, group_key, created_at, last_accessed_at)
		VALUES (?, 'Squatter', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, natural)
	require.NoError(t, err)

	tok, err := c.Encode(ctx, "Dark")
	require.NoError(t, err)
	assert.NotEqual(t, natural, tok)
	assert.Equal(t, derive("Dark", 1), tok)

	got, found, err := c.Decode(ctx, tok)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Dark", got)

	squatter, _, err := c.Decode(ctx, natural)
	require.NoError(t, err)
	assert.Equal(t, "Squatter", squatter)
}

func TestEncode_TokenSpaceExhausted(t *testing.T) {
	db := setupTestDB(t)
	c := New(db, nil)

	for i := 0; i < maxDeriveAttempts; i++ {
		_, err := db.Exec(`INSERT INTO series_mapping (token, group_key, created_at, last_accessed_at)
			VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, derive("Dark", i), "other-"+string(rune('a'+i)))
		require.NoError(t, err)
	}

	_, err := c.Encode(context.Background(), "Dark")
	assert.ErrorIs(t, err, ErrTokenSpaceExhausted)
}

func TestDecode_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelbox.db")
	ctx := context.Background()

	db, err := catalog.Open(ctx, path)
	require.NoError(t, err)
	tok, err := New(db, nil).Encode(ctx, "Dark")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = catalog.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	got, found, err := New(db, nil).Decode(ctx, tok)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Dark", got)
}

func TestSweep_RemovesOrphans(t *testing.T) {
	db := setupTestDB(t)
	c := New(db, nil)
	store := catalog.NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.AddFile(ctx, &catalog.FileRecord{
		GroupKey: "Dark", Season: "S01", Episode: "E01", Resolution: "720p",
		FileID: "f1", Storage: catalog.StorageRef{ChatID: -1, MessageID: 1}, Kind: catalog.KindVideo,
	}))
	kept, err := c.Encode(ctx, "Dark")
	require.NoError(t, err)
	orphan, err := c.Encode(ctx, "Gone")
	require.NoError(t, err)

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, found, err := c.Decode(ctx, kept)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = c.Decode(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDecode_ClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	c := New(db, nil)
	require.NoError(t, db.Close())

	_, _, err := c.Decode(context.Background(), derive("Dark", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrStoreUnavailable)
}

func TestEncode_ConcurrentWritersOnFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelbox.db")
	ctx := context.Background()

	db, err := catalog.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	c := New(db, nil)
	store := catalog.NewStore(db)

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			group := fmt.Sprintf("Series %d", i%8)
			if _, err := c.Encode(ctx, group); err != nil {
				errs <- err
			}
			if err := store.RecordDownload(ctx, &catalog.DownloadEvent{
				RequesterID: int64(i),
				GroupKey:    group,
				FileID:      int64(i),
				Storage:     catalog.StorageRef{ChatID: -1, MessageID: int64(i)},
			}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write: %v", err)
	}

	events, err := store.ListDownloads(ctx, catalog.DownloadFilter{})
	require.NoError(t, err)
	assert.Len(t, events, workers)
}
