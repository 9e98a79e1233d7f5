package catalog

import (
	"context"
	"fmt"
	"time"
)

const fileColumns = `id, group_key, season, episode, episode_name, resolution, file_id,
	storage_chat_id, storage_message_id, kind, caption, size_bytes, duration_seconds, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*FileRecord, error) {
	f := &FileRecord{}
	err := row.Scan(&f.ID, &f.GroupKey, &f.Season, &f.Episode, &f.EpisodeName, &f.Resolution, &f.FileID,
		&f.Storage.ChatID, &f.Storage.MessageID, &f.Kind, &f.Caption, &f.SizeBytes, &f.DurationSeconds, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func validateFile(f *FileRecord) error {
	f.GroupKey = NormalizeGroupKey(f.GroupKey)
	f.Resolution = NormalizeResolution(f.Resolution)
	if f.GroupKey == "" {
		return fmt.Errorf("%w: group key is empty", ErrInvalidRecord)
	}
	if f.Resolution == "" {
		return fmt.Errorf("%w: resolution is empty", ErrInvalidRecord)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: unsupported media kind %q", ErrInvalidRecord, f.Kind)
	}
	return nil
}

func addFile(ctx context.Context, q querier, f *FileRecord) error {
	if err := validateFile(f); err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO files (group_key, season, episode, episode_name, resolution, file_id,
			storage_chat_id, storage_message_id, kind, caption, size_bytes, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.GroupKey, f.Season, f.Episode, f.EpisodeName, f.Resolution, f.FileID,
		f.Storage.ChatID, f.Storage.MessageID, f.Kind, f.Caption, f.SizeBytes, f.DurationSeconds, now,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	f.ID = id
	f.CreatedAt = now
	return nil
}

// AddFile inserts a new file record. Sets ID and CreatedAt on the struct.
// Returns ErrDuplicate if the slot (group, season, episode, resolution)
// already holds the same storage ref or the same transport file.
func (s *Store) AddFile(ctx context.Context, f *FileRecord) error { return addFile(ctx, s.db, f) }

// AddFile inserts a new file record within a transaction.
func (t *Tx) AddFile(ctx context.Context, f *FileRecord) error { return addFile(ctx, t.tx, f) }

func getFile(ctx context.Context, q querier, id int64) (*FileRecord, error) {
	f, err := scanFile(q.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get file %d: %w", id, mapSQLiteError(err))
	}
	return f, nil
}

// GetFile retrieves a file record by ID.
// Returns ErrNotFound if the record does not exist.
func (s *Store) GetFile(ctx context.Context, id int64) (*FileRecord, error) {
	return getFile(ctx, s.db, id)
}

// GetFile retrieves a file record by ID within a transaction.
func (t *Tx) GetFile(ctx context.Context, id int64) (*FileRecord, error) {
	return getFile(ctx, t.tx, id)
}

// FindFile returns the record holding fileID in the given slot.
// Returns ErrNotFound if there is none.
func (s *Store) FindFile(ctx context.Context, groupKey, season, episode, resolution, fileID string) (*FileRecord, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, "SELECT "+fileColumns+` FROM files
		WHERE group_key = ? AND season = ? AND episode = ? AND resolution = ? AND file_id = ?`,
		NormalizeGroupKey(groupKey), season, episode, NormalizeResolution(resolution), fileID))
	if err != nil {
		return nil, fmt.Errorf("find file %q: %w", fileID, mapSQLiteError(err))
	}
	return f, nil
}

// BackfillFile updates the caption and duration of an existing record, the
// only fields that change after ingestion. Empty caption or zero duration
// leave the stored value untouched.
func (s *Store) BackfillFile(ctx context.Context, id int64, caption string, durationSeconds int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE files SET
			caption = CASE WHEN ? <> '' THEN ? ELSE caption END,
			duration_seconds = CASE WHEN ? > 0 THEN ? ELSE duration_seconds END
		WHERE id = ?`,
		caption, caption, durationSeconds, durationSeconds, id,
	)
	if err != nil {
		return fmt.Errorf("backfill file %d: %w", id, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("backfill file %d: %w", id, ErrNotFound)
	}
	return nil
}

func deleteGroup(ctx context.Context, q querier, groupKey string) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM files WHERE group_key = ?", NormalizeGroupKey(groupKey))
	if err != nil {
		return 0, fmt.Errorf("delete group %q: %w", groupKey, mapSQLiteError(err))
	}
	return result.RowsAffected()
}

// DeleteGroup removes every record of a series and returns how many were
// deleted. Deleting an unknown series is not an error.
func (s *Store) DeleteGroup(ctx context.Context, groupKey string) (int64, error) {
	return deleteGroup(ctx, s.db, groupKey)
}

// DeleteGroup removes every record of a series within a transaction.
func (t *Tx) DeleteGroup(ctx context.Context, groupKey string) (int64, error) {
	return deleteGroup(ctx, t.tx, groupKey)
}

// RemoveDuplicates deletes records that point at the same transport file
// within the same (group, season, episode, resolution) slot, keeping the
// oldest row. Returns the number of rows removed.
func (s *Store) RemoveDuplicates(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM files WHERE id NOT IN (
			SELECT MIN(id) FROM files
			GROUP BY group_key, season, episode, resolution, file_id
		)`)
	if err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", mapSQLiteError(err))
	}
	return result.RowsAffected()
}

// CountFiles returns the number of records stored for a series.
func (s *Store) CountFiles(ctx context.Context, groupKey string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE group_key = ?", NormalizeGroupKey(groupKey)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count files: %w", mapSQLiteError(err))
	}
	return n, nil
}
