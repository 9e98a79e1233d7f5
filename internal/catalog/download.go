package catalog

import (
	"context"
	"fmt"
	"time"
)

// RecordDownload appends a download event for a successfully delivered
// record. Sets ID and DeliveredAt when they are zero.
func (s *Store) RecordDownload(ctx context.Context, e *DownloadEvent) error {
	if e.DeliveredAt.IsZero() {
		e.DeliveredAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO download_events (requester_id, group_key, file_id, storage_chat_id, storage_message_id, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RequesterID, e.GroupKey, e.FileID, e.Storage.ChatID, e.Storage.MessageID, e.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert download event: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// DownloadFilter specifies criteria for listing download events.
type DownloadFilter struct {
	RequesterID *int64
	GroupKey    *string
	Limit       int // 0 = no limit
}

// ListDownloads returns download events, newest first.
func (s *Store) ListDownloads(ctx context.Context, f DownloadFilter) ([]*DownloadEvent, error) {
	query := `SELECT id, requester_id, group_key, file_id, storage_chat_id, storage_message_id, delivered_at
		FROM download_events WHERE 1 = 1`
	var args []any
	if f.RequesterID != nil {
		query += " AND requester_id = ?"
		args = append(args, *f.RequesterID)
	}
	if f.GroupKey != nil {
		query += " AND group_key = ?"
		args = append(args, NormalizeGroupKey(*f.GroupKey))
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []*DownloadEvent
	for rows.Next() {
		e := &DownloadEvent{}
		if err := rows.Scan(&e.ID, &e.RequesterID, &e.GroupKey, &e.FileID,
			&e.Storage.ChatID, &e.Storage.MessageID, &e.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan download event: %w", mapSQLiteError(err))
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate download events: %w", mapSQLiteError(err))
	}
	return results, nil
}
