package catalog

import (
	"context"
	"fmt"
)

// ListGroups returns every series with its item count, ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]GroupCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_key, COUNT(*) FROM files
		GROUP BY group_key
		ORDER BY group_key`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.GroupKey, &g.ItemCount); err != nil {
			return nil, fmt.Errorf("scan group: %w", mapSQLiteError(err))
		}
		results = append(results, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", mapSQLiteError(err))
	}
	return results, nil
}

// resolutionOrder ranks the common tiers first; anything else sorts after
// them alphabetically.
const resolutionOrder = `
	CASE resolution
		WHEN '1080p' THEN 1
		WHEN '720p' THEN 2
		WHEN '480p' THEN 3
		ELSE 4
	END, resolution`

// ListResolutions returns the resolutions available for a series, ordered
// 1080p, 720p, 480p, then the rest alphabetically. An unknown series yields
// an empty slice.
func (s *Store) ListResolutions(ctx context.Context, groupKey string) ([]ResolutionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resolution, COUNT(*) FROM files
		WHERE group_key = ?
		GROUP BY resolution
		ORDER BY`+resolutionOrder, NormalizeGroupKey(groupKey))
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []ResolutionCount
	for rows.Next() {
		var r ResolutionCount
		if err := rows.Scan(&r.Resolution, &r.ItemCount); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", mapSQLiteError(err))
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", mapSQLiteError(err))
	}
	return results, nil
}

// ListItems returns the records of one series and resolution in viewing
// order (see SortItems).
func (s *Store) ListItems(ctx context.Context, groupKey, resolution string) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE group_key = ? AND resolution = ?",
		NormalizeGroupKey(groupKey), NormalizeResolution(resolution))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []*FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", mapSQLiteError(err))
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", mapSQLiteError(err))
	}

	SortItems(results)
	return results, nil
}

// ListGroupResolutions returns item counts per (series, resolution), ordered
// by series then resolution rank. Used for the admin overview.
func (s *Store) ListGroupResolutions(ctx context.Context) ([]GroupResolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_key, resolution, COUNT(*) FROM files
		GROUP BY group_key, resolution
		ORDER BY group_key,`+resolutionOrder)
	if err != nil {
		return nil, fmt.Errorf("list group resolutions: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []GroupResolution
	for rows.Next() {
		var r GroupResolution
		if err := rows.Scan(&r.GroupKey, &r.Resolution, &r.ItemCount); err != nil {
			return nil, fmt.Errorf("scan group resolution: %w", mapSQLiteError(err))
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group resolutions: %w", mapSQLiteError(err))
	}
	return results, nil
}

// Stats returns catalog totals.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT group_key) FROM files),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM download_events),
			(SELECT COUNT(*) FROM series_mapping)`,
	).Scan(&st.Series, &st.Files, &st.Downloads, &st.Mappings)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", mapSQLiteError(err))
	}
	return st, nil
}
