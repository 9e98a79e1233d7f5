// Package codec maps series names to short callback-safe tokens.
//
// A token is a truncated SHA-256 of the series name in the URL-safe base64
// alphabet. The hash only proposes a token; the series_mapping table is what
// makes it reversible, so decoding keeps working if the derivation changes
// between releases. Collisions are detected on insert and resolved by
// re-deriving with an attempt counter.
package codec

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/reelbox/internal/catalog"
)

// TokenLength is the number of characters in a token (9 hash bytes).
const TokenLength = 12

// UnknownGroup is shown in place of a series name whose token cannot be
// resolved.
const UnknownGroup = "Unknown Series"

const maxDeriveAttempts = 16

var (
	// ErrEmptyGroup is returned when encoding an empty series name.
	ErrEmptyGroup = errors.New("empty group key")

	// ErrTokenSpaceExhausted is returned when every derived candidate token
	// is already taken by another series.
	ErrTokenSpaceExhausted = errors.New("no free token for group key")
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{` + strconv.Itoa(TokenLength) + `}$`)

// ValidToken reports whether s has the shape of a token.
func ValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// Mapping links a token to its series name.
type Mapping struct {
	Token          string
	GroupKey       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Codec encodes and decodes series tokens against the series_mapping table.
type Codec struct {
	db  *sql.DB
	log *slog.Logger
}

// New creates a codec over an open database handle.
func New(db *sql.DB, log *slog.Logger) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{db: db, log: log}
}

// derive returns the candidate token for a group key; attempt 0 is the plain
// hash, later attempts mix in a counter.
func derive(groupKey string, attempt int) string {
	input := groupKey
	if attempt > 0 {
		input = groupKey + "\x00" + strconv.Itoa(attempt)
	}
	sum := sha256.Sum256([]byte(input))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:TokenLength]
}

// Encode returns the token for groupKey, creating the mapping if needed.
// Encoding the same key again returns the stored token.
func (c *Codec) Encode(ctx context.Context, groupKey string) (string, error) {
	groupKey = catalog.NormalizeGroupKey(groupKey)
	if groupKey == "" {
		return "", ErrEmptyGroup
	}
	now := time.Now().UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin encode: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT token FROM series_mapping WHERE group_key = ?", groupKey).Scan(&existing)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, "UPDATE series_mapping SET last_accessed_at = ? WHERE token = ?", now, existing); err != nil {
			return "", fmt.Errorf("touch mapping: %w", mapError(err))
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit encode: %w", mapError(err))
		}
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("lookup mapping: %w", mapError(err))
	}

	for attempt := 0; attempt < maxDeriveAttempts; attempt++ {
		token := derive(groupKey, attempt)

		var owner string
		err := tx.QueryRowContext(ctx, "SELECT group_key FROM series_mapping WHERE token = ?", token).Scan(&owner)
		if err == nil {
			c.log.Warn("token collision", "token", token, "group", groupKey, "owner", owner, "attempt", attempt)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("check token: %w", mapError(err))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO series_mapping (token, group_key, created_at, last_accessed_at)
			VALUES (?, ?, ?, ?)`, token, groupKey, now, now); err != nil {
			return "", fmt.Errorf("insert mapping: %w", mapError(err))
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit encode: %w", mapError(err))
		}
		return token, nil
	}
	return "", fmt.Errorf("%w: %q", ErrTokenSpaceExhausted, groupKey)
}

// Decode resolves a token to its series name. Unknown or malformed tokens
// return found == false with a nil error; only store failures are errors.
func (c *Codec) Decode(ctx context.Context, token string) (groupKey string, found bool, err error) {
	if !ValidToken(token) {
		c.log.Debug("malformed token", "token", token)
		return "", false, nil
	}
	err = c.db.QueryRowContext(ctx, "SELECT group_key FROM series_mapping WHERE token = ?", token).Scan(&groupKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("decode token: %w", mapError(err))
	}
	if _, err := c.db.ExecContext(ctx, "UPDATE series_mapping SET last_accessed_at = ? WHERE token = ?", time.Now().UTC(), token); err != nil {
		// a failed touch must not hide a successful lookup
		c.log.Warn("touch mapping failed", "token", token, "error", err)
	}
	return groupKey, true, nil
}

// DecodeOrUnknown is Decode with the display fallback applied.
func (c *Codec) DecodeOrUnknown(ctx context.Context, token string) string {
	groupKey, found, err := c.Decode(ctx, token)
	if err != nil || !found {
		return UnknownGroup
	}
	return groupKey
}

// Get returns the stored mapping for a token.
// Returns catalog.ErrNotFound if the token is not mapped.
func (c *Codec) Get(ctx context.Context, token string) (*Mapping, error) {
	m := &Mapping{}
	err := c.db.QueryRowContext(ctx, `
		SELECT token, group_key, created_at, last_accessed_at
		FROM series_mapping WHERE token = ?`, token,
	).Scan(&m.Token, &m.GroupKey, &m.CreatedAt, &m.LastAccessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mapping %q: %w", token, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", mapError(err))
	}
	return m, nil
}

// Sweep removes mappings whose series no longer has any file records and
// returns how many were removed.
func (c *Codec) Sweep(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM series_mapping
		WHERE NOT EXISTS (SELECT 1 FROM files WHERE files.group_key = series_mapping.group_key)`)
	if err != nil {
		return 0, fmt.Errorf("sweep mappings: %w", mapError(err))
	}
	return result.RowsAffected()
}

func mapError(err error) error {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(msg, "database is closed") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %w", catalog.ErrStoreUnavailable, err)
	}
	return err
}
