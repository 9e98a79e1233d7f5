package catalog

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrConstraint indicates a check constraint violation.
	ErrConstraint = errors.New("constraint violation")

	// ErrStoreUnavailable indicates the record store could not be reached.
	// Callers may retry.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrInvalidRecord indicates a record failed validation before insert.
	ErrInvalidRecord = errors.New("invalid file record")
)

// IsRetryable reports whether err is a transient store failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

var unavailableMarkers = []string{
	"database is locked",
	"database is closed",
	"unable to open database",
	"disk i/o error",
	"connection refused",
}

// mapSQLiteError converts SQLite errors to the package's error types.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "unique constraint failed") ||
		strings.Contains(errStr, "primary key constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(errStr, "foreign key constraint failed") ||
		strings.Contains(errStr, "check constraint failed") {
		return ErrConstraint
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(errStr, marker) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}
	return err
}
