package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vmunix/reelbox/internal/catalog"
)

var (
	// ErrUsage indicates the command text does not match any accepted form.
	ErrUsage = errors.New("unrecognized addfile format")

	// ErrInvalidCommand indicates a parsed command failed field validation.
	ErrInvalidCommand = errors.New("invalid addfile command")

	// ErrUnsupportedMedia indicates the replied message carries no storable media.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrStoreFailed indicates the item could not be placed in the storage chat.
	ErrStoreFailed = errors.New("failed to store file in storage chat")
)

// validationError turns validator output into an ErrInvalidCommand naming
// each offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidCommand, strings.Join(fields, ", "))
}

// UserMessage renders err as the reply shown to the admin.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsage):
		return HelpText
	case errors.Is(err, ErrInvalidCommand):
		return "❌ " + err.Error()
	case errors.Is(err, ErrUnsupportedMedia):
		return "Unsupported file type. Please use documents, videos, audio, or animations."
	case errors.Is(err, ErrStoreFailed):
		return "Failed to store file in database channel."
	case errors.Is(err, catalog.ErrDuplicate):
		return "⚠️ This file is already in the catalog."
	case errors.Is(err, catalog.ErrStoreUnavailable):
		return "⚠️ The catalog is temporarily unavailable. Please try again."
	default:
		return "❌ Could not add the file."
	}
}
