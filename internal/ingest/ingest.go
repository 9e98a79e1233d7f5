// Package ingest turns an admin's /addfile reply into a stored catalog item:
// parse and validate the command, copy the media into the storage chat,
// then record it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/events"
)

var (
	seasonPattern  = regexp.MustCompile(`^S\d{2,}$`)
	episodePattern = regexp.MustCompile(`^E\d{2,}$`)
)

// Storage places media into the storage chat.
type Storage interface {
	ForwardToStorage(ctx context.Context, fromChat, messageID int64) (catalog.StorageRef, error)
	EditStorageCaption(ctx context.Context, ref catalog.StorageRef, caption string) error
}

// FileAdder persists the record. *catalog.Store implements it.
type FileAdder interface {
	FindFile(ctx context.Context, groupKey, season, episode, resolution, fileID string) (*catalog.FileRecord, error)
	AddFile(ctx context.Context, f *catalog.FileRecord) error
}

// Encoder assigns the series token. *codec.Codec implements it.
type Encoder interface {
	Encode(ctx context.Context, groupKey string) (string, error)
}

// Publisher publishes events. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Request is one /addfile invocation.
type Request struct {
	Admin         int64
	Text          string // everything after the command
	Media         *Media // nil when the replied message has no media
	SourceChat    int64
	SourceMessage int64
}

// Result is a successfully ingested item.
type Result struct {
	Record *catalog.FileRecord
	Token  string
}

// Message is the confirmation sent back to the admin.
func (r *Result) Message() string {
	f := r.Record
	code := f.Season + f.Episode
	if code == "" {
		code = "N/A"
	}
	return fmt.Sprintf("File added successfully!\n\nSeries: %s\nResolution: %s\nType: %s\nEpisode: %s\nSize: %s",
		f.GroupKey, f.Resolution, titleCase(string(f.Kind)), code, FormatSize(f.SizeBytes))
}

// Ingester runs the /addfile flow.
type Ingester struct {
	storage  Storage
	files    FileAdder
	encoder  Encoder
	bus      Publisher // may be nil
	validate *validator.Validate
	log      *slog.Logger
}

// New creates an Ingester. bus may be nil.
func New(storage Storage, files FileAdder, encoder Encoder, bus Publisher, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		storage:  storage,
		files:    files,
		encoder:  encoder,
		bus:      bus,
		validate: NewValidator(),
		log:      logger.With("component", "ingest"),
	}
}

// NewValidator returns a validator with the season and episode tags
// registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("season", func(fl validator.FieldLevel) bool {
		return seasonPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("episode", func(fl validator.FieldLevel) bool {
		return episodePattern.MatchString(fl.Field().String())
	})
	return v
}

// Parse parses and validates the command text without touching storage.
func (i *Ingester) Parse(text string) (*Command, error) {
	cmd, err := ParseCommand(text)
	if err != nil {
		return nil, err
	}
	if err := i.validate.Struct(cmd); err != nil {
		return nil, validationError(err)
	}
	return cmd, nil
}

// Add stores the replied media and records it. A failed caption edit is
// logged and does not fail the ingest.
func (i *Ingester) Add(ctx context.Context, req Request) (*Result, error) {
	cmd, err := i.Parse(req.Text)
	if err != nil {
		return nil, err
	}
	if req.Media == nil || !req.Media.Kind.Valid() {
		return nil, ErrUnsupportedMedia
	}

	// a repeated /addfile would forward a fresh storage message, so the
	// slot is checked before anything is sent
	existing, err := i.files.FindFile(ctx, cmd.GroupKey, cmd.Season, cmd.Episode, cmd.Resolution, req.Media.FileID)
	switch {
	case err == nil:
		i.log.Info("file already in catalog", "admin", req.Admin, "group", existing.GroupKey, "file_id", existing.ID)
		return nil, fmt.Errorf("add file: %w", catalog.ErrDuplicate)
	case !errors.Is(err, catalog.ErrNotFound):
		return nil, fmt.Errorf("check existing file: %w", err)
	}

	ref, err := i.storage.ForwardToStorage(ctx, req.SourceChat, req.SourceMessage)
	if err != nil {
		i.log.Error("forward to storage failed", "admin", req.Admin, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	if err := i.storage.EditStorageCaption(ctx, ref, StorageCaption(cmd)); err != nil {
		i.log.Warn("could not edit storage caption", "message_id", ref.MessageID, "error", err)
	}

	rec := &catalog.FileRecord{
		GroupKey:        cmd.GroupKey,
		Season:          cmd.Season,
		Episode:         cmd.Episode,
		Resolution:      cmd.Resolution,
		FileID:          req.Media.FileID,
		Storage:         ref,
		Kind:            req.Media.Kind,
		Caption:         Caption(cmd, *req.Media),
		SizeBytes:       req.Media.SizeBytes,
		DurationSeconds: req.Media.DurationSeconds,
	}
	if err := i.files.AddFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("add file: %w", err)
	}

	token, err := i.encoder.Encode(ctx, rec.GroupKey)
	if err != nil {
		// the record exists; the token is derived again on first browse
		i.log.Warn("encode series token failed", "group", rec.GroupKey, "error", err)
	}

	if i.bus != nil {
		_ = i.bus.Publish(ctx, &events.FileAdded{
			BaseEvent:  events.NewBaseEvent(events.EventFileAdded, events.EntityFile, rec.ID),
			GroupKey:   rec.GroupKey,
			Season:     rec.Season,
			Episode:    rec.Episode,
			Resolution: rec.Resolution,
		})
	}

	i.log.Info("file added", "admin", req.Admin, "group", rec.GroupKey, "resolution", rec.Resolution,
		"episode", cmd.EpisodeCode(), "file_id", rec.ID)
	return &Result{Record: rec, Token: token}, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
