// Package catalog stores media file records and answers the browsing queries
// (series, resolutions, ordered episodes) the menus are built from.
package catalog

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MediaKind is the transport media type of a stored item.
type MediaKind string

const (
	KindDocument  MediaKind = "document"
	KindVideo     MediaKind = "video"
	KindAudio     MediaKind = "audio"
	KindAnimation MediaKind = "animation"
)

// Valid reports whether k is one of the supported media kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case KindDocument, KindVideo, KindAudio, KindAnimation:
		return true
	}
	return false
}

// StorageRef locates a stored item in the transport: the message that holds
// the media inside the storage chat.
type StorageRef struct {
	ChatID    int64
	MessageID int64
}

// FileRecord is one stored media item.
type FileRecord struct {
	ID              int64
	GroupKey        string // series name
	Season          string // "" when not applicable, otherwise S01 style
	Episode         string // "" when not applicable, otherwise E01 style
	EpisodeName     string
	Resolution      string
	FileID          string // transport file identifier
	Storage         StorageRef
	Kind            MediaKind
	Caption         string
	SizeBytes       int64
	DurationSeconds int
	CreatedAt       time.Time
}

// GroupCount is a series with the number of items stored for it.
type GroupCount struct {
	GroupKey  string
	ItemCount int
}

// ResolutionCount is a resolution tier with its item count.
type ResolutionCount struct {
	Resolution string
	ItemCount  int
}

// GroupResolution is one row of the admin overview (series x resolution).
type GroupResolution struct {
	GroupKey   string
	Resolution string
	ItemCount  int
}

// DownloadEvent is the audit record of one successful delivery.
type DownloadEvent struct {
	ID          int64
	RequesterID int64
	GroupKey    string
	FileID      int64
	Storage     StorageRef
	DeliveredAt time.Time
}

// Stats summarizes the catalog.
type Stats struct {
	Series    int
	Files     int
	Downloads int
	Mappings  int
}

// NormalizeGroupKey canonicalizes a series name: NFC form, trimmed, inner
// whitespace collapsed to single spaces.
func NormalizeGroupKey(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeResolution lowercases a resolution tier ("1080P" -> "1080p").
func NormalizeResolution(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
