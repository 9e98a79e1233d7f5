package ingest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vmunix/reelbox/internal/catalog"
)

// Media describes the file attached to the message an admin replied to.
type Media struct {
	Kind            catalog.MediaKind
	FileID          string
	Name            string
	SizeBytes       int64
	DurationSeconds int
}

// FormatSize renders a byte count for captions, "Unknown" when zero.
func FormatSize(n int64) string {
	if n <= 0 {
		return "Unknown"
	}
	return humanize.IBytes(uint64(n))
}

// FormatDuration renders seconds as M:SS, "" when zero.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// StorageCaption is the caption put on the copy kept in the storage chat:
// "Name | 720p | S01E02".
func StorageCaption(c *Command) string {
	parts := []string{c.GroupKey, c.Resolution}
	if code := c.EpisodeCode(); code != "" {
		parts = append(parts, code)
	}
	return strings.Join(parts, " | ")
}

// Caption is the user-facing caption stored with the record.
func Caption(c *Command, m Media) string {
	var parts []string
	if code := c.EpisodeCode(); code != "" {
		parts = append(parts, code)
	}
	if m.DurationSeconds > 0 {
		parts = append(parts, "Duration: "+FormatDuration(m.DurationSeconds))
	}
	if m.SizeBytes > 0 {
		parts = append(parts, "Size: "+FormatSize(m.SizeBytes))
	}
	if len(parts) == 0 {
		return c.GroupKey + " - " + c.Resolution
	}
	return strings.Join(parts, " • ")
}
