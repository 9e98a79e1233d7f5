package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "Unknown", FormatSize(0))
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
	assert.Equal(t, "1.0 GiB", FormatSize(1<<30))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", FormatDuration(0))
	assert.Equal(t, "0:59", FormatDuration(59))
	assert.Equal(t, "3:05", FormatDuration(185))
	assert.Equal(t, "62:00", FormatDuration(3720))
}

func TestCaptions(t *testing.T) {
	full := &Command{GroupKey: "Dark", Season: "S01", Episode: "E02", Resolution: "720p"}
	assert.Equal(t, "Dark | 720p | S01E02", StorageCaption(full))
	assert.Equal(t, "S01E02 • Duration: 3:05 • Size: 1.5 KiB",
		Caption(full, Media{SizeBytes: 1536, DurationSeconds: 185}))

	bare := &Command{GroupKey: "Dark", Resolution: "480p"}
	assert.Equal(t, "Dark | 480p", StorageCaption(bare))
	assert.Equal(t, "Dark - 480p", Caption(bare, Media{}))
}
