package navigation

import (
	"strconv"
	"strings"

	"github.com/vmunix/reelbox/internal/catalog"
)

// Button is one inline keyboard button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// DeliveryIntent asks the caller to deliver items to the requesting user.
type DeliveryIntent struct {
	GroupKey   string
	Resolution string
	Label      string
	Items      []*catalog.FileRecord
	Single     bool // one item picked from an episode page
}

// Screen is the rendered result of a navigation step.
//
// An empty Text means the current message stays as it is and only the
// Alert (if any) is shown.
type Screen struct {
	Text      string
	Rows      [][]Button
	Alert     string
	ShowAlert bool
	Delivery  *DeliveryIntent
}

func alertScreen(text string) *Screen {
	return &Screen{Alert: text, ShowAlert: true}
}

var kindIcons = map[catalog.MediaKind]string{
	catalog.KindVideo:     "🎬",
	catalog.KindDocument:  "📄",
	catalog.KindAudio:     "🎵",
	catalog.KindAnimation: "🎞️",
}

// EpisodeLabel renders the button text for one item. index is the item's
// zero-based position in the full ordered list.
func EpisodeLabel(f *catalog.FileRecord, index int) string {
	var label string
	switch {
	case f.Season != "" && f.Episode != "":
		label = f.Season + " " + f.Episode
	case f.Season != "":
		label = f.Season
	case f.Episode != "":
		label = "Ep " + strings.TrimSpace(strings.Replace(f.Episode, "Episode", "", 1))
	default:
		label = "File " + strconv.Itoa(index+1)
	}
	icon, ok := kindIcons[f.Kind]
	if !ok {
		icon = "📁"
	}
	return label + " • " + icon
}
