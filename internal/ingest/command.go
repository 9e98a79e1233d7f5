package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HelpText documents the accepted /addfile forms.
const HelpText = `How to Add Files

Format 1 (Recommended):
/addfile Series Name | S01E01 | 720p

Format 2:
/addfile Series Name | Season 1 | Episode 1 | 1080p

Format 3 (Simple):
/addfile Series Name | 480p

Reply to a file when using this command.`

var (
	episodeCodeForm = regexp.MustCompile(`(?i)^(.+?)\s*\|\s*S(\d+)E(\d+)\s*\|\s*(\d+p)$`)
	longForm        = regexp.MustCompile(`(?i)^(.+?)\s*\|\s*season\s*(\d+)\s*\|\s*episode\s*(\d+)\s*\|\s*(\d+p)$`)
	simpleForm      = regexp.MustCompile(`(?i)^(.+?)\s*\|\s*(\d+p)$`)
)

// Command is a parsed /addfile request.
type Command struct {
	GroupKey   string `validate:"required,max=128"`
	Season     string `validate:"omitempty,season"`
	Episode    string `validate:"omitempty,episode"`
	Resolution string `validate:"required,alphanum,max=16"`
}

// EpisodeCode joins season and episode ("S01E02", "S01", "E02" or "").
func (c Command) EpisodeCode() string {
	return c.Season + c.Episode
}

// ParseCommand parses the text after "/addfile". Accepted forms, tried in
// order:
//
//	Name | S01E01 | 720p
//	Name | Season 1 | Episode 1 | 1080p
//	Name | 480p
//
// Anything else with at least one "|" falls back to "Name | resolution".
// Season and episode numbers are zero padded to two digits and the
// resolution is lowercased.
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)

	if m := episodeCodeForm.FindStringSubmatch(text); m != nil {
		return newCommand(m[1], m[2], m[3], m[4])
	}
	if m := longForm.FindStringSubmatch(text); m != nil {
		return newCommand(m[1], m[2], m[3], m[4])
	}
	if m := simpleForm.FindStringSubmatch(text); m != nil {
		return newCommand(m[1], "", "", m[2])
	}

	parts := strings.Split(text, "|")
	if len(parts) < 2 {
		return nil, ErrUsage
	}
	name, res := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if name == "" || res == "" {
		return nil, ErrUsage
	}
	return newCommand(name, "", "", res)
}

func newCommand(name, season, episode, resolution string) (*Command, error) {
	c := &Command{
		GroupKey:   strings.TrimSpace(name),
		Resolution: strings.ToLower(strings.TrimSpace(resolution)),
	}
	if season != "" {
		n, err := strconv.Atoi(season)
		if err != nil {
			return nil, fmt.Errorf("%w: season %q", ErrUsage, season)
		}
		c.Season = fmt.Sprintf("S%02d", n)
	}
	if episode != "" {
		n, err := strconv.Atoi(episode)
		if err != nil {
			return nil, fmt.Errorf("%w: episode %q", ErrUsage, episode)
		}
		c.Episode = fmt.Sprintf("E%02d", n)
	}
	return c, nil
}
