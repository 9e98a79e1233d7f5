package navigation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxCallbackBytes is the transport's hard limit on callback payloads.
const MaxCallbackBytes = 64

var (
	// ErrMalformedToken means a callback payload could not be parsed.
	ErrMalformedToken = errors.New("malformed navigation token")

	// ErrTokenTooLong means an encoded callback exceeds MaxCallbackBytes.
	ErrTokenTooLong = errors.New("navigation token too long")
)

// Action is the tag at the front of every callback payload.
type Action string

const (
	ActionMain       Action = "m" // main menu
	ActionGroups     Action = "g" // group list page: g:<page>
	ActionSeries     Action = "s" // select series: s:<tok>
	ActionCheck      Action = "c" // re-check membership: c:<tok>
	ActionResolution Action = "r" // episode page: r:<tok>:<res>:<page>
	ActionBack       Action = "b" // back to resolutions: b:<tok>
	ActionFile       Action = "f" // send one item: f:<file id>
	ActionDownload   Action = "d" // send a whole resolution: d:<tok>:<res>
	ActionNoop       Action = "x" // page indicator
	ActionHelp       Action = "h" // help screen
	ActionSearch     Action = "q" // how to search
	ActionStats      Action = "t" // catalog totals
	ActionAdmin      Action = "a" // admin panel and its actions: a:<op>
)

// AdminOp selects what an admin callback does.
type AdminOp string

const (
	AdminPanel   AdminOp = "p"
	AdminStats   AdminOp = "s"
	AdminFiles   AdminOp = "f"
	AdminCleanup AdminOp = "c"
)

func (op AdminOp) valid() bool {
	switch op {
	case AdminPanel, AdminStats, AdminFiles, AdminCleanup:
		return true
	}
	return false
}

var (
	seriesTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,22}$`)
	resolutionPattern  = regexp.MustCompile(`^[0-9A-Za-z]{1,16}$`)
)

// ValidResolution reports whether res can be embedded in a callback.
func ValidResolution(res string) bool {
	return resolutionPattern.MatchString(res)
}

// Callback is a decoded navigation payload.
type Callback struct {
	Action     Action
	Token      string // series token
	Resolution string
	Page       int
	FileID     int64
	Op         AdminOp
}

// Encode renders the callback payload and enforces the size limit.
func (c Callback) Encode() (string, error) {
	var parts []string
	switch c.Action {
	case ActionMain, ActionNoop, ActionHelp, ActionSearch, ActionStats:
		parts = []string{string(c.Action)}
	case ActionAdmin:
		if !c.Op.valid() {
			return "", fmt.Errorf("%w: unknown admin op %q", ErrMalformedToken, c.Op)
		}
		parts = []string{string(c.Action), string(c.Op)}
	case ActionGroups:
		parts = []string{string(c.Action), strconv.Itoa(c.Page)}
	case ActionSeries, ActionCheck, ActionBack:
		parts = []string{string(c.Action), c.Token}
	case ActionResolution:
		parts = []string{string(c.Action), c.Token, c.Resolution, strconv.Itoa(c.Page)}
	case ActionDownload:
		parts = []string{string(c.Action), c.Token, c.Resolution}
	case ActionFile:
		parts = []string{string(c.Action), strconv.FormatInt(c.FileID, 10)}
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformedToken, c.Action)
	}
	s := strings.Join(parts, ":")
	if len(s) > MaxCallbackBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(s))
	}
	return s, nil
}

// Parse decodes a callback payload. Every field is validated so handlers
// can trust what they get.
func Parse(data string) (Callback, error) {
	if len(data) > MaxCallbackBytes {
		return Callback{}, fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(data))
	}
	parts := strings.Split(data, ":")
	c := Callback{Action: Action(parts[0])}

	bad := func(why string) (Callback, error) {
		return Callback{}, fmt.Errorf("%w: %q: %s", ErrMalformedToken, data, why)
	}
	want := map[Action]int{
		ActionMain: 1, ActionNoop: 1, ActionGroups: 2,
		ActionHelp: 1, ActionSearch: 1, ActionStats: 1, ActionAdmin: 2,
		ActionSeries: 2, ActionCheck: 2, ActionBack: 2,
		ActionResolution: 4, ActionDownload: 3, ActionFile: 2,
	}
	n, ok := want[c.Action]
	if !ok {
		return bad("unknown action")
	}
	if len(parts) != n {
		return bad("wrong field count")
	}

	switch c.Action {
	case ActionGroups:
		page, err := parsePage(parts[1])
		if err != nil {
			return bad("page")
		}
		c.Page = page
	case ActionSeries, ActionCheck, ActionBack:
		if !seriesTokenPattern.MatchString(parts[1]) {
			return bad("series token")
		}
		c.Token = parts[1]
	case ActionResolution, ActionDownload:
		if !seriesTokenPattern.MatchString(parts[1]) {
			return bad("series token")
		}
		if !ValidResolution(parts[2]) {
			return bad("resolution")
		}
		c.Token, c.Resolution = parts[1], parts[2]
		if c.Action == ActionResolution {
			page, err := parsePage(parts[3])
			if err != nil {
				return bad("page")
			}
			c.Page = page
		}
	case ActionAdmin:
		c.Op = AdminOp(parts[1])
		if !c.Op.valid() {
			return bad("admin op")
		}
	case ActionFile:
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return bad("file id")
		}
		c.FileID = id
	}
	return c, nil
}

func parsePage(s string) (int, error) {
	page, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if page < 0 {
		return 0, errors.New("negative page")
	}
	return page, nil
}

// Payload builders fall back to the noop payload when a value cannot be
// encoded, so one bad row never breaks a whole keyboard.

func mustEncode(c Callback) string {
	s, err := c.Encode()
	if err != nil {
		return string(ActionNoop)
	}
	return s
}

func mainPayload() string { return mustEncode(Callback{Action: ActionMain}) }
func noopPayload() string { return mustEncode(Callback{Action: ActionNoop}) }

func actionPayload(a Action) string { return mustEncode(Callback{Action: a}) }

// AdminPayload is the callback for an admin panel action.
func AdminPayload(op AdminOp) string {
	return mustEncode(Callback{Action: ActionAdmin, Op: op})
}

func groupsPayload(page int) string {
	return mustEncode(Callback{Action: ActionGroups, Page: page})
}

func seriesPayload(tok string) string {
	return mustEncode(Callback{Action: ActionSeries, Token: tok})
}

func checkPayload(tok string) string {
	return mustEncode(Callback{Action: ActionCheck, Token: tok})
}

func backPayload(tok string) string {
	return mustEncode(Callback{Action: ActionBack, Token: tok})
}

func resolutionPayload(tok, res string, page int) string {
	return mustEncode(Callback{Action: ActionResolution, Token: tok, Resolution: res, Page: page})
}

func downloadPayload(tok, res string) string {
	return mustEncode(Callback{Action: ActionDownload, Token: tok, Resolution: res})
}

func filePayload(id int64) string {
	return mustEncode(Callback{Action: ActionFile, FileID: id})
}

// SeriesPayload is the callback that opens a series, for posts built
// outside the navigator.
func SeriesPayload(tok string) string { return seriesPayload(tok) }

// GroupsPayload is the callback that opens the first series page.
func GroupsPayload() string { return groupsPayload(0) }
