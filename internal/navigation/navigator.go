// Package navigation renders the stateless browse menus: series list,
// resolution list, episode pages and item selection. Every step is driven by
// a callback payload that carries all the state needed to render it, and
// every step re-queries the catalog instead of trusting counts from an
// earlier render.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"

	"github.com/vmunix/reelbox/internal/catalog"
)

// Membership is the result of a channel membership check.
type Membership int

const (
	Unknown Membership = iota
	Member
	NotMember
)

func (m Membership) String() string {
	switch m {
	case Member:
		return "member"
	case NotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// MembershipFunc reports whether user may open a series. A nil func lets
// everyone through.
type MembershipFunc func(ctx context.Context, user int64) (Membership, error)

// Catalog is the read side the navigator needs.
type Catalog interface {
	ListGroups(ctx context.Context) ([]catalog.GroupCount, error)
	ListResolutions(ctx context.Context, groupKey string) ([]catalog.ResolutionCount, error)
	ListItems(ctx context.Context, groupKey, resolution string) ([]*catalog.FileRecord, error)
	GetFile(ctx context.Context, id int64) (*catalog.FileRecord, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
}

// Codec maps series names to tokens.
type Codec interface {
	Encode(ctx context.Context, groupKey string) (string, error)
	Decode(ctx context.Context, token string) (string, bool, error)
}

// Config holds the navigator's tunables.
type Config struct {
	PageSize       int    // episodes per page, default 6
	GroupsPageSize int    // series per page, default 10
	JoinURL        string // invite link shown when gating fails
	Admins         []int64
}

// Navigator renders screens. It holds no per-user state and is safe for
// concurrent use.
type Navigator struct {
	catalog    Catalog
	codec      Codec
	membership MembershipFunc
	cfg        Config
	admins     map[int64]bool
	logger     *slog.Logger
}

// New creates a navigator.
func New(cat Catalog, codec Codec, membership MembershipFunc, cfg Config, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 6
	}
	if cfg.GroupsPageSize < 1 {
		cfg.GroupsPageSize = 10
	}
	admins := make(map[int64]bool, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = true
	}
	return &Navigator{
		catalog:    cat,
		codec:      codec,
		membership: membership,
		cfg:        cfg,
		admins:     admins,
		logger:     logger.With("component", "navigation"),
	}
}

// Handle renders the screen for a callback payload pressed by user.
// Unknown entries render as alerts; errors are returned only for malformed
// payloads and store failures.
func (n *Navigator) Handle(ctx context.Context, user int64, data string) (*Screen, error) {
	cb, err := Parse(data)
	if err != nil {
		n.logger.Warn("rejected callback", "user", user, "data", data, "error", err)
		return nil, err
	}

	switch cb.Action {
	case ActionMain:
		return n.Main(user), nil
	case ActionNoop:
		return &Screen{}, nil
	case ActionHelp:
		return n.Help(), nil
	case ActionSearch:
		return n.SearchPrompt(), nil
	case ActionStats:
		return n.Stats(ctx)
	case ActionAdmin:
		if cb.Op != AdminPanel {
			return nil, fmt.Errorf("%w: admin op %q is not a navigation step", ErrMalformedToken, cb.Op)
		}
		return n.AdminPanel(user), nil
	case ActionGroups:
		return n.Groups(ctx, cb.Page)
	case ActionFile:
		return n.File(ctx, user, cb.FileID)
	}

	group, found, err := n.codec.Decode(ctx, cb.Token)
	if err != nil {
		return nil, err
	}
	if !found {
		n.logger.Info("unknown series token", "user", user, "token", cb.Token)
		return notFoundScreen(), nil
	}

	switch cb.Action {
	case ActionSeries:
		return n.SelectSeries(ctx, user, cb.Token, group)
	case ActionCheck:
		return n.Check(ctx, user, cb.Token, group)
	}

	// payloads past the resolution list can be typed by hand, so they are
	// gated as well
	if n.checkMembership(ctx, user) != Member {
		return n.joinScreen(cb.Token, group), nil
	}
	switch cb.Action {
	case ActionBack:
		return n.Resolutions(ctx, cb.Token, group)
	case ActionResolution:
		return n.Episodes(ctx, cb.Token, group, cb.Resolution, cb.Page)
	case ActionDownload:
		return n.Download(ctx, group, cb.Resolution)
	}
	return nil, fmt.Errorf("%w: unhandled action %q", ErrMalformedToken, cb.Action)
}

func notFoundScreen() *Screen {
	return alertScreen("This catalog entry no longer exists.")
}

// HelpText is the help screen body.
const HelpText = `<b>📖 TV Series Bot Help</b>

<b>For Users:</b>
• Browse series using the menu or /search
• Join required channels when prompted
• Select resolution and episode
• Files are sent to your DM

<b>For Admins:</b>
<code>/addfile Series Name | S01E01 | 720p</code> (reply to file)
<code>/sendseries Series Name</code> (optionally reply to image)
<code>/files</code> - files in the catalog
<code>/delete_series Series Name</code>
<code>/stats</code> - bot statistics
<code>/cleanup</code> - remove duplicates and stale links

<b>Need Help?</b>
1. Make sure you've started a chat with the bot
2. Check if you've joined required channels
3. Try again after a few minutes

<b>Supported File Types:</b>
📄 Documents, 🎬 Videos, 🎵 Audio, 🎞️ Animations`

// Main renders the main menu. Admins also get the admin panel button.
func (n *Navigator) Main(user int64) *Screen {
	s := &Screen{
		Text: "<b>🎬 TV Series Bot</b>\n\nBrowse available series or use /search to find one.",
		Rows: [][]Button{
			{{Text: "📺 Browse Series", Data: groupsPayload(0)}},
			{{Text: "🔍 Search Series", Data: actionPayload(ActionSearch)}},
			{
				{Text: "ℹ️ Help", Data: actionPayload(ActionHelp)},
				{Text: "📊 Stats", Data: actionPayload(ActionStats)},
			},
		},
	}
	if n.admins[user] {
		s.Text += "\n\n👑 <b>Admin Mode Activated</b>"
		s.Rows = append(s.Rows, []Button{{Text: "🛠️ Admin Panel", Data: AdminPayload(AdminPanel)}})
	}
	return s
}

// Help renders the help text.
func (n *Navigator) Help() *Screen {
	return &Screen{
		Text: HelpText,
		Rows: [][]Button{
			{{Text: "📺 Start Browsing", Data: groupsPayload(0)}},
			{{Text: "🔙 Main Menu", Data: mainPayload()}},
		},
	}
}

// SearchPrompt explains how to search; searching itself is a command.
func (n *Navigator) SearchPrompt() *Screen {
	return &Screen{
		Text: "<b>🔍 Search Series</b>\n\nSend <code>/search Series Name</code> and pick a match from the results.",
		Rows: [][]Button{{{Text: "🔙 Main Menu", Data: mainPayload()}}},
	}
}

// Stats renders the catalog totals anyone may see.
func (n *Navigator) Stats(ctx context.Context) (*Screen, error) {
	st, err := n.catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Screen{
		Text: fmt.Sprintf("<b>📊 Catalog</b>\n\n• Series: <code>%d</code>\n• Files: <code>%d</code>\n• Downloads: <code>%d</code>",
			st.Series, st.Files, st.Downloads),
		Rows: [][]Button{
			{{Text: "📺 Browse Series", Data: groupsPayload(0)}},
			{{Text: "🔙 Main Menu", Data: mainPayload()}},
		},
	}, nil
}

// AdminPanel renders the admin actions. Other users get an alert.
func (n *Navigator) AdminPanel(user int64) *Screen {
	if !n.admins[user] {
		n.logger.Warn("admin panel denied", "user", user)
		return alertScreen("❌ Admin access required.")
	}
	return &Screen{
		Text: "<b>🛠️ Admin Panel</b>\n\nSelect an action:",
		Rows: [][]Button{
			{
				{Text: "📊 View Stats", Data: AdminPayload(AdminStats)},
				{Text: "📁 View Files", Data: AdminPayload(AdminFiles)},
			},
			{{Text: "🔄 Cleanup DB", Data: AdminPayload(AdminCleanup)}},
			{{Text: "🔙 Main Menu", Data: mainPayload()}},
		},
	}
}

// Groups renders one page of the series list. Listing a series refreshes its
// token mapping.
func (n *Navigator) Groups(ctx context.Context, page int) (*Screen, error) {
	groups, err := n.catalog.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return alertScreen("❌ No series available yet."), nil
	}

	slice, total := catalog.Paginate(groups, n.cfg.GroupsPageSize, page)
	if len(slice) == 0 {
		page = total - 1
		slice, _ = catalog.Paginate(groups, n.cfg.GroupsPageSize, page)
	}

	rows := make([][]Button, 0, len(slice)+2)
	for _, g := range slice {
		tok, err := n.codec.Encode(ctx, g.GroupKey)
		if err != nil {
			n.logger.Error("encode series", "group", g.GroupKey, "error", err)
			continue
		}
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("📺 %s (%d files)", g.GroupKey, g.ItemCount),
			Data: seriesPayload(tok),
		}})
	}
	if nav := pageRow(page, total, groupsPayload); nav != nil {
		rows = append(rows, nav)
	}
	rows = append(rows, []Button{{Text: "🔙 Back", Data: mainPayload()}})

	return &Screen{
		Text: "<b>📺 Available Series</b>\n\nSelect a series to browse:",
		Rows: rows,
	}, nil
}

// SelectSeries applies the membership gate and shows the resolution list.
func (n *Navigator) SelectSeries(ctx context.Context, user int64, tok, group string) (*Screen, error) {
	switch n.checkMembership(ctx, user) {
	case Member:
		return n.Resolutions(ctx, tok, group)
	default:
		return n.joinScreen(tok, group), nil
	}
}

// Check re-evaluates the gate after the user says they joined.
func (n *Navigator) Check(ctx context.Context, user int64, tok, group string) (*Screen, error) {
	switch n.checkMembership(ctx, user) {
	case Member:
		s, err := n.Resolutions(ctx, tok, group)
		if err != nil {
			return nil, err
		}
		if s.Alert == "" {
			s.Alert = "✅ Access granted!"
		}
		return s, nil
	case NotMember:
		return alertScreen("❌ You haven't joined the channel yet!"), nil
	default:
		return alertScreen("❌ Please make sure you've joined and try again."), nil
	}
}

func (n *Navigator) checkMembership(ctx context.Context, user int64) Membership {
	if n.membership == nil {
		return Member
	}
	m, err := n.membership(ctx, user)
	if err != nil {
		n.logger.Warn("membership check failed", "user", user, "error", err)
		return Unknown
	}
	return m
}

func (n *Navigator) joinScreen(tok, group string) *Screen {
	rows := make([][]Button, 0, 2)
	if n.cfg.JoinURL != "" {
		rows = append(rows, []Button{{Text: "📢 Join Channel", URL: n.cfg.JoinURL}})
	}
	rows = append(rows, []Button{{Text: "✅ I've Joined", Data: checkPayload(tok)}})
	return &Screen{
		Text: fmt.Sprintf("<b>%s</b>\n\n📢 Please join our channel to access the episodes.", html.EscapeString(group)),
		Rows: rows,
	}
}

// Resolutions renders the resolution list of a series.
func (n *Navigator) Resolutions(ctx context.Context, tok, group string) (*Screen, error) {
	resolutions, err := n.catalog.ListResolutions(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(resolutions) == 0 {
		return &Screen{
			Text: "❌ No files available for this series.",
			Rows: [][]Button{{{Text: "📋 All Series", Data: groupsPayload(0)}}},
		}, nil
	}

	rows := make([][]Button, 0, len(resolutions)+1)
	for _, r := range resolutions {
		if !ValidResolution(r.Resolution) {
			n.logger.Warn("resolution not addressable", "group", group, "resolution", r.Resolution)
			continue
		}
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s 📁 (%d files)", r.Resolution, r.ItemCount),
			Data: resolutionPayload(tok, r.Resolution, 0),
		}})
	}
	rows = append(rows, []Button{{Text: "📋 All Series", Data: groupsPayload(0)}})

	return &Screen{
		Text: fmt.Sprintf("<b>%s</b>\n\nAvailable resolutions:", html.EscapeString(group)),
		Rows: rows,
	}, nil
}

// Episodes renders one page of items for a series and resolution. A page
// past the end is clamped to the last page.
func (n *Navigator) Episodes(ctx context.Context, tok, group, resolution string, page int) (*Screen, error) {
	items, err := n.catalog.ListItems(ctx, group, resolution)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return alertScreen("No episodes available for this resolution."), nil
	}

	slice, total := catalog.Paginate(items, n.cfg.PageSize, page)
	if len(slice) == 0 {
		page = total - 1
		slice, _ = catalog.Paginate(items, n.cfg.PageSize, page)
	}
	start := page * n.cfg.PageSize

	rows := make([][]Button, 0, len(slice)+3)
	for i, item := range slice {
		rows = append(rows, []Button{{Text: EpisodeLabel(item, start+i), Data: filePayload(item.ID)}})
	}
	if nav := pageRow(page, total, func(p int) string { return resolutionPayload(tok, resolution, p) }); nav != nil {
		rows = append(rows, nav)
	}
	rows = append(rows,
		[]Button{{Text: fmt.Sprintf("📥 Send all %d", len(items)), Data: downloadPayload(tok, resolution)}},
		[]Button{{Text: "🔙 Back to Resolutions", Data: backPayload(tok)}},
	)

	text := fmt.Sprintf("<b>%s</b>\n🎯 <b>Resolution:</b> %s\n📂 <b>Episodes:</b> %d-%d of %d\n\nSelect an episode to download:",
		html.EscapeString(group), html.EscapeString(resolution), start+1, start+len(slice), len(items))
	return &Screen{Text: text, Rows: rows}, nil
}

// File resolves a single item selection into a delivery intent. File ids
// are sequential, so the membership gate applies here too.
func (n *Navigator) File(ctx context.Context, user, id int64) (*Screen, error) {
	f, err := n.catalog.GetFile(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return alertScreen("❌ File not found in database."), nil
	}
	if err != nil {
		return nil, err
	}
	if n.checkMembership(ctx, user) != Member {
		tok, err := n.codec.Encode(ctx, f.GroupKey)
		if err != nil {
			return nil, err
		}
		return n.joinScreen(tok, f.GroupKey), nil
	}
	return &Screen{
		Alert: "✅ Sending to your DM...",
		Delivery: &DeliveryIntent{
			GroupKey:   f.GroupKey,
			Resolution: f.Resolution,
			Label:      ItemTitle(f),
			Items:      []*catalog.FileRecord{f},
			Single:     true,
		},
	}, nil
}

// Download resolves a whole-resolution request into a delivery intent.
func (n *Navigator) Download(ctx context.Context, group, resolution string) (*Screen, error) {
	items, err := n.catalog.ListItems(ctx, group, resolution)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return alertScreen("No episodes available for this resolution."), nil
	}
	return &Screen{
		Alert: fmt.Sprintf("📨 Sending %d file(s) to your DM...", len(items)),
		Delivery: &DeliveryIntent{
			GroupKey:   group,
			Resolution: resolution,
			Label:      group + " " + resolution,
			Items:      items,
		},
	}, nil
}

// ItemTitle is a short human title for one item, e.g. "Dark S01 E02 720p".
func ItemTitle(f *catalog.FileRecord) string {
	title := f.GroupKey
	for _, part := range []string{f.Season, f.Episode, f.Resolution} {
		if part != "" {
			title += " " + part
		}
	}
	return title
}

// pageRow renders prev / indicator / next. It returns nil for a single page.
func pageRow(page, total int, payload func(int) string) []Button {
	if total <= 1 {
		return nil
	}
	row := make([]Button, 0, 3)
	if page > 0 {
		row = append(row, Button{Text: "◀️ Prev", Data: payload(page - 1)})
	}
	row = append(row, Button{Text: "📖 " + strconv.Itoa(page+1) + "/" + strconv.Itoa(total), Data: noopPayload()})
	if page < total-1 {
		row = append(row, Button{Text: "Next ▶️", Data: payload(page + 1)})
	}
	return row
}

// UserMessage returns the text shown when Handle fails.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrTokenTooLong):
		return "This button is no longer valid. Please open the menu again."
	case errors.Is(err, catalog.ErrStoreUnavailable):
		return "The catalog is temporarily unavailable. Please try again."
	default:
		return "❌ Error processing your request."
	}
}
