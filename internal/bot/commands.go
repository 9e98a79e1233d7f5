package bot

import (
	"context"
	"fmt"
	"html"

	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
	"github.com/vmunix/reelbox/pkg/titlematch"
)

const searchLimit = 10

// cmdStart shows the main menu, or opens a series when started from a
// deep link ("/start <token>").
func (b *Bot) cmdStart(ctx context.Context, m *telegram.Message, args string) {
	user := m.From.ID
	n := &messageNotifier{api: b.API, chat: m.Chat.ID}

	if args != "" {
		data := navigation.SeriesPayload(args)
		if cb, err := navigation.Parse(data); err == nil && cb.Action == navigation.ActionSeries {
			b.navigate(ctx, user, data, n)
			return
		}
		b.log.Info("ignoring malformed start parameter", "user", user, "param", args)
	}

	screen := b.Navigator.Main(user)
	if err := n.Show(ctx, screen); err != nil {
		b.log.Warn("show main menu failed", "user", user, "error", err)
	}
}

func (b *Bot) cmdHelp(ctx context.Context, m *telegram.Message) {
	b.replyHTML(ctx, m, navigation.HelpText, [][]navigation.Button{
		{{Text: "📺 Start Browsing", Data: navigation.GroupsPayload()}},
	})
}

// cmdSearch ranks series names against the query and lists the best
// matches as buttons.
func (b *Bot) cmdSearch(ctx context.Context, m *telegram.Message, query string) {
	if query == "" {
		b.reply(ctx, m, "Usage: /search Series Name")
		return
	}
	groups, err := b.Catalog.ListGroups(ctx)
	if err != nil {
		b.log.Error("search: list groups", "error", err)
		b.reply(ctx, m, navigation.UserMessage(err))
		return
	}

	titles := make([]string, len(groups))
	counts := make(map[string]int, len(groups))
	for i, g := range groups {
		titles[i] = g.GroupKey
		counts[g.GroupKey] = g.ItemCount
	}
	matches := titlematch.Rank(query, titles, searchLimit)
	if len(matches) == 0 {
		b.reply(ctx, m, fmt.Sprintf("❌ No series found matching %q.", query))
		return
	}

	rows := make([][]navigation.Button, 0, len(matches))
	for _, match := range matches {
		tok, err := b.Encoder.Encode(ctx, match.Title)
		if err != nil {
			b.log.Error("search: encode series", "group", match.Title, "error", err)
			continue
		}
		rows = append(rows, []navigation.Button{{
			Text: fmt.Sprintf("📺 %s (%d files)", match.Title, counts[match.Title]),
			Data: navigation.SeriesPayload(tok),
		}})
	}
	b.replyHTML(ctx, m, fmt.Sprintf("<b>🔍 Results for</b> %s", html.EscapeString(query)), rows)
}
