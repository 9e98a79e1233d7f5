package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/events"
	"github.com/vmunix/reelbox/internal/ingest"
	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

func (b *Bot) adminCommand(ctx context.Context, m *telegram.Message, cmd, args string) {
	switch cmd {
	case "addfile":
		b.cmdAddFile(ctx, m, args)
	case "files":
		b.cmdFiles(ctx, m)
	case "delete_series":
		b.cmdDeleteSeries(ctx, m, args)
	case "stats":
		b.cmdStats(ctx, m)
	case "sendseries":
		b.cmdSendSeries(ctx, m, args)
	case "cleanup":
		b.cmdCleanup(ctx, m)
	}
}

func (b *Bot) cmdAddFile(ctx context.Context, m *telegram.Message, args string) {
	if m.ReplyToMessage == nil || args == "" {
		b.reply(ctx, m, ingest.HelpText)
		return
	}
	res, err := b.Ingester.Add(ctx, ingest.Request{
		Admin:         m.From.ID,
		Text:          args,
		Media:         mediaOf(m.ReplyToMessage),
		SourceChat:    m.Chat.ID,
		SourceMessage: m.ReplyToMessage.MessageID,
	})
	if err != nil {
		b.log.Warn("addfile failed", "admin", m.From.ID, "error", err)
		b.reply(ctx, m, ingest.UserMessage(err))
		return
	}
	b.reply(ctx, m, res.Message())
}

// mediaOf extracts the storable media of a message, nil when there is none.
func mediaOf(m *telegram.Message) *ingest.Media {
	switch {
	case m.Document != nil:
		return &ingest.Media{Kind: catalog.KindDocument, FileID: m.Document.FileID,
			Name: orDefault(m.Document.FileName, "Document"), SizeBytes: m.Document.FileSize}
	case m.Video != nil:
		return &ingest.Media{Kind: catalog.KindVideo, FileID: m.Video.FileID,
			Name: orDefault(m.Video.FileName, "Video"), SizeBytes: m.Video.FileSize, DurationSeconds: m.Video.Duration}
	case m.Audio != nil:
		name := orDefault(m.Audio.Title, orDefault(m.Audio.FileName, "Audio"))
		return &ingest.Media{Kind: catalog.KindAudio, FileID: m.Audio.FileID,
			Name: name, SizeBytes: m.Audio.FileSize, DurationSeconds: m.Audio.Duration}
	case m.Animation != nil:
		return &ingest.Media{Kind: catalog.KindAnimation, FileID: m.Animation.FileID,
			Name: orDefault(m.Animation.FileName, "Animation"), SizeBytes: m.Animation.FileSize, DurationSeconds: m.Animation.Duration}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (b *Bot) cmdFiles(ctx context.Context, m *telegram.Message) {
	text, err := b.filesText(ctx)
	if err != nil {
		b.reply(ctx, m, "❌ Error retrieving files list.")
		return
	}
	b.replyHTML(ctx, m, text, nil)
}

func (b *Bot) filesText(ctx context.Context) (string, error) {
	rows, err := b.Catalog.ListGroupResolutions(ctx)
	if err != nil {
		b.log.Error("files: list", "error", err)
		return "", err
	}
	if len(rows) == 0 {
		return "No files in database yet", nil
	}

	var sb strings.Builder
	sb.WriteString("<b>Files in Database:</b>\n")
	current := ""
	for _, r := range rows {
		if r.GroupKey != current {
			fmt.Fprintf(&sb, "\n<b>%s</b>\n", html.EscapeString(r.GroupKey))
			current = r.GroupKey
		}
		fmt.Fprintf(&sb, "  └ %s: %d files\n", html.EscapeString(r.Resolution), r.ItemCount)
	}
	return sb.String(), nil
}

func (b *Bot) cmdDeleteSeries(ctx context.Context, m *telegram.Message, args string) {
	group := catalog.NormalizeGroupKey(strings.Trim(args, `"`))
	if group == "" {
		b.reply(ctx, m, `Usage: /delete_series "Series Name"`)
		return
	}
	removed, err := b.Catalog.DeleteGroup(ctx, group)
	if err != nil {
		b.log.Error("delete series failed", "group", group, "error", err)
		b.reply(ctx, m, "❌ "+navigation.UserMessage(err))
		return
	}
	if removed == 0 {
		b.reply(ctx, m, fmt.Sprintf("No files found for series '%s'", group))
		return
	}
	b.publish(ctx, &events.GroupDeleted{
		BaseEvent: events.NewBaseEvent(events.EventGroupDeleted, events.EntityGroup, 0),
		GroupKey:  group,
		Removed:   removed,
	})
	b.log.Info("series deleted", "admin", m.From.ID, "group", group, "removed", removed)
	b.reply(ctx, m, fmt.Sprintf("Deleted %d files from '%s'", removed, group))
}

func (b *Bot) cmdStats(ctx context.Context, m *telegram.Message) {
	text, err := b.statsText(ctx)
	if err != nil {
		b.reply(ctx, m, "❌ Error generating statistics.")
		return
	}
	b.replyHTML(ctx, m, text, nil)
}

func (b *Bot) statsText(ctx context.Context) (string, error) {
	st, err := b.Catalog.Stats(ctx)
	if err != nil {
		b.log.Error("stats failed", "error", err)
		return "", err
	}
	return fmt.Sprintf(`<b>📊 Bot Statistics</b>

<b>Database:</b>
• Total Series: <code>%d</code>
• Total Files: <code>%d</code>
• Total Downloads: <code>%d</code>
• Series Links: <code>%d</code>

<b>Channels:</b>
• Main Channel: <code>%s</code>
• Database Channel: <code>%d</code>
• Sponsor Channel: <code>%s</code>

<b>Admins:</b> <code>%d</code> users`,
		st.Series, st.Files, st.Downloads, st.Mappings,
		html.EscapeString(orDefault(b.cfg.MainChat, "Not set")), b.cfg.StorageChat,
		html.EscapeString(orDefault(b.cfg.SponsorChat, "Not set")), len(b.cfg.Admins)), nil
}

// cmdSendSeries posts a series card with a deep link button to the main
// channel, as a photo when the command replies to one.
func (b *Bot) cmdSendSeries(ctx context.Context, m *telegram.Message, args string) {
	if args == "" {
		b.reply(ctx, m, "⚠️ Usage: /sendseries Series Name")
		return
	}
	if b.cfg.MainChat == "" {
		b.reply(ctx, m, "❌ No main channel configured.")
		return
	}
	group := catalog.NormalizeGroupKey(args)
	count, err := b.Catalog.CountFiles(ctx, group)
	if err != nil {
		b.reply(ctx, m, "⚠️ "+navigation.UserMessage(err))
		return
	}
	if count == 0 {
		b.reply(ctx, m, fmt.Sprintf("❌ No files found for series '%s'. Add files first using /addfile.", group))
		return
	}
	tok, err := b.Encoder.Encode(ctx, group)
	if err != nil {
		b.log.Error("sendseries: encode", "group", group, "error", err)
		b.reply(ctx, m, "⚠️ "+navigation.UserMessage(err))
		return
	}

	opts := &telegram.SendOptions{
		ParseMode: telegram.ParseModeHTML,
		ReplyMarkup: keyboard([][]navigation.Button{
			{{Text: "📥 Download Series", URL: b.deepLink(tok)}},
		}),
	}
	card := fmt.Sprintf("<b>%s</b>\n\n🎬 Complete Series Available\n📺 %d Episodes • Multiple Qualities\n\nTap <b>Download</b> below to get started 👇",
		html.EscapeString(group), count)

	chat := telegram.ChatID(b.cfg.MainChat)
	if photo := largestPhoto(m.ReplyToMessage); photo != "" {
		_, err = b.API.SendPhoto(ctx, chat, photo, card, opts)
	} else {
		_, err = b.API.SendMessage(ctx, chat, card, opts)
	}
	if err != nil {
		b.log.Error("sendseries: post failed", "group", group, "error", err)
		b.reply(ctx, m, "⚠️ Could not post to the main channel.")
		return
	}
	b.log.Info("series posted", "admin", m.From.ID, "group", group, "files", count)
	b.reply(ctx, m, fmt.Sprintf("✅ Series post sent to channel! (%d files)", count))
}

func (b *Bot) deepLink(tok string) string {
	return "https://t.me/" + b.cfg.Username + "?start=" + tok
}

func largestPhoto(m *telegram.Message) string {
	if m == nil || len(m.Photo) == 0 {
		return ""
	}
	return m.Photo[len(m.Photo)-1].FileID
}

func (b *Bot) cmdCleanup(ctx context.Context, m *telegram.Message) {
	b.reply(ctx, m, b.cleanup(ctx))
}

// cleanup runs the cleaner and returns the outcome as a plain message.
func (b *Bot) cleanup(ctx context.Context) string {
	if b.Cleaner == nil {
		return "❌ Cleanup is not available."
	}
	dups, mappings, err := b.Cleaner.Cleanup(ctx)
	if err != nil {
		b.log.Error("cleanup failed", "error", err)
		msg := "❌ Cleanup failed."
		if errors.Is(err, catalog.ErrStoreUnavailable) {
			msg += " " + navigation.UserMessage(err)
		}
		return msg
	}
	return fmt.Sprintf("🔄 Cleanup complete: removed %d duplicate file(s) and %d stale series link(s).", dups, mappings)
}

// adminCallback runs an admin panel action and shows its result in place
// of the panel.
func (b *Bot) adminCallback(ctx context.Context, user int64, op navigation.AdminOp, n Notifier) {
	if !b.isAdmin(user) {
		b.log.Warn("unauthorized admin callback", "user", user, "op", op)
		if err := n.Show(ctx, &navigation.Screen{Alert: "❌ Admin access required.", ShowAlert: true}); err != nil {
			b.log.Warn("show screen failed", "user", user, "error", err)
		}
		return
	}

	var text string
	switch op {
	case navigation.AdminStats:
		t, err := b.statsText(ctx)
		if err != nil {
			t = "❌ Error generating statistics."
		}
		text = t
	case navigation.AdminFiles:
		t, err := b.filesText(ctx)
		if err != nil {
			t = "❌ Error retrieving files list."
		}
		text = t
	case navigation.AdminCleanup:
		text = html.EscapeString(b.cleanup(ctx))
	}

	screen := &navigation.Screen{
		Text: text,
		Rows: [][]navigation.Button{{{Text: "🔙 Admin Panel", Data: navigation.AdminPayload(navigation.AdminPanel)}}},
	}
	if err := n.Show(ctx, screen); err != nil {
		b.log.Warn("show screen failed", "user", user, "error", err)
	}
}
