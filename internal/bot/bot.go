// Package bot is the chat front-end: it long-polls the Bot API, routes
// commands and button presses, and hands delivery work to the dispatcher.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/delivery"
	"github.com/vmunix/reelbox/internal/events"
	"github.com/vmunix/reelbox/internal/ingest"
	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

// API is the part of the Bot API client the bot calls.
type API interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chat telegram.ChatID, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	SendPhoto(ctx context.Context, chat telegram.ChatID, photoFileID, caption string, opts *telegram.SendOptions) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chat telegram.ChatID, messageID int64, text string, opts *telegram.SendOptions) error
	AnswerCallbackQuery(ctx context.Context, queryID, text string, showAlert bool) error
}

// Catalog is the admin side of the catalog store.
type Catalog interface {
	ListGroups(ctx context.Context) ([]catalog.GroupCount, error)
	ListGroupResolutions(ctx context.Context) ([]catalog.GroupResolution, error)
	CountFiles(ctx context.Context, groupKey string) (int, error)
	DeleteGroup(ctx context.Context, groupKey string) (int64, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
}

// Encoder maps series names to tokens for deep links and search results.
type Encoder interface {
	Encode(ctx context.Context, groupKey string) (string, error)
}

// Dispatcher runs batch deliveries. *delivery.Dispatcher implements it.
type Dispatcher interface {
	Submit(req delivery.Request) (string, error)
}

// Runner delivers a request on the calling goroutine.
// *delivery.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req delivery.Request) (*delivery.Summary, error)
}

// Cleaner removes duplicate files and stale token mappings.
type Cleaner interface {
	Cleanup(ctx context.Context) (duplicates, mappings int64, err error)
}

// Publisher publishes events. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Config holds the bot's settings.
type Config struct {
	Username    string // bot username for deep links; looked up with getMe when empty
	Admins      []int64
	MainChat    string // channel /sendseries posts to
	StorageChat int64
	SponsorChat string
	PollTimeout time.Duration
	Workers     int // concurrent update handlers
}

// Deps are the collaborators the bot routes work to.
type Deps struct {
	API        API
	Navigator  *navigation.Navigator
	Catalog    Catalog
	Encoder    Encoder
	Ingester   *ingest.Ingester
	Dispatcher Dispatcher
	Pipeline   Runner    // single-item deliveries
	Cleaner    Cleaner   // may be nil
	Bus        Publisher // may be nil
}

// Bot routes updates.
type Bot struct {
	Deps
	cfg    Config
	admins map[int64]bool
	log    *slog.Logger
}

// New creates a bot.
func New(deps Deps, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 8
	}
	admins := make(map[int64]bool, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = true
	}
	return &Bot{
		Deps:   deps,
		cfg:    cfg,
		admins: admins,
		log:    logger.With("component", "bot"),
	}
}

func (b *Bot) isAdmin(user int64) bool { return b.admins[user] }

// Run polls for updates until ctx is cancelled, handling each update in
// its own goroutine with at most Config.Workers running. It waits for
// running handlers before returning.
func (b *Bot) Run(ctx context.Context) error {
	if b.cfg.Username == "" {
		me, err := b.API.GetMe(ctx)
		if err != nil {
			return fmt.Errorf("get bot identity: %w", err)
		}
		b.cfg.Username = me.Username
	}
	b.log.Info("bot started", "username", b.cfg.Username, "workers", b.cfg.Workers)

	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)

	var offset int64
	backoff := time.Second
	for ctx.Err() == nil {
		updates, err := b.API.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wait := backoff
			if rl, ok := delivery.IsRateLimited(err); ok {
				wait = rl
			}
			b.log.Warn("get updates failed", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				break
			}
			backoff = min(backoff*2, time.Minute)
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			offset = u.UpdateID + 1
			g.Go(func() error {
				b.handleUpdate(ctx, u)
				return nil
			})
		}
	}

	_ = g.Wait()
	b.log.Info("bot stopped")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handleUpdate routes one update. A panic in a handler is logged and does
// not take the poll loop down.
func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic handling update", "update_id", u.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	n := &callbackNotifier{api: b.API, queryID: q.ID}
	if q.Message != nil {
		n.chat, n.messageID = q.Message.Chat.ID, q.Message.MessageID
	}
	// admin actions other than opening the panel run here, not in the navigator
	if cb, err := navigation.Parse(q.Data); err == nil && cb.Action == navigation.ActionAdmin && cb.Op != navigation.AdminPanel {
		b.adminCallback(ctx, q.From.ID, cb.Op, n)
		return
	}
	b.navigate(ctx, q.From.ID, q.Data, n)
}

// navigate runs one navigation step and shows the result through n. A
// screen carrying a delivery intent is shown first, so the button press is
// acknowledged before any file is sent.
func (b *Bot) navigate(ctx context.Context, user int64, data string, n Notifier) {
	screen, err := b.Navigator.Handle(ctx, user, data)
	if err != nil {
		b.log.Warn("navigation failed", "user", user, "data", data, "error", err)
		screen = &navigation.Screen{Alert: navigation.UserMessage(err), ShowAlert: true}
	}
	if err := n.Show(ctx, screen); err != nil {
		b.log.Warn("show screen failed", "user", user, "error", err)
	}
	if screen.Delivery != nil {
		b.deliver(ctx, user, screen.Delivery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	cmd, args := parseCommand(m.Text, b.cfg.Username)
	if cmd == "" {
		return
	}
	user := m.From.ID
	b.log.Debug("command", "user", user, "command", cmd)

	switch cmd {
	case "start":
		b.cmdStart(ctx, m, args)
	case "help":
		b.cmdHelp(ctx, m)
	case "search":
		b.cmdSearch(ctx, m, args)
	case "addfile", "files", "delete_series", "stats", "sendseries", "cleanup":
		if !m.IsPrivate() {
			return
		}
		if !b.isAdmin(user) {
			b.log.Warn("unauthorized admin command", "user", user, "command", cmd)
			b.reply(ctx, m, "❌ Admin only command.")
			return
		}
		b.adminCommand(ctx, m, cmd, args)
	}
}

// parseCommand splits "/cmd@bot args" into its name and argument text.
// Commands addressed to a different bot are ignored.
func parseCommand(text, username string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text[1:], " ")
	name, target, addressed := strings.Cut(head, "@")
	if addressed && username != "" && !strings.EqualFold(target, username) {
		return "", ""
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (b *Bot) reply(ctx context.Context, m *telegram.Message, text string) {
	if _, err := b.API.SendMessage(ctx, telegram.ID(m.Chat.ID), text, &telegram.SendOptions{NoPreview: true}); err != nil {
		b.log.Warn("reply failed", "chat", m.Chat.ID, "error", err)
	}
}

func (b *Bot) replyHTML(ctx context.Context, m *telegram.Message, text string, rows [][]navigation.Button) {
	n := &messageNotifier{api: b.API, chat: m.Chat.ID}
	if err := n.Show(ctx, &navigation.Screen{Text: text, Rows: rows}); err != nil {
		b.log.Warn("reply failed", "chat", m.Chat.ID, "error", err)
	}
}

func (b *Bot) publish(ctx context.Context, e events.Event) {
	if b.Bus == nil {
		return
	}
	if err := b.Bus.Publish(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		b.log.Warn("publish failed", "event", e.EventType(), "error", err)
	}
}
