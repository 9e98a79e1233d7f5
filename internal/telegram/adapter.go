package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/delivery"
	"github.com/vmunix/reelbox/internal/navigation"
)

// Adapter binds a Client to the storage chat, the sponsor chat and the
// admin list. It implements delivery.Transport, delivery.Fallback and
// ingest.Storage.
type Adapter struct {
	client      *Client
	storageChat int64
	sponsorChat ChatID // "" disables the membership gate
	admins      []int64
	log         *slog.Logger

	mu       sync.Mutex
	username string // bot username for delivery captions
}

// AdapterConfig names the chats the adapter works with.
type AdapterConfig struct {
	StorageChat int64
	SponsorChat string
	Admins      []int64
	Username    string // looked up with getMe on first copy when empty
}

// NewAdapter creates an Adapter.
func NewAdapter(client *Client, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		client:      client,
		storageChat: cfg.StorageChat,
		sponsorChat: ChatID(cfg.SponsorChat),
		admins:      cfg.Admins,
		log:         logger.With("component", "telegram-adapter"),
		username:    cfg.Username,
	}
}

// Client returns the underlying Bot API client.
func (a *Adapter) Client() *Client { return a.client }

// CopyItem copies a stored message to recipient with a caption naming
// the item.
func (a *Adapter) CopyItem(ctx context.Context, recipient int64, item *catalog.FileRecord) error {
	from := item.Storage.ChatID
	if from == 0 {
		from = a.storageChat
	}
	caption := DeliveryCaption(item, a.botUsername(ctx))
	_, err := a.client.CopyMessage(ctx, ID(recipient), ID(from), item.Storage.MessageID, caption,
		&SendOptions{ParseMode: ParseModeHTML})
	return err
}

// botUsername returns the configured username, asking the API once when
// none was set. A failed lookup is retried on the next copy.
func (a *Adapter) botUsername(ctx context.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.username == "" {
		me, err := a.client.GetMe(ctx)
		if err != nil {
			a.log.Debug("bot username lookup failed", "error", err)
			return ""
		}
		a.username = me.Username
	}
	return a.username
}

// maxCaptionRunes is the Bot API caption limit.
const maxCaptionRunes = 1024

// DeliveryCaption renders the HTML caption of a delivered item. The stored
// caption is left out when the result would exceed the caption limit.
func DeliveryCaption(f *catalog.FileRecord, username string) string {
	head := "<b>" + html.EscapeString(f.GroupKey) + "</b>"
	if code := strings.TrimSpace(f.Season + " " + f.Episode); code != "" {
		head += "\n🎬 " + html.EscapeString(code)
	}
	head += "\n📺 <b>Resolution:</b> " + html.EscapeString(f.Resolution)

	var tail string
	if username != "" {
		tail = "\n\n✅ <b>Downloaded via @" + html.EscapeString(username) + "</b>"
	}

	if f.Caption != "" {
		full := head + "\n\n📝 " + html.EscapeString(f.Caption) + tail
		if utf8.RuneCountInString(full) <= maxCaptionRunes {
			return full
		}
	}
	return head + tail
}

// SendNotification sends plain text to recipient.
func (a *Adapter) SendNotification(ctx context.Context, recipient int64, text string) error {
	_, err := a.client.SendMessage(ctx, ID(recipient), text, &SendOptions{NoPreview: true})
	return err
}

// ErrNoFallbackAdmin is returned when no admin other than the recipient
// is configured.
var ErrNoFallbackAdmin = errors.New("no admin to notify")

// NotifyFallback forwards a summary that could not reach recipient to
// every other admin. It fails unless at least one admin received it.
func (a *Adapter) NotifyFallback(ctx context.Context, recipient int64, text string) error {
	msg := fmt.Sprintf("⚠️ Could not notify user %d:\n\n%s", recipient, text)
	var (
		sent int
		errs []error
	)
	for _, admin := range a.admins {
		if admin == recipient {
			continue
		}
		if _, err := a.client.SendMessage(ctx, ID(admin), msg, &SendOptions{NoPreview: true}); err != nil {
			a.log.Warn("fallback notify failed", "admin", admin, "error", err)
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		return nil
	}
	if len(errs) == 0 {
		return ErrNoFallbackAdmin
	}
	return errors.Join(errs...)
}

// ForwardToStorage forwards a message into the storage chat.
func (a *Adapter) ForwardToStorage(ctx context.Context, fromChat, messageID int64) (catalog.StorageRef, error) {
	m, err := a.client.ForwardMessage(ctx, ID(a.storageChat), ID(fromChat), messageID)
	if err != nil {
		return catalog.StorageRef{}, err
	}
	return catalog.StorageRef{ChatID: a.storageChat, MessageID: m.MessageID}, nil
}

// EditStorageCaption sets the caption of a stored message.
func (a *Adapter) EditStorageCaption(ctx context.Context, ref catalog.StorageRef, caption string) error {
	return a.client.EditMessageCaption(ctx, ID(ref.ChatID), ref.MessageID, caption)
}

// Membership reports whether user joined the sponsor chat. It returns nil
// when no sponsor chat is configured so the navigator skips the gate.
func (a *Adapter) Membership() navigation.MembershipFunc {
	if a.sponsorChat == "" {
		return nil
	}
	return func(ctx context.Context, user int64) (navigation.Membership, error) {
		m, err := a.client.GetChatMember(ctx, a.sponsorChat, user)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == 400 {
				// "user not found" for people who never joined
				return navigation.NotMember, nil
			}
			return navigation.Unknown, err
		}
		if m.IsMember() {
			return navigation.Member, nil
		}
		return navigation.NotMember, nil
	}
}

var (
	_ delivery.Transport = (*Adapter)(nil)
	_ delivery.Fallback  = (*Adapter)(nil)
)
