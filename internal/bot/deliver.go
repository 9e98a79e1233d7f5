package bot

import (
	"context"

	"github.com/vmunix/reelbox/internal/delivery"
	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

// deliver acts on a delivery intent. A single item is delivered on the
// calling goroutine; a whole resolution goes to the dispatcher.
func (b *Bot) deliver(ctx context.Context, user int64, intent *navigation.DeliveryIntent) {
	if intent.Single && len(intent.Items) == 1 {
		b.deliverOne(ctx, user, intent)
		return
	}

	progress := &progressMessage{api: b.API, chat: user}
	id, err := b.Dispatcher.Submit(delivery.Request{
		Recipient:  user,
		Label:      intent.Label,
		Items:      intent.Items,
		OnProgress: progress.update,
	})
	if err != nil {
		b.log.Info("delivery not started", "user", user, "label", intent.Label, "error", err)
		b.notify(ctx, user, delivery.UserMessage(err))
		return
	}
	b.log.Info("delivery submitted", "user", user, "request_id", id, "label", intent.Label, "items", len(intent.Items))
}

// deliverOne runs a one-item batch without progress messages. Retries,
// the audit row and the failure notice are the pipeline's.
func (b *Bot) deliverOne(ctx context.Context, user int64, intent *navigation.DeliveryIntent) {
	f := intent.Items[0]
	s, err := b.Pipeline.Run(ctx, delivery.Request{
		Recipient: user,
		Label:     intent.Label,
		Items:     intent.Items,
		Quiet:     true,
	})
	if err != nil {
		b.log.Warn("single copy failed", "user", user, "file_id", f.ID, "error", err)
		return
	}
	b.log.Info("file sent", "user", user, "file_id", f.ID, "group", f.GroupKey, "retries", s.Retries)
}

func (b *Bot) notify(ctx context.Context, user int64, text string) {
	if _, err := b.API.SendMessage(ctx, telegram.ID(user), text, nil); err != nil {
		b.log.Warn("notify failed", "user", user, "error", err)
	}
}

// progressMessage shows batch progress in one message that is edited in
// place. The pipeline calls update sequentially.
type progressMessage struct {
	api       API
	chat      int64
	messageID int64
}

func (p *progressMessage) update(ctx context.Context, pr delivery.Progress) error {
	text := pr.Message()
	if p.messageID == 0 {
		m, err := p.api.SendMessage(ctx, telegram.ID(p.chat), text, nil)
		if err != nil {
			return err
		}
		p.messageID = m.MessageID
		return nil
	}
	err := p.api.EditMessageText(ctx, telegram.ID(p.chat), p.messageID, text, nil)
	if telegram.IsNotModified(err) {
		return nil
	}
	return err
}
