package bot

import (
	"context"

	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

// Notifier puts a rendered screen in front of the user.
type Notifier interface {
	Show(ctx context.Context, s *navigation.Screen) error
}

// callbackNotifier edits the message whose button was pressed and answers
// the callback query. The query is always answered so the client stops
// its spinner, even when the edit fails.
type callbackNotifier struct {
	api       API
	queryID   string
	chat      int64
	messageID int64
}

func (n *callbackNotifier) Show(ctx context.Context, s *navigation.Screen) error {
	var editErr error
	if s.Text != "" && n.messageID != 0 {
		editErr = n.api.EditMessageText(ctx, telegram.ID(n.chat), n.messageID, s.Text, screenOptions(s))
		if telegram.IsNotModified(editErr) {
			editErr = nil
		}
	}
	if err := n.api.AnswerCallbackQuery(ctx, n.queryID, s.Alert, s.ShowAlert); err != nil && editErr == nil {
		return err
	}
	return editErr
}

// messageNotifier sends a fresh message, used where there is no message to
// edit (commands and /start deep links). An alert-only screen becomes a
// plain message.
type messageNotifier struct {
	api  API
	chat int64
}

func (n *messageNotifier) Show(ctx context.Context, s *navigation.Screen) error {
	switch {
	case s.Text != "":
		_, err := n.api.SendMessage(ctx, telegram.ID(n.chat), s.Text, screenOptions(s))
		return err
	case s.Alert != "":
		_, err := n.api.SendMessage(ctx, telegram.ID(n.chat), s.Alert, nil)
		return err
	}
	return nil
}

func screenOptions(s *navigation.Screen) *telegram.SendOptions {
	return &telegram.SendOptions{
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: keyboard(s.Rows),
		NoPreview:   true,
	}
}

func keyboard(rows [][]navigation.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		out := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			out = append(out, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}
