// Package telegram is a small Bot API client covering the methods the bot
// uses, plus adapters that plug it into delivery, ingest and navigation.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// ChatID addresses a chat either by numeric id or by "@username".
type ChatID string

// ID returns the ChatID for a numeric chat.
func ID(id int64) ChatID { return ChatID(strconv.FormatInt(id, 10)) }

// ParseMode values for text formatting.
const (
	ParseModeNone = ""
	ParseModeHTML = "HTML"
)

// SendOptions are the optional parts of a text message.
type SendOptions struct {
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
	NoPreview   bool
}

// Client talks to the Bot API.
type Client struct {
	token          string
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	log            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL (for testing or a local Bot API server).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRequestTimeout bounds every call except the long poll, which gets
// its own poll timeout on top.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "telegram")
	}
}

// New creates a Bot API client for token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:          token,
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{},
		requestTimeout: 30 * time.Second,
		log:            slog.Default().With("component", "telegram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call POSTs params as JSON to method and decodes the result into out.
// The token is part of the URL, so request URLs are never logged.
func (c *Client) call(ctx context.Context, method string, params any, out any, timeout time.Duration) error {
	start := time.Now()

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot"+c.token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", method, redact(err, c.token))
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s %s", ErrServer, method, resp.Status)
		}
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		mapped := mapError(method, resp.StatusCode, &envelope)
		c.log.Debug("api error", "method", method, "code", envelope.ErrorCode, "description", envelope.Description)
		return mapped
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}

	c.log.Debug("api call", "method", method, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u, c.requestTimeout); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := struct {
		Offset         int64    `json:"offset,omitempty"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{offset, int(timeout / time.Second), []string{"message", "callback_query"}}

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates, c.requestTimeout+timeout); err != nil {
		return nil, err
	}
	return updates, nil
}

type sendMessageParams struct {
	ChatID                ChatID                `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
}

// SendMessage sends a text message. opts may be nil.
func (c *Client) SendMessage(ctx context.Context, chat ChatID, text string, opts *SendOptions) (*Message, error) {
	p := sendMessageParams{ChatID: chat, Text: text}
	if opts != nil {
		p.ParseMode, p.ReplyMarkup, p.DisableWebPagePreview = opts.ParseMode, opts.ReplyMarkup, opts.NoPreview
	}
	var m Message
	if err := c.call(ctx, "sendMessage", p, &m, c.requestTimeout); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendPhoto posts an already uploaded photo with a caption.
func (c *Client) SendPhoto(ctx context.Context, chat ChatID, photoFileID, caption string, opts *SendOptions) (*Message, error) {
	p := struct {
		ChatID      ChatID                `json:"chat_id"`
		Photo       string                `json:"photo"`
		Caption     string                `json:"caption,omitempty"`
		ParseMode   string                `json:"parse_mode,omitempty"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chat, Photo: photoFileID, Caption: caption}
	if opts != nil {
		p.ParseMode, p.ReplyMarkup = opts.ParseMode, opts.ReplyMarkup
	}
	var m Message
	if err := c.call(ctx, "sendPhoto", p, &m, c.requestTimeout); err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMessageText replaces the text and keyboard of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chat ChatID, messageID int64, text string, opts *SendOptions) error {
	p := struct {
		ChatID                ChatID                `json:"chat_id"`
		MessageID             int64                 `json:"message_id"`
		Text                  string                `json:"text"`
		ParseMode             string                `json:"parse_mode,omitempty"`
		ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
		DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	}{ChatID: chat, MessageID: messageID, Text: text}
	if opts != nil {
		p.ParseMode, p.ReplyMarkup, p.DisableWebPagePreview = opts.ParseMode, opts.ReplyMarkup, opts.NoPreview
	}
	return c.call(ctx, "editMessageText", p, nil, c.requestTimeout)
}

// EditMessageCaption replaces the caption of a media message.
func (c *Client) EditMessageCaption(ctx context.Context, chat ChatID, messageID int64, caption string) error {
	p := struct {
		ChatID    ChatID `json:"chat_id"`
		MessageID int64  `json:"message_id"`
		Caption   string `json:"caption"`
	}{chat, messageID, caption}
	return c.call(ctx, "editMessageCaption", p, nil, c.requestTimeout)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast
// or an alert.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string, showAlert bool) error {
	p := struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
		ShowAlert       bool   `json:"show_alert,omitempty"`
	}{queryID, text, showAlert}
	return c.call(ctx, "answerCallbackQuery", p, nil, c.requestTimeout)
}

// CopyMessage copies a message without the "forwarded from" header and
// returns the new message id. A non-empty caption replaces the original
// one; an empty caption keeps it.
func (c *Client) CopyMessage(ctx context.Context, to, from ChatID, messageID int64, caption string, opts *SendOptions) (int64, error) {
	p := struct {
		ChatID      ChatID                `json:"chat_id"`
		FromChatID  ChatID                `json:"from_chat_id"`
		MessageID   int64                 `json:"message_id"`
		Caption     string                `json:"caption,omitempty"`
		ParseMode   string                `json:"parse_mode,omitempty"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: to, FromChatID: from, MessageID: messageID, Caption: caption}
	if opts != nil {
		p.ParseMode, p.ReplyMarkup = opts.ParseMode, opts.ReplyMarkup
	}
	var out MessageID
	if err := c.call(ctx, "copyMessage", p, &out, c.requestTimeout); err != nil {
		return 0, err
	}
	return out.MessageID, nil
}

// ForwardMessage forwards a message and returns the new message.
func (c *Client) ForwardMessage(ctx context.Context, to, from ChatID, messageID int64) (*Message, error) {
	p := struct {
		ChatID     ChatID `json:"chat_id"`
		FromChatID ChatID `json:"from_chat_id"`
		MessageID  int64  `json:"message_id"`
	}{to, from, messageID}
	var m Message
	if err := c.call(ctx, "forwardMessage", p, &m, c.requestTimeout); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetChatMember returns user's membership in chat.
func (c *Client) GetChatMember(ctx context.Context, chat ChatID, user int64) (*ChatMember, error) {
	p := struct {
		ChatID ChatID `json:"chat_id"`
		UserID int64  `json:"user_id"`
	}{chat, user}
	var m ChatMember
	if err := c.call(ctx, "getChatMember", p, &m, c.requestTimeout); err != nil {
		return nil, err
	}
	return &m, nil
}
