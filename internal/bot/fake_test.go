package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/codec"
	"github.com/vmunix/reelbox/internal/delivery"
	"github.com/vmunix/reelbox/internal/events"
	"github.com/vmunix/reelbox/internal/ingest"
	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

type sent struct {
	Chat   telegram.ChatID
	Text   string
	Photo  string
	Markup *telegram.InlineKeyboardMarkup
}

type edit struct {
	Chat      telegram.ChatID
	MessageID int64
	Text      string
}

type answer struct {
	QueryID   string
	Text      string
	ShowAlert bool
}

// fakeAPI records every outgoing call. GetUpdates hands out the queued
// batches and then blocks until the context ends.
type fakeAPI struct {
	mu      sync.Mutex
	sent    []sent
	edits   []edit
	answers []answer
	updates chan []telegram.Update
	nextID  int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan []telegram.Update, 4)}
}

func (f *fakeAPI) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, IsBot: true, Username: "reelbox_bot"}, nil
}

func (f *fakeAPI) GetUpdates(ctx context.Context, _ int64, _ time.Duration) ([]telegram.Update, error) {
	select {
	case u := <-f.updates:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeAPI) SendMessage(_ context.Context, chat telegram.ChatID, text string, opts *telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := sent{Chat: chat, Text: text}
	if opts != nil {
		s.Markup = opts.ReplyMarkup
	}
	f.sent = append(f.sent, s)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) SendPhoto(_ context.Context, chat telegram.ChatID, photo, caption string, opts *telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := sent{Chat: chat, Text: caption, Photo: photo}
	if opts != nil {
		s.Markup = opts.ReplyMarkup
	}
	f.sent = append(f.sent, s)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, chat telegram.ChatID, messageID int64, text string, _ *telegram.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{chat, messageID, text})
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, id, text string, showAlert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{id, text, showAlert})
	return nil
}

func (f *fakeAPI) lastSent() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sent{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []delivery.Request
	err      error
}

func (d *fakeDispatcher) Submit(req delivery.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	d.requests = append(d.requests, req)
	return fmt.Sprintf("req-%d", len(d.requests)), nil
}

// fakeTransport fails each copy with the next queued error, then with err.
type fakeTransport struct {
	mu       sync.Mutex
	copies   []catalog.StorageRef
	attempts int
	queued   []error
	err      error
	notices  []string
}

func (t *fakeTransport) CopyItem(_ context.Context, _ int64, item *catalog.FileRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
	if len(t.queued) > 0 {
		err := t.queued[0]
		t.queued = t.queued[1:]
		if err != nil {
			return err
		}
	}
	if t.err != nil {
		return t.err
	}
	t.copies = append(t.copies, item.Storage)
	return nil
}

func (t *fakeTransport) SendNotification(_ context.Context, _ int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices = append(t.notices, text)
	return nil
}

func (t *fakeTransport) noticeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.notices)
}

// fakeClock records waits instead of sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

type fakeStorage struct{ next int64 }

func (s *fakeStorage) ForwardToStorage(context.Context, int64, int64) (catalog.StorageRef, error) {
	s.next++
	return catalog.StorageRef{ChatID: -100, MessageID: 1000 + s.next}, nil
}

func (s *fakeStorage) EditStorageCaption(context.Context, catalog.StorageRef, string) error { return nil }

type fakeCleaner struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeCleaner) Cleanup(context.Context) (int64, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 2, 1, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

const (
	adminID = int64(10)
	userID  = int64(20)
)

type fixture struct {
	bot        *Bot
	api        *fakeAPI
	store      *catalog.Store
	codec      *codec.Codec
	dispatcher *fakeDispatcher
	transport  *fakeTransport
	clock      *fakeClock
	cleaner    *fakeCleaner
	bus        *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := catalog.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := catalog.NewStore(db)
	c := codec.New(db, logger)
	api := newFakeAPI()
	f := &fixture{
		api:        api,
		store:      store,
		codec:      c,
		dispatcher: &fakeDispatcher{},
		transport:  &fakeTransport{},
		clock:      &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		cleaner:    &fakeCleaner{},
		bus:        &capturePublisher{},
	}
	pipeline := delivery.NewPipeline(f.transport, logger,
		delivery.WithRecorder(store),
		delivery.WithPublisher(f.bus),
		delivery.WithClock(f.clock),
	)
	f.bot = New(Deps{
		API:        api,
		Navigator:  navigation.New(store, c, nil, navigation.Config{Admins: []int64{adminID}}, logger),
		Catalog:    store,
		Encoder:    c,
		Ingester:   ingest.New(&fakeStorage{}, store, c, f.bus, logger),
		Dispatcher: f.dispatcher,
		Pipeline:   pipeline,
		Cleaner:    f.cleaner,
		Bus:        f.bus,
	}, Config{
		Username:    "reelbox_bot",
		Admins:      []int64{adminID},
		MainChat:    "@mainchannel",
		StorageChat: -100,
	}, logger)
	return f
}

func (f *fixture) add(t *testing.T, group, season, episode, res string, msgID int64) *catalog.FileRecord {
	t.Helper()
	rec := &catalog.FileRecord{
		GroupKey: group, Season: season, Episode: episode, Resolution: res,
		FileID:  fmt.Sprintf("file-%d", msgID),
		Storage: catalog.StorageRef{ChatID: -100, MessageID: msgID},
		Kind:    catalog.KindVideo,
	}
	require.NoError(t, f.store.AddFile(context.Background(), rec))
	return rec
}

func (f *fixture) token(t *testing.T, group string) string {
	t.Helper()
	tok, err := f.codec.Encode(context.Background(), group)
	require.NoError(t, err)
	return tok
}

func command(from int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: from},
		Chat:      telegram.Chat{ID: from, Type: "private"},
		Text:      text,
	}}
}

func press(from int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb",
		From:    telegram.User{ID: from},
		Message: &telegram.Message{MessageID: 55, Chat: telegram.Chat{ID: from, Type: "private"}},
		Data:    data,
	}}
}

func buttons(m *telegram.InlineKeyboardMarkup) []telegram.InlineKeyboardButton {
	if m == nil {
		return nil
	}
	var out []telegram.InlineKeyboardButton
	for _, row := range m.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}
