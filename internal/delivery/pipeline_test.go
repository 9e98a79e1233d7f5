package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/delivery/mocks"
	"github.com/vmunix/reelbox/internal/events"
)

const recipient int64 = 4242

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock records requested sleeps and advances virtual time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*catalog.DownloadEvent
}

func (r *fakeRecorder) RecordDownload(_ context.Context, e *catalog.DownloadEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func makeItems(n int) []*catalog.FileRecord {
	items := make([]*catalog.FileRecord, n)
	for i := range items {
		items[i] = &catalog.FileRecord{
			ID:         int64(i + 1),
			GroupKey:   "Dark",
			Season:     "S01",
			Episode:    fmt.Sprintf("E%02d", i+1),
			Resolution: "720p",
			FileID:     fmt.Sprintf("file-%d", i+1),
			Storage:    catalog.StorageRef{ChatID: -100123, MessageID: int64(i + 1)},
			Kind:       catalog.KindVideo,
		}
	}
	return items
}

func newTestPipeline(tr Transport, clock Clock, opts ...Option) *Pipeline {
	all := append([]Option{WithClock(clock), WithOptions(Options{MaxAttempts: 3, ProgressEvery: 5})}, opts...)
	return NewPipeline(tr, discardLogger(), all...)
}

func TestPipeline_PermanentItemFailureDoesNotAbortBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	rec := &fakeRecorder{}

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, item *catalog.FileRecord) error {
			if item.Storage.MessageID == 4 {
				return errors.New("bad request: message to copy not found")
			}
			return nil
		}).Times(10)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	p := newTestPipeline(tr, newFakeClock(), WithRecorder(rec))
	s, err := p.Run(context.Background(), Request{Recipient: recipient, Label: "Dark 720p", Items: makeItems(10)})

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, 9, s.Sent)
	assert.Equal(t, 1, s.Errors)
	assert.False(t, s.Abandoned)
	assert.NotEmpty(t, s.RequestID)
	assert.Len(t, rec.events, 9)
	for _, e := range rec.events {
		assert.NotEqual(t, int64(4), e.FileID)
		assert.Equal(t, recipient, e.RequesterID)
	}
}

func TestPipeline_RateLimitedTwiceThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	clock := newFakeClock()

	calls := map[int64]int{}
	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, item *catalog.FileRecord) error {
			calls[item.Storage.MessageID]++
			if calls[item.Storage.MessageID] <= 2 {
				return &RateLimitedError{Wait: 2 * time.Second}
			}
			return nil
		}).Times(30)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	s, err := newTestPipeline(tr, clock).Run(context.Background(), Request{Recipient: recipient, Label: "Dark 720p", Items: makeItems(10)})

	require.NoError(t, err)
	assert.Equal(t, 10, s.Sent)
	assert.Equal(t, 0, s.Errors)
	assert.Equal(t, 20, s.Retries)
	for id, n := range calls {
		assert.Equal(t, 3, n, "item %d", id)
	}
	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 20)
	for _, d := range sleeps {
		assert.Equal(t, 2*time.Second, d)
	}
	assert.Equal(t, 40*time.Second, s.Duration)
}

func TestPipeline_RateLimitCeiling(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	clock := newFakeClock()

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, item *catalog.FileRecord) error {
			if item.Storage.MessageID == 1 {
				return &RateLimitedError{Wait: time.Second}
			}
			return nil
		}).Times(4)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	s, err := newTestPipeline(tr, clock).Run(context.Background(), Request{Recipient: recipient, Label: "x", Items: makeItems(2)})

	require.NoError(t, err)
	assert.Equal(t, 1, s.Sent)
	assert.Equal(t, 1, s.Errors)
	// two waits between three attempts, none after the last
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestPipeline_EmptyBatchFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(1)

	s, err := newTestPipeline(tr, newFakeClock()).Run(context.Background(), Request{Recipient: recipient, Label: "Dark 720p"})

	require.ErrorIs(t, err, ErrEmptyBatch)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, "empty batch", s.Reason)
	assert.Zero(t, s.Total)
}

func TestPipeline_NothingDelivered(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(errors.New("boom")).Times(3)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	s, err := newTestPipeline(tr, newFakeClock()).Run(context.Background(), Request{Recipient: recipient, Label: "x", Items: makeItems(3)})

	require.ErrorIs(t, err, ErrNothingDelivered)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, 3, s.Errors)
	assert.Contains(t, s.Message(), "Could not send any")
}

func TestPipeline_RecipientUnreachableAbandons(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	fb := mocks.NewMockFallback(ctrl)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, item *catalog.FileRecord) error {
			if item.Storage.MessageID == 3 {
				return fmt.Errorf("forbidden: bot was blocked by the user: %w", ErrRecipientUnreachable)
			}
			return nil
		}).Times(3)
	// only the initial progress reaches the recipient
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(1)
	fb.EXPECT().NotifyFallback(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, text string) error {
			assert.NoError(t, ctx.Err())
			assert.Contains(t, text, "stopped after 2 of 10")
			return nil
		}).Times(1)

	s, err := newTestPipeline(tr, newFakeClock(), WithFallback(fb)).
		Run(context.Background(), Request{Recipient: recipient, Label: "Dark 720p", Items: makeItems(10)})

	require.ErrorIs(t, err, ErrRecipientUnreachable)
	assert.True(t, s.Abandoned)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, 2, s.Sent)
	assert.Equal(t, 8, s.Errors)
}

func TestPipeline_CancelledStillSendsSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, item *catalog.FileRecord) error {
			if item.Storage.MessageID == 2 {
				cancel()
			}
			return nil
		}).Times(2)

	var summary string
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, text string) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary = text
			return nil
		}).AnyTimes()

	s, err := newTestPipeline(tr, newFakeClock()).
		Run(ctx, Request{Recipient: recipient, Label: "Dark 720p", Items: makeItems(5)})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, s.Abandoned)
	assert.Equal(t, "cancelled", s.Reason)
	assert.Equal(t, 2, s.Sent)
	assert.Equal(t, 3, s.Errors)
	assert.Contains(t, summary, "stopped after 2 of 5")
}

func TestPipeline_SummaryFallsBackWhenRecipientFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	fb := mocks.NewMockFallback(ctrl)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(1)
	gomock.InOrder(
		tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(2),
		tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(errors.New("timeout")),
	)
	fb.EXPECT().NotifyFallback(gomock.Any(), recipient, gomock.Any()).Return(nil)

	s, err := newTestPipeline(tr, newFakeClock(), WithFallback(fb)).
		Run(context.Background(), Request{Recipient: recipient, Label: "x", Items: makeItems(1)})

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State)
}

func TestPipeline_ProgressCadence(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(12)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	var seen []Progress
	req := Request{
		Recipient: recipient,
		Label:     "Dark 720p",
		Items:     makeItems(12),
		OnProgress: func(_ context.Context, p Progress) error {
			seen = append(seen, p)
			return nil
		},
	}
	_, err := newTestPipeline(tr, newFakeClock()).Run(context.Background(), req)
	require.NoError(t, err)

	var processed []int
	for _, p := range seen {
		processed = append(processed, p.Processed)
	}
	assert.Equal(t, []int{0, 5, 10, 12}, processed)
	assert.Equal(t, StatePreparing, seen[0].State)
	assert.Equal(t, StateSending, seen[1].State)
	assert.Contains(t, seen[0].Message(), "Preparing 12")
	assert.Contains(t, seen[3].Message(), "12/12")
}

func TestPipeline_InterItemDelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	clock := newFakeClock()

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(3)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	p := NewPipeline(tr, discardLogger(), WithClock(clock), WithOptions(Options{InterItemDelay: time.Second}))
	_, err := p.Run(context.Background(), Request{Recipient: recipient, Label: "x", Items: makeItems(3)})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestPipeline_UnsupportedKindSkipsTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	items := makeItems(2)
	items[0].Kind = "sticker"
	tr.EXPECT().CopyItem(gomock.Any(), recipient, items[1]).Return(nil).Times(1)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	s, err := newTestPipeline(tr, newFakeClock()).Run(context.Background(), Request{Recipient: recipient, Label: "x", Items: items})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Sent)
	assert.Equal(t, 1, s.Errors)
}

func TestPipeline_PublishesLifecycleEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	bus := events.NewBus(nil, discardLogger())
	defer bus.Close()
	ch := bus.SubscribeAll(20)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(nil).Times(2)
	tr.EXPECT().SendNotification(gomock.Any(), recipient, gomock.Any()).Return(nil).AnyTimes()

	_, err := newTestPipeline(tr, newFakeClock(), WithPublisher(bus)).
		Run(context.Background(), Request{ID: "req-1", Recipient: recipient, Label: "x", Items: makeItems(2)})
	require.NoError(t, err)

	var types []string
	for len(ch) > 0 {
		e := <-ch
		types = append(types, e.EventType())
		assert.Equal(t, recipient, e.EntityID())
	}
	assert.Equal(t, []string{
		events.EventDeliveryStarted,
		events.EventDeliveryProgressed,
		events.EventDeliveryCompleted,
	}, types)
}

func TestPipeline_QuietRequestSendsNoMessagesOnSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	clock := newFakeClock()
	rec := &fakeRecorder{}

	gomock.InOrder(
		tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(&RateLimitedError{Wait: 45 * time.Second}),
		tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(nil),
	)
	// no SendNotification expectation: any call fails the test

	s, err := newTestPipeline(tr, clock, WithRecorder(rec)).
		Run(context.Background(), Request{Recipient: recipient, Label: "Dark S01E01", Items: makeItems(1), Quiet: true})

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, 1, s.Retries)
	assert.Equal(t, []time.Duration{45 * time.Second}, clock.Sleeps())
	assert.Len(t, rec.events, 1)
}

func TestPipeline_QuietRequestStillReportsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	tr.EXPECT().CopyItem(gomock.Any(), recipient, gomock.Any()).Return(errors.New("message to copy not found"))
	tr.EXPECT().SendNotification(gomock.Any(), recipient, "❌ Failed to send Dark S01E01. Please try again later.").Return(nil).Times(1)

	s, err := newTestPipeline(tr, newFakeClock()).
		Run(context.Background(), Request{Recipient: recipient, Label: "Dark S01E01", Items: makeItems(1), Quiet: true})

	require.ErrorIs(t, err, ErrNothingDelivered)
	assert.Equal(t, StateFailed, s.State)
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePreparing, StateSending, true},
		{StatePreparing, StateFailed, true},
		{StatePreparing, StateCompleted, false},
		{StateSending, StateCompleted, true},
		{StateSending, StateFailed, true},
		{StateSending, StatePreparing, false},
		{StateCompleted, StateFailed, false},
		{StateFailed, StateSending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateSending.IsTerminal())
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(ErrDeliveryInProgress), "already have a delivery")
	assert.Contains(t, UserMessage(fmt.Errorf("list: %w", catalog.ErrStoreUnavailable)), "temporarily unavailable")
	assert.Contains(t, UserMessage(errors.New("x")), "Something went wrong")
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
