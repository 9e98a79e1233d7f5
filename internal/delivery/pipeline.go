package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/events"
)

// summaryTimeout bounds summary delivery after the request context is gone.
const summaryTimeout = 15 * time.Second

// Options tunes a Pipeline. Zero values take the defaults.
type Options struct {
	MaxAttempts    int           // copy attempts per item, default 3
	InterItemDelay time.Duration // pause after each successful copy
	ProgressEvery  int           // progress cadence in items, default 5
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.ProgressEvery < 1 {
		o.ProgressEvery = 5
	}
	if o.InterItemDelay < 0 {
		o.InterItemDelay = 0
	}
	return o
}

// ProgressFunc reports progress. When a Request has none, progress goes
// through Transport.SendNotification.
type ProgressFunc func(ctx context.Context, p Progress) error

// Request is one batch to deliver to one recipient, in order.
type Request struct {
	ID         string
	Recipient  int64
	Label      string
	Items      []*catalog.FileRecord
	OnProgress ProgressFunc
	// Quiet suppresses progress messages and the summary of a completed
	// batch. Failure summaries are still sent. Lifecycle events are
	// published either way.
	Quiet bool
}

// Pipeline sends batches of stored items. It keeps no state between
// requests, so one Pipeline can serve many recipients concurrently.
type Pipeline struct {
	transport Transport
	recorder  EventRecorder
	fallback  Fallback
	publisher Publisher
	clock     Clock
	opts      Options
	logger    *slog.Logger
}

// Option configures optional collaborators of a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the download audit recorder.
func WithRecorder(r EventRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithFallback sets where undeliverable summaries go.
func WithFallback(f Fallback) Option {
	return func(p *Pipeline) { p.fallback = f }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithOptions sets retry and pacing options.
func WithOptions(o Options) Option {
	return func(p *Pipeline) { p.opts = o }
}

// NewPipeline creates a pipeline over a transport.
func NewPipeline(transport Transport, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		transport: transport,
		clock:     SystemClock{},
		logger:    logger.With("component", "delivery"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.opts = p.opts.withDefaults()
	return p
}

// run tracks the mutable state of one request.
type run struct {
	req     Request
	state   State
	sent    int
	errs    int
	retries int
	started time.Time
	log     *slog.Logger
}

func (r *run) transition(to State) {
	if !r.state.CanTransitionTo(to) {
		// programming error; keep going so the requester still gets a summary
		r.log.Error("invalid delivery transition", "from", r.state, "to", to)
	}
	r.state = to
}

// Run delivers req and returns its summary. Individual item failures are
// only counted; the returned error is non-nil when the batch ends Failed
// (empty, nothing delivered, or abandoned).
func (p *Pipeline) Run(ctx context.Context, req Request) (*Summary, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	r := &run{
		req:     req,
		state:   StatePreparing,
		started: p.clock.Now(),
		log:     p.logger.With("request", req.ID, "recipient", req.Recipient),
	}
	total := len(req.Items)

	if total == 0 {
		r.transition(StateFailed)
		s := p.summarize(r, ErrEmptyBatch.Error(), ErrEmptyBatch)
		p.finish(ctx, r, s)
		return s, s.Err
	}

	r.log.Info("delivery started", "label", req.Label, "items", total)
	p.publish(ctx, &events.DeliveryStarted{
		BaseEvent: events.NewBaseEvent(events.EventDeliveryStarted, events.EntityDelivery, req.Recipient),
		RequestID: req.ID, Label: req.Label, Total: total,
	})
	p.progress(ctx, r, 0)
	r.transition(StateSending)

	for i, item := range req.Items {
		err := p.sendItem(ctx, r, item)
		switch {
		case err == nil:
			r.sent++
			p.record(ctx, r, item)
		case errors.Is(err, ErrRecipientUnreachable), ctx.Err() != nil:
			// everything not yet sent is lost
			r.errs += total - i
			reason := "recipient unreachable"
			if !errors.Is(err, ErrRecipientUnreachable) {
				reason = "cancelled"
				err = fmt.Errorf("delivery cancelled: %w", ctx.Err())
			}
			r.log.Warn("delivery abandoned", "reason", reason, "at_item", i+1, "error", err)
			r.transition(StateFailed)
			s := p.summarize(r, reason, err)
			s.Abandoned = true
			p.finish(ctx, r, s)
			return s, s.Err
		default:
			r.errs++
			r.log.Warn("item failed", "file_id", item.ID, "position", i+1, "error", err)
		}

		processed := i + 1
		if processed%p.opts.ProgressEvery == 0 || processed == total {
			p.progress(ctx, r, processed)
		}
		if err == nil && processed < total && p.opts.InterItemDelay > 0 {
			if serr := p.clock.Sleep(ctx, p.opts.InterItemDelay); serr != nil {
				// cancellation is picked up by the next sendItem
				r.log.Debug("inter-item delay interrupted", "error", serr)
			}
		}
	}

	var s *Summary
	if r.sent > 0 {
		r.transition(StateCompleted)
		s = p.summarize(r, "", nil)
	} else {
		r.transition(StateFailed)
		s = p.summarize(r, "no file could be sent", ErrNothingDelivered)
	}
	p.finish(ctx, r, s)
	return s, s.Err
}

// sendItem copies one item, waiting out rate limits up to MaxAttempts.
func (p *Pipeline) sendItem(ctx context.Context, r *run, item *catalog.FileRecord) error {
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, item.Kind)
	}
	var err error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = p.transport.CopyItem(ctx, r.req.Recipient, item)
		wait, limited := IsRateLimited(err)
		if !limited {
			return err
		}
		if attempt == p.opts.MaxAttempts {
			break
		}
		r.retries++
		r.log.Debug("rate limited", "file_id", item.ID, "attempt", attempt, "wait", wait)
		if serr := p.clock.Sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", p.opts.MaxAttempts, err)
}

func (p *Pipeline) record(ctx context.Context, r *run, item *catalog.FileRecord) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.RecordDownload(ctx, &catalog.DownloadEvent{
		RequesterID: r.req.Recipient,
		GroupKey:    item.GroupKey,
		FileID:      item.ID,
		Storage:     item.Storage,
	})
	if err != nil {
		// the copy already happened; a missing audit row is not a delivery error
		r.log.Warn("record download failed", "file_id", item.ID, "error", err)
	}
}

func (p *Pipeline) progress(ctx context.Context, r *run, processed int) {
	pr := Progress{
		RequestID: r.req.ID,
		Label:     r.req.Label,
		State:     r.state,
		Processed: processed,
		Sent:      r.sent,
		Errors:    r.errs,
		Total:     len(r.req.Items),
	}
	var err error
	switch {
	case r.req.Quiet:
	case r.req.OnProgress != nil:
		err = r.req.OnProgress(ctx, pr)
	default:
		err = p.transport.SendNotification(ctx, r.req.Recipient, pr.Message())
	}
	if err != nil {
		r.log.Debug("progress update failed", "processed", processed, "error", err)
	}
	if processed > 0 {
		p.publish(ctx, &events.DeliveryProgressed{
			BaseEvent: events.NewBaseEvent(events.EventDeliveryProgressed, events.EntityDelivery, r.req.Recipient),
			RequestID: r.req.ID, Processed: processed, Sent: r.sent, Errors: r.errs, Total: pr.Total,
		})
	}
}

func (p *Pipeline) summarize(r *run, reason string, err error) *Summary {
	return &Summary{
		RequestID: r.req.ID,
		Recipient: r.req.Recipient,
		Label:     r.req.Label,
		State:     r.state,
		Total:     len(r.req.Items),
		Sent:      r.sent,
		Errors:    r.errs,
		Retries:   r.retries,
		Reason:    reason,
		Duration:  p.clock.Now().Sub(r.started),
		Err:       err,
	}
}

// finish emits the summary and the terminal event. It runs on a context
// detached from the request so cancellation does not swallow the summary.
func (p *Pipeline) finish(ctx context.Context, r *run, s *Summary) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryTimeout)
	defer cancel()

	text := s.Message()
	delivered := r.req.Quiet && s.State == StateCompleted
	if !delivered && !errors.Is(s.Err, ErrRecipientUnreachable) {
		if err := p.transport.SendNotification(sctx, r.req.Recipient, text); err != nil {
			r.log.Warn("summary to recipient failed", "error", err)
		} else {
			delivered = true
		}
	}
	if !delivered {
		if p.fallback != nil {
			if err := p.fallback.NotifyFallback(sctx, r.req.Recipient, text); err != nil {
				r.log.Error("fallback notification failed", "error", err)
			}
		} else {
			r.log.Warn("summary undeliverable", "summary", text)
		}
	}

	if s.State == StateCompleted {
		r.log.Info("delivery completed", "sent", s.Sent, "errors", s.Errors, "retries", s.Retries, "duration", s.Duration)
		p.publish(sctx, &events.DeliveryCompleted{
			BaseEvent: events.NewBaseEvent(events.EventDeliveryCompleted, events.EntityDelivery, r.req.Recipient),
			RequestID: s.RequestID, Sent: s.Sent, Errors: s.Errors, Retries: s.Retries,
			Total: s.Total, DurationMS: s.Duration.Milliseconds(),
		})
		return
	}
	r.log.Info("delivery failed", "reason", s.Reason, "errors", s.Errors, "abandoned", s.Abandoned)
	p.publish(sctx, &events.DeliveryFailed{
		BaseEvent: events.NewBaseEvent(events.EventDeliveryFailed, events.EntityDelivery, r.req.Recipient),
		RequestID: s.RequestID, Reason: s.Reason, Abandoned: s.Abandoned, Errors: s.Errors, Total: s.Total,
	})
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, e); err != nil {
		p.logger.Warn("publish event failed", "type", e.EventType(), "error", err)
	}
}
