package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmunix/reelbox/internal/events"
)

// MetricsRecorder receives counters derived from bus events.
// *metrics.Metrics implements it.
type MetricsRecorder interface {
	DeliveryStarted(total int)
	DeliveryCompleted(sent, errs, retries int, took time.Duration)
	DeliveryFailed(errs int, abandoned bool)
	FileAdded(resolution string)
	GroupDeleted(removed int64)
	CleanupCompleted(duplicates, mappings int64)
}

// MetricsHandler turns lifecycle events into prometheus samples.
type MetricsHandler struct {
	*BaseHandler
	recorder MetricsRecorder

	started   <-chan events.Event
	completed <-chan events.Event
	failed    <-chan events.Event
	added     <-chan events.Event
	deleted   <-chan events.Event
	cleaned   <-chan events.Event
}

// NewMetricsHandler subscribes immediately, so events published between
// construction and Start are still counted.
func NewMetricsHandler(bus *events.Bus, recorder MetricsRecorder, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		BaseHandler: NewBaseHandler(bus, "metrics-handler", logger),
		recorder:    recorder,
		started:     bus.Subscribe(events.EventDeliveryStarted, 256),
		completed:   bus.Subscribe(events.EventDeliveryCompleted, 256),
		failed:      bus.Subscribe(events.EventDeliveryFailed, 256),
		added:       bus.Subscribe(events.EventFileAdded, 256),
		deleted:     bus.Subscribe(events.EventGroupDeleted, 64),
		cleaned:     bus.Subscribe(events.EventCleanupCompleted, 64),
	}
}

func (h *MetricsHandler) Name() string {
	return "metrics"
}

// Start consumes events until ctx is done or the bus closes.
func (h *MetricsHandler) Start(ctx context.Context) error {
	for {
		var e events.Event
		select {
		case e = <-h.started:
		case e = <-h.completed:
		case e = <-h.failed:
		case e = <-h.added:
		case e = <-h.deleted:
		case e = <-h.cleaned:
		case <-ctx.Done():
			return ctx.Err()
		}
		if e == nil {
			return nil // bus closed
		}
		h.record(e)
	}
}

func (h *MetricsHandler) record(e events.Event) {
	switch ev := e.(type) {
	case *events.DeliveryStarted:
		h.recorder.DeliveryStarted(ev.Total)
	case *events.DeliveryCompleted:
		h.recorder.DeliveryCompleted(ev.Sent, ev.Errors, ev.Retries, time.Duration(ev.DurationMS)*time.Millisecond)
	case *events.DeliveryFailed:
		h.recorder.DeliveryFailed(ev.Errors, ev.Abandoned)
	case *events.FileAdded:
		h.recorder.FileAdded(ev.Resolution)
	case *events.GroupDeleted:
		h.recorder.GroupDeleted(ev.Removed)
	case *events.CleanupCompleted:
		h.recorder.CleanupCompleted(ev.DuplicatesRemoved, ev.MappingsRemoved)
	default:
		h.Logger().Debug("ignoring event", "type", e.EventType())
	}
}
