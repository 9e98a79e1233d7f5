package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/reelbox/internal/events"
)

// Deduper removes duplicate file records. *catalog.Store implements it.
type Deduper interface {
	RemoveDuplicates(ctx context.Context) (int64, error)
}

// MappingSweeper drops tokens of series that no longer exist.
// *codec.Codec implements it.
type MappingSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// EventPruner trims the persisted event log. *events.EventLog implements it.
type EventPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SweepConfig configures the periodic cleanup.
type SweepConfig struct {
	Interval       time.Duration // 0 disables the timer; Cleanup still works on demand
	EventRetention time.Duration // 0 keeps events forever
}

// SweepHandler removes duplicate records and stale series mappings, on a
// timer and on demand from the /cleanup admin command.
type SweepHandler struct {
	*BaseHandler
	files    Deduper
	mappings MappingSweeper
	events   EventPruner // may be nil
	config   SweepConfig

	mu sync.Mutex // one cleanup at a time
}

// NewSweepHandler creates a sweep handler.
func NewSweepHandler(bus *events.Bus, files Deduper, mappings MappingSweeper, pruner EventPruner, cfg SweepConfig, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{
		BaseHandler: NewBaseHandler(bus, "sweep", logger),
		files:       files,
		mappings:    mappings,
		events:      pruner,
		config:      cfg,
	}
}

func (h *SweepHandler) Name() string {
	return "sweep"
}

// Start runs Cleanup every Interval until ctx is done.
func (h *SweepHandler) Start(ctx context.Context) error {
	if h.config.Interval <= 0 {
		h.Logger().Info("periodic sweep disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := h.Cleanup(ctx); err != nil {
				h.Logger().Error("periodic sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Cleanup removes duplicates first so that mappings orphaned by the removal
// are swept in the same pass. Event pruning failures are only logged.
func (h *SweepHandler) Cleanup(ctx context.Context) (duplicates, mappings int64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	duplicates, err = h.files.RemoveDuplicates(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup: %w", err)
	}
	mappings, err = h.mappings.Sweep(ctx)
	if err != nil {
		return duplicates, 0, fmt.Errorf("cleanup: %w", err)
	}

	if h.events != nil && h.config.EventRetention > 0 {
		pruned, err := h.events.Prune(ctx, h.config.EventRetention)
		if err != nil {
			h.Logger().Warn("prune events failed", "error", err)
		} else if pruned > 0 {
			h.Logger().Debug("pruned events", "count", pruned)
		}
	}

	h.Logger().Info("cleanup completed", "duplicates", duplicates, "mappings", mappings)
	h.Publish(ctx, &events.CleanupCompleted{
		BaseEvent:         events.NewBaseEvent(events.EventCleanupCompleted, events.EntityGroup, 0),
		DuplicatesRemoved: duplicates,
		MappingsRemoved:   mappings,
	})
	return duplicates, mappings, nil
}
