// Package handlers holds the long-running bus subscribers of the daemon.
package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/reelbox/internal/events"
)

// Handler processes events of specific types.
type Handler interface {
	// Start begins processing events (blocking).
	Start(ctx context.Context) error

	// Name returns handler name for logging.
	Name() string
}

// BaseHandler provides common handler functionality.
type BaseHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBaseHandler creates a base handler logging as component name.
func NewBaseHandler(bus *events.Bus, name string, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{
		bus:    bus,
		logger: logger.With("component", name),
	}
}

// Bus returns the event bus.
func (h *BaseHandler) Bus() *events.Bus {
	return h.bus
}

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() *slog.Logger {
	return h.logger
}

// Publish sends e on the bus, logging instead of failing. A handler without
// a bus (CLI one-shots) publishes nothing.
func (h *BaseHandler) Publish(ctx context.Context, e events.Event) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(ctx, e); err != nil {
		h.logger.Error("publish event failed", "type", e.EventType(), "error", err)
	}
}
