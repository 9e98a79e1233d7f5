// Package server wires the long-running daemon components together.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/reelbox/internal/bot"
	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/codec"
	"github.com/vmunix/reelbox/internal/config"
	"github.com/vmunix/reelbox/internal/delivery"
	"github.com/vmunix/reelbox/internal/events"
	"github.com/vmunix/reelbox/internal/handlers"
	"github.com/vmunix/reelbox/internal/ingest"
	"github.com/vmunix/reelbox/internal/metrics"
	"github.com/vmunix/reelbox/internal/navigation"
	"github.com/vmunix/reelbox/internal/telegram"
)

// Runner manages the daemon components.
type Runner struct {
	db     *sql.DB
	config *config.Config
	logger *slog.Logger
}

// NewRunner creates a new runner over an opened, migrated database.
func NewRunner(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// MetricsAddr is the listen address of the metrics server.
func (r *Runner) MetricsAddr() string {
	return net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
}

// Run starts all components and blocks until ctx is canceled or one of
// them fails. A clean shutdown returns nil.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.config

	eventLog := events.NewEventLog(r.db)
	bus := events.NewBus(eventLog, r.logger)
	defer func() { _ = bus.Close() }()

	store := catalog.NewStore(r.db)
	tokens := codec.New(r.db, r.logger)

	m := metrics.New()
	if err := m.RegisterGauge("bus_dropped_events", "Events dropped because a subscriber was full.",
		func() float64 { return float64(bus.Dropped()) }); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	clientOpts := []telegram.Option{telegram.WithLogger(r.logger)}
	if cfg.Telegram.APIURL != "" {
		clientOpts = append(clientOpts, telegram.WithBaseURL(cfg.Telegram.APIURL))
	}
	client := telegram.New(cfg.Telegram.Token, clientOpts...)
	adapter := telegram.NewAdapter(client, telegram.AdapterConfig{
		StorageChat: cfg.Telegram.StorageChat,
		SponsorChat: cfg.Telegram.SponsorChat,
		Admins:      cfg.Telegram.Admins,
	}, r.logger)

	navigator := navigation.New(store, tokens, adapter.Membership(), navigation.Config{
		PageSize:       cfg.Browse.PageSize,
		GroupsPageSize: cfg.Browse.GroupsPageSize,
		JoinURL:        cfg.Telegram.SponsorURL,
		Admins:         cfg.Telegram.Admins,
	}, r.logger)

	pipeline := delivery.NewPipeline(adapter, r.logger,
		delivery.WithRecorder(store),
		delivery.WithFallback(adapter),
		delivery.WithPublisher(bus),
		delivery.WithOptions(delivery.Options{
			MaxAttempts:    cfg.Delivery.MaxAttempts,
			InterItemDelay: cfg.Delivery.InterItemDelay,
			ProgressEvery:  cfg.Delivery.ProgressEvery,
		}),
	)

	g, ctx := errgroup.WithContext(ctx)

	dispatcher := delivery.NewDispatcher(ctx, pipeline, cfg.Delivery.Workers, r.logger)
	// runs after g.Wait: deliveries get to emit their summaries
	defer dispatcher.Shutdown()

	sweep := handlers.NewSweepHandler(bus, store, tokens, eventLog, handlers.SweepConfig{
		Interval:       cfg.Cleanup.SweepInterval,
		EventRetention: cfg.Cleanup.EventRetention,
	}, r.logger)
	components := []handlers.Handler{
		handlers.NewMetricsHandler(bus, m, r.logger),
		sweep,
	}

	b := bot.New(bot.Deps{
		API:        client,
		Navigator:  navigator,
		Catalog:    store,
		Encoder:    tokens,
		Ingester:   ingest.New(adapter, store, tokens, bus, r.logger),
		Dispatcher: dispatcher,
		Pipeline:   pipeline,
		Cleaner:    sweep,
		Bus:        bus,
	}, bot.Config{
		Admins:      cfg.Telegram.Admins,
		MainChat:    cfg.Telegram.MainChat,
		StorageChat: cfg.Telegram.StorageChat,
		SponsorChat: cfg.Telegram.SponsorChat,
		PollTimeout: cfg.Telegram.PollTimeout,
		Workers:     cfg.Telegram.Workers,
	}, r.logger)

	metricsServer := metrics.NewServer(r.MetricsAddr(), m, r.db.PingContext, r.logger)

	for _, h := range components {
		g.Go(func() error {
			r.logger.Debug("handler started", "handler", h.Name())
			return ignoreCanceled(h.Start(ctx))
		})
	}
	g.Go(func() error { return b.Run(ctx) })
	g.Go(func() error { return metricsServer.Run(ctx) })

	r.logger.Info("reelbox running", "metrics", r.MetricsAddr(), "storage_chat", cfg.Telegram.StorageChat)
	err := g.Wait()
	r.logger.Info("shutting down")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
