package delivery

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs pipelines in the background, many recipients at once but
// never two batches for the same recipient.
type Dispatcher struct {
	pipeline *Pipeline
	ctx      context.Context
	group    *errgroup.Group
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[int64]string // recipient -> request ID
	closed   bool
}

// NewDispatcher creates a dispatcher whose deliveries run under ctx and at
// most workers at a time.
func NewDispatcher(ctx context.Context, pipeline *Pipeline, workers int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)
	return &Dispatcher{
		pipeline: pipeline,
		ctx:      ctx,
		group:    g,
		logger:   logger.With("component", "dispatcher"),
		inFlight: make(map[int64]string),
	}
}

// Submit starts req in the background and returns its request ID. It fails
// with ErrDeliveryInProgress if the recipient already has a batch running
// and with ErrDispatcherBusy when all workers are taken.
func (d *Dispatcher) Submit(req Request) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrDispatcherClosed
	}
	if running, ok := d.inFlight[req.Recipient]; ok {
		d.mu.Unlock()
		d.logger.Info("rejecting concurrent delivery", "recipient", req.Recipient, "running", running)
		return "", ErrDeliveryInProgress
	}
	d.inFlight[req.Recipient] = req.ID
	d.mu.Unlock()

	started := d.group.TryGo(func() error {
		defer d.release(req.Recipient)
		// failures are reported to the recipient by the pipeline itself
		_, _ = d.pipeline.Run(d.ctx, req)
		return nil
	})
	if !started {
		d.release(req.Recipient)
		return "", ErrDispatcherBusy
	}
	return req.ID, nil
}

// InFlight reports whether recipient has a delivery running.
func (d *Dispatcher) InFlight(recipient int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[recipient]
	return ok
}

// Shutdown stops accepting work and waits for running deliveries.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	_ = d.group.Wait()
}

func (d *Dispatcher) release(recipient int64) {
	d.mu.Lock()
	delete(d.inFlight, recipient)
	d.mu.Unlock()
}
