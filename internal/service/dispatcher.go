package service

import (
	"context"
	"sync"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	defaultDispatchQueueSize = 1024
	defaultDispatchWorkers   = 4
	dispatchHandlerTimeout   = 10 * time.Second
)

// EventHandlerFunc performs one side effect for an outbound event.
type EventHandlerFunc func(ctx context.Context, event domain.OutboundEvent) error

type namedHandler struct {
	name string
	fn   EventHandlerFunc
}

// Dispatcher runs post-commit side effects on a bounded queue. Handlers are
// independent: each one is retried on its own schedule and a failure in one
// never blocks the others.
type Dispatcher struct {
	queue    chan domain.OutboundEvent
	handlers []namedHandler
	retries  []time.Duration
	workers  int

	mu      sync.RWMutex
	closed  bool
	started bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewDispatcher creates a dispatcher. Register handlers before Start.
func NewDispatcher(cfg config.DispatcherConfig, log zerolog.Logger) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultDispatchQueueSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:   make(chan domain.OutboundEvent, size),
		retries: cfg.RetryIntervals,
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
}

// Register adds a handler. Handlers run in registration order.
func (d *Dispatcher) Register(name string, fn EventHandlerFunc) {
	d.handlers = append(d.handlers, namedHandler{name: name, fn: fn})
}

// Enqueue implements ports.EventDispatcher. It never blocks: when the queue
// is full or closed the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.OutboundEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- event:
		metrics.DispatchQueueLength.Set(float64(len(d.queue)))
		return true
	default:
		d.drop(event, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(event domain.OutboundEvent, why string) {
	metrics.RecordDroppedEvent()
	d.log.Warn().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("reason", why).
		Msg("outbound event dropped")
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.Info().Int("workers", d.workers).Int("handlers", len(d.handlers)).Msg("dispatcher started")
}

// Stop closes the queue and waits for queued events to drain. When ctx ends
// first, pending retries are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.log.Info().Msg("dispatcher drained")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		d.log.Warn().Msg("dispatcher stopped before drain completed")
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		metrics.DispatchQueueLength.Set(float64(len(d.queue)))
		for _, h := range d.handlers {
			d.deliver(h, event)
		}
	}
}

func (d *Dispatcher) deliver(h namedHandler, event domain.OutboundEvent) {
	for attempt := 0; attempt <= len(d.retries); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.retries[attempt-1]):
			case <-d.ctx.Done():
				metrics.RecordDispatch(h.name, "abandoned")
				d.log.Warn().
					Str("handler", h.name).
					Str("event_id", event.ID.String()).
					Int("attempt", attempt).
					Msg("dispatch: retry abandoned on shutdown")
				return
			}
		}

		ctx, cancel := context.WithTimeout(d.ctx, dispatchHandlerTimeout)
		err := h.fn(ctx, event)
		cancel()
		if err == nil {
			metrics.RecordDispatch(h.name, "delivered")
			return
		}
		d.log.Warn().Err(err).
			Str("handler", h.name).
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Int("attempt", attempt+1).
			Msg("dispatch: handler failed")
	}

	metrics.RecordDispatch(h.name, "failed")
	d.log.Error().
		Str("handler", h.name).
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("dispatch: all retry attempts exhausted")
}
