package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/config"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

// Processor applies one stored webhook event.
type Processor interface {
	ProcessEvent(ctx context.Context, eventID int64) error
}

// Dispatcher runs a worker pool over a bounded queue of webhook event ids.
// A poller periodically sweeps the event table for pending and retryable
// events, so events survive restarts and queue overflow.
type Dispatcher struct {
	events    repository.WebhookRepository
	processor Processor
	logger    *zap.Logger

	queue        chan int64
	workers      int
	pollInterval time.Duration
	maxAttempts  int

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewDispatcher creates the webhook dispatcher.
func NewDispatcher(events repository.WebhookRepository, processor Processor, cfg config.WebhookConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		events:       events,
		processor:    processor,
		logger:       logger,
		queue:        make(chan int64, cfg.QueueSize),
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval.Std(),
		maxAttempts:  cfg.MaxAttempts,
		inFlight:     make(map[int64]struct{}),
	}
}

// Enqueue offers an event to the queue without blocking. A false return means
// the queue is full; the poller will pick the event up later.
func (d *Dispatcher) Enqueue(eventID int64) bool {
	select {
	case d.queue <- eventID:
		return true
	default:
		return false
	}
}

// Start launches the workers and the poller.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}

	d.wg.Add(1)
	go d.poll(ctx)

	d.logger.Info("webhook dispatcher started",
		zap.Int("workers", d.workers),
		zap.Duration("poll_interval", d.pollInterval))
}

// Stop signals all goroutines and waits for in-flight events to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case eventID := <-d.queue:
			d.process(ctx, eventID)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, eventID int64) {
	if !d.claim(eventID) {
		return
	}
	defer d.release(eventID)

	procCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := d.processor.ProcessEvent(procCtx, eventID); err != nil {
		d.logger.Warn("webhook event left for retry",
			zap.Int64("webhook_event_id", eventID),
			zap.Error(err))
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

// sweep re-enqueues events the queue missed: deliveries accepted before a
// restart and failed events whose backoff expired.
func (d *Dispatcher) sweep(ctx context.Context) {
	events, err := d.events.GetPending(ctx, d.maxAttempts, cap(d.queue))
	if err != nil {
		d.logger.Error("webhook sweep failed", zap.Error(err))
		return
	}

	requeued := 0
	for _, event := range events {
		if d.Enqueue(event.ID) {
			requeued++
		}
	}
	if requeued > 0 {
		d.logger.Info("webhook sweep requeued events", zap.Int("count", requeued))
	}
}

// claim prevents the same event from being processed by two workers when the
// poller and a live delivery race.
func (d *Dispatcher) claim(eventID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[eventID]; busy {
		return false
	}
	d.inFlight[eventID] = struct{}{}
	return true
}

func (d *Dispatcher) release(eventID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, eventID)
}
