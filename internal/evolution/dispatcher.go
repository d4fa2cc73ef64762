package evolution

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
)

var (
	// ErrQueueFull is returned by Submit when the user's worker queue is full.
	ErrQueueFull = fmt.Errorf("%w: evolution queue full", models.ErrUnavailable)
	// ErrDispatcherStopped is returned by Submit before Start or after Stop.
	ErrDispatcherStopped = errors.New("evolution dispatcher not running")
)

type acceptEvent struct {
	userID        string
	itemID        string
	acceptedCount int
}

// Dispatcher runs OnAccept outside the request path. Events are sharded by user onto a fixed
// set of workers, so one user's events are processed in submission order.
type Dispatcher struct {
	engine    *Engine
	queueSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
	onResult  func(Result, error)

	mu      sync.RWMutex
	running bool
	queues  []chan acceptEvent
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDispatcherMetrics records queue depth and rejections on m.
func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithResultHook calls fn after every processed event, from the worker goroutine.
func WithResultHook(fn func(Result, error)) DispatcherOption {
	return func(d *Dispatcher) { d.onResult = fn }
}

// NewDispatcher creates a dispatcher with the given number of workers, each with a queue of
// queueSize events.
func NewDispatcher(engine *Engine, workers, queueSize int, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		engine:    engine,
		queueSize: queueSize,
		logger:    zap.NewNop(),
		queues:    make([]chan acceptEvent, workers),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. ctx bounds the evolution work; cancel it only to abandon
// queued events.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	for i := range d.queues {
		q := make(chan acceptEvent, d.queueSize)
		d.queues[i] = q
		d.wg.Add(1)
		go d.worker(ctx, i, q)
	}
	d.running = true
	d.logger.Info("evolution dispatcher started", zap.Int("workers", len(d.queues)))
}

// Submit queues an accept event without blocking. acceptedCount is the accepted count
// returned when the interaction was recorded.
func (d *Dispatcher) Submit(userID, itemID string, acceptedCount int) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		d.metrics.IncDispatchRejected()
		return ErrDispatcherStopped
	}
	select {
	case d.queues[d.shard(userID)] <- acceptEvent{userID: userID, itemID: itemID, acceptedCount: acceptedCount}:
		d.metrics.AddQueueDepth(1)
		return nil
	default:
		d.metrics.IncDispatchRejected()
		d.logger.Warn("evolution queue full, dropping accept event",
			zap.String("user_id", userID),
			zap.String("item_id", itemID))
		return ErrQueueFull
	}
}

// Stop stops accepting events and waits for queued events to be processed.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("evolution dispatcher stopped")
}

func (d *Dispatcher) shard(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) worker(ctx context.Context, id int, q <-chan acceptEvent) {
	defer d.wg.Done()
	for ev := range q {
		d.metrics.AddQueueDepth(-1)
		res, err := d.engine.OnAccept(ctx, ev.userID, ev.itemID, ev.acceptedCount)
		if err != nil {
			d.logger.Error("evolution failed",
				zap.Int("worker", id),
				zap.String("user_id", ev.userID),
				zap.String("item_id", ev.itemID),
				zap.Error(err))
		}
		if d.onResult != nil {
			d.onResult(res, err)
		}
	}
}
