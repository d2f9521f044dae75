package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DispatcherConfig configures event dispatch behavior.
type DispatcherConfig struct {
	// Workers is the number of events processed concurrently.
	// Default: 4
	Workers int

	// QueueSize is the bounded buffer between event intake and the workers.
	// A full queue applies backpressure to Enqueue.
	// Default: 256
	QueueSize int

	// RateLimit is the maximum events per second handed to the handler.
	// Zero means unlimited.
	RateLimit float64
}

// DefaultDispatcherConfig returns the default dispatcher configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:   4,
		QueueSize: 256,
	}
}

// Dispatcher runs object-created events through a bounded worker pool.
//
// Each event executes independently; the only shared mutable state across
// runs lives behind the handler's own stores. The bounded queue keeps a
// notification burst from exhausting memory.
type Dispatcher struct {
	handler Handler
	config  DispatcherConfig
	logger  *zap.Logger

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter

	queue chan ObjectCreated
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	processed atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher creates a dispatcher delivering events to handler.
func NewDispatcher(handler Handler, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultDispatcherConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		handler: handler,
		config:  cfg,
		logger:  logger,
		queue:   make(chan ObjectCreated, cfg.QueueSize),
	}

	if cfg.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return d
}

// Start launches the worker pool. Workers exit when ctx is cancelled or the
// queue is closed by Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.config.Workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Enqueue submits an event for processing, blocking while the queue is full.
// Returns ctx's error if the caller gives up first.
func (d *Dispatcher) Enqueue(ctx context.Context, ev ObjectCreated) error {
	select {
	case d.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits for in-flight events to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Processed returns the number of events handled so far.
func (d *Dispatcher) Processed() int64 {
	return d.processed.Load()
}

// Failed returns the number of events whose handler returned an error.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue:
			if !ok {
				return
			}

			if d.limiter != nil {
				if err := d.limiter.Wait(ctx); err != nil {
					return
				}
			}

			if err := d.handler.HandleObjectCreated(ctx, ev); err != nil {
				d.failed.Add(1)
				d.logger.Error("Event handling failed",
					zap.String("bucket", ev.Bucket),
					zap.String("key", ev.Key),
					zap.Error(err))
			}
			d.processed.Add(1)
		}
	}
}
