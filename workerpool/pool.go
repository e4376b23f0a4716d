// Package workerpool provides a generic worker pool for concurrent task
// processing, ported from the host framework's pkg/worker.Pool[T]. In
// boardkit it backs the multicast streamer's background drain-and-emit
// loop (§4.2 of the spec): the acquisition goroutine only ever pushes
// into a bounded ring, a single pool worker does the (potentially slow)
// UDP write, keeping that latency off the acquisition path.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/boardkit/metric"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrNilProcessor       = errors.New("workerpool: processor function cannot be nil")
	ErrPoolNotStarted     = errors.New("workerpool: pool not started")
	ErrPoolAlreadyStarted = errors.New("workerpool: pool already started")
	ErrPoolStopped        = errors.New("workerpool: pool is stopped")
	ErrQueueFull          = errors.New("workerpool: queue is full")
	ErrStopTimeout        = errors.New("workerpool: stop timed out waiting for workers")
)

// Pool processes work items of type T with a fixed number of workers.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	wg       *sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted int64
	processed int64
	failed    int64
	dropped   int64

	metrics *poolMetrics
}

type poolMetrics struct {
	queueDepth prometheus.Gauge
	submitted  prometheus.Counter
	processed  prometheus.Counter
	failed     prometheus.Counter
	dropped    prometheus.Counter
}

// Option configures a Pool at construction time.
type Option[T any] func(*Pool[T])

// WithMetrics registers Prometheus collectors for this pool under prefix.
func WithMetrics[T any](registry *metric.Registry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		if registry == nil || prefix == "" {
			return
		}
		m := &poolMetrics{
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "boardkit", Subsystem: "workerpool", Name: "queue_depth",
				ConstLabels: prometheus.Labels{"component": prefix},
			}),
			submitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "boardkit", Subsystem: "workerpool", Name: "submitted_total",
				ConstLabels: prometheus.Labels{"component": prefix},
			}),
			processed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "boardkit", Subsystem: "workerpool", Name: "processed_total",
				ConstLabels: prometheus.Labels{"component": prefix},
			}),
			failed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "boardkit", Subsystem: "workerpool", Name: "failed_total",
				ConstLabels: prometheus.Labels{"component": prefix},
			}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "boardkit", Subsystem: "workerpool", Name: "dropped_total",
				ConstLabels: prometheus.Labels{"component": prefix},
			}),
		}
		_ = registry.RegisterGauge(prefix, "workerpool_queue_depth", m.queueDepth)
		_ = registry.RegisterCounter(prefix, "workerpool_submitted_total", m.submitted)
		_ = registry.RegisterCounter(prefix, "workerpool_processed_total", m.processed)
		_ = registry.RegisterCounter(prefix, "workerpool_failed_total", m.failed)
		_ = registry.RegisterCounter(prefix, "workerpool_dropped_total", m.dropped)
		p.metrics = m
	}
}

// New creates a worker pool. processor must not be nil.
func New[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit enqueues work without blocking. Returns ErrQueueFull if the
// queue is at capacity rather than applying backpressure to the caller.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		atomic.AddInt64(&p.submitted, 1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		atomic.AddInt64(&p.dropped, 1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the worker goroutines.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.wg = &sync.WaitGroup{}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.started = true
	return nil
}

// Stop closes the queue and waits (up to timeout) for workers to drain it.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	close(p.workChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats reports pool throughput counters.
type Stats struct {
	Submitted int64
	Processed int64
	Failed    int64
	Dropped   int64
}

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&p.submitted),
		Processed: atomic.LoadInt64(&p.processed),
		Failed:    atomic.LoadInt64(&p.failed),
		Dropped:   atomic.LoadInt64(&p.dropped),
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}
			err := p.processor(ctx, work)
			atomic.AddInt64(&p.processed, 1)
			if err != nil {
				atomic.AddInt64(&p.failed, 1)
				if p.metrics != nil {
					p.metrics.failed.Inc()
				}
			}
			if p.metrics != nil {
				p.metrics.processed.Inc()
				p.metrics.queueDepth.Set(float64(len(p.workChan)))
			}
		}
	}
}
