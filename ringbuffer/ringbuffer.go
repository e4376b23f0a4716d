// Package ringbuffer implements the fixed-capacity, overwrite-oldest
// circular matrix that backs every board preset's sample history. It is a
// specialization of the host framework's generic pkg/buffer circular
// buffer (one row-shaped slot per slice element) rather than a literal
// reimplementation: boardkit needs batch "newest k" and "oldest k"
// operations the generic Buffer[T] interface doesn't expose, and row
// width must be validated once at construction and never touched again.
package ringbuffer

import (
	"sync"

	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// MaxCaptureSamples bounds ring buffer capacity: 86,400 seconds (24h) at a
// ceiling sampling rate of 250Hz. Requests above this are rejected rather
// than silently truncated.
const MaxCaptureSamples = 86_400 * 250

// Buffer is a thread-safe, fixed-capacity circular matrix of float64 rows.
// Row width is immutable after construction. Writes never block and never
// fail once constructed; when full, the oldest row is overwritten.
type Buffer struct {
	mu sync.Mutex

	width    int
	capacity int
	rows     [][]float64 // capacity slots, each width-wide, reused in place
	size     int
	head     int // next write slot
	tail     int // oldest occupied slot

	writeIndex uint64 // monotonic count of all pushes ever made

	metrics *bufMetrics
}

// Option configures optional Buffer behavior.
type Option func(*config)

type config struct {
	registry      *metric.Registry
	metricsPrefix string
}

// WithMetrics enables Prometheus metrics export for this buffer under the
// given component name (e.g. "board.cyton.default").
func WithMetrics(registry *metric.Registry, component string) Option {
	return func(c *config) {
		if registry != nil && component != "" {
			c.registry = registry
			c.metricsPrefix = component
		}
	}
}

// New creates a ring buffer with the given row width and sample capacity.
// Capacity must be positive and at most MaxCaptureSamples.
func New(width, capacity int, opts ...Option) (*Buffer, error) {
	if width <= 0 {
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "Buffer", "New", "row width must be positive")
	}
	if capacity <= 0 || capacity > MaxCaptureSamples {
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "Buffer", "New",
			"capacity must be positive and at most MaxCaptureSamples")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	rows := make([][]float64, capacity)
	for i := range rows {
		rows[i] = make([]float64, width)
	}

	b := &Buffer{width: width, capacity: capacity, rows: rows}

	if cfg.registry != nil {
		m, err := newBufMetrics(cfg.registry, cfg.metricsPrefix)
		if err != nil {
			return nil, err
		}
		b.metrics = m
	}

	return b, nil
}

// Width returns the immutable row width.
func (b *Buffer) Width() int { return b.width }

// Capacity returns the immutable sample capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// Push appends row to the buffer, overwriting the oldest row if full. row
// must have length equal to Width(); the caller (board.Base) is the sole
// producer and is expected to always pass a correctly shaped row.
func (b *Buffer) Push(row []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := b.rows[b.head]
	n := copy(dst, row)
	for ; n < b.width; n++ {
		dst[n] = 0
	}

	overwrote := b.size == b.capacity
	b.head = (b.head + 1) % b.capacity
	if overwrote {
		b.tail = (b.tail + 1) % b.capacity
	} else {
		b.size++
	}
	b.writeIndex++

	if b.metrics != nil {
		b.metrics.recordPush(overwrote, b.size, b.capacity)
	}
}

// Count returns the current number of rows held (0..capacity).
func (b *Buffer) Count() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(b.size)
}

// WriteIndex returns the monotonic total number of pushes ever performed,
// letting readers detect loss even after overwrite.
func (b *Buffer) WriteIndex() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeIndex
}

// GetCurrent returns (without removing) the newest min(k, Count()) rows,
// oldest-of-the-selection first, each a fresh copy safe to mutate.
func (b *Buffer) GetCurrent(k int) [][]float64 {
	if k <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n := k
	if n > b.size {
		n = b.size
	}
	out := make([][]float64, n)
	// newest row is at (head-1); walk backward n rows then forward to emit oldest-first.
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		idx := (start + i) % b.capacity
		out[i] = append([]float64(nil), b.rows[idx]...)
	}
	return out
}

// GetData removes and returns the oldest min(k, Count()) rows, oldest first.
func (b *Buffer) GetData(k int) [][]float64 {
	if k <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n := k
	if n > b.size {
		n = b.size
	}
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = append([]float64(nil), b.rows[b.tail]...)
		b.tail = (b.tail + 1) % b.capacity
		b.size--
	}
	if b.metrics != nil {
		b.metrics.recordDrain(n, b.size, b.capacity)
	}
	return out
}

// bufMetrics holds the optional Prometheus collectors for a single Buffer.
type bufMetrics struct {
	pushes    prometheus.Counter
	overflows prometheus.Counter
	size      prometheus.Gauge
}

func newBufMetrics(reg *metric.Registry, prefix string) (*bufMetrics, error) {
	m := &bufMetrics{
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boardkit", Subsystem: "ringbuffer", Name: "pushes_total",
			Help:        "Total rows pushed into the ring buffer",
			ConstLabels: prometheus.Labels{"component": prefix},
		}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boardkit", Subsystem: "ringbuffer", Name: "overflows_total",
			Help:        "Total rows that overwrote an unread oldest row",
			ConstLabels: prometheus.Labels{"component": prefix},
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boardkit", Subsystem: "ringbuffer", Name: "size",
			Help:        "Current number of rows held",
			ConstLabels: prometheus.Labels{"component": prefix},
		}),
	}
	if err := reg.RegisterCounter(prefix, "ringbuffer_pushes_total", m.pushes); err != nil {
		return nil, err
	}
	if err := reg.RegisterCounter(prefix, "ringbuffer_overflows_total", m.overflows); err != nil {
		return nil, err
	}
	if err := reg.RegisterGauge(prefix, "ringbuffer_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *bufMetrics) recordPush(overwrote bool, size, _ int) {
	m.pushes.Inc()
	if overwrote {
		m.overflows.Inc()
	}
	m.size.Set(float64(size))
}

func (m *bufMetrics) recordDrain(_, size, _ int) {
	m.size.Set(float64(size))
}
