package streamer

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/ringbuffer"
	"github.com/c360/boardkit/workerpool"
)

// DefaultBatchSize is the number of rows batched into one outgoing
// datagram when BOARDKIT_BATCH_SIZE is not set in the environment.
const DefaultBatchSize = 100

// internalRingCapacity bounds the multicast streamer's internal ring,
// matching the fixed capacity the streaming contract specifies.
const internalRingCapacity = 1000

func batchSize() int {
	if v := os.Getenv("BOARDKIT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultBatchSize
}

// multicastStreamer batches pushed rows and emits one UDP datagram per
// batch to a multicast group. The acquisition goroutine only ever writes
// into the internal ring; a single background worker drains it, so a
// slow or unreachable network destination never stalls sample capture.
type multicastStreamer struct {
	dest string
	mods string
	port int
	addr *net.UDPAddr

	numRows int
	batch   int

	ring *ringbuffer.Buffer
	conn *net.UDPConn
	pool *workerpool.Pool[[]byte]

	mu        sync.Mutex
	cancel    context.CancelFunc
	collector sync.WaitGroup
	destroyed bool
}

func newMulticastStreamer(dest, mods string, numRows int) (*multicastStreamer, error) {
	ip := net.ParseIP(dest)
	if ip == nil || !ip.IsMulticast() {
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "multicastStreamer", "new",
			"destination must be a multicast IPv4 address")
	}

	port, err := strconv.Atoi(mods)
	if err != nil || port <= 0 || port > 65535 {
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "multicastStreamer", "new",
			"mods must be a valid UDP port")
	}

	ring, err := ringbuffer.New(numRows, internalRingCapacity)
	if err != nil {
		return nil, err
	}

	return &multicastStreamer{
		dest:    dest,
		mods:    mods,
		port:    port,
		numRows: numRows,
		batch:   batchSize(),
		ring:    ring,
		addr:    &net.UDPAddr{IP: ip, Port: port},
	}, nil
}

func (m *multicastStreamer) Init() error {
	conn, err := net.DialUDP("udp4", nil, m.addr)
	if err != nil {
		return classify.WrapFatal(err, "multicastStreamer", "Init", "dial multicast destination")
	}
	m.conn = conn

	m.pool = workerpool.New(1, 4, func(_ context.Context, payload []byte) error {
		_, werr := m.conn.Write(payload)
		return werr
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	if err := m.pool.Start(ctx); err != nil {
		return classify.WrapFatal(err, "multicastStreamer", "Init", "start emit worker")
	}

	m.collector.Add(1)
	go m.collectLoop(ctx)

	return nil
}

// collectLoop drains full batches from the internal ring and hands each
// one to the emit worker. Every datagram this streamer sends must be
// exactly batch*numRows doubles, so a batch is only drained once Count
// confirms a full one is available; short of that it sleeps ~100us
// rather than busy-spinning, matching the streaming contract's
// starvation behavior. Whatever is left in the ring below a full batch
// at shutdown is dropped, not flushed as a short datagram.
func (m *multicastStreamer) collectLoop(ctx context.Context) {
	defer m.collector.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.ring.Count() < uint64(m.batch) {
			time.Sleep(100 * time.Microsecond)
			continue
		}

		m.emit(m.ring.GetData(m.batch))
	}
}

func (m *multicastStreamer) emit(rows [][]float64) {
	payload := make([]byte, 0, len(rows)*m.numRows*8)
	buf := make([]byte, 8)
	for _, row := range rows {
		for _, v := range row {
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			payload = append(payload, buf...)
		}
	}
	if m.pool != nil {
		_ = m.pool.Submit(payload)
	}
}

// Stream enqueues row into the internal ring. Never blocks: once the ring
// is full, the oldest unsent row is silently overwritten.
func (m *multicastStreamer) Stream(row []float64) {
	m.ring.Push(row)
}

func (m *multicastStreamer) Equals(typ, dest, mods string) bool {
	return Type(typ) == TypeStreamingBoard && dest == m.dest && mods == m.mods
}

func (m *multicastStreamer) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil
	}
	m.destroyed = true

	if m.cancel != nil {
		m.cancel()
	}
	m.collector.Wait()

	if m.pool != nil {
		_ = m.pool.Stop(time.Second)
	}

	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			return classify.WrapTransient(err, "multicastStreamer", "Destroy", "close UDP socket")
		}
	}
	return nil
}
