package board

import (
	"sync"
	"time"

	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/marker"
	"github.com/c360/boardkit/ringbuffer"
	"github.com/c360/boardkit/status"
	"github.com/c360/boardkit/streamer"
)

// presetState holds the per-preset buffered state a Base owns: the ring
// buffer of pushed rows, the pending marker queue, and the attached sinks.
type presetState struct {
	schema    PresetSchema
	buf       *ringbuffer.Buffer
	markers   *marker.Queue
	streamers []streamer.Streamer

	firstFrame     chan struct{}
	firstFrameOnce *sync.Once
}

// Base is the shared per-session state every concrete driver in drivers/*
// embeds. It owns exactly the parts of a session that are not
// device-specific: buffering, marker stamping, streamer fan-out, and the
// initialized/streaming flags. Everything device-specific (transport,
// frame decode, config grammar) lives in the embedding driver.
//
// A single mutex guards the whole critical section described by the
// pushed-row invariant: marker dequeue, ring buffer write and streamer
// fan-out happen atomically with respect to concurrent reads, marker
// inserts and streamer add/delete.
type Base struct {
	mu sync.Mutex

	descriptor Descriptor
	deps       Dependencies
	flags      Flags

	presets map[Preset]*presetState
}

// NewBase constructs a Base for the given board descriptor. The returned
// Base has no allocated presets until Prepare is called.
func NewBase(desc Descriptor, deps Dependencies) *Base {
	return &Base{descriptor: desc, deps: deps}
}

// Descriptor returns the board's static schema.
func (b *Base) Descriptor() Descriptor { return b.descriptor }

// Flags returns a snapshot of the session lifecycle flags.
func (b *Base) Flags() Flags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags
}

// Prepare allocates the per-preset ring buffers and marker queues.
// Idempotent: calling it again while already initialized is a no-op.
func (b *Base) Prepare(bufferSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flags.Initialized {
		return nil
	}
	if bufferSize <= 0 {
		return WithStatus(status.InvalidBufferSizeError,
			classify.WrapInvalid(classify.ErrInvalidConfig, "Base", "Prepare", "buffer size must be positive"))
	}

	presets := make(map[Preset]*presetState, len(b.descriptor.Presets))
	for preset, schema := range b.descriptor.Presets {
		buf, err := ringbuffer.New(schema.NumRows, bufferSize)
		if err != nil {
			return WithStatus(status.GeneralError, classify.Wrap(err, "Base", "Prepare", "allocate ring buffer"))
		}
		presets[preset] = &presetState{
			schema:         schema,
			buf:            buf,
			markers:        marker.New(),
			firstFrame:     make(chan struct{}),
			firstFrameOnce: &sync.Once{},
		}
	}

	b.presets = presets
	b.flags.Initialized = true
	return nil
}

// Resize reallocates every preset's ring buffer to a new sample capacity,
// discarding any currently buffered rows. Drivers call this from
// StartStream when the caller asks for a buffer size different from the
// one used at Prepare time. A no-op if not yet initialized (Prepare itself
// will use bufferSize).
func (b *Base) Resize(bufferSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.flags.Initialized {
		return nil
	}
	if bufferSize <= 0 {
		return WithStatus(status.InvalidBufferSizeError,
			classify.WrapInvalid(classify.ErrInvalidConfig, "Base", "Resize", "buffer size must be positive"))
	}

	for preset, ps := range b.presets {
		buf, err := ringbuffer.New(ps.schema.NumRows, bufferSize)
		if err != nil {
			return WithStatus(status.GeneralError, classify.Wrap(err, "Base", "Resize", "allocate ring buffer"))
		}
		ps.buf = buf
		b.presets[preset] = ps
	}
	return nil
}

// ReleaseSession discards all buffered state and resets the session to
// uninitialized. Idempotent. Destroys any attached streamers.
func (b *Base) ReleaseSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.flags.Initialized {
		return nil
	}
	for _, ps := range b.presets {
		for _, s := range ps.streamers {
			_ = s.Destroy()
		}
	}
	b.presets = nil
	b.flags = Flags{}
	return nil
}

// BeginStream marks the session streaming and, if streamerURI is non-empty,
// attaches it to the default preset before returning.
func (b *Base) BeginStream(streamerURI string) error {
	b.mu.Lock()
	if !b.flags.Initialized {
		b.mu.Unlock()
		return WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if b.flags.Streaming {
		b.mu.Unlock()
		return WithStatus(status.StreamAlreadyRunError, classify.ErrAlreadyStarted)
	}
	for _, ps := range b.presets {
		ps.firstFrame = make(chan struct{})
		ps.firstFrameOnce = &sync.Once{}
	}
	b.flags.Streaming = true
	b.mu.Unlock()

	if streamerURI != "" {
		return b.AddStreamer(streamerURI, PresetDefault)
	}
	return nil
}

// EndStream stops fan-out of new rows. Idempotent. Attached streamers are
// left in place; callers that want them gone must DeleteStreamer explicitly
// or ReleaseSession.
func (b *Base) EndStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags.Streaming = false
	return nil
}

// IsStreaming reports whether the session is currently accepting pushed rows.
func (b *Base) IsStreaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags.Streaming
}

func (b *Base) presetLocked(preset Preset) (*presetState, error) {
	if !b.flags.Initialized {
		return nil, WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	ps, ok := b.presets[preset]
	if !ok {
		return nil, WithStatus(status.InvalidArgumentsError,
			classify.WrapInvalid(classify.ErrInvalidConfig, "Base", "preset", "unsupported preset \""+string(preset)+"\""))
	}
	return ps, nil
}

// PushRow delivers one fully-assembled sample row for preset: the driver
// must have already populated every channel except the marker channel,
// including the timestamp channel. PushRow stamps the marker channel from
// the pending queue (0.0 if empty), appends to the ring buffer, and fans
// the row out to every attached streamer, all under one critical section.
func (b *Base) PushRow(preset Preset, row []float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.flags.Streaming {
		return WithStatus(status.StreamThreadIsNotRunning, classify.ErrNotStarted)
	}
	ps, err := b.presetLocked(preset)
	if err != nil {
		return err
	}
	if len(row) != ps.schema.NumRows {
		return WithStatus(status.InvalidArgumentsError,
			classify.WrapInvalid(classify.ErrInvalidData, "Base", "PushRow", "row width does not match preset schema"))
	}

	if ps.schema.MarkerChannel >= 0 {
		row[ps.schema.MarkerChannel] = ps.markers.Next()
	}

	ps.buf.Push(row)
	for _, s := range ps.streamers {
		s.Stream(row)
	}
	ps.firstFrameOnce.Do(func() { close(ps.firstFrame) })
	return nil
}

// InsertMarker enqueues a marker value to be stamped onto the next row
// pushed for preset.
func (b *Base) InsertMarker(value float64, preset Preset) error {
	b.mu.Lock()
	ps, err := b.presetLocked(preset)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if err := ps.markers.Insert(value); err != nil {
		return WithStatus(status.InvalidArgumentsError, err)
	}
	return nil
}

// AddStreamer attaches a new streamer built from uri to preset.
func (b *Base) AddStreamer(uri string, preset Preset) error {
	typ, dest, mods, err := streamer.Parse(uri)
	if err != nil {
		return WithStatus(status.InvalidArgumentsError, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ps, err := b.presetLocked(preset)
	if err != nil {
		return err
	}
	for _, s := range ps.streamers {
		if s.Equals(typ, dest, mods) {
			return WithStatus(status.InvalidArgumentsError,
				classify.WrapInvalid(classify.ErrInvalidConfig, "Base", "AddStreamer", "streamer already attached"))
		}
	}

	s, err := streamer.New(uri, ps.schema.NumRows)
	if err != nil {
		return WithStatus(status.InvalidArgumentsError, err)
	}
	if err := s.Init(); err != nil {
		return WithStatus(status.GeneralError, classify.Wrap(err, "Base", "AddStreamer", "init streamer"))
	}
	ps.streamers = append(ps.streamers, s)
	return nil
}

// DeleteStreamer detaches and destroys the streamer matching uri on preset.
func (b *Base) DeleteStreamer(uri string, preset Preset) error {
	typ, dest, mods, err := streamer.Parse(uri)
	if err != nil {
		return WithStatus(status.InvalidArgumentsError, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ps, err := b.presetLocked(preset)
	if err != nil {
		return err
	}
	for i, s := range ps.streamers {
		if s.Equals(typ, dest, mods) {
			_ = s.Destroy()
			ps.streamers = append(ps.streamers[:i], ps.streamers[i+1:]...)
			return nil
		}
	}
	return WithStatus(status.InvalidArgumentsError,
		classify.WrapInvalid(classify.ErrInvalidConfig, "Base", "DeleteStreamer", "no matching streamer attached"))
}

// GetBoardDataCount reports how many rows are currently buffered for preset.
func (b *Base) GetBoardDataCount(preset Preset) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, err := b.presetLocked(preset)
	if err != nil {
		return 0, err
	}
	return int(ps.buf.Count()), nil
}

// GetBoardData drains up to numSamples buffered rows for preset, oldest
// first, reshaped into column-major layout: the returned slice has one
// entry per channel (schema.NumRows), each holding numSamples values.
func (b *Base) GetBoardData(numSamples int, preset Preset) ([][]float64, error) {
	b.mu.Lock()
	ps, err := b.presetLocked(preset)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	rows := ps.buf.GetData(numSamples)
	width := ps.schema.NumRows
	b.mu.Unlock()
	return reshapeColumnMajor(rows, width), nil
}

// GetCurrentBoardData peeks at up to numSamples of the most recently pushed
// rows for preset, in the same column-major layout as GetBoardData.
func (b *Base) GetCurrentBoardData(numSamples int, preset Preset) ([][]float64, error) {
	b.mu.Lock()
	ps, err := b.presetLocked(preset)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	rows := ps.buf.GetCurrent(numSamples)
	width := ps.schema.NumRows
	b.mu.Unlock()
	return reshapeColumnMajor(rows, width), nil
}

// WaitFirstFrame blocks until the first row has been pushed for preset
// since the most recent BeginStream, or timeout elapses. Drivers that need
// to know acquisition has genuinely started (e.g. before running a clock
// sync exchange) call this instead of sleeping a fixed duration.
func (b *Base) WaitFirstFrame(preset Preset, timeout time.Duration) error {
	b.mu.Lock()
	ps, err := b.presetLocked(preset)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	ch := ps.firstFrame
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return WithStatus(status.SyncTimeoutError, classify.WrapTransient(classify.ErrConnectionTimeout, "Base", "WaitFirstFrame", "wait for first pushed row"))
	}
}
