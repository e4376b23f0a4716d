package board

// Driver is the contract every concrete device implementation in
// drivers/* satisfies. A Driver owns exactly one device session: it is
// constructed once by the registry's factory dispatch, prepared, driven
// through zero or more start/stop cycles, and released.
//
// Implementations embed *Base and get PushRow, AddStreamer, DeleteStreamer,
// GetBoardData and friends for free; they only need to supply the parts
// that are genuinely device-specific (transport, frame decode, config
// command grammar).
type Driver interface {
	// PrepareSession opens the underlying transport and allocates the
	// session's ring buffers and marker queues. Must be idempotent: calling
	// it twice without an intervening ReleaseSession is a no-op that
	// returns nil.
	PrepareSession() error

	// StartStream begins acquisition into a ring buffer sized for
	// bufferSize samples. If streamerURI is non-empty it is parsed and
	// attached as an additional default-preset streamer before the first
	// sample is pushed.
	StartStream(bufferSize int, streamerURI string) error

	// StopStream halts acquisition. Must drain and join any in-flight
	// streamer work before returning.
	StopStream() error

	// ReleaseSession tears down the transport and discards buffered data.
	// Idempotent.
	ReleaseSession() error

	// ConfigBoard sends a device-specific configuration command and
	// returns the device's response string, if any.
	ConfigBoard(command string) (string, error)

	// InsertMarker enqueues a marker value to be stamped onto the next
	// pushed row of preset.
	InsertMarker(value float64, preset Preset) error

	// AddStreamer attaches an additional streamer to preset, identified by
	// uri (type://dest:mods).
	AddStreamer(uri string, preset Preset) error

	// DeleteStreamer detaches a previously-added streamer matching uri.
	DeleteStreamer(uri string, preset Preset) error

	// GetBoardDataCount reports how many rows are currently buffered for
	// preset.
	GetBoardDataCount(preset Preset) (int, error)

	// GetBoardData drains up to numSamples buffered rows for preset,
	// oldest first, in column-major layout (width rows x numSamples cols).
	GetBoardData(numSamples int, preset Preset) ([][]float64, error)

	// GetCurrentBoardData peeks at up to numSamples of the most recently
	// pushed rows for preset without removing them.
	GetCurrentBoardData(numSamples int, preset Preset) ([][]float64, error)
}
