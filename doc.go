// Package boardkit is a vendor-neutral SDK for acquiring data from
// biosignal amplifier boards over serial, UDP, and Bluetooth transports.
//
// # Architecture
//
// A board family is described once in the board package's static
// descriptor table (sample rate, channel counts, supported presets) and
// implemented by a driver under drivers/. Every driver satisfies the
// board.Driver interface:
//
//	PrepareSession   open the transport and allocate the preset buffers
//	StartStream      begin decoding frames into per-preset ring buffers
//	StopStream       stop the device and drain any residual output
//	GetBoardData     pull buffered rows out of a preset's ring buffer
//	InsertMarker     queue a marker value for the next row's marker channel
//	ConfigBoard      apply a channel/gain command string
//	ReleaseSession   close the transport and free driver state
//
// registry.Registry is the single entry point a consumer holds: it maps
// a board.ID to a driver factory, owns one driver instance per active
// session, and forwards every board.Driver call by registry.Params (the
// board.ID plus the transport identity). A consumer imports a drivers/
// subpackage only to register a factory for a board that
// RegisterDefaultFactories leaves out (gforce, antneuro).
//
// # Framework packages
//
//   - board: descriptor table, Driver interface, base session/ring-buffer plumbing
//   - registry: board.ID → driver factory map, one session per board.ID and transport identity
//   - drivers/cyton, drivers/dawn, drivers/ganglion, drivers/gforce,
//     drivers/antneuro, drivers/wifiboard, drivers/btclassic: per-family
//     transport and frame-decode implementations
//   - configtracker: channel/gain command grammar and revertible gain state
//   - ringbuffer: fixed-capacity circular buffer behind GetBoardData
//   - marker: per-preset FIFO of pending nonzero marker values
//   - streamer: file and multicast sinks built from a "type://dest:mods" URI
//   - timesync: device-clock-to-wall-clock offset estimation
//   - status, classify: structured error codes and transient/invalid/fatal classification
//   - retry: backoff policy for repeating a failed transport read
//   - workerpool: bounded goroutine pool behind the multicast streamer's sends
//   - metric: Prometheus registry wrapper for the optional ringbuffer/workerpool metrics
//   - transportlib: shared dlopen/dlsym binding for vendor shared libraries
//   - boardconfig: typed, validated connection parameters for one board session
//
// # Usage
//
//	r := registry.New()
//	registry.RegisterDefaultFactories(r)
//
//	params := registry.Params{BoardID: board.CytonID, SerialPort: "/dev/ttyUSB0"}
//	deps := board.Dependencies{Logger: logger, Metrics: metric.New()}
//
//	if err := r.PrepareSession(params, deps); err != nil {
//		log.Fatal(err)
//	}
//	defer r.ReleaseSession(params)
//
//	if err := r.StartStream(params, 0, ""); err != nil {
//		log.Fatal(err)
//	}
//	defer r.StopStream(params)
//
//	rows, err := r.GetBoardData(params, 256, board.PresetDefault)
//
// See cmd/boardctl for a runnable end-to-end example against the Wifi
// board family that requires no physical hardware.
package boardkit
