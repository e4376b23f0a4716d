// Package gforce implements the oymotion gForce Pro EMG armband: an
// 8-channel EMG device reached through a vendor SDK wrapper library that,
// unlike the rest of the driver family, enforces a hard single-instance
// constraint across the whole process — the vendor SDK itself cannot be
// initialized twice.
package gforce

import (
	"sync"
	"sync/atomic"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/status"
)

// liveInstances tracks how many gForce drivers currently hold the vendor
// SDK's single process-wide slot, mirroring GforcePro::num_objects.
var liveInstances atomic.Int32

// SDK is the minimal surface the vendor wrapper library needs to expose:
// open/close the device and poll for one EMG frame. This module ships no
// implementation of it: a caller supplies one through Config.SDK, and
// tests substitute a fake.
type SDK interface {
	Open() error
	Close() error
	ReadFrame(buf []byte) (int, error)
}

const (
	frameSize     = 10 // 8 channels x 1 byte + 1 status byte + 1 marker byte
	emgFullScaleV = 3.3
	emgADCMax     = (1 << 8) - 1
)

// Config configures a gForce Pro driver instance.
type Config struct {
	Deps board.Dependencies
	SDK  SDK
}

// Driver implements board.Driver for the gForce Pro EMG armband.
type Driver struct {
	*board.Base

	cfg Config

	mu       sync.Mutex
	claimed  bool
	started  bool
	readStop chan struct{}
	readDone chan struct{}

	sync *timesync.Estimator
}

// New constructs a gForce Pro driver. Claiming the vendor SDK's single
// process-wide slot happens in PrepareSession, not here, mirroring the
// original where is_valid is computed at construction but acted on in
// prepare_session.
func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg, sync: timesync.NewEstimator()}
	d.Base = board.NewBase(board.Descriptors[board.GForceID], cfg.Deps)
	return d
}

func (d *Driver) PrepareSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Base.Flags().Initialized {
		return nil
	}
	if d.cfg.SDK == nil {
		return board.WithStatus(status.UnableToOpenPortError,
			classify.WrapInvalid(classify.ErrMissingConfig, "gforce", "PrepareSession", "no SDK configured"))
	}
	if liveInstances.Add(1) > 1 {
		liveInstances.Add(-1)
		return board.WithStatus(status.AnotherBoardIsCreatedError, classify.ErrAlreadyStarted)
	}
	d.claimed = true
	if err := d.cfg.SDK.Open(); err != nil {
		liveInstances.Add(-1)
		d.claimed = false
		return board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "gforce", "PrepareSession", "open vendor SDK"))
	}
	return d.Base.Prepare(500 * 60 * 10) // 10 minutes at 500Hz
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	if !d.Base.Flags().Initialized {
		d.mu.Unlock()
		return board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if bufferSize > 0 {
		if err := d.Base.Resize(bufferSize); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	d.readStop = make(chan struct{})
	d.readDone = make(chan struct{})
	d.mu.Unlock()

	if err := d.Base.BeginStream(streamerURI); err != nil {
		return err
	}
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	go d.readLoop()
	return nil
}

func (d *Driver) StopStream() error {
	d.mu.Lock()
	stop, done := d.readStop, d.readDone
	d.started = false
	d.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
	return d.Base.EndStream()
}

// ReleaseSession releases the vendor SDK's single process-wide slot so a
// later driver instance can claim it.
func (d *Driver) ReleaseSession() error {
	if d.Base.IsStreaming() {
		_ = d.StopStream()
	}
	d.mu.Lock()
	if d.claimed {
		if d.cfg.SDK != nil {
			_ = d.cfg.SDK.Close()
		}
		liveInstances.Add(-1)
		d.claimed = false
	}
	d.mu.Unlock()
	return d.Base.ReleaseSession()
}

// ConfigBoard is not supported: the vendor SDK exposes no runtime
// configuration surface beyond what PrepareSession already sets up.
func (d *Driver) ConfigBoard(command string) (string, error) {
	return "", board.WithStatus(status.UnsupportedBoardError, classify.ErrInvalidConfig)
}

func (d *Driver) readLoop() {
	defer close(d.readDone)

	buf := make([]byte, frameSize)
	for {
		select {
		case <-d.readStop:
			return
		default:
		}
		n, err := d.cfg.SDK.ReadFrame(buf)
		if err != nil || n != frameSize {
			continue
		}
		row := d.decodeFrame(buf)
		_ = d.Base.PushRow(board.PresetDefault, row)
	}
}

func (d *Driver) decodeFrame(b []byte) []float64 {
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	row := make([]float64, schema.NumRows)
	scale := emgFullScaleV / float64(emgADCMax) * 1_000_000.0
	for i, idx := range schema.EMGChannels {
		row[idx] = scale * float64(b[i])
	}
	row[schema.MarkerChannel] = float64(b[9])
	row[schema.TimestampChannel] = d.sync.Apply(timesync.Now())
	return row
}
