// Package ganglion implements the compressed-BLE-notification device
// family: a 4-channel EEG board that streams 20-byte GATT notifications,
// most of them holding two samples' worth of 18-or-19-bit delta-compressed
// EEG data rather than raw values, to fit inside BLE's small MTU.
package ganglion

import (
	"sync"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/status"
)

func nowTimestamp() float64 { return timesync.Now() }

// Notifier is the minimal BLE surface this driver needs: write a command to
// the write characteristic and receive a callback per inbound notification.
// The real implementation is backed by tinygo.org/x/bluetooth; tests
// substitute a fake that calls onNotify directly.
type Notifier interface {
	Connect() error
	Disconnect() error
	WriteCommand(cmd string) error
	Subscribe(onNotify func(data []byte)) error
}

// Config configures a Ganglion driver instance.
type Config struct {
	DeviceAddress string
	Deps          board.Dependencies
	Gain          float64 // PGA gain, defaults to 51 if zero

	// Notifier overrides transport construction; tests substitute a fake.
	Notifier Notifier
}

// Driver implements board.Driver for the Ganglion compressed-BLE EEG board.
type Driver struct {
	*board.Base

	cfg Config

	mu      sync.Mutex
	dec     *decoder
	started bool
}

const (
	startCommand = "b"
	stopCommand  = "s"
)

// New constructs a Ganglion driver. No I/O occurs until PrepareSession.
func New(cfg Config) *Driver {
	gain := cfg.Gain
	if gain == 0 {
		gain = 51.0
	}
	d := &Driver{
		cfg: cfg,
		dec: newDecoder(gain),
	}
	d.Base = board.NewBase(board.Descriptors[board.GanglionID], cfg.Deps)
	return d
}

func (d *Driver) PrepareSession() error {
	if d.Base.Flags().Initialized {
		return nil
	}
	if d.cfg.Notifier == nil {
		return board.WithStatus(status.UnableToOpenPortError,
			classify.WrapInvalid(classify.ErrMissingConfig, "ganglion", "PrepareSession", "no BLE notifier configured"))
	}
	if err := d.cfg.Notifier.Connect(); err != nil {
		return board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "ganglion", "PrepareSession", "connect to device"))
	}
	if err := d.cfg.Notifier.Subscribe(d.onNotify); err != nil {
		return board.WithStatus(status.GeneralError, classify.WrapTransient(err, "ganglion", "PrepareSession", "subscribe to notify characteristic"))
	}
	return d.Base.Prepare(200 * 60 * 10) // 10 minutes at 200Hz
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	d.dec = newDecoder(d.effectiveGain())
	d.mu.Unlock()

	if bufferSize > 0 {
		if err := d.Base.Resize(bufferSize); err != nil {
			return err
		}
	}
	if err := d.Base.BeginStream(streamerURI); err != nil {
		return err
	}
	if err := d.cfg.Notifier.WriteCommand(startCommand); err != nil {
		_ = d.Base.EndStream()
		return board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "ganglion", "StartStream", "send start command"))
	}
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	return nil
}

func (d *Driver) effectiveGain() float64 {
	if d.cfg.Gain == 0 {
		return 51.0
	}
	return d.cfg.Gain
}

func (d *Driver) StopStream() error {
	d.mu.Lock()
	wasStarted := d.started
	d.started = false
	d.mu.Unlock()

	if !wasStarted {
		return board.WithStatus(status.StreamThreadIsNotRunning, classify.ErrNotStarted)
	}
	if err := d.cfg.Notifier.WriteCommand(stopCommand); err != nil {
		return board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "ganglion", "StopStream", "send stop command"))
	}
	return d.Base.EndStream()
}

func (d *Driver) ReleaseSession() error {
	if d.Base.IsStreaming() {
		_ = d.StopStream()
	}
	if d.cfg.Notifier != nil {
		_ = d.cfg.Notifier.Disconnect()
	}
	return d.Base.ReleaseSession()
}

func (d *Driver) ConfigBoard(command string) (string, error) {
	if d.cfg.Notifier == nil {
		return "", board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if err := d.cfg.Notifier.WriteCommand(command); err != nil {
		return "", board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "ganglion", "ConfigBoard", "write command"))
	}
	return "", nil
}

// onNotify is the BLE notify callback: classify the 20-byte payload and
// push zero, one or two decoded rows depending on its kind.
func (d *Driver) onNotify(data []byte) {
	if len(data) < 2 {
		return
	}
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)

	d.mu.Lock()
	dec := d.dec
	d.mu.Unlock()

	switch classifyFrame(data[0], len(data)) {
	case frameUncompressed:
		eeg := dec.decodeUncompressed(data)
		row := make([]float64, schema.NumRows)
		for i, v := range eeg {
			row[schema.EEGChannels[i]] = v
		}
		accel := dec.accel()
		for i, v := range accel {
			row[schema.AccelChannels[i]] = v
		}
		row[schema.TimestampChannel] = nowTimestamp()
		_ = d.Base.PushRow(board.PresetDefault, row)

	case frameCompressed18, frameCompressed19:
		bits := 18
		if classifyFrame(data[0], len(data)) == frameCompressed19 {
			bits = 19
		}
		if bits == 18 && len(data) == 20 {
			dec.applyAccelByte(data[0], data[19])
		}
		first, second := dec.decodeCompressed(data, bits)
		accel := dec.accel()

		row1 := make([]float64, schema.NumRows)
		row1[schema.PackageNumChannel] = float64(data[0])
		for i, v := range first {
			row1[schema.EEGChannels[i]] = v
		}
		for i, v := range accel {
			row1[schema.AccelChannels[i]] = v
		}
		row1[schema.TimestampChannel] = nowTimestamp()
		_ = d.Base.PushRow(board.PresetDefault, row1)

		row2 := make([]float64, schema.NumRows)
		for i, v := range second {
			row2[schema.EEGChannels[i]] = v
		}
		row2[schema.TimestampChannel] = nowTimestamp()
		_ = d.Base.PushRow(board.PresetDefault, row2)

	case frameImpedance:
		end := len(data)
		for i := 1; i < len(data) && i < 6; i++ {
			if data[i] == 'Z' {
				end = i
				break
			}
		}
		resist, err := dec.decodeImpedance(data[0], string(data[1:end]))
		if err != nil {
			return
		}
		row := make([]float64, schema.NumRows)
		row[schema.PackageNumChannel] = float64(data[0])
		for i, v := range resist {
			row[schema.ResistanceChannels[i]] = v
		}
		row[schema.TimestampChannel] = nowTimestamp()
		_ = d.Base.PushRow(board.PresetDefault, row)
	}
}
