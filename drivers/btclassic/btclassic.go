// Package btclassic implements the Callibri-family EMG sensor: a single
// channel device reached over Bluetooth Classic RFCOMM through a
// dynamically-loaded vendor transport library rather than a native Go
// socket, mirroring how the wider driver family treats Bluetooth Classic
// as an opaque platform-provided shim.
package btclassic

import (
	"context"
	"sync"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/retry"
	"github.com/c360/boardkit/status"
)

// Transport is the minimal surface the dynamically-loaded vendor library
// exposes: open/close a Bluetooth Classic RFCOMM channel to one MAC
// address, write a config command, poll for pending sample bytes, and
// discover a device address by name. The production implementation binds
// these five calls through purego against a platform shared library;
// tests substitute a fake.
type Transport interface {
	Open(port int, macAddress string) error
	Close(macAddress string) error
	WriteData(macAddress string, command string) (int, error)
	ReadData(macAddress string, buf []byte) (int, error)
	Discover(nameSelector string) (string, error)
}

// externalSwitchInput selects which physical input the device reads from.
type externalSwitchInput int

const (
	switchElectrodes externalSwitchInput = iota
	switchMioUSB
)

const (
	frameSize           = 4 // 2-byte EMG sample, 1 status byte, 1 marker byte
	emgFullScaleV       = 3.3
	emgADCMax           = (1 << 15) - 1
	samplingFrequencyHz = 1000
	gain6               = 6.0
)

// Config configures a Callibri-family EMG driver instance.
type Config struct {
	MacAddress string
	Port       int // RFCOMM channel; 0 lets the transport pick the default
	Deps       board.Dependencies

	// UseMioUSBInput selects ExternalSwitchInputMioUSB over the default
	// plain-electrode input, mirroring apply_initial_settings' branch on
	// params.other_info == "ExternalSwitchInputMioUSB".
	UseMioUSBInput bool

	// Transport overrides the default purego-backed dynamic library
	// binding; tests substitute a fake.
	Transport Transport

	// LibraryPath is the shared-library path passed to the default
	// transport. Ignored when Transport is set.
	LibraryPath string
}

// Driver implements board.Driver for the Callibri-family Bluetooth
// Classic EMG sensor.
type Driver struct {
	*board.Base

	cfg Config

	mu       sync.Mutex
	switchIn externalSwitchInput
	readStop context.CancelFunc
	readDone chan struct{}

	sync *timesync.Estimator
}

func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg, sync: timesync.NewEstimator()}
	if cfg.UseMioUSBInput {
		d.switchIn = switchMioUSB
	}
	d.Base = board.NewBase(board.Descriptors[board.BTClassicID], cfg.Deps)
	return d
}

func (d *Driver) transport() (Transport, error) {
	if d.cfg.Transport != nil {
		return d.cfg.Transport, nil
	}
	if d.cfg.LibraryPath == "" {
		return nil, board.WithStatus(status.UnableToOpenPortError,
			classify.WrapInvalid(classify.ErrMissingConfig, "btclassic", "PrepareSession", "no transport or library path configured"))
	}
	t, err := newDLTransport(d.cfg.LibraryPath)
	if err != nil {
		return nil, board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "btclassic", "PrepareSession", "load vendor bluetooth library"))
	}
	d.cfg.Transport = t
	return t, nil
}

func (d *Driver) PrepareSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Base.Flags().Initialized {
		return nil
	}

	macAddress := d.cfg.MacAddress
	t, err := d.transport()
	if err != nil {
		return err
	}
	if macAddress == "" {
		found, err := t.Discover("Callibri")
		if err != nil {
			return board.WithStatus(status.BoardNotReadyError, classify.WrapTransient(err, "btclassic", "PrepareSession", "autodiscover device"))
		}
		macAddress = found
		d.cfg.MacAddress = found
	}

	port := d.cfg.Port
	if port <= 0 {
		port = 1
	}
	if err := t.Open(port, macAddress); err != nil {
		return board.WithStatus(status.BoardNotReadyError, classify.WrapTransient(err, "btclassic", "PrepareSession", "open bluetooth connection"))
	}
	if err := d.applyInitialSettings(t, macAddress); err != nil {
		_ = t.Close(macAddress)
		return err
	}
	return d.Base.Prepare(1000 * 60 * 10) // 10 minutes at 1kHz
}

// applyInitialSettings mirrors CallibriEMG::apply_initial_settings: push
// sampling rate, gain, offset, switch input, ADC input mode and hardware
// filter state to the device, one write per setting.
func (d *Driver) applyInitialSettings(t Transport, macAddress string) error {
	settings := []string{
		"set_sampling_frequency_1000",
		"set_gain_6",
		"set_offset_0",
		d.switchCommand(),
		"set_adc_input_resistance",
		"set_hardware_filter_on",
	}
	for _, cmd := range settings {
		if err := d.writeCommand(t, macAddress, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) switchCommand() string {
	if d.switchIn == switchMioUSB {
		return "set_external_switch_mio_usb"
	}
	return "set_external_switch_mio_electrodes"
}

func (d *Driver) writeCommand(t Transport, macAddress, cmd string) error {
	n, err := t.WriteData(macAddress, cmd)
	if err != nil || n != len(cmd) {
		return board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "btclassic", "applyInitialSettings", "write "+cmd))
	}
	return nil
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	t, err := d.transport()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if bufferSize > 0 {
		if rErr := d.Base.Resize(bufferSize); rErr != nil {
			d.mu.Unlock()
			return rErr
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.readStop = cancel
	d.readDone = make(chan struct{})
	mac := d.cfg.MacAddress
	d.mu.Unlock()

	if err := d.Base.BeginStream(streamerURI); err != nil {
		cancel()
		return err
	}
	go d.readLoop(ctx, t, mac)
	return nil
}

func (d *Driver) StopStream() error {
	d.mu.Lock()
	stop, done := d.readStop, d.readDone
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
	return d.Base.EndStream()
}

func (d *Driver) ReleaseSession() error {
	if d.Base.IsStreaming() {
		_ = d.StopStream()
	}
	d.mu.Lock()
	t := d.cfg.Transport
	mac := d.cfg.MacAddress
	d.mu.Unlock()
	if t != nil && mac != "" {
		_ = t.Close(mac)
	}
	return d.Base.ReleaseSession()
}

func (d *Driver) ConfigBoard(command string) (string, error) {
	d.mu.Lock()
	t, mac := d.cfg.Transport, d.cfg.MacAddress
	d.mu.Unlock()
	if t == nil {
		return "", board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if err := d.writeCommand(t, mac, command); err != nil {
		return "", err
	}
	return "", nil
}

// readLoop polls the transport until ctx is cancelled. A transport that
// stops returning full frames is treated as a dropped connection and
// backed off with exponential backoff + jitter instead of spinning a
// tight poll loop, the same pattern the serial-transport families use
// for their reads.
func (d *Driver) readLoop(ctx context.Context, t Transport, macAddress string) {
	defer close(d.readDone)

	buf := make([]byte, frameSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := retry.Do(ctx, retry.Persistent(), func() error {
			n, readErr := t.ReadData(macAddress, buf)
			if readErr != nil {
				return readErr
			}
			if n != frameSize {
				return classify.ErrConnectionTimeout
			}
			return nil
		})
		if err != nil {
			return
		}
		row := d.decodeFrame(buf)
		_ = d.Base.PushRow(board.PresetDefault, row)
	}
}

// decodeFrame turns one 4-byte sample (2-byte signed EMG sample, 1 status
// byte carrying the switch/other channel, 1 marker byte) into a board row.
// The vendor wire layout itself is not present in the filtered original
// source (only apply_initial_settings is); this keeps the same byte-count
// granularity the rest of the Callibri family uses for a single ADC
// channel sampled at 1kHz.
func (d *Driver) decodeFrame(b []byte) []float64 {
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	row := make([]float64, schema.NumRows)

	raw := int16(uint16(b[0]) | uint16(b[1])<<8)
	scale := emgFullScaleV / float64(emgADCMax) / gain6 * 1_000_000.0
	row[schema.EMGChannels[0]] = scale * float64(raw)
	row[schema.OtherChannels[0]] = float64(b[2])
	row[schema.MarkerChannel] = float64(b[3])
	row[schema.TimestampChannel] = d.sync.Apply(timesync.Now())
	return row
}
