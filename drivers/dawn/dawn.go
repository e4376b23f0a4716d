// Package dawn implements a second serial-framed EEG device family: same
// 0xA0 header idea as the cyton family, but a fixed single footer byte
// (0xC0, no accel/analog mode switch), device-side trigger bits packed
// into the timestamp trailer, and an auxiliary preset carrying temperature
// that only advances once every 8 default-preset samples.
package dawn

import (
	"context"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/configtracker"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/retry"
	"github.com/c360/boardkit/status"
)

const (
	header        = 0xA0
	footer        = 0xC0
	frameSize     = 34 // header(1) + sample_num(1) + eeg(24) + aux(7) + footer(1)
	defaultBaud   = 115200
	eegFullScaleV = 4.5
	adcMax        = (1 << 23) - 1
)

type Config struct {
	SerialPort string
	Deps       board.Dependencies
	OpenSerial func(portName string, mode *serial.Mode) (serialPort, error)
}

type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

func openSerial(portName string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(portName, mode)
}

// Driver implements board.Driver for the DawnEEG serial board.
type Driver struct {
	*board.Base

	cfg  Config
	port serialPort

	mu       sync.Mutex
	gains    *configtracker.Tracker
	readStop context.CancelFunc
	readDone chan struct{}

	sync *timesync.Estimator
}

func New(cfg Config) *Driver {
	if cfg.OpenSerial == nil {
		cfg.OpenSerial = openSerial
	}
	d := &Driver{cfg: cfg, gains: configtracker.NewTracker(), sync: timesync.NewEstimator()}
	d.Base = board.NewBase(board.Descriptors[board.DawnEEGID], cfg.Deps)
	return d
}

func (d *Driver) PrepareSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Base.Flags().Initialized {
		return nil
	}
	p, err := d.cfg.OpenSerial(d.cfg.SerialPort, &serial.Mode{BaudRate: defaultBaud})
	if err != nil {
		return board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "dawn", "PrepareSession", "open serial port"))
	}
	_ = p.SetReadTimeout(250 * time.Millisecond)
	d.port = p
	return d.Base.Prepare(450_000)
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	if d.port == nil {
		d.mu.Unlock()
		return board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if bufferSize > 0 {
		if err := d.Base.Resize(bufferSize); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.readStop = cancel
	d.readDone = make(chan struct{})
	d.mu.Unlock()

	if err := d.Base.BeginStream(streamerURI); err != nil {
		cancel()
		return err
	}
	go d.readLoop(ctx)
	return nil
}

// maxStopDrainAttempts bounds how many single-byte reads StopStream will
// perform to empty the serial port's kernel buffer after sending the
// device stop command "s", grounded on DawnEEG::stop_stream's own
// max_attempt = 400000 loop: a device that never honors the stop command
// can't hang the call forever.
const maxStopDrainAttempts = 400_000

func (d *Driver) StopStream() error {
	d.mu.Lock()
	stop, done, port := d.readStop, d.readDone, d.port
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}

	if port != nil {
		if _, err := port.Write([]byte("s")); err == nil {
			if err := drainUntilEmpty(port, maxStopDrainAttempts); err != nil {
				return board.WithStatus(status.BoardWriteError, err)
			}
		}
	}
	return d.Base.EndStream()
}

// drainUntilEmpty reads single bytes off port until a read returns no
// data (or an error, which a timed-out read also produces), or maxAttempts
// reads in a row all returned data, meaning the device is still streaming
// despite the stop command.
func drainUntilEmpty(port serialPort, maxAttempts int) error {
	b := make([]byte, 1)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		n, err := port.Read(b)
		if err != nil || n == 0 {
			return nil
		}
	}
	return classify.ErrConnectionTimeout
}

func (d *Driver) ReleaseSession() error {
	_ = d.StopStream()
	d.mu.Lock()
	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
	d.mu.Unlock()
	return d.Base.ReleaseSession()
}

// ConfigBoard writes command to the board, applying any gain change the
// configtracker grammar recognizes in lockstep. If the write fails, the
// gain change is reverted since the board never saw it; after a
// successful write the change stays in effect.
func (d *Driver) ConfigBoard(command string) (string, error) {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return "", board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}

	result := d.gains.ApplyConfig(command)
	if result == configtracker.InvalidCommand {
		return "", board.WithStatus(status.InvalidArgumentsError, classify.ErrInvalidConfig)
	}

	if _, err := port.Write([]byte(command)); err != nil {
		if result == configtracker.ValidCommand {
			d.gains.RevertConfig()
		}
		return "", board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "dawn", "ConfigBoard", "write command"))
	}
	return "", nil
}

// readLoop pulls fixed-size frames off the serial port until ctx is
// cancelled. A port that stops answering reads is treated as a dropped
// transport: readFull is retried with exponential backoff + jitter
// instead of spinning a tight poll loop, and the loop gives up once
// retry.Persistent's attempt budget is exhausted.
func (d *Driver) readLoop(ctx context.Context) {
	defer close(d.readDone)

	frame := make([]byte, frameSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := retry.Do(ctx, retry.Persistent(), func() error {
			return readFull(d.port, frame)
		}); err != nil {
			return
		}
		row, aux, hasAux, ok := d.decodeFrame(frame)
		if !ok {
			continue
		}
		_ = d.Base.PushRow(board.PresetDefault, row)
		if hasAux {
			_ = d.Base.PushRow(board.PresetAuxiliary, aux)
		}
	}
}

func readFull(p serialPort, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := p.Read(buf[total:])
		if err != nil {
			return err
		}
		if n == 0 {
			return classify.ErrConnectionTimeout
		}
		total += n
	}
	return nil
}

// decodeFrame parses one 34-byte DawnEEG frame. An auxiliary row is
// produced (hasAux true) once every 8 samples, on the frame whose package
// number mod 8 is 1. Its temperature channel is that frame's first
// trailer byte times 256; no byte from any other frame is combined into
// it, and the battery channel is left at 0.
func (d *Driver) decodeFrame(b []byte) (row []float64, aux []float64, hasAux bool, ok bool) {
	if b[0] != header || b[33] != footer {
		return nil, nil, false, false
	}

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	row = make([]float64, schema.NumRows)

	packageNum := int(b[1])
	row[schema.PackageNumChannel] = float64(packageNum)

	var gains [8]float64
	for i := range gains {
		gains[i] = float64(d.gains.GainForChannel(i))
	}

	for i := 0; i < 8; i++ {
		raw := cast24(b[2+3*i : 5+3*i])
		scale := eegFullScaleV / float64(adcMax) / gains[i] * 1_000_000.0
		row[schema.EEGChannels[i]] = scale * float64(raw)
	}

	// trailer: bytes 26..32 (7 aux bytes) precede the footer at byte 33.
	trailer := b[26:33]
	deviceTimestamp := float64((uint32(trailer[6])<<24)|(uint32(trailer[5])<<16)|(uint32(trailer[4])<<8)|uint32(trailer[3]))/1000.0 +
		float64((uint32(trailer[1]&0x03)<<8)|uint32(trailer[2]))/1_000_000.0
	row[schema.TimestampChannel] = d.sync.Apply(deviceTimestamp)
	row[schema.OtherChannels[0]] = float64((trailer[1] >> 2) & 0x01) // trigger1
	row[schema.OtherChannels[1]] = float64((trailer[1] >> 3) & 0x01) // trigger2

	mod := packageNum % 8
	if mod == 1 {
		auxSchema, _ := d.Base.Descriptor().Preset(board.PresetAuxiliary)
		aux = make([]float64, auxSchema.NumRows)
		aux[auxSchema.PackageNumChannel] = float64(packageNum / 8)
		aux[auxSchema.TimestampChannel] = row[schema.TimestampChannel]
		aux[auxSchema.TemperatureChannels[0]] = float64(trailer[0]) * 256
		hasAux = true
	}

	return row, aux, hasAux, true
}

func cast24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}
