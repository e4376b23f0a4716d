// Package antneuro implements the ANT Neuro amplifier family: a vendor
// SDK enumerates an attached amplifier's channel list with a type per
// channel (reference/EEG, bipolar/EMG, sample counter, trigger) instead
// of the fixed layout the serial/BLE families hard-code, so the decode
// step classifies each polled sample's channels at runtime rather than
// at compile time.
package antneuro

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/status"
)

// ChannelType mirrors eemagine::sdk::channel::type: what role the vendor
// SDK assigns to one physical amplifier channel.
type ChannelType int

const (
	ChannelReference ChannelType = iota
	ChannelBipolar
	ChannelSampleCounter
	ChannelTrigger
	ChannelOther
)

// Amplifier is the minimal surface this driver needs from the vendor SDK
// factory's amplifier handle: enumerate the attached channel list,
// report which sampling rates it supports, and open/close a streaming
// session that yields one batch of samples per poll.
type Amplifier interface {
	ChannelList() []ChannelType
	SamplingRatesAvailable() []int
	OpenEEGStream(samplingRate int) (Stream, error)
}

// Stream is one open acquisition session: GetData returns zero or more
// complete sample rows (each row has len(ChannelList()) values, in
// channel-list order), blocking briefly if nothing is ready yet.
type Stream interface {
	GetData() ([][]float64, error)
	Close() error
}

// Config configures an ANT Neuro driver instance.
type Config struct {
	Deps         board.Dependencies
	SamplingRate int // defaults to the descriptor's default if zero

	// Amplifier overrides factory construction; tests substitute a fake.
	Amplifier Amplifier
}

// Driver implements board.Driver for the ANT Neuro amplifier family.
type Driver struct {
	*board.Base

	cfg Config

	mu           sync.Mutex
	samplingRate int
	stream       Stream
	readStop     chan struct{}
	readDone     chan struct{}

	sync *timesync.Estimator
}

func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg, sync: timesync.NewEstimator()}
	schema, _ := board.Descriptors[board.ANTNeuroID].Preset(board.PresetDefault)
	d.samplingRate = int(schema.SamplingRate)
	if cfg.SamplingRate > 0 {
		d.samplingRate = cfg.SamplingRate
	}
	d.Base = board.NewBase(board.Descriptors[board.ANTNeuroID], cfg.Deps)
	return d
}

func (d *Driver) PrepareSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Base.Flags().Initialized {
		return nil
	}
	if d.cfg.Amplifier == nil {
		return board.WithStatus(status.BoardNotReadyError,
			classify.WrapInvalid(classify.ErrMissingConfig, "antneuro", "PrepareSession", "no amplifier factory configured"))
	}
	return d.Base.Prepare(2000 * 60 * 10) // 10 minutes at 2kHz
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	if d.stream != nil {
		d.mu.Unlock()
		return board.WithStatus(status.StreamAlreadyRunError, classify.ErrAlreadyStarted)
	}
	if d.cfg.Amplifier == nil {
		d.mu.Unlock()
		return board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if bufferSize > 0 {
		if err := d.Base.Resize(bufferSize); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	stream, err := d.cfg.Amplifier.OpenEEGStream(d.samplingRate)
	if err != nil {
		d.mu.Unlock()
		return board.WithStatus(status.StreamThreadError, classify.WrapTransient(err, "antneuro", "StartStream", "open EEG stream"))
	}
	d.stream = stream
	d.readStop = make(chan struct{})
	d.readDone = make(chan struct{})
	d.mu.Unlock()

	if err := d.Base.BeginStream(streamerURI); err != nil {
		_ = stream.Close()
		d.mu.Lock()
		d.stream = nil
		d.mu.Unlock()
		return err
	}
	go d.readLoop(stream)
	return nil
}

func (d *Driver) StopStream() error {
	d.mu.Lock()
	stream := d.stream
	stop, done := d.readStop, d.readDone
	d.mu.Unlock()
	if stream == nil {
		return board.WithStatus(status.StreamThreadIsNotRunning, classify.ErrNotStarted)
	}
	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
	_ = stream.Close()
	d.mu.Lock()
	d.stream = nil
	d.mu.Unlock()
	return d.Base.EndStream()
}

func (d *Driver) ReleaseSession() error {
	d.mu.Lock()
	streaming := d.stream != nil
	d.mu.Unlock()
	if streaming {
		_ = d.StopStream()
	}
	return d.Base.ReleaseSession()
}

// ConfigBoard accepts exactly "sampling_rate:<value>", validated against
// the amplifier's advertised supported rates, matching the original's
// one-and-only config command for this device family.
func (d *Driver) ConfigBoard(command string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.Amplifier == nil {
		return "", board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	const prefix = "sampling_rate:"
	if !strings.HasPrefix(command, prefix) {
		return "", board.WithStatus(status.InvalidArgumentsError,
			classify.WrapInvalid(classify.ErrInvalidConfig, "antneuro", "ConfigBoard", fmt.Sprintf("format is '%svalue'", prefix)))
	}
	value, err := strconv.Atoi(strings.TrimPrefix(command, prefix))
	if err != nil {
		return "", board.WithStatus(status.InvalidArgumentsError, classify.WrapInvalid(err, "antneuro", "ConfigBoard", "parse sampling rate"))
	}
	for _, allowed := range d.cfg.Amplifier.SamplingRatesAvailable() {
		if allowed == value {
			d.samplingRate = value
			return "", nil
		}
	}
	return "", board.WithStatus(status.InvalidArgumentsError,
		classify.WrapInvalid(classify.ErrInvalidConfig, "antneuro", "ConfigBoard", "sampling rate not supported by this amplifier"))
}

func (d *Driver) readLoop(stream Stream) {
	defer close(d.readDone)

	channels := d.cfg.Amplifier.ChannelList()
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	for {
		select {
		case <-d.readStop:
			return
		default:
		}
		rows, err := stream.GetData()
		if err != nil {
			continue
		}
		for _, sample := range rows {
			row := decodeSample(sample, channels, schema)
			row[schema.TimestampChannel] = d.sync.Apply(timesync.Now())
			_ = d.Base.PushRow(board.PresetDefault, row)
		}
	}
}

// decodeSample assigns one vendor-channel-ordered sample into a
// board row, consuming eeg/emg destination slots in the order their
// channel type appears in the amplifier's channel list, exactly as
// AntNeuroBoard::read_thread's eeg_counter/emg_counter do.
func decodeSample(sample []float64, channels []ChannelType, schema board.PresetSchema) []float64 {
	row := make([]float64, schema.NumRows)
	eegCounter, emgCounter := 0, 0
	for j, ch := range channels {
		if j >= len(sample) {
			break
		}
		switch ch {
		case ChannelReference:
			if eegCounter < len(schema.EEGChannels) {
				row[schema.EEGChannels[eegCounter]] = sample[j]
				eegCounter++
			}
		case ChannelBipolar:
			if emgCounter < len(schema.EMGChannels) {
				row[schema.EMGChannels[emgCounter]] = sample[j]
				emgCounter++
			}
		case ChannelSampleCounter:
			row[schema.PackageNumChannel] = sample[j]
		case ChannelTrigger:
			if len(schema.OtherChannels) > 0 {
				row[schema.OtherChannels[0]] = sample[j]
			}
		}
	}
	return row
}
