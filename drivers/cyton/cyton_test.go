package cyton

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.bug.st/serial"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/status"
)

// fakeSerialPort is an in-memory serialPort: Read serves queued frames then
// signals "no more data" so drainUntilEmpty can terminate; writes are
// recorded for assertions.
type fakeSerialPort struct {
	frames  [][]byte
	idx     int
	offset  int
	writes  [][]byte
	closed  bool
	forever bool // when true, Read always has data, to exercise the drain bound
}

func (p *fakeSerialPort) Read(b []byte) (int, error) {
	if p.forever {
		return 1, nil
	}
	if p.idx >= len(p.frames) {
		return 0, nil
	}
	frame := p.frames[p.idx]
	n := copy(b, frame[p.offset:])
	p.offset += n
	if p.offset >= len(frame) {
		p.idx++
		p.offset = 0
	}
	return n, nil
}

func (p *fakeSerialPort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, append([]byte{}, b...))
	return len(b), nil
}

func (p *fakeSerialPort) Close() error {
	p.closed = true
	return nil
}

func (p *fakeSerialPort) SetReadTimeout(time.Duration) error { return nil }

func newTestDriver(port *fakeSerialPort) *Driver {
	return New(Config{
		SerialPort: "/dev/fake",
		OpenSerial: func(string, *serial.Mode) (serialPort, error) { return port, nil },
	})
}

func sampleFrame(footer byte) []byte {
	b := make([]byte, PackageSize)
	b[0] = StartByte
	b[1] = 42 // sample number
	// eeg channel 0 raw value = 1000 (3-byte big-endian, positive)
	b[2], b[3], b[4] = 0x00, 0x03, 0xE8
	for i := 1; i < 8; i++ {
		off := 2 + 3*i
		b[off], b[off+1], b[off+2] = 0, 0, 0
	}
	b[26], b[27] = 0x00, 0x0A // accel/analog channel 0
	b[28], b[29] = 0x00, 0x0B
	b[30], b[31] = 0x00, 0x0C
	b[32] = footer
	return b
}

func TestDecodeFrameRejectsBadHeader(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(EndStandard)
	b[0] = 0x00
	_, ok := d.decodeFrame(b)
	assert.False(t, ok)
}

func TestDecodeFrameRejectsFooterOutOfRange(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(0xC7)
	_, ok := d.decodeFrame(b)
	assert.False(t, ok)
}

func TestDecodeFrameStandardFooterPopulatesAccel(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(EndStandard)
	row, ok := d.decodeFrame(b)
	require.True(t, ok)

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.Equal(t, float64(42), row[schema.PackageNumChannel])
	assert.NotZero(t, row[schema.AccelChannels[0]])
	assert.Zero(t, row[schema.AnalogChannels[0]])
	assert.Equal(t, float64(EndStandard), row[schema.OtherChannels[0]])
}

func TestDecodeFrameAnalogFooterPopulatesAnalog(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(EndAnalog)
	row, ok := d.decodeFrame(b)
	require.True(t, ok)

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.NotZero(t, row[schema.AnalogChannels[0]])
	assert.Zero(t, row[schema.AccelChannels[0]])
}

func TestDecodeFrameEEGScalingUsesConfiguredGain(t *testing.T) {
	d := New(Config{})
	d.gains.ApplyConfig("x1000000X") // channel '1', gain index 0 -> 1x
	b := sampleFrame(EndStandard)
	row, ok := d.decodeFrame(b)
	require.True(t, ok)

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	expected := EEGFullScaleV / float64(ADCMax) / 1.0 * 1_000_000.0 * 1000.0
	assert.InDelta(t, expected, row[schema.EEGChannels[0]], 1e-6)
}

func TestCast24SignExtends(t *testing.T) {
	assert.Equal(t, int32(1000), Cast24([]byte{0x00, 0x03, 0xE8}))
	assert.Equal(t, int32(-1), Cast24([]byte{0xFF, 0xFF, 0xFF}))
}

func TestCast16SignExtends(t *testing.T) {
	assert.Equal(t, int32(10), Cast16([]byte{0x00, 0x0A}))
	assert.Equal(t, int32(-1), Cast16([]byte{0xFF, 0xFF}))
}

func TestStartStreamDecodesFramesFromPort(t *testing.T) {
	port := &fakeSerialPort{frames: [][]byte{sampleFrame(EndStandard)}}
	d := newTestDriver(port)
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))

	require.Eventually(t, func() bool {
		n, err := d.Base.GetBoardDataCount(board.PresetDefault)
		return err == nil && n > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, d.StopStream())
	assert.Contains(t, port.writes, []byte("s"))
}

// TestConfigBoardRevertsGainOnWriteFailure covers testable property 6: a
// config command that updates a channel's gain, but whose transport write
// fails, must leave the tracker reporting the pre-command gain on the next
// query.
func TestConfigBoardRevertsGainOnWriteFailure(t *testing.T) {
	port := &fakeSerialPort{}
	d := newTestDriver(port)
	require.NoError(t, d.PrepareSession())

	failErr := errors.New("write failed")
	d.port = &failingWritePort{fakeSerialPort: port, err: failErr}

	_, err := d.ConfigBoard("x1000000X") // channel '1' -> 1x
	require.Error(t, err)

	assert.Equal(t, 24, d.gains.GainForChannel(0))
}

func TestConfigBoardInvalidCommandIsRejectedWithoutWriting(t *testing.T) {
	port := &fakeSerialPort{}
	d := newTestDriver(port)
	require.NoError(t, d.PrepareSession())

	_, err := d.ConfigBoard("x1090000X") // gain digit '9' is out of range
	require.Error(t, err)
	assert.Empty(t, port.writes)
}

// TestStopStreamReturnsWriteErrorWhenDeviceNeverStops covers testable
// property 11: stop_stream must return within the bounded drain attempts
// even if the device never honors the stop command.
func TestStopStreamReturnsWriteErrorWhenDeviceNeverStops(t *testing.T) {
	port := &fakeSerialPort{forever: true}
	d := newTestDriver(port)
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))

	err := d.StopStream()
	require.Error(t, err)
	var statusErr *board.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, status.BoardWriteError, statusErr.Code)
}

type failingWritePort struct {
	*fakeSerialPort
	err error
}

func (p *failingWritePort) Write(b []byte) (int, error) {
	return 0, p.err
}
