package dawn

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

type fakeSerialPort struct {
	frames  [][]byte
	idx     int
	offset  int
	writes  [][]byte
	closed  bool
	forever bool
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

type failingWritePort struct {
	*fakeSerialPort
	err error
}

func (p *failingWritePort) Write(b []byte) (int, error) {
	return 0, p.err
}

func sampleFrame(packageNum byte) []byte {
	b := make([]byte, frameSize)
	b[0] = header
	b[1] = packageNum
	b[33] = footer
	// trailer byte 1 (index 27): marker nibble=5, trigger1=1, trigger2=0
	// bits: marker<<4 | trigger2<<3 | trigger1<<2
	b[27] = (5 << 4) | (0 << 3) | (1 << 2)
	return b
}

func TestDecodeFrameRejectsBadFooter(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(0)
	b[33] = 0xFF
	_, _, _, ok := d.decodeFrame(b)
	assert.False(t, ok)
}

func TestDecodeFrameExtractsTriggers(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(0)
	row, _, _, ok := d.decodeFrame(b)
	require.True(t, ok)

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.Equal(t, float64(1), row[schema.OtherChannels[0]])
	assert.Equal(t, float64(0), row[schema.OtherChannels[1]])
}

func TestDecodeFrameEmitsAuxiliaryOnModOne(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(1)
	_, aux, hasAux, ok := d.decodeFrame(b)
	require.True(t, ok)
	assert.True(t, hasAux)
	assert.NotNil(t, aux)
}

func TestDecodeFrameSkipsAuxiliaryOtherwise(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(3)
	_, _, hasAux, ok := d.decodeFrame(b)
	require.True(t, ok)
	assert.False(t, hasAux)
}

func TestTemperatureUsesMultiplyNotShift(t *testing.T) {
	d := New(Config{})
	b := sampleFrame(1)
	b[26] = 10 // temperature byte for mod==1 frame
	_, aux, hasAux, ok := d.decodeFrame(b)
	require.True(t, ok)
	require.True(t, hasAux)
	assert.Equal(t, float64(10*256), aux[1])
}

func TestStartStreamDecodesFramesFromPort(t *testing.T) {
	port := &fakeSerialPort{frames: [][]byte{sampleFrame(0)}}
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

// TestConfigBoardRevertsGainOnWriteFailure covers testable property 6.
func TestConfigBoardRevertsGainOnWriteFailure(t *testing.T) {
	port := &fakeSerialPort{}
	d := newTestDriver(port)
	require.NoError(t, d.PrepareSession())

	failErr := errors.New("write failed")
	d.port = &failingWritePort{fakeSerialPort: port, err: failErr}

	_, err := d.ConfigBoard("x1000000X")
	require.Error(t, err)
	assert.Equal(t, 24, d.gains.GainForChannel(0))
}

// TestStopStreamReturnsWriteErrorWhenDeviceNeverStops covers testable
// property 11.
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
