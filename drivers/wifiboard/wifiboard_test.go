package wifiboard

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/drivers/cyton"
)

var errNoMoreFrames = errors.New("no more frames")

type fakeConn struct {
	frames   [][]byte
	idx      int
	writes   [][]byte
	closed   bool
	deadline time.Time
}

func (f *fakeConn) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	if f.idx >= len(f.frames) {
		return 0, nil, errNoMoreFrames
	}
	frame := f.frames[f.idx]
	f.idx++
	copy(b, frame)
	return len(frame), nil, nil
}

func (f *fakeConn) Write(b []byte) (int, error) {
	f.writes = append(f.writes, append([]byte{}, b...))
	return len(b), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.deadline = t
	return nil
}

func sampleFrame(footer byte) []byte {
	b := make([]byte, cyton.PackageSize)
	b[0] = cyton.StartByte
	b[1] = 7
	b[32] = footer
	return b
}

func TestPrepareSessionOpensSocket(t *testing.T) {
	fc := &fakeConn{}
	d := New(Config{ListenAddress: "0.0.0.0:0", Listen: func(string) (udpConn, error) { return fc, nil }})
	require.NoError(t, d.PrepareSession())
	assert.True(t, d.Base.Flags().Initialized)
}

func TestStartStreamDecodesFramesFromSocket(t *testing.T) {
	fc := &fakeConn{frames: [][]byte{sampleFrame(cyton.EndStandard)}}
	d := New(Config{ListenAddress: "0.0.0.0:0", Listen: func(string) (udpConn, error) { return fc, nil }})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))
	require.NoError(t, d.Base.WaitFirstFrame(board.PresetDefault, time.Second))
	require.NoError(t, d.StopStream())

	count, err := d.Base.GetBoardDataCount(board.PresetDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConfigBoardRequiresOpenSocket(t *testing.T) {
	d := New(Config{})
	_, err := d.ConfigBoard("d")
	assert.Error(t, err)
}

func TestReleaseSessionClosesSocket(t *testing.T) {
	fc := &fakeConn{}
	d := New(Config{ListenAddress: "0.0.0.0:0", Listen: func(string) (udpConn, error) { return fc, nil }})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.ReleaseSession())
	assert.True(t, fc.closed)
}
