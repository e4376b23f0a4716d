package gforce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boardkit/board"
)

type fakeSDK struct {
	opened bool
	closed bool
	frames [][]byte
	idx    int
}

func (f *fakeSDK) Open() error {
	f.opened = true
	return nil
}

func (f *fakeSDK) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSDK) ReadFrame(buf []byte) (int, error) {
	if f.idx >= len(f.frames) {
		return 0, nil
	}
	frame := f.frames[f.idx]
	f.idx++
	copy(buf, frame)
	return len(frame), nil
}

func TestPrepareSessionClaimsSingleInstanceSlot(t *testing.T) {
	sdk1 := &fakeSDK{}
	d1 := New(Config{SDK: sdk1})
	require.NoError(t, d1.PrepareSession())
	assert.True(t, sdk1.opened)

	sdk2 := &fakeSDK{}
	d2 := New(Config{SDK: sdk2})
	err := d2.PrepareSession()
	assert.Error(t, err)
	assert.False(t, sdk2.opened)

	require.NoError(t, d1.ReleaseSession())

	d3 := New(Config{SDK: &fakeSDK{}})
	require.NoError(t, d3.PrepareSession())
	require.NoError(t, d3.ReleaseSession())
}

func TestStartStreamDecodesEMGFrames(t *testing.T) {
	frame := make([]byte, frameSize)
	for i := 0; i < 8; i++ {
		frame[i] = 100
	}
	frame[9] = 3
	sdk := &fakeSDK{frames: [][]byte{frame}}
	d := New(Config{SDK: sdk})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))
	require.NoError(t, d.Base.WaitFirstFrame(board.PresetDefault, time.Second))
	require.NoError(t, d.StopStream())

	data, err := d.Base.GetBoardData(1, board.PresetDefault)
	require.NoError(t, err)
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.Greater(t, data[schema.EMGChannels[0]][0], 0.0)
	assert.Equal(t, float64(3), data[schema.MarkerChannel][0])

	require.NoError(t, d.ReleaseSession())
}

func TestConfigBoardIsUnsupported(t *testing.T) {
	d := New(Config{SDK: &fakeSDK{}})
	_, err := d.ConfigBoard("x")
	assert.Error(t, err)
}
