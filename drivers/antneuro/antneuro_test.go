package antneuro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boardkit/board"
)

type fakeStream struct {
	batches [][][]float64
	idx     int
	closed  bool
}

func (f *fakeStream) GetData() ([][]float64, error) {
	if f.idx >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.idx]
	f.idx++
	return b, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

type fakeAmplifier struct {
	channels []ChannelType
	rates    []int
	stream   *fakeStream
}

func (f *fakeAmplifier) ChannelList() []ChannelType      { return f.channels }
func (f *fakeAmplifier) SamplingRatesAvailable() []int   { return f.rates }
func (f *fakeAmplifier) OpenEEGStream(rate int) (Stream, error) {
	return f.stream, nil
}

func newFakeAmplifier() *fakeAmplifier {
	return &fakeAmplifier{
		channels: []ChannelType{ChannelSampleCounter, ChannelReference, ChannelReference, ChannelBipolar, ChannelTrigger},
		rates:    []int{512, 1024, 2048},
		stream:   &fakeStream{},
	}
}

func TestStartStreamRequiresAmplifier(t *testing.T) {
	d := New(Config{})
	err := d.StartStream(0, "")
	assert.Error(t, err)
}

func TestStartStreamRejectsDoubleStart(t *testing.T) {
	amp := newFakeAmplifier()
	d := New(Config{Amplifier: amp})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))
	err := d.StartStream(0, "")
	assert.Error(t, err)
	require.NoError(t, d.StopStream())
}

func TestReadLoopClassifiesChannelsByType(t *testing.T) {
	amp := newFakeAmplifier()
	amp.stream.batches = [][][]float64{
		{{1, 10, 20, 30, 1}},
	}
	d := New(Config{Amplifier: amp})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(0, ""))
	require.NoError(t, d.Base.WaitFirstFrame(board.PresetDefault, time.Second))
	require.NoError(t, d.StopStream())

	data, err := d.Base.GetBoardData(1, board.PresetDefault)
	require.NoError(t, err)
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.Equal(t, float64(1), data[schema.PackageNumChannel][0])
	assert.Equal(t, float64(10), data[schema.EEGChannels[0]][0])
	assert.Equal(t, float64(20), data[schema.EEGChannels[1]][0])
	assert.Equal(t, float64(30), data[schema.EMGChannels[0]][0])
	assert.Equal(t, float64(1), data[schema.OtherChannels[0]][0])
}

func TestConfigBoardValidatesSamplingRate(t *testing.T) {
	amp := newFakeAmplifier()
	d := New(Config{Amplifier: amp})
	require.NoError(t, d.PrepareSession())

	_, err := d.ConfigBoard("sampling_rate:1024")
	require.NoError(t, err)
	assert.Equal(t, 1024, d.samplingRate)

	_, err = d.ConfigBoard("sampling_rate:999")
	assert.Error(t, err)

	_, err = d.ConfigBoard("garbage")
	assert.Error(t, err)
}

func TestStopStreamWithoutStartIsAnError(t *testing.T) {
	amp := newFakeAmplifier()
	d := New(Config{Amplifier: amp})
	require.NoError(t, d.PrepareSession())
	err := d.StopStream()
	assert.Error(t, err)
}
