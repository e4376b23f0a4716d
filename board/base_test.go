package board

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() Descriptor {
	return Descriptor{
		ID:   999,
		Name: "test-board",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:             "default",
				NumRows:          4,
				SamplingRate:     250,
				TimestampChannel: 2,
				MarkerChannel:    3,
				EEGChannels:      []int{0, 1},
			},
		},
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.Prepare(100))
	assert.True(t, b.Flags().Initialized)
}

func TestPushRowRequiresStreaming(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	err := b.PushRow(PresetDefault, []float64{1, 2, 3, 0})
	assert.Error(t, err)
}

func TestPushRowStampsMarkerChannel(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))

	require.NoError(t, b.InsertMarker(7, PresetDefault))
	require.NoError(t, b.PushRow(PresetDefault, []float64{1, 2, 100, 0}))
	require.NoError(t, b.PushRow(PresetDefault, []float64{3, 4, 101, 0}))

	data, err := b.GetBoardData(2, PresetDefault)
	require.NoError(t, err)
	require.Len(t, data, 4)
	assert.Equal(t, []float64{1, 3}, data[0])
	assert.Equal(t, []float64{7, 0}, data[3])
}

func TestPushRowRejectsWrongWidth(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))
	err := b.PushRow(PresetDefault, []float64{1, 2})
	assert.Error(t, err)
}

func TestGetCurrentBoardDataDoesNotDrain(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))
	require.NoError(t, b.PushRow(PresetDefault, []float64{1, 2, 0, 0}))

	_, err := b.GetCurrentBoardData(1, PresetDefault)
	require.NoError(t, err)
	count, err := b.GetBoardDataCount(PresetDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReleaseSessionResetsFlags(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))
	require.NoError(t, b.ReleaseSession())
	assert.False(t, b.Flags().Initialized)
	assert.False(t, b.Flags().Streaming)
}

func TestConcurrentPushAndMarkerInsertNeverRaces(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(1000))
	require.NoError(t, b.BeginStream(""))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.InsertMarker(1, PresetDefault)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.PushRow(PresetDefault, []float64{float64(i), 0, 0, 0})
		}
	}()
	wg.Wait()

	count, err := b.GetBoardDataCount(PresetDefault)
	require.NoError(t, err)
	assert.Equal(t, 200, count)
}

func TestAddStreamerRejectsDuplicate(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))

	dir := t.TempDir()
	uri := "file://" + dir + "/out.csv:"
	require.NoError(t, b.AddStreamer(uri, PresetDefault))
	assert.Error(t, b.AddStreamer(uri, PresetDefault))
}

func TestDeleteStreamerRemovesMatch(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))

	dir := t.TempDir()
	uri := "file://" + dir + "/out.csv:"
	require.NoError(t, b.AddStreamer(uri, PresetDefault))
	require.NoError(t, b.DeleteStreamer(uri, PresetDefault))
	assert.Error(t, b.DeleteStreamer(uri, PresetDefault))
}

func TestWaitFirstFrameUnblocksOnPush(t *testing.T) {
	b := NewBase(testDescriptor(), Dependencies{})
	require.NoError(t, b.Prepare(100))
	require.NoError(t, b.BeginStream(""))

	done := make(chan error, 1)
	go func() { done <- b.WaitFirstFrame(PresetDefault, 2*time.Second) }()
	require.NoError(t, b.PushRow(PresetDefault, []float64{1, 2, 0, 0}))
	require.NoError(t, <-done)
}
