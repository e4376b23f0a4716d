package streamer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStreamerWritesTextRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := newFileStreamer(path, "", 3)
	require.NoError(t, err)
	require.NoError(t, s.Init())

	s.Stream([]float64{1, 2, 3})
	s.Stream([]float64{4, 5, 6})
	require.NoError(t, s.Destroy())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3\n4 5 6\n", string(data))
}

func TestFileStreamerEquals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := newFileStreamer(path, "raw", 3)
	require.NoError(t, err)

	assert.True(t, s.Equals("file", path, "raw"))
	assert.False(t, s.Equals("file", path, ""))
	assert.False(t, s.Equals("streaming_board", path, "raw"))
}

func TestFileStreamerDestroyIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := newFileStreamer(path, "", 1)
	require.NoError(t, err)
	require.NoError(t, s.Init())

	require.NoError(t, s.Destroy())
	require.NoError(t, s.Destroy())
}
