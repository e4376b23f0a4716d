package ganglion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boardkit/board"
)

type fakeNotifier struct {
	connected bool
	commands  []string
	onNotify  func([]byte)
}

func (f *fakeNotifier) Connect() error    { f.connected = true; return nil }
func (f *fakeNotifier) Disconnect() error { f.connected = false; return nil }
func (f *fakeNotifier) WriteCommand(cmd string) error {
	f.commands = append(f.commands, cmd)
	return nil
}
func (f *fakeNotifier) Subscribe(onNotify func(data []byte)) error {
	f.onNotify = onNotify
	return nil
}

func TestPrepareSessionSubscribesAndConnects(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	assert.True(t, n.connected)
	assert.NotNil(t, n.onNotify)
}

func TestStartStreamSendsStartCommand(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(1000, ""))
	assert.Contains(t, n.commands, startCommand)
}

func TestNotifyUncompressedFramePushesRow(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(1000, ""))

	data := make([]byte, 20)
	data[1], data[2], data[3] = 0, 0x03, 0xE8
	n.onNotify(data)

	count, err := d.GetBoardDataCount(board.PresetDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotifyCompressedFramePushesTwoRows(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(1000, ""))

	data := make([]byte, 20)
	data[0] = 1
	n.onNotify(data)

	count, err := d.GetBoardDataCount(board.PresetDefault)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStopStreamSendsStopCommand(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.StartStream(1000, ""))
	require.NoError(t, d.StopStream())
	assert.Contains(t, n.commands, stopCommand)
}

func TestReleaseSessionDisconnects(t *testing.T) {
	n := &fakeNotifier{}
	d := New(Config{Notifier: n})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.ReleaseSession())
	assert.False(t, n.connected)
}
