package btclassic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boardkit/board"
)

type fakeTransport struct {
	opened   bool
	closed   bool
	writes   []string
	readData [][]byte
	readIdx  int
	discover string
}

func (f *fakeTransport) Open(port int, macAddress string) error {
	f.opened = true
	return nil
}

func (f *fakeTransport) Close(macAddress string) error {
	f.closed = true
	return nil
}

func (f *fakeTransport) WriteData(macAddress string, command string) (int, error) {
	f.writes = append(f.writes, command)
	return len(command), nil
}

func (f *fakeTransport) ReadData(macAddress string, buf []byte) (int, error) {
	if f.readIdx >= len(f.readData) {
		return 0, nil
	}
	frame := f.readData[f.readIdx]
	f.readIdx++
	copy(buf, frame)
	return len(frame), nil
}

func (f *fakeTransport) Discover(nameSelector string) (string, error) {
	return f.discover, nil
}

func TestPrepareSessionAppliesInitialSettingsInOrder(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Config{MacAddress: "AA:BB:CC:DD:EE:FF", Transport: ft})
	require.NoError(t, d.PrepareSession())
	assert.True(t, ft.opened)
	require.Len(t, ft.writes, 6)
	assert.Equal(t, "set_sampling_frequency_1000", ft.writes[0])
	assert.Equal(t, "set_gain_6", ft.writes[1])
	assert.Equal(t, "set_offset_0", ft.writes[2])
	assert.Equal(t, "set_external_switch_mio_electrodes", ft.writes[3])
	assert.Equal(t, "set_adc_input_resistance", ft.writes[4])
	assert.Equal(t, "set_hardware_filter_on", ft.writes[5])
}

func TestPrepareSessionUsesMioUSBSwitchWhenConfigured(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Config{MacAddress: "AA:BB:CC:DD:EE:FF", Transport: ft, UseMioUSBInput: true})
	require.NoError(t, d.PrepareSession())
	assert.Equal(t, "set_external_switch_mio_usb", ft.writes[3])
}

func TestPrepareSessionAutodiscoversWhenMacMissing(t *testing.T) {
	ft := &fakeTransport{discover: "11:22:33:44:55:66"}
	d := New(Config{Transport: ft})
	require.NoError(t, d.PrepareSession())
	assert.Equal(t, "11:22:33:44:55:66", d.cfg.MacAddress)
}

func TestPrepareSessionIsIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Config{MacAddress: "AA:BB:CC:DD:EE:FF", Transport: ft})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.PrepareSession())
	assert.Len(t, ft.writes, 6)
}

func TestDecodeFrameScalesEMGAndExtractsMarker(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Config{MacAddress: "AA:BB:CC:DD:EE:FF", Transport: ft})
	require.NoError(t, d.PrepareSession())

	frame := []byte{0x10, 0x00, 0x02, 0x07} // raw=16, status=2, marker=7
	row := d.decodeFrame(frame)

	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	assert.Greater(t, row[schema.EMGChannels[0]], 0.0)
	assert.Equal(t, float64(2), row[schema.OtherChannels[0]])
	assert.Equal(t, float64(7), row[schema.MarkerChannel])
}

func TestConfigBoardRequiresTransport(t *testing.T) {
	d := New(Config{})
	_, err := d.ConfigBoard("x")
	assert.Error(t, err)
}

func TestReleaseSessionClosesTransport(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Config{MacAddress: "AA:BB:CC:DD:EE:FF", Transport: ft})
	require.NoError(t, d.PrepareSession())
	require.NoError(t, d.ReleaseSession())
	assert.True(t, ft.closed)
}
