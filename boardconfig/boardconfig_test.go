package boardconfig

import (
	"testing"
	"time"

	"github.com/c360/boardkit/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasPositiveTimeoutAndDefaultPreset(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, board.PresetDefault, cfg.Preset)
	assert.Greater(t, cfg.Timeout, time.Duration(0))
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.WifiID
	cfg.ListenAddress = "127.0.0.1:21001"
	cfg.Timeout = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresSerialPortForCyton(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.CytonID
	require.Error(t, cfg.Validate())

	cfg.SerialPort = "/dev/ttyUSB0"
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresListenAddressForWifi(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.WifiID
	require.Error(t, cfg.Validate())

	cfg.ListenAddress = "0.0.0.0:21001"
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresMacAddressAndLibraryPathForBTClassic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.BTClassicID
	require.Error(t, cfg.Validate())

	cfg.MacAddress = "00:11:22:33:44:55"
	require.Error(t, cfg.Validate())

	cfg.LibraryPath = "/usr/local/lib/libneuromd.so"
	require.NoError(t, cfg.Validate())
}

func TestValidateAcceptsVendorSDKBoardsWithoutTransportFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.GForceID
	require.NoError(t, cfg.Validate())

	cfg.BoardID = board.ANTNeuroID
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBoardID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardID = board.ID(99)
	require.Error(t, cfg.Validate())
}
