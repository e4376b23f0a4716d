// Package boardconfig carries the connection parameters for a board
// session as a typed, validated struct, the way the teacher's
// per-component Config types do for flow components.
package boardconfig

import (
	"fmt"
	"time"

	"github.com/c360/boardkit/board"
)

// Config holds everything needed to open a session against one board
// family. Not every field applies to every family — a serial board
// reads SerialPort and ignores ListenAddress, a UDP board the reverse —
// RegisterDefaultFactories' per-family factory picks out the fields it
// needs, and Validate checks only the ones the chosen BoardID requires.
type Config struct {
	// BoardID selects which driver factory handles this session.
	BoardID board.ID `json:"board_id" schema:"type:int,description:Board family identifier,category:basic"`

	// SerialPort is the OS device path for serial-transport boards
	// (Cyton, DawnEEG), e.g. /dev/ttyUSB0 or COM3.
	SerialPort string `json:"serial_port,omitempty" schema:"type:string,description:Serial device path,category:transport"`

	// MacAddress is the Bluetooth device address for BLE/BT-classic
	// boards (Ganglion, BTClassic).
	MacAddress string `json:"mac_address,omitempty" schema:"type:string,description:Bluetooth device address,category:transport"`

	// ListenAddress is the local UDP address a Wifi-family board
	// streams to, e.g. 0.0.0.0:21001.
	ListenAddress string `json:"listen_address,omitempty" schema:"type:string,description:UDP listen address,category:transport"`

	// IPPort is a secondary TCP/RFCOMM port some bridges expose
	// alongside MacAddress.
	IPPort int `json:"ip_port,omitempty" schema:"type:int,description:Bridge TCP port,category:transport"`

	// LibraryPath points at a dynamically-loaded vendor transport
	// library, used by boards whose factory binds one (btclassic).
	LibraryPath string `json:"library_path,omitempty" schema:"type:string,description:Path to vendor shared library,category:transport"`

	// Preset names a sample-row preset. It is not copied into
	// registry.Params; drivers decode every preset their board supports.
	Preset board.Preset `json:"preset" schema:"type:string,description:Sample row preset,category:basic"`

	// Timeout is a connect timeout that Validate requires to be positive.
	// It is not copied into registry.Params, and PrepareSession does not
	// read it.
	Timeout time.Duration `json:"timeout" schema:"type:duration,description:Connect timeout,category:timing"`
}

// DefaultConfig returns a Config with the timeout and preset every
// board family can use as a starting point; transport fields are left
// zero for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		Preset:  board.PresetDefault,
		Timeout: 5 * time.Second,
	}
}

// Validate checks that Config carries the fields its BoardID's transport
// needs. It does not dial anything — PrepareSession still does that —
// it only rejects configs that are structurally incomplete.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("boardconfig: timeout must be positive, got %s", c.Timeout)
	}

	switch c.BoardID {
	case board.CytonID, board.DawnEEGID:
		if c.SerialPort == "" {
			return fmt.Errorf("boardconfig: board %d requires serial_port", c.BoardID)
		}
	case board.WifiID:
		if c.ListenAddress == "" {
			return fmt.Errorf("boardconfig: board %d requires listen_address", c.BoardID)
		}
	case board.GanglionID:
		if c.MacAddress == "" {
			return fmt.Errorf("boardconfig: board %d requires mac_address", c.BoardID)
		}
	case board.BTClassicID:
		if c.MacAddress == "" {
			return fmt.Errorf("boardconfig: board %d requires mac_address", c.BoardID)
		}
		if c.LibraryPath == "" {
			return fmt.Errorf("boardconfig: board %d requires library_path", c.BoardID)
		}
	case board.GForceID, board.ANTNeuroID:
		// Vendor-SDK boards carry no plain-string transport fields here;
		// a caller constructs their own factory and SDK handle.
	default:
		return fmt.Errorf("boardconfig: unknown board id %d", c.BoardID)
	}
	return nil
}
