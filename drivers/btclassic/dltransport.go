package btclassic

import (
	"fmt"

	"github.com/c360/boardkit/transportlib"
)

// dlTransport binds the five Bluetooth Classic entry points a platform
// vendor shared library exposes, the same five bt_lib_board.cpp resolves
// by name out of its DLLLoader: bluetooth_open_device,
// bluetooth_close_device, bluetooth_write_data, bluetooth_get_data and
// bluetooth_discover_device.
type dlTransport struct {
	lib *transportlib.Library

	open     func(port int32, mac string) int32
	close_   func(mac string) int32
	write    func(data string, length int32, mac string) int32
	read     func(data []byte, length int32, mac string) int32
	discover func(nameSelector string, macOut []byte, lenOut *int32) int32
}

func newDLTransport(libraryPath string) (*dlTransport, error) {
	lib, err := transportlib.Load(libraryPath)
	if err != nil {
		return nil, err
	}
	t := &dlTransport{lib: lib}
	transportlib.RegisterFunc(lib, &t.open, "bluetooth_open_device")
	transportlib.RegisterFunc(lib, &t.close_, "bluetooth_close_device")
	transportlib.RegisterFunc(lib, &t.write, "bluetooth_write_data")
	transportlib.RegisterFunc(lib, &t.read, "bluetooth_get_data")
	transportlib.RegisterFunc(lib, &t.discover, "bluetooth_discover_device")
	return t, nil
}

func (t *dlTransport) Open(port int, macAddress string) error {
	if res := t.open(int32(port), macAddress); res != 0 {
		return fmt.Errorf("bluetooth_open_device returned %d", res)
	}
	return nil
}

func (t *dlTransport) Close(macAddress string) error {
	if res := t.close_(macAddress); res != 0 {
		return fmt.Errorf("bluetooth_close_device returned %d", res)
	}
	return nil
}

func (t *dlTransport) WriteData(macAddress string, command string) (int, error) {
	res := t.write(command, int32(len(command)), macAddress)
	if res < 0 {
		return 0, fmt.Errorf("bluetooth_write_data returned %d", res)
	}
	return int(res), nil
}

func (t *dlTransport) ReadData(macAddress string, buf []byte) (int, error) {
	res := t.read(buf, int32(len(buf)), macAddress)
	if res < 0 {
		return 0, fmt.Errorf("bluetooth_get_data returned %d", res)
	}
	return int(res), nil
}

func (t *dlTransport) Discover(nameSelector string) (string, error) {
	out := make([]byte, 40)
	var n int32
	res := t.discover(nameSelector, out, &n)
	if res != 0 {
		return "", fmt.Errorf("bluetooth_discover_device returned %d", res)
	}
	return string(out[:n]), nil
}
