package registry

import (
	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/btclassic"
	"github.com/c360/boardkit/drivers/cyton"
	"github.com/c360/boardkit/drivers/dawn"
	"github.com/c360/boardkit/drivers/ganglion"
	"github.com/c360/boardkit/drivers/wifiboard"
	"github.com/c360/boardkit/status"
)

// RegisterDefaultFactories wires every board family this module builds a
// concrete Go transport for. gforce and antneuro are deliberately left
// out: both need a closed-source vendor SDK handle (SDK/Amplifier) that
// cannot be constructed from Params' plain strings alone, so a caller
// wanting one of those boards registers its own factory with
// RegisterFactory, passing whatever vendor binding it has, exactly as
// the original library's binding layer supplies platform-specific
// factories the core registry itself does not know how to build.
func RegisterDefaultFactories(r *Registry) {
	r.RegisterFactory(board.CytonID, func(p Params, deps board.Dependencies) (board.Driver, error) {
		return cyton.New(cyton.Config{SerialPort: p.SerialPort, Deps: deps}), nil
	})
	r.RegisterFactory(board.DawnEEGID, func(p Params, deps board.Dependencies) (board.Driver, error) {
		return dawn.New(dawn.Config{SerialPort: p.SerialPort, Deps: deps}), nil
	})
	r.RegisterFactory(board.WifiID, func(p Params, deps board.Dependencies) (board.Driver, error) {
		return wifiboard.New(wifiboard.Config{ListenAddress: p.ListenAddress, Deps: deps}), nil
	})
	r.RegisterFactory(board.GanglionID, func(p Params, deps board.Dependencies) (board.Driver, error) {
		notifier, err := ganglion.NewBLENotifier(p.MacAddress)
		if err != nil {
			return nil, board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "registry", "GanglionID factory", "construct BLE notifier"))
		}
		return ganglion.New(ganglion.Config{DeviceAddress: p.MacAddress, Deps: deps, Notifier: notifier}), nil
	})
	r.RegisterFactory(board.BTClassicID, func(p Params, deps board.Dependencies) (board.Driver, error) {
		return btclassic.New(btclassic.Config{
			MacAddress:     p.MacAddress,
			Port:           p.IPPort,
			Deps:           deps,
			UseMioUSBInput: p.OtherInfo == "ExternalSwitchInputMioUSB",
			LibraryPath:    p.LibraryPath,
		}), nil
	})
}
