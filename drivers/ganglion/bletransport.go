package ganglion

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

const (
	writeCharUUID  = "2d30c083-f39f-4ce6-923f-3484ea480596"
	notifyCharUUID = "2d30c082-f39f-4ce6-923f-3484ea480596"
)

// bleNotifier is the production Notifier: a single BLE peripheral reached
// through tinygo.org/x/bluetooth, discovering the write/notify
// characteristics by the UUIDs the Ganglion firmware exposes.
type bleNotifier struct {
	address  bluetooth.Address
	adapter  *bluetooth.Adapter
	device   bluetooth.Device
	writeCh  bluetooth.DeviceCharacteristic
	notifyCh bluetooth.DeviceCharacteristic
	haveChar [2]bool // write, notify
}

// NewBLENotifier constructs the production Notifier for a device at the
// given MAC address, using the default local Bluetooth adapter.
func NewBLENotifier(macAddress string) (Notifier, error) {
	mac, err := bluetooth.ParseMAC(macAddress)
	if err != nil {
		return nil, fmt.Errorf("parse mac address %q: %w", macAddress, err)
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	return &bleNotifier{
		address: bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}},
		adapter: adapter,
	}, nil
}

func (n *bleNotifier) Connect() error {
	device, err := n.adapter.Connect(n.address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	n.device = device

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, ch := range chars {
			switch ch.UUID().String() {
			case writeCharUUID:
				n.writeCh = ch
				n.haveChar[0] = true
			case notifyCharUUID:
				n.notifyCh = ch
				n.haveChar[1] = true
			}
		}
	}
	if !n.haveChar[0] || !n.haveChar[1] {
		return fmt.Errorf("write or notify characteristic not found")
	}
	return nil
}

func (n *bleNotifier) Disconnect() error {
	return n.device.Disconnect()
}

func (n *bleNotifier) WriteCommand(cmd string) error {
	_, err := n.writeCh.WriteWithoutResponse([]byte(cmd))
	return err
}

func (n *bleNotifier) Subscribe(onNotify func(data []byte)) error {
	return n.notifyCh.EnableNotifications(func(buf []byte) {
		onNotify(buf)
	})
}
