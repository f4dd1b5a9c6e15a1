package goble

import (
	"fmt"
	"strings"
	"time"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/cmd"
)

const bleTimeout = 20 * time.Second

var scanParams = cmd.LESetScanParameters{
	LEScanType:           1,    // Active scanning, so that scan responses carry the local name
	LEScanInterval:       0x10, // 10ms
	LEScanWindow:         0x10, // 10ms
	OwnAddressType:       0,    // Static
	ScanningFilterPolicy: 0,    // Accept all
}

func IsAdapterError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "can't init hci")
}

func AdapterErrorHelpMessage(err error) string {
	return fmt.Sprintf("failed to open the bluetooth adapter (%s).\n"+
		"Grant the binary raw socket access and try again:\n"+
		"  sudo setcap 'cap_net_admin=eip' \"$(which sp105e-control)\"", err)
}

func newDevice(id string) (goble.Device, error) {
	opts := []goble.Option{
		goble.OptListenerTimeout(bleTimeout),
		goble.OptDialerTimeout(bleTimeout),
		goble.OptScanParams(scanParams),
	}
	if id != "" {
		n, err := ParseAdapterID(id)
		if err != nil {
			return nil, err
		}
		opts = append(opts, goble.OptDeviceID(n))
	}

	device, err := linux.NewDevice(opts...)
	if err != nil {
		return nil, err
	}
	return device, nil
}
