package goble

import (
	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"

	"github.com/sp105e/led-command/internal/log"
)

func IsAdapterError(_ error) bool {
	return false
}

func AdapterErrorHelpMessage(err error) string {
	return err.Error()
}

func newDevice(id string) (goble.Device, error) {
	if id != "" {
		log.Warning("BLE adapter ID is not supported on Darwin")
	}
	return darwin.NewDevice()
}
