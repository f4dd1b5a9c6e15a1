package goble

import (
	"errors"

	goble "github.com/go-ble/ble"
)

func IsAdapterError(_ error) bool {
	return false
}

func AdapterErrorHelpMessage(err error) string {
	return err.Error()
}

func newDevice(_ string) (goble.Device, error) {
	return nil, errors.New("not supported on Windows")
}
