// Package goble implements ble.Adapter on top of github.com/go-ble/ble.
package goble

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	goble "github.com/go-ble/ble"

	"github.com/sp105e/led-command/pkg/connector/ble"
)

// NewAdapter opens the local Bluetooth controller identified by id (for example "hci0"). An empty
// id selects the system default.
func NewAdapter(id string) (ble.Adapter, error) {
	device, err := newDevice(id)
	if err != nil {
		return nil, err
	}

	return &adapter{
		device: device,
	}, nil
}

// ParseAdapterID converts an adapter name such as "hci1" or "1" into a device index.
func ParseAdapterID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(id), "hci"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ble.ErrAdapterInvalidID, id)
	}
	return n, nil
}

type adapter struct {
	device goble.Device
}

func (s *adapter) Scan(ctx context.Context, allowDuplicates bool, fn func(*ble.Beacon)) error {
	handler := func(a goble.Advertisement) {
		fn(advertisementToBeacon(a))
	}
	return s.device.Scan(ctx, allowDuplicates, handler)
}

func (s *adapter) Connect(ctx context.Context, beacon *ble.Beacon) (ble.Device, error) {
	client, err := s.device.Dial(ctx, goble.NewAddr(beacon.Address))
	if err != nil {
		return nil, err
	}

	return &device{client: client}, nil
}

func (s *adapter) Close() error {
	if s.device == nil {
		return nil
	}

	device := s.device
	s.device = nil
	return device.Stop()
}

func advertisementToBeacon(a goble.Advertisement) *ble.Beacon {
	return &ble.Beacon{
		Address:     a.Addr().String(),
		LocalName:   a.LocalName(),
		RSSI:        int16(a.RSSI()),
		Connectable: a.Connectable(),
	}
}
