package ble

import (
	"context"
	"io"
)

// Beacon is a BLE advertisement observed during a scan.
type Beacon struct {
	Address     string
	LocalName   string
	RSSI        int16
	Connectable bool
}

// Adapter is a local Bluetooth controller capable of scanning and dialing peripherals.
type Adapter interface {
	// Scan reports advertisements to fn until ctx is done. If allowDuplicates is false, each
	// peripheral is reported at most once.
	Scan(ctx context.Context, allowDuplicates bool, fn func(*Beacon)) error
	Connect(ctx context.Context, beacon *Beacon) (Device, error)
	Close() error
}

type Device interface {
	Service(ctx context.Context, uuid string) (Service, error)
	Close() error
}

type Service interface {
	Rx(uuid string, callback func(buf []byte)) error
	Tx(uuid string) (Writer, error)
}

type Writer interface {
	io.Writer
	MTU(rxMTU int) (txMTU int, err error)
}
