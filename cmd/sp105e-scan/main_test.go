package main

import (
	"testing"

	"github.com/sp105e/led-command/pkg/connector/ble"
)

func TestSeenReportsNewDevicesAndSignalChanges(t *testing.T) {
	filter := &seen{rssi: make(map[string]int16), delta: rssiDelta}
	type params struct {
		address string
		rssi    int16
		report  bool
	}
	testCases := []params{
		{address: "AA:BB:CC:DD:EE:FF", rssi: -60, report: true},
		{address: "AA:BB:CC:DD:EE:FF", rssi: -62, report: false},
		{address: "AA:BB:CC:DD:EE:FF", rssi: -70, report: true},
		{address: "11:22:33:44:55:66", rssi: -70, report: true},
		{address: "AA:BB:CC:DD:EE:FF", rssi: -65, report: false},
	}
	for i, test := range testCases {
		if got := filter.report(&ble.Beacon{Address: test.address, RSSI: test.rssi}); got != test.report {
			t.Errorf("case %d: expected report = %v, but got %v", i, test.report, got)
		}
	}
}
