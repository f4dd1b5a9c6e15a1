package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/cli"
	"github.com/sp105e/led-command/pkg/connector/ble"
)

// seen tracks advertisements so each controller is printed once, then again only if its
// signal strength changes by more than rssiDelta.
type seen struct {
	lock  sync.Mutex
	rssi  map[string]int16
	delta int16
}

const rssiDelta = 5

func (s *seen) report(b *ble.Beacon) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	last, ok := s.rssi[b.Address]
	if ok && abs(last-b.RSSI) <= s.delta {
		return false
	}
	s.rssi[b.Address] = b.RSSI
	return true
}

func abs(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		duration time.Duration
		all      bool
	)
	config, err := cli.NewConfig(cli.FlagBLE | cli.FlagCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		return
	}
	flag.DurationVar(&duration, "duration", 10*time.Second, "Stop scanning after `duration`; zero scans until interrupted.")
	flag.BoolVar(&all, "all", false, "Print every advertisement instead of only new devices and signal changes.")
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()
	if err := config.ReadFromFile(); err != nil {
		log.Error("%s", err)
		return
	}
	if config.Debug {
		log.SetLevel(log.LevelDebug)
	}
	defer config.Close()

	adapter, err := config.Adapter()
	if err != nil {
		log.Error("Failed to initialize Bluetooth adapter: %s", err)
		return
	}
	devices, err := config.Devices()
	if err != nil {
		log.Error("%s", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	filter := &seen{rssi: make(map[string]int16), delta: rssiDelta}
	fmt.Printf("%-17s  %5s  %-11s  %s\n", "ADDRESS", "RSSI", "CONNECTABLE", "NAME")
	err = ble.ScanBeacons(ctx, adapter, func(b *ble.Beacon) {
		if devices != nil {
			devices.Observe(b, time.Now())
		}
		if all || filter.report(b) {
			fmt.Printf("%-17s  %5d  %-11t  %s\n", b.Address, b.RSSI, b.Connectable, b.LocalName)
		}
	})
	if err != nil {
		log.Error("Scan failed: %s", err)
		return
	}
	log.Info("Stopping scan")
	config.SaveDevices()
	status = 0
}
