package cache

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sp105e/led-command/pkg/connector/ble"
)

// Entry describes the most recent advertisement seen from a controller.
type Entry struct {
	Address     string    `json:"address"`
	LocalName   string    `json:"local_name,omitempty"`
	RSSI        int16     `json:"rssi"`
	Connectable bool      `json:"connectable"`
	LastSeen    time.Time `json:"last_seen"`
}

type DeviceCache struct {
	MaxEntries int              `json:"max_entries"`
	Devices    map[string]Entry `json:"devices"`
	lock       sync.Mutex
}

// New returns a DeviceCache that remembers up to maxEntries controllers. When the cache is full,
// the controller that was seen least recently is evicted.
//
// Set maxEntries to zero for an unbounded cache.
func New(maxEntries int) *DeviceCache {
	return &DeviceCache{
		MaxEntries: maxEntries,
		Devices:    make(map[string]Entry),
	}
}

// Import a DeviceCache using data in r.
// The data should previously have been generated using [DeviceCache.Export].
func Import(r io.Reader) (*DeviceCache, error) {
	var cache DeviceCache
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cache); err != nil {
		return nil, err
	}
	if cache.Devices == nil {
		cache.Devices = make(map[string]Entry)
	}
	return &cache, nil
}

// ImportFromFile reads a DeviceCache from disk.
func ImportFromFile(filename string) (*DeviceCache, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Import(file)
}

// Export writes a serialized DeviceCache to w.
func (c *DeviceCache) Export(w io.Writer) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return json.NewEncoder(w).Encode(c)
}

// ExportToFile writes a DeviceCache to disk.
func (c *DeviceCache) ExportToFile(filename string) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	return c.Export(file)
}

func key(address string) string {
	return strings.ToUpper(address)
}

// Update records entry, replacing any previous entry for the same address.
func (c *DeviceCache) Update(entry Entry) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.Devices[key(entry.Address)] = entry
	if c.MaxEntries > 0 && len(c.Devices) > c.MaxEntries {
		oldest := key(entry.Address)
		oldestSeen := entry.LastSeen
		for k, e := range c.Devices {
			if e.LastSeen.Before(oldestSeen) {
				oldest = k
				oldestSeen = e.LastSeen
			}
		}
		delete(c.Devices, oldest)
	}
}

// Observe records an advertisement received at the given time.
func (c *DeviceCache) Observe(beacon *ble.Beacon, at time.Time) {
	c.Update(Entry{
		Address:     beacon.Address,
		LocalName:   beacon.LocalName,
		RSSI:        beacon.RSSI,
		Connectable: beacon.Connectable,
		LastSeen:    at,
	})
}

// Lookup finds a controller by Bluetooth address (case-insensitive) or local name. If several
// controllers share a name, the one seen most recently wins.
func (c *DeviceCache) Lookup(target string) (Entry, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e, ok := c.Devices[key(target)]; ok {
		return e, true
	}
	var found Entry
	var ok bool
	for _, e := range c.Devices {
		if e.LocalName == target && (!ok || e.LastSeen.After(found.LastSeen)) {
			found, ok = e, true
		}
	}
	return found, ok
}

// Resolve returns the address cached for target, or target itself if it isn't cached.
func (c *DeviceCache) Resolve(target string) string {
	if e, ok := c.Lookup(target); ok {
		return e.Address
	}
	return target
}
