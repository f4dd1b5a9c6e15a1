/*
Package cli facilitates building command-line applications for controlling SP105E LED controllers.
It defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package), environment variable equivalents, and an optional TOML configuration file.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the target, adapter, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	if err := config.ReadFromFile(); err != nil { // Fills in remaining fields from the TOML file
		panic(err)
	}

	controller, err := config.Connect(ctx)
	if err != nil {
		panic(err)
	}
	defer config.Close()
	defer controller.Disconnect()

Values are taken from the first source that defines them: command-line flags, then environment
variables (including a .env file in the working directory), then the configuration file.

A configuration file looks like this:

	target = "living-room"
	adapter = "hci1"
	device_cache = "/home/me/.cache/sp105e/devices.json"
	write_interval = "80ms"
	debug = false
*/
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/cache"
	"github.com/sp105e/led-command/pkg/capture"
	"github.com/sp105e/led-command/pkg/connector"
	"github.com/sp105e/led-command/pkg/connector/ble"
	"github.com/sp105e/led-command/pkg/connector/ble/goble"
	"github.com/sp105e/led-command/pkg/device"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvTarget        = "SP105E_TARGET"
	EnvAdapter       = "SP105E_ADAPTER"
	EnvCacheFile     = "SP105E_CACHE_FILE"
	EnvConfigFile    = "SP105E_CONFIG"
	EnvWriteInterval = "SP105E_WRITE_INTERVAL"
	EnvVerbose       = "SP105E_VERBOSE"
)

// DefaultCacheSize is the number of controllers remembered in a device cache created by Config.
const DefaultCacheSize = 32

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagTarget Flag = 1 // Enable target option.
	FlagBLE    Flag = 2 // Enable Bluetooth adapter and pacing options.
	FlagCache  Flag = 4 // Enable device cache option.
	FlagRecord Flag = 8 // Enable traffic capture option.
	FlagAll    Flag = FlagTarget | FlagBLE | FlagCache | FlagRecord
)

var (
	ErrNoTarget = errors.New("no controller specified (use -target or $" + EnvTarget + ")")
)

// Duration is a flag.Value that remembers whether it was set.
type Duration struct {
	Value time.Duration
	Valid bool
}

// Set updates a Duration from a command-line argument such as "50ms".
func (d *Duration) Set(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %s", v)
	}
	d.Value, d.Valid = v, true
	return nil
}

func (d *Duration) String() string {
	if d == nil || !d.Valid {
		return ""
	}
	return d.Value.String()
}

// Config fields determine how a client finds and talks to a controller.
type Config struct {
	Flags          Flag   // Controls which set of environment variables/CLI flags to use.
	Target         string // Bluetooth address or advertised name of the controller
	BtAdapterID    string
	CacheFilename  string
	ConfigFilename string
	RecordFilename string
	WriteInterval  Duration
	Debug          bool

	devices  *cache.DeviceCache
	adapter  ble.Adapter
	recorder io.Closer
}

type fileConfig struct {
	Target        string `toml:"target"`
	Adapter       string `toml:"adapter"`
	DeviceCache   string `toml:"device_cache"`
	WriteInterval string `toml:"write_interval"`
	Debug         bool   `toml:"debug"`
}

func NewConfig(flags Flag) (*Config, error) {
	return &Config{Flags: flags}, nil
}

func (c *Config) RegisterCommandLineFlags() {
	flag.BoolVar(&c.Debug, "debug", false, "Enable verbose debugging messages. Defaults to $"+EnvVerbose+".")
	flag.StringVar(&c.ConfigFilename, "config", "", "Read defaults from TOML `file`. Defaults to $"+EnvConfigFile+".")
	if c.Flags.isSet(FlagTarget) {
		flag.StringVar(&c.Target, "target", "", "Bluetooth `address` or advertised name of the controller. Defaults to $"+EnvTarget+".")
	}
	if c.Flags.isSet(FlagBLE) {
		flag.StringVar(&c.BtAdapterID, "bt-adapter", "", "ID of the Bluetooth `adapter` to use (e.g. hci1). Defaults to $"+EnvAdapter+".")
		flag.Var(&c.WriteInterval, "write-interval", "Minimum `delay` between frames. Defaults to $"+EnvWriteInterval+" or "+ble.DefaultWriteInterval.String()+".")
	}
	if c.Flags.isSet(FlagCache) {
		flag.StringVar(&c.CacheFilename, "device-cache", "", "Load and save scanned controllers in `file`. Defaults to $"+EnvCacheFile+".")
	}
	if c.Flags.isSet(FlagRecord) {
		flag.StringVar(&c.RecordFilename, "record", "", "Record all traffic to a capture `file`.")
	}
}

// ReadFromEnvironment populates c using environment variables. Variables defined in a .env file in
// the working directory are loaded first; they never override variables that are already set.
// Values that are already populated are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters.
func (c *Config) ReadFromEnvironment() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warning("Ignoring .env file: %s", err)
	}

	if !c.Debug {
		if v, ok := os.LookupEnv(EnvVerbose); ok {
			c.Debug, _ = strconv.ParseBool(v)
			if v == "" {
				c.Debug = true
			}
		}
	}
	if c.ConfigFilename == "" {
		c.ConfigFilename = os.Getenv(EnvConfigFile)
		log.Debug("Set config file to '%s'", c.ConfigFilename)
	}
	if c.Flags.isSet(FlagTarget) && c.Target == "" {
		c.Target = os.Getenv(EnvTarget)
		log.Debug("Set target to '%s'", c.Target)
	}
	if c.Flags.isSet(FlagBLE) {
		if c.BtAdapterID == "" {
			c.BtAdapterID = os.Getenv(EnvAdapter)
			log.Debug("Set Bluetooth adapter to '%s'", c.BtAdapterID)
		}
		if v := os.Getenv(EnvWriteInterval); v != "" && !c.WriteInterval.Valid {
			if err := c.WriteInterval.Set(v); err != nil {
				log.Warning("Ignoring invalid $%s: %s", EnvWriteInterval, err)
			}
		}
	}
	if c.Flags.isSet(FlagCache) && c.CacheFilename == "" {
		c.CacheFilename = os.Getenv(EnvCacheFile)
		log.Debug("Set device cache file to '%s'", c.CacheFilename)
	}
}

// ReadFromFile fills fields that are still unset using c.ConfigFilename. Does nothing if no
// configuration file was specified.
func (c *Config) ReadFromFile() error {
	if c.ConfigFilename == "" {
		return nil
	}
	var fc fileConfig
	meta, err := toml.DecodeFile(c.ConfigFilename, &fc)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warning("Ignoring unknown keys in %s: %v", c.ConfigFilename, undecoded)
	}

	if meta.IsDefined("debug") && !c.Debug {
		c.Debug = fc.Debug
	}
	if meta.IsDefined("target") && c.Target == "" {
		c.Target = fc.Target
	}
	if meta.IsDefined("adapter") && c.BtAdapterID == "" {
		c.BtAdapterID = fc.Adapter
	}
	if meta.IsDefined("device_cache") && c.CacheFilename == "" {
		c.CacheFilename = fc.DeviceCache
	}
	if meta.IsDefined("write_interval") && !c.WriteInterval.Valid {
		if err := c.WriteInterval.Set(fc.WriteInterval); err != nil {
			return fmt.Errorf("invalid write_interval in %s: %w", c.ConfigFilename, err)
		}
	}
	return nil
}

// Devices returns the device cache, loading it from c.CacheFilename on first use. Returns nil if
// no cache file is configured.
func (c *Config) Devices() (*cache.DeviceCache, error) {
	if c.devices != nil || c.CacheFilename == "" {
		return c.devices, nil
	}
	log.Debug("Loading device cache from %s...", c.CacheFilename)
	var err error
	c.devices, err = cache.ImportFromFile(c.CacheFilename)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load device cache: %s", err)
		}
		// Create a new cache if one couldn't be loaded from the file
		c.devices = cache.New(DefaultCacheSize)
	}
	return c.devices, nil
}

// SaveDevices writes the device cache back to c.CacheFilename.
func (c *Config) SaveDevices() {
	if c.devices == nil || c.CacheFilename == "" {
		return
	}
	if err := c.devices.ExportToFile(c.CacheFilename); err != nil {
		log.Error("Error updating device cache: %s", err)
	}
}

// Adapter opens the configured Bluetooth adapter on first use.
func (c *Config) Adapter() (ble.Adapter, error) {
	if c.adapter != nil {
		return c.adapter, nil
	}
	adapter, err := goble.NewAdapter(c.BtAdapterID)
	if err != nil {
		if goble.IsAdapterError(err) {
			return nil, errors.New(goble.AdapterErrorHelpMessage(err))
		}
		return nil, err
	}
	c.adapter = adapter
	return adapter, nil
}

// Connect scans for the configured target and returns a connected Controller. The target may be
// an address, an advertised name, or a name recorded in the device cache.
func (c *Config) Connect(ctx context.Context) (*device.Controller, error) {
	if c.Target == "" {
		return nil, ErrNoTarget
	}
	devices, err := c.Devices()
	if err != nil {
		return nil, err
	}
	target := c.Target
	if devices != nil {
		target = devices.Resolve(target)
		if target != c.Target {
			log.Debug("Resolved %s to %s using device cache", c.Target, target)
		}
	}

	adapter, err := c.Adapter()
	if err != nil {
		return nil, err
	}

	log.Info("Scanning for %s...", target)
	beacon, err := ble.FindBeacon(ctx, adapter, target)
	if err != nil {
		return nil, err
	}
	if devices != nil {
		devices.Observe(beacon, time.Now())
		c.SaveDevices()
	}

	bleConn, err := ble.NewConnectionFromBeacon(ctx, beacon, adapter)
	if err != nil {
		return nil, err
	}
	if c.WriteInterval.Valid {
		bleConn.SetWriteInterval(c.WriteInterval.Value)
	}

	var conn connector.Connector = bleConn
	if c.RecordFilename != "" {
		if conn, err = c.record(bleConn, beacon.Address); err != nil {
			bleConn.Close()
			return nil, err
		}
	}

	controller := device.New(conn)
	log.Info("Connecting to controller...")
	if err := controller.Connect(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return controller, nil
}

func (c *Config) record(conn connector.Connector, address string) (connector.Connector, error) {
	file, err := os.Create(c.RecordFilename)
	if err != nil {
		return nil, err
	}
	writer, err := capture.NewWriter(file, c.Target, address)
	if err != nil {
		file.Close()
		return nil, err
	}
	log.Info("Recording session %s to %s", writer.Session(), c.RecordFilename)
	c.recorder = file
	return capture.NewRecorder(conn, writer), nil
}

// Close releases the Bluetooth adapter and any capture file. Disconnect controllers returned by
// Connect first.
func (c *Config) Close() {
	if c.recorder != nil {
		if err := c.recorder.Close(); err != nil {
			log.Error("Error closing capture file: %s", err)
		}
		c.recorder = nil
	}
	if c.adapter != nil {
		if err := c.adapter.Close(); err != nil {
			log.Warning("Error closing Bluetooth adapter: %s", err)
		}
		c.adapter = nil
	}
}
