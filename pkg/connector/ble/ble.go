package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/connector"
	"github.com/sp105e/led-command/pkg/protocol"
)

var (
	ErrMaxConnectionsExceeded = protocol.NewError("the controller is not accepting connections (is another central connected?)", false, false)
	ErrAdapterInvalidID       = protocol.NewError("the bluetooth adapter ID is invalid", false, false)
	ErrDeviceNotFound         = protocol.NewError("no controller matching the target is advertising", false, true)
)

const (
	defaultMTU             = 23
	maxBLEMTUSize          = 512 + 3
	maxNotificationSize    = 512
	retryInterval          = 500 * time.Millisecond
	rxTimeout              = time.Second // Timeout interval between receiving chunks of a notification
	shortPayloadDelay      = 100 * time.Millisecond
	DefaultWriteInterval   = 50 * time.Millisecond
	connectAttemptInterval = time.Second
)

// Matches returns true if beacon advertises target, which may be either a Bluetooth address
// (case-insensitive) or an advertised local name.
func Matches(beacon *Beacon, target string) bool {
	if beacon == nil || target == "" {
		return false
	}
	return strings.EqualFold(beacon.Address, target) || beacon.LocalName == target
}

// ScanBeacons reports every advertisement observed by adapter until ctx is done. Devices that
// advertise repeatedly are reported each time so that callers can track signal strength.
func ScanBeacons(ctx context.Context, adapter Adapter, fn func(*Beacon)) error {
	err := adapter.Scan(ctx, true, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// FindBeacon scans until it observes an advertisement matching target or ctx expires.
func FindBeacon(ctx context.Context, adapter Adapter, target string) (*Beacon, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lock sync.Mutex
	var result *Beacon
	fn := func(b *Beacon) {
		if !Matches(b, target) {
			return
		}
		lock.Lock()
		defer lock.Unlock()
		if result == nil {
			result = b
			cancel()
		}
	}

	err := adapter.Scan(scanCtx, false, fn)
	lock.Lock()
	defer lock.Unlock()
	if result != nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrDeviceNotFound, target, ctxErr)
	}
	if err == nil {
		err = errors.New("scan ended")
	}
	return nil, fmt.Errorf("%w (%s): %w", ErrDeviceNotFound, target, err)
}

// Connection is a connector.Connector backed by a GATT characteristic.
type Connection struct {
	address string
	inbox   chan []byte
	device  Device
	writer  Writer
	limiter *rate.Limiter

	blockLength int
	lock        sync.Mutex

	rxLock      sync.Mutex
	inputBuffer []byte
	lastRx      time.Time
	shortTimer  *time.Timer
	shortGen    uint64
	closed      bool
	closeOnce   sync.Once
}

var _ connector.Connector = (*Connection)(nil)

// NewConnection scans for target (a Bluetooth address or local name) and connects to it.
func NewConnection(ctx context.Context, target string, adapter Adapter) (*Connection, error) {
	beacon, err := FindBeacon(ctx, adapter, target)
	if err != nil {
		return nil, err
	}
	return NewConnectionFromBeacon(ctx, beacon, adapter)
}

// NewConnectionFromBeacon connects to the controller that sent beacon. Connection attempts are
// repeated until one succeeds or ctx expires.
func NewConnectionFromBeacon(ctx context.Context, beacon *Beacon, adapter Adapter) (*Connection, error) {
	var lastError error

	if !beacon.Connectable {
		return nil, ErrMaxConnectionsExceeded
	}

	for {
		conn, err := tryToConnect(ctx, beacon, adapter)
		if err == nil {
			return conn, nil
		}

		log.Warning("BLE connection attempt failed: %+v", err)
		lastError = err
		select {
		case <-ctx.Done():
			return nil, lastError
		case <-time.After(connectAttemptInterval):
		}
	}
}

func tryToConnect(ctx context.Context, beacon *Beacon, adapter Adapter) (*Connection, error) {
	log.Debug("Dialing %s (%s)...", beacon.Address, beacon.LocalName)
	device, err := adapter.Connect(ctx, beacon)
	if err != nil {
		return nil, err
	}

	conn, err := newConnection(ctx, beacon.Address, device)
	if err != nil {
		if closeErr := device.Close(); closeErr != nil {
			log.Debug("ble: failed to close device after setup error: %s", closeErr)
		}
		return nil, err
	}
	log.Info("Connected to %s", beacon.Address)
	return conn, nil
}

func newConnection(ctx context.Context, address string, device Device) (*Connection, error) {
	service, err := device.Service(ctx, protocol.ServiceUUID)
	if err != nil {
		return nil, err
	}

	writer, err := service.Tx(protocol.CharacteristicUUID)
	if err != nil {
		return nil, err
	}

	txMtu, err := writer.MTU(maxBLEMTUSize)
	if err != nil {
		txMtu = defaultMTU - 3 // Fallback to default MTU size
	} else {
		txMtu = txMtu - 3 // 3 bytes for header
	}
	log.Debug("MTU payload size: %d", txMtu)

	conn := &Connection{
		address: address,
		inbox:   make(chan []byte, connector.BufferSize),
		device:  device,
		writer:  writer,
		limiter: rate.NewLimiter(rate.Every(DefaultWriteInterval), 1),

		blockLength: txMtu,
	}

	if err := service.Rx(protocol.CharacteristicUUID, conn.rx); err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Connection) Receive() <-chan []byte {
	return c.inbox
}

// SetWriteInterval sets the minimum delay between characteristic writes. The controller silently
// drops frames written faster than it can apply them. Zero disables pacing.
func (c *Connection) SetWriteInterval(interval time.Duration) {
	if interval <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Every(interval))
}

func (c *Connection) Send(ctx context.Context, buffer []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.isClosed() {
		return protocol.ErrNotConnected
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug("TX: %02x", buffer)
	out := buffer
	for len(out) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		blockLength := min(c.blockLength, len(out))
		n, err := c.writer.Write(out[:blockLength])
		if err != nil {
			return fmt.Errorf("%w: %s", protocol.ErrWriteFailed, err)
		} else if n != blockLength {
			return fmt.Errorf("%w: wrote %d of %d bytes", protocol.ErrWriteFailed, n, blockLength)
		}

		out = out[blockLength:]
	}
	return nil
}

func (c *Connection) Address() string {
	return c.address
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if err := c.device.Close(); err != nil {
			log.Warning("ble: failed to close device: %s", err)
		}
		c.rxLock.Lock()
		c.closed = true
		if c.shortTimer != nil {
			c.shortTimer.Stop()
		}
		close(c.inbox)
		c.rxLock.Unlock()
	})
}

func (c *Connection) RetryInterval() time.Duration {
	return retryInterval
}

func (c *Connection) isClosed() bool {
	c.rxLock.Lock()
	defer c.rxLock.Unlock()
	return c.closed
}

// rx accumulates notification chunks. A status report may arrive split across several
// notifications; a chunk that arrives more than rxTimeout after the previous one starts a new
// payload. A buffer that holds a decodable header but not a full report is delivered once no
// further chunk arrives within shortPayloadDelay.
func (c *Connection) rx(p []byte) {
	c.rxLock.Lock()
	defer c.rxLock.Unlock()
	if c.closed {
		return
	}

	if time.Since(c.lastRx) > rxTimeout {
		c.inputBuffer = nil
	}
	c.lastRx = time.Now()
	c.inputBuffer = append(c.inputBuffer, p...)
	if len(c.inputBuffer) > maxNotificationSize {
		log.Warning("ble: discarding oversized notification (%d bytes)", len(c.inputBuffer))
		c.inputBuffer = nil
		return
	}
	c.flush()
	if len(c.inputBuffer) >= protocol.MinStatusLength {
		c.armShortPayload()
	}
}

func (c *Connection) armShortPayload() {
	if c.shortTimer != nil {
		c.shortTimer.Stop()
	}
	c.shortGen++
	gen := c.shortGen
	c.shortTimer = time.AfterFunc(shortPayloadDelay, func() {
		c.rxLock.Lock()
		defer c.rxLock.Unlock()
		// A later chunk re-armed the timer; that timer owns the buffer now.
		if c.closed || gen != c.shortGen || len(c.inputBuffer) < protocol.MinStatusLength {
			return
		}
		c.emit()
	})
}

func (c *Connection) flush() {
	if len(c.inputBuffer) < protocol.StatusLength {
		return
	}
	c.emit()
}

func (c *Connection) emit() {
	c.shortGen++
	buffer := c.inputBuffer
	c.inputBuffer = nil
	log.Debug("RX: %02x", buffer)
	select {
	case c.inbox <- buffer:
	default:
		log.Error("ble: dropping notification because inbox is full")
	}
}
