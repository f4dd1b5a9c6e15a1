// Package device controls an SP105E LED strip controller over an established connection.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sp105e/led-command/internal/dispatcher"
	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/connector"
	"github.com/sp105e/led-command/pkg/protocol"
)

// sender provides an interface that handles the frame transport layer.
type sender interface {
	// Start causes the sender to listen for notifications from the controller in a separate go
	// routine. Returns an error if ctx expires before the sender is ready.
	Start(ctx context.Context) error

	// Stop the goroutine launched by Start.
	Stop()

	// Send transmits frame to the controller, retrying temporary failures until ctx expires.
	Send(ctx context.Context, frame protocol.Frame) error

	// Listen subscribes to notifications. The caller must invoke Close on the result.
	Listen() protocol.Receiver

	// Returns the recommended retransmission interval for the Connector
	RetryInterval() time.Duration

	Address() string
}

// A Controller represents an SP105E LED controller.
type Controller struct {
	dispatcher sender
	conn       connector.Connector

	// Replies carry no correlation id, so only one request may await a reply at a time.
	exchange sync.Mutex
}

// New creates a Controller that communicates over conn.
func New(conn connector.Connector) *Controller {
	return &Controller{
		dispatcher: dispatcher.New(conn),
		conn:       conn,
	}
}

// Address returns the Bluetooth address of the controller.
func (c *Controller) Address() string {
	return c.dispatcher.Address()
}

// Connect starts processing notifications from the controller.
func (c *Controller) Connect(ctx context.Context) error {
	return c.dispatcher.Start(ctx)
}

// Disconnect closes the connection to c.
// Calling this method invokes the underlying [connector.Connector.Close] method. It is safe to defer
// both this method and the Connector's Close() method; however, Disconnect must be invoked first.
func (c *Controller) Disconnect() {
	c.dispatcher.Stop()
	if c.conn != nil {
		c.conn.Close()
	}
}

// Execute encodes intent and sends it to the controller. Invalid intents are rejected before
// anything is transmitted. The controller does not acknowledge commands, so a nil error only
// means that the frame was written.
func (c *Controller) Execute(ctx context.Context, intent protocol.Intent) error {
	frame, err := protocol.Encode(intent)
	if err != nil {
		return err
	}
	log.Debug("Executing %T as %s", intent, frame)
	return c.dispatcher.Send(ctx, frame)
}

// Status requests a status report and decodes the next notification that isn't a handshake
// acknowledgement.
func (c *Controller) Status(ctx context.Context) (protocol.Status, error) {
	c.exchange.Lock()
	defer c.exchange.Unlock()

	recv := c.dispatcher.Listen()
	defer recv.Close()

	if err := c.Execute(ctx, protocol.RequestStatus{}); err != nil {
		return protocol.Status{}, err
	}

	for {
		payload, err := c.awaitNotification(ctx, recv)
		if err != nil {
			return protocol.Status{}, err
		}
		if protocol.IsHelloAck(payload) {
			log.Debug("Skipping handshake acknowledgement while waiting for status")
			continue
		}
		return protocol.Decode(payload)
	}
}

// Hello performs the connection handshake. Returns protocol.ErrBadHandshake if the controller
// replies with anything other than the expected acknowledgement.
func (c *Controller) Hello(ctx context.Context) error {
	c.exchange.Lock()
	defer c.exchange.Unlock()

	recv := c.dispatcher.Listen()
	defer recv.Close()

	if err := c.Execute(ctx, protocol.Hello{}); err != nil {
		return err
	}

	payload, err := c.awaitNotification(ctx, recv)
	if err != nil {
		return err
	}
	if !protocol.IsHelloAck(payload) {
		return fmt.Errorf("%w: unexpected reply %02x", protocol.ErrBadHandshake, payload)
	}
	return nil
}

// Watch decodes every notification the controller sends and passes it to fn until ctx is done or
// the connection is lost. Handshake acknowledgements are skipped; malformed notifications are
// logged and skipped.
func (c *Controller) Watch(ctx context.Context, fn func(protocol.Status)) error {
	recv := c.dispatcher.Listen()
	defer recv.Close()

	for {
		select {
		case payload, ok := <-recv.Recv():
			if !ok {
				return protocol.ErrNotConnected
			}
			if protocol.IsHelloAck(payload) {
				continue
			}
			status, err := protocol.Decode(payload)
			if err != nil {
				log.Warning("Ignoring notification %02x: %s", payload, err)
				continue
			}
			fn(status)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) awaitNotification(ctx context.Context, recv protocol.Receiver) ([]byte, error) {
	select {
	case payload, ok := <-recv.Recv():
		if !ok {
			return nil, protocol.ErrNotConnected
		}
		return payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", protocol.ErrNoResponse, ctx.Err())
	}
}
