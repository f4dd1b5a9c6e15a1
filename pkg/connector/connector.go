//go:generate mockgen -source=connector.go -destination=../../mocks/connector.go -package=mocks

package connector

import (
	"context"
	"time"
)

// BufferSize is the number of inbound notifications that can be queued.
const BufferSize = 5

// Connector sends command frames to an LED controller and receives its notifications.
type Connector interface {
	// Receive returns a read-only channel used to receive notification payloads sent by the
	// controller, in arrival order. The channel is closed when the connection terminates.
	//
	// Implementations must be thread safe.
	Receive() <-chan []byte

	// Send writes a buffer to the controller's command characteristic.
	//
	// Depending on the error, the controller may have received and even acted on the frame. If the
	// returned error implements the protocol.Error interface, then the client may be able to
	// determine if this is the case by using the appropriate methods.
	//
	// Implementations must be thread safe.
	Send(ctx context.Context, buffer []byte) error

	// Address returns the Bluetooth address of the connected controller.
	Address() string

	// Close terminates the connection to the controller.
	//
	// Repeated calls to Close() must be idempotent, but the behavior of the interface is otherwise
	// undefined after calling this method.
	Close()

	// RetryInterval returns the recommended wait time between transmission attempts.
	RetryInterval() time.Duration
}
