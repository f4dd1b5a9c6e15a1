// Package dispatcher moves frames between a controller connection and the goroutines waiting on
// its notifications.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/connector"
	"github.com/sp105e/led-command/pkg/protocol"
)

// Dispatcher objects send frames to a controller and copy incoming notifications to every open
// receiver. Notifications carry no request identifier, so routing is by subscription only.
type Dispatcher struct {
	conn connector.Connector

	doneLock  sync.Mutex
	terminate chan struct{}
	done      chan bool

	handlerLock  sync.Mutex
	handlers     map[*receiver]struct{}
	disconnected bool
}

// New creates a Dispatcher from a Connector.
func New(conn connector.Connector) *Dispatcher {
	return &Dispatcher{
		conn:     conn,
		handlers: make(map[*receiver]struct{}),
		done:     make(chan bool, 1),
	}
}

// RetryInterval fetches the transport-layer dependent recommended delay between retry attempts.
func (d *Dispatcher) RetryInterval() time.Duration {
	return d.conn.RetryInterval()
}

// Address returns the Bluetooth address of the controller.
func (d *Dispatcher) Address() string {
	return d.conn.Address()
}

// Listen returns a receiver that gets a copy of every notification that arrives until it is
// closed. Register the receiver before sending the frame that triggers the notification.
func (d *Dispatcher) Listen() protocol.Receiver {
	d.handlerLock.Lock()
	defer d.handlerLock.Unlock()

	recv := &receiver{
		ch:         make(chan []byte, receiverBufferSize),
		dispatcher: d,
	}
	if d.disconnected {
		close(recv.ch)
		return recv
	}
	d.handlers[recv] = struct{}{}
	return recv
}

func (d *Dispatcher) closeHandler(recv *receiver) {
	d.handlerLock.Lock()
	delete(d.handlers, recv)
	d.handlerLock.Unlock()
}

// disconnect closes every receiver channel so that waiting goroutines observe the lost link.
func (d *Dispatcher) disconnect() {
	d.handlerLock.Lock()
	defer d.handlerLock.Unlock()
	d.disconnected = true
	for recv := range d.handlers {
		close(recv.ch)
		delete(d.handlers, recv)
	}
}

func (d *Dispatcher) process(payload []byte) {
	d.handlerLock.Lock()
	defer d.handlerLock.Unlock()
	if len(d.handlers) == 0 {
		log.Debug("Dropping notification without registered receiver: %02x", payload)
		return
	}
	for recv := range d.handlers {
		select {
		case recv.ch <- append([]byte{}, payload...):
		default:
			log.Error("Dropping notification because receiver queue is full")
		}
	}
}

// Start runs d's Listen method in a new goroutine. Returns an error if d does
// not signal it's ready before ctx expires.
func (d *Dispatcher) Start(ctx context.Context) error {
	ready := make(chan struct{})
	go d.listen(ready)
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen for incoming notifications and copy them to registered receivers.
func (d *Dispatcher) listen(ready chan<- struct{}) {
	log.Info("Starting dispatcher service...")
	d.doneLock.Lock()
	if d.terminate == nil {
		d.terminate = make(chan struct{})
	} else {
		d.doneLock.Unlock()
		close(ready)
		return
	}
	terminate := d.terminate
	d.doneLock.Unlock()
	listening := make(chan struct{}, 1)
	listening <- struct{}{}
	defer func() {
		d.done <- true
	}()
	for {
		select {
		case payload, open := <-d.conn.Receive():
			if !open {
				log.Info("Connection to %s closed", d.conn.Address())
				d.disconnect()
				return
			}
			d.process(payload)
		case <-terminate:
			return
		case <-listening:
			close(ready)
		}
	}
}

// Stop signals any goroutine running Listen to exit.
func (d *Dispatcher) Stop() {
	d.doneLock.Lock()
	defer d.doneLock.Unlock()
	if d.terminate != nil {
		close(d.terminate)
		d.terminate = nil
		<-d.done
	}
}

// Send a frame to the controller. Transmission errors that protocol.ShouldRetry classifies as
// temporary are retried after the connector's RetryInterval until ctx expires.
func (d *Dispatcher) Send(ctx context.Context, frame protocol.Frame) error {
	d.doneLock.Lock()
	listening := d.terminate != nil
	d.doneLock.Unlock()
	if !listening {
		return protocol.ErrNotConnected
	}

	encoded := frame.Bytes()
	for {
		err := d.conn.Send(ctx, encoded)
		if err == nil {
			return nil
		}
		if !protocol.ShouldRetry(err) {
			log.Warning("[%s] Terminal transmission error: %s", frame, err)
			return err
		}
		log.Debug("[%s] Retrying transmission after error: %s", frame, err)
		select {
		case <-ctx.Done():
			return &protocol.CommandError{Err: ctx.Err(), PossibleSuccess: protocol.MayHaveSucceeded(err), PossibleTemporary: true}
		case <-time.After(d.conn.RetryInterval()):
			continue
		}
	}
}
