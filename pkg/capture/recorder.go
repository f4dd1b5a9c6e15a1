package capture

import (
	"bytes"
	"context"
	"time"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/connector"
)

// Recorder is a connector.Connector that logs all traffic of another Connector to a Writer.
type Recorder struct {
	conn   connector.Connector
	writer *Writer
	inbox  chan []byte
	done   chan struct{}
}

var _ connector.Connector = (*Recorder)(nil)

// NewRecorder starts forwarding conn's notifications through the returned Recorder.
func NewRecorder(conn connector.Connector, writer *Writer) *Recorder {
	r := &Recorder{
		conn:   conn,
		writer: writer,
		inbox:  make(chan []byte, connector.BufferSize),
		done:   make(chan struct{}),
	}
	go r.forward()
	return r
}

func (r *Recorder) forward() {
	defer close(r.done)
	defer close(r.inbox)
	for payload := range r.conn.Receive() {
		if err := r.writer.Record(DirectionRX, bytes.Clone(payload)); err != nil {
			log.Warning("capture: failed to record notification: %s", err)
		}
		select {
		case r.inbox <- payload:
		default:
			log.Error("capture: dropping notification because inbox is full")
		}
	}
}

func (r *Recorder) Receive() <-chan []byte {
	return r.inbox
}

func (r *Recorder) Send(ctx context.Context, buffer []byte) error {
	if err := r.conn.Send(ctx, buffer); err != nil {
		return err
	}
	if err := r.writer.Record(DirectionTX, bytes.Clone(buffer)); err != nil {
		log.Warning("capture: failed to record frame: %s", err)
	}
	return nil
}

func (r *Recorder) Address() string {
	return r.conn.Address()
}

// Close closes the underlying Connector and waits until all pending notifications are recorded.
func (r *Recorder) Close() {
	r.conn.Close()
	<-r.done
}

func (r *Recorder) RetryInterval() time.Duration {
	return r.conn.RetryInterval()
}
