// Package capture records the traffic exchanged with a controller and plays it back.
//
// A capture file is a sequence of CBOR items: one Header followed by any number of Events.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/sp105e/led-command/pkg/protocol"
)

// Version is the capture format version written to new files.
const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported capture version")

type Direction uint8

const (
	DirectionTX Direction = iota + 1 // Frames written to the controller
	DirectionRX                      // Notifications received from the controller
)

func (d Direction) String() string {
	switch d {
	case DirectionTX:
		return "TX"
	case DirectionRX:
		return "RX"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

type Header struct {
	Version int       `cbor:"1,keyasint"`
	Session uuid.UUID `cbor:"2,keyasint"`
	Target  string    `cbor:"3,keyasint,omitempty"`
	Address string    `cbor:"4,keyasint,omitempty"`
	Start   time.Time `cbor:"5,keyasint"`
}

type Event struct {
	Offset    time.Duration `cbor:"1,keyasint"` // Time since Header.Start
	Direction Direction     `cbor:"2,keyasint"`
	Payload   []byte        `cbor:"3,keyasint"`
}

// Writer appends events to a capture stream. It is safe for concurrent use.
type Writer struct {
	lock   sync.Mutex
	header Header
	enc    *cbor.Encoder
}

// NewWriter writes a new Header to w and returns a Writer for the session's events.
func NewWriter(w io.Writer, target, address string) (*Writer, error) {
	header := Header{
		Version: Version,
		Session: uuid.New(),
		Target:  target,
		Address: address,
		Start:   time.Now().UTC(),
	}
	enc := newEncoder(w)
	if err := enc.Encode(&header); err != nil {
		return nil, fmt.Errorf("capture: failed to write header: %w", err)
	}
	return &Writer{header: header, enc: enc}, nil
}

// Session returns the identifier written into the capture header.
func (w *Writer) Session() uuid.UUID {
	return w.header.Session
}

// Record appends an event with the current time offset.
func (w *Writer) Record(direction Direction, payload []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	event := Event{
		Offset:    time.Since(w.header.Start),
		Direction: direction,
		Payload:   payload,
	}
	return w.enc.Encode(&event)
}

type Capture struct {
	Header Header
	Events []Event
}

// Read decodes a capture stream.
func Read(r io.Reader) (*Capture, error) {
	dec := newDecoder(r)
	var c Capture
	if err := dec.Decode(&c.Header); err != nil {
		return nil, fmt.Errorf("capture: failed to read header: %w", err)
	}
	if c.Header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Header.Version)
	}
	for {
		var event Event
		err := dec.Decode(&event)
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		if err != nil {
			return nil, fmt.Errorf("capture: failed to read event %d: %w", len(c.Events)+1, err)
		}
		c.Events = append(c.Events, event)
	}
}

// ReadFile decodes the capture stored at path.
func ReadFile(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Frames returns the payloads written to the controller, in order.
func (c *Capture) Frames() [][]byte {
	var frames [][]byte
	for _, e := range c.Events {
		if e.Direction == DirectionTX {
			frames = append(frames, e.Payload)
		}
	}
	return frames
}

// Executor sends intents to a controller. *device.Controller satisfies this interface.
type Executor interface {
	Execute(ctx context.Context, intent protocol.Intent) error
}

// Replay re-sends every TX event verbatim. If preserveTiming is true, Replay waits so that frames
// are spaced the way they were recorded. Returns the number of frames sent.
func (c *Capture) Replay(ctx context.Context, executor Executor, preserveTiming bool) (int, error) {
	start := time.Now()
	sent := 0
	for _, e := range c.Events {
		if e.Direction != DirectionTX {
			continue
		}
		if preserveTiming {
			if delay := e.Offset - time.Since(start); delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return sent, ctx.Err()
				}
			}
		}
		if err := executor.Execute(ctx, protocol.Raw{Bytes: e.Payload}); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
