package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// MinStatusLength is the size of the fixed status header. Shorter payloads cannot be decoded.
	MinStatusLength = 6
	// StatusLength is the payload size reported by known firmware.
	StatusLength = 8
)

// Status field offsets.
const (
	offsetPower = iota
	offsetMode
	offsetSpeed
	offsetBrightness
	offsetPixelType
	offsetColorOrder
)

var helloAck = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0xBF}

// Field holds a value reported by the controller, or nothing if the value could not be recovered
// from the notification. The zero Field is Unknown.
type Field[T any] struct {
	value T
	known bool
}

// Known returns a Field holding v.
func Known[T any](v T) Field[T] {
	return Field[T]{value: v, known: true}
}

// Unknown returns an empty Field.
func Unknown[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it is known.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.known
}

func (f Field[T]) IsKnown() bool {
	return f.known
}

func (f Field[T]) String() string {
	if !f.known {
		return "unknown"
	}
	return fmt.Sprint(f.value)
}

// MarshalJSON encodes an unknown Field as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.known {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// RGB is a custom color.
type RGB struct {
	Red, Green, Blue uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// Status is a snapshot of the state reported in a single notification. Fields the notification
// did not carry, or carried with a value this package does not recognize, are Unknown.
//
// The notification format was reverse-engineered and does not mirror every settable parameter:
// Color and PixelCount are never reported and are always Unknown.
type Status struct {
	Power      Field[bool]       `json:"power"`
	Mode       Field[Effect]     `json:"mode"`
	Speed      Field[int]        `json:"speed"`
	Brightness Field[int]        `json:"brightness"`
	PixelType  Field[PixelType]  `json:"pixel_type"`
	ColorOrder Field[ColorOrder] `json:"color_order"`
	Color      Field[RGB]        `json:"color"`
	PixelCount Field[int]        `json:"pixel_count"`

	// Raw discriminator bytes, kept so callers can report values newer firmware introduced.
	RawPower      byte `json:"-"`
	RawMode       byte `json:"-"`
	RawSpeed      byte `json:"-"`
	RawPixelType  byte `json:"-"`
	RawColorOrder byte `json:"-"`

	// Unparsed holds every byte after the fixed header, verbatim.
	Unparsed []byte `json:"unparsed,omitempty"`
}

// Decode interprets a status notification. The payload is untrusted: Decode fails with a
// *MalformedError only if the payload is shorter than MinStatusLength. Otherwise each field is
// decoded independently, and a field whose byte is not recognized is reported as Unknown without
// affecting the others.
func Decode(raw []byte) (Status, error) {
	if len(raw) < MinStatusLength {
		return Status{}, &MalformedError{
			Reason: fmt.Sprintf("payload has %d bytes, status header requires %d", len(raw), MinStatusLength),
		}
	}

	s := Status{
		RawPower:      raw[offsetPower],
		RawMode:       raw[offsetMode],
		RawSpeed:      raw[offsetSpeed],
		RawPixelType:  raw[offsetPixelType],
		RawColorOrder: raw[offsetColorOrder],
		Brightness:    Known(int(raw[offsetBrightness])),
	}

	switch raw[offsetPower] {
	case 0x00:
		s.Power = Known(false)
	case 0x01:
		s.Power = Known(true)
	}
	if mode := Effect(raw[offsetMode]); mode.Valid() {
		s.Mode = Known(mode)
	}
	if speed := int(raw[offsetSpeed]); speedRange.Contains(speed) {
		s.Speed = Known(speed)
	}
	if pt := PixelType(raw[offsetPixelType]); pt.Valid() {
		s.PixelType = Known(pt)
	}
	if co := ColorOrder(raw[offsetColorOrder]); co.Valid() {
		s.ColorOrder = Known(co)
	}
	if len(raw) > MinStatusLength {
		s.Unparsed = bytes.Clone(raw[MinStatusLength:])
	}
	return s, nil
}

// IsHelloAck reports whether raw is the controller's reply to Hello.
func IsHelloAck(raw []byte) bool {
	return bytes.Equal(raw, helloAck)
}

func (s Status) String() string {
	return fmt.Sprintf("power=%s mode=%s speed=%s brightness=%s pixel_type=%s color_order=%s",
		s.Power, s.Mode, s.Speed, s.Brightness, s.PixelType, s.ColorOrder)
}
