package protocol

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// GATT identifiers exposed by the controller. The same characteristic accepts command writes and
// emits status notifications.
const (
	ServiceUUID        = "0000ffe0-0000-1000-8000-00805f9b34fb"
	CharacteristicUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

const (
	// FrameLength is the size of every well-known command frame.
	FrameLength = 5
	// FramePrefix is the first byte of every well-known command frame.
	FramePrefix byte = 0x38

	paramLength = 3
)

// Opcode is the trailing command byte of a frame.
type Opcode byte

const (
	OpSpeed         Opcode = 0x03 // Steps speed up when p1 is zero
	OpStatus        Opcode = 0x10
	OpFixedBlue     Opcode = 0x12
	OpFixedGreen    Opcode = 0x18
	OpPixelType     Opcode = 0x1C
	OpColor         Opcode = 0x1E
	OpBrightness    Opcode = 0x2A
	OpEffect        Opcode = 0x2C
	OpPixelCount    Opcode = 0x2D
	OpFixedRed      Opcode = 0x36
	OpFixedWhite    Opcode = 0x3B
	OpColorOrder    Opcode = 0x3C
	OpFixedAltWhite Opcode = 0x56
	OpPowerOn       Opcode = 0xAA // Toggles power on firmware without a separate off command
	OpPowerOff      Opcode = 0xAB // Unverified on SP105E hardware
	OpHello         Opcode = 0xD5
)

var opcodeNames = map[Opcode]string{
	OpSpeed:         "speed",
	OpStatus:        "status",
	OpFixedBlue:     "fixed-blue",
	OpFixedGreen:    "fixed-green",
	OpPixelType:     "pixel-type",
	OpColor:         "color",
	OpBrightness:    "brightness",
	OpEffect:        "effect",
	OpPixelCount:    "pixel-count",
	OpFixedRed:      "fixed-red",
	OpFixedWhite:    "fixed-white",
	OpColorOrder:    "color-order",
	OpFixedAltWhite: "fixed-alt-white",
	OpPowerOn:       "power-on",
	OpPowerOff:      "power-off",
	OpHello:         "hello",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(o))
}

// Frame is an immutable command ready to be written to the controller characteristic.
type Frame struct {
	b []byte
}

func newFrame(op Opcode, params [paramLength]byte) Frame {
	return Frame{b: []byte{FramePrefix, params[0], params[1], params[2], byte(op)}}
}

// Bytes returns a copy of the frame's wire representation.
func (f Frame) Bytes() []byte {
	return bytes.Clone(f.b)
}

func (f Frame) Len() int {
	return len(f.b)
}

// Equal reports whether f and other carry identical bytes.
func (f Frame) Equal(other Frame) bool {
	return bytes.Equal(f.b, other.b)
}

// Opcode returns the command byte of a well-known frame. The second return value is false for
// Raw frames that do not follow the prefix/opcode layout.
func (f Frame) Opcode() (Opcode, bool) {
	if len(f.b) != FrameLength || f.b[0] != FramePrefix {
		return 0, false
	}
	return Opcode(f.b[FrameLength-1]), true
}

func (f Frame) String() string {
	return hex.EncodeToString(f.b)
}
