package protocol

import (
	"bytes"
	"fmt"
)

const (
	MinSpeed      = 0
	MaxSpeed      = 6
	MinPixelCount = 1
	MaxPixelCount = 2048
)

var (
	channelRange    = Range{Min: 0, Max: 0xFF}
	brightnessRange = Range{Min: 0, Max: 0xFF}
	speedRange      = Range{Min: MinSpeed, Max: MaxSpeed}
	effectRange     = Range{Min: int(EffectAuto), Max: int(MaxEffect)}
	pixelCountRange = Range{Min: MinPixelCount, Max: MaxPixelCount}
	colorOrderRange = Range{Min: 0, Max: int(colorOrderCount) - 1}
	pixelTypeRange  = Range{Min: 0, Max: int(pixelTypeCount) - 1}
	fixedColorRange = Range{Min: 0, Max: int(fixedColorCount) - 1}
)

func check(field string, value int, allowed Range) error {
	if !allowed.Contains(value) {
		return &OutOfRangeError{Field: field, Value: value, Allowed: allowed}
	}
	return nil
}

// Encode maps an Intent to the Frame the controller expects. Parameters are validated before
// encoding; out-of-range values produce an *OutOfRangeError rather than being clamped.
//
// Encode is deterministic and has no side effects: the same Intent always produces a
// byte-identical Frame.
func Encode(i Intent) (Frame, error) {
	var params [paramLength]byte
	switch v := i.(type) {
	case SetPower:
		if v.On {
			return newFrame(OpPowerOn, params), nil
		}
		return newFrame(OpPowerOff, params), nil
	case SetColor:
		for _, c := range []struct {
			field string
			value int
		}{{"red", v.Red}, {"green", v.Green}, {"blue", v.Blue}} {
			if err := check(c.field, c.value, channelRange); err != nil {
				return Frame{}, err
			}
		}
		params = [paramLength]byte{byte(v.Red), byte(v.Green), byte(v.Blue)}
		return newFrame(OpColor, params), nil
	case SetBrightness:
		if err := check("level", v.Level, brightnessRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Level)
		return newFrame(OpBrightness, params), nil
	case SetEffect:
		if err := check("effect", int(v.Effect), effectRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Effect)
		return newFrame(OpEffect, params), nil
	case SetSpeed:
		if err := check("speed", v.Speed, speedRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Speed)
		return newFrame(OpSpeed, params), nil
	case RequestStatus:
		return newFrame(OpStatus, params), nil
	case Hello:
		return newFrame(OpHello, params), nil
	case SetFixedColor:
		if err := check("color", int(v.Color), fixedColorRange); err != nil {
			return Frame{}, err
		}
		return newFrame(fixedColors[v.Color].op, params), nil
	case SetPixelCount:
		if err := check("count", v.Count, pixelCountRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Count >> 8)
		params[1] = byte(v.Count)
		return newFrame(OpPixelCount, params), nil
	case SetColorOrder:
		if err := check("order", int(v.Order), colorOrderRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Order)
		return newFrame(OpColorOrder, params), nil
	case SetPixelType:
		if err := check("type", int(v.Type), pixelTypeRange); err != nil {
			return Frame{}, err
		}
		params[0] = byte(v.Type)
		return newFrame(OpPixelType, params), nil
	case Raw:
		return Frame{b: bytes.Clone(v.Bytes)}, nil
	case nil:
		return Frame{}, fmt.Errorf("%w: nil", ErrUnsupportedIntent)
	default:
		return Frame{}, fmt.Errorf("%w: %T", ErrUnsupportedIntent, i)
	}
}

// MustEncode is like Encode but panics on error. It is intended for package-level frames built
// from constant intents.
func MustEncode(i Intent) Frame {
	f, err := Encode(i)
	if err != nil {
		panic(err)
	}
	return f
}
