package action

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/sp105e/led-command/pkg/protocol"
)

const maxPercent = 100

// Color sets a static color.
func Color(red, green, blue int) protocol.SetColor {
	return protocol.SetColor{Red: red, Green: green, Blue: blue}
}

// ColorHex parses a color written as "#rrggbb" (the leading '#' is optional).
func ColorHex(code string) (protocol.SetColor, error) {
	code = strings.TrimPrefix(strings.TrimSpace(code), "#")
	if len(code) != 6 {
		return protocol.SetColor{}, fmt.Errorf("invalid color %q: expected six hex digits", code)
	}
	rgb, err := hex.DecodeString(code)
	if err != nil {
		return protocol.SetColor{}, fmt.Errorf("invalid color %q: %w", code, err)
	}
	return Color(int(rgb[0]), int(rgb[1]), int(rgb[2])), nil
}

// FixedColor selects one of the controller's preset colors.
func FixedColor(color protocol.FixedColor) protocol.SetFixedColor {
	return protocol.SetFixedColor{Color: color}
}

// Brightness sets the absolute brightness level (0..255).
func Brightness(level int) protocol.SetBrightness {
	return protocol.SetBrightness{Level: level}
}

// BrightnessPercent converts a percentage to a brightness level, rounding to the nearest step.
func BrightnessPercent(percent int) (protocol.SetBrightness, error) {
	if percent < 0 || percent > maxPercent {
		return protocol.SetBrightness{}, &protocol.OutOfRangeError{
			Field:   "percent",
			Value:   percent,
			Allowed: protocol.Range{Min: 0, Max: maxPercent},
		}
	}
	level := int(math.Round(float64(percent) * math.MaxUint8 / maxPercent))
	return Brightness(level), nil
}
