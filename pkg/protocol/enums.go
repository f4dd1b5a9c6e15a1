package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Effect identifies one of the controller's preprogrammed animations.
type Effect uint8

const (
	// EffectAuto cycles through all animations.
	EffectAuto Effect = 0
	// MaxEffect is the highest animation id the controller accepts.
	MaxEffect Effect = 0xC8
)

// Valid reports whether e is an animation id the controller accepts.
func (e Effect) Valid() bool {
	return e <= MaxEffect
}

func (e Effect) String() string {
	if e == EffectAuto {
		return "auto"
	}
	return strconv.Itoa(int(e))
}

// ParseEffect accepts "auto" or a decimal animation id.
func ParseEffect(s string) (Effect, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return EffectAuto, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid effect '%s': %w", s, err)
	}
	if n < 0 || n > int(MaxEffect) {
		return 0, &OutOfRangeError{Field: "effect", Value: n, Allowed: effectRange}
	}
	return Effect(n), nil
}

// ColorOrder is the channel order the LED strip expects.
type ColorOrder uint8

const (
	ColorOrderRGB ColorOrder = iota
	ColorOrderRBG
	ColorOrderGRB
	ColorOrderGBR
	ColorOrderBRG
	ColorOrderBGR
	colorOrderCount
)

var colorOrderNames = [...]string{"RGB", "RBG", "GRB", "GBR", "BRG", "BGR"}

func (o ColorOrder) Valid() bool {
	return o < colorOrderCount
}

func (o ColorOrder) String() string {
	if o.Valid() {
		return colorOrderNames[o]
	}
	return fmt.Sprintf("ColorOrder(%d)", uint8(o))
}

// ParseColorOrder parses a case-insensitive channel order such as "grb".
func ParseColorOrder(s string) (ColorOrder, error) {
	for i, name := range colorOrderNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return ColorOrder(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color order '%s'", s)
}

// PixelType is the LED driver IC fitted to the strip.
type PixelType uint8

const (
	PixelSM16703 PixelType = iota
	PixelTM1804
	PixelUCS1903
	PixelWS2811
	PixelWS2801
	PixelSK6812
	PixelSK6812RGBW
	PixelLPD6803
	PixelLPD8806
	PixelAPA102
	PixelAPA105
	PixelTM1814
	PixelTM1914
	PixelTM1913
	PixelP9813
	PixelINK1003
	PixelDMX512
	PixelP943S
	PixelP9411
	PixelP9412
	PixelP9413
	PixelP9414
	PixelTX1812
	PixelTX1813
	PixelGS8206
	PixelGS8208
	PixelSK9822
	pixelTypeCount
)

var pixelTypeNames = [...]string{
	"SM16703", "TM1804", "UCS1903", "WS2811", "WS2801", "SK6812", "SK6812RGBW", "LPD6803",
	"LPD8806", "APA102", "APA105", "TM1814", "TM1914", "TM1913", "P9813", "INK1003", "DMX512",
	"P943S", "P9411", "P9412", "P9413", "P9414", "TX1812", "TX1813", "GS8206", "GS8208", "SK9822",
}

func (p PixelType) Valid() bool {
	return p < pixelTypeCount
}

func (p PixelType) String() string {
	if p.Valid() {
		return pixelTypeNames[p]
	}
	return fmt.Sprintf("PixelType(%d)", uint8(p))
}

// PixelTypeNames lists every supported IC name in wire order.
func PixelTypeNames() []string {
	return append([]string(nil), pixelTypeNames[:]...)
}

// ParsePixelType parses a case-insensitive IC name such as "ws2811".
func ParsePixelType(s string) (PixelType, error) {
	for i, name := range pixelTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return PixelType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pixel type '%s'", s)
}

// FixedColor selects one of the controller's built-in static color modes. These are distinct from
// a custom color set with SetColor.
type FixedColor uint8

const (
	FixedRed FixedColor = iota
	FixedGreen
	FixedBlue
	FixedWhite
	FixedAltWhite
	fixedColorCount
)

var fixedColors = [...]struct {
	name string
	op   Opcode
}{
	FixedRed:      {"red", OpFixedRed},
	FixedGreen:    {"green", OpFixedGreen},
	FixedBlue:     {"blue", OpFixedBlue},
	FixedWhite:    {"white", OpFixedWhite},
	FixedAltWhite: {"alt-white", OpFixedAltWhite},
}

func (c FixedColor) Valid() bool {
	return c < fixedColorCount
}

func (c FixedColor) String() string {
	if c.Valid() {
		return fixedColors[c].name
	}
	return fmt.Sprintf("FixedColor(%d)", uint8(c))
}

// ParseFixedColor parses a fixed color name ("red", "green", "blue", "white", "alt-white").
func ParseFixedColor(s string) (FixedColor, error) {
	for i, c := range fixedColors {
		if strings.EqualFold(c.name, strings.TrimSpace(s)) {
			return FixedColor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fixed color '%s'", s)
}

func (o ColorOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (p PixelType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
