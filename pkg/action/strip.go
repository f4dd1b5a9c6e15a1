package action

import "github.com/sp105e/led-command/pkg/protocol"

// PixelCount configures how many LEDs are attached.
func PixelCount(count int) protocol.SetPixelCount {
	return protocol.SetPixelCount{Count: count}
}

// ColorOrder configures the channel order expected by the LED chips.
func ColorOrder(order protocol.ColorOrder) protocol.SetColorOrder {
	return protocol.SetColorOrder{Order: order}
}

// PixelType configures the LED chip family.
func PixelType(pixelType protocol.PixelType) protocol.SetPixelType {
	return protocol.SetPixelType{Type: pixelType}
}
