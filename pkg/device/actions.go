package device

import (
	"context"

	"github.com/sp105e/led-command/pkg/protocol"
)

func (c *Controller) PowerOn(ctx context.Context) error {
	return c.Execute(ctx, protocol.SetPower{On: true})
}

func (c *Controller) PowerOff(ctx context.Context) error {
	return c.Execute(ctx, protocol.SetPower{On: false})
}

// SetColor sets the static color. Each channel must be in 0..255.
func (c *Controller) SetColor(ctx context.Context, red, green, blue int) error {
	return c.Execute(ctx, protocol.SetColor{Red: red, Green: green, Blue: blue})
}

// SetBrightness sets the absolute brightness level (0..255).
func (c *Controller) SetBrightness(ctx context.Context, level int) error {
	return c.Execute(ctx, protocol.SetBrightness{Level: level})
}

// SetEffect selects an animation. protocol.EffectAuto cycles through all of them.
func (c *Controller) SetEffect(ctx context.Context, effect protocol.Effect) error {
	return c.Execute(ctx, protocol.SetEffect{Effect: effect})
}

// SetSpeed sets the animation speed (0..6).
func (c *Controller) SetSpeed(ctx context.Context, speed int) error {
	return c.Execute(ctx, protocol.SetSpeed{Speed: speed})
}

func (c *Controller) SetFixedColor(ctx context.Context, color protocol.FixedColor) error {
	return c.Execute(ctx, protocol.SetFixedColor{Color: color})
}

// SetPixelCount configures the number of LEDs on the strip (1..2048).
func (c *Controller) SetPixelCount(ctx context.Context, count int) error {
	return c.Execute(ctx, protocol.SetPixelCount{Count: count})
}

func (c *Controller) SetColorOrder(ctx context.Context, order protocol.ColorOrder) error {
	return c.Execute(ctx, protocol.SetColorOrder{Order: order})
}

func (c *Controller) SetPixelType(ctx context.Context, pixelType protocol.PixelType) error {
	return c.Execute(ctx, protocol.SetPixelType{Type: pixelType})
}
