package protocol

// Intent is a request to change or query controller state, prior to binary encoding.
//
// The set of intents is closed: only the types declared in this package implement it. Commands the
// package does not model can still be sent using Raw.
type Intent interface {
	intent()
}

// SetPower switches the LED output on or off.
type SetPower struct {
	On bool
}

// SetColor sets a custom static color. The controller applies its configured ColorOrder when
// driving the strip.
type SetColor struct {
	Red, Green, Blue int
}

// SetBrightness sets the absolute output brightness.
type SetBrightness struct {
	Level int
}

// SetEffect starts a preprogrammed animation.
type SetEffect struct {
	Effect Effect
}

// SetSpeed sets the animation speed.
type SetSpeed struct {
	Speed int
}

// RequestStatus asks the controller to emit a status notification.
type RequestStatus struct{}

// Hello asks the controller to acknowledge the connection.
type Hello struct{}

// SetFixedColor selects a built-in static color mode.
type SetFixedColor struct {
	Color FixedColor
}

// SetPixelCount configures the number of LEDs on the strip.
type SetPixelCount struct {
	Count int
}

// SetColorOrder configures the channel order of the strip.
type SetColorOrder struct {
	Order ColorOrder
}

// SetPixelType configures the LED driver IC.
type SetPixelType struct {
	Type PixelType
}

// Raw is sent verbatim, without validation. It exists for opcodes this package does not model.
type Raw struct {
	Bytes []byte
}

func (SetPower) intent()      {}
func (SetColor) intent()      {}
func (SetBrightness) intent() {}
func (SetEffect) intent()     {}
func (SetSpeed) intent()      {}
func (RequestStatus) intent() {}
func (Hello) intent()         {}
func (SetFixedColor) intent() {}
func (SetPixelCount) intent() {}
func (SetColorOrder) intent() {}
func (SetPixelType) intent()  {}
func (Raw) intent()           {}
