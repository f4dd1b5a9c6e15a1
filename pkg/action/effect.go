package action

import "github.com/sp105e/led-command/pkg/protocol"

// Effect starts a preprogrammed animation. Use protocol.EffectAuto to cycle through all of them.
func Effect(effect protocol.Effect) protocol.SetEffect {
	return protocol.SetEffect{Effect: effect}
}

// Speed sets the animation speed.
func Speed(speed int) protocol.SetSpeed {
	return protocol.SetSpeed{Speed: speed}
}
