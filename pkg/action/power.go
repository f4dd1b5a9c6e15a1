// Package action builds the intents understood by the controller.
package action

import "github.com/sp105e/led-command/pkg/protocol"

// PowerOn turns the strip on.
func PowerOn() protocol.SetPower {
	return protocol.SetPower{On: true}
}

// PowerOff turns the strip off. The controller keeps its settings while off.
func PowerOff() protocol.SetPower {
	return protocol.SetPower{On: false}
}
