package protocol

// A Receiver provides a channel for receiving notification payloads from the controller.
//
// The controller does not correlate notifications with requests, so every open Receiver observes
// every notification that arrives while it is open.
type Receiver interface {
	Recv() <-chan []byte
	Close()
}
