package dispatcher

var receiverBufferSize = 10

// receiver is a subscription to a controller's notifications.
type receiver struct {
	ch         chan []byte
	dispatcher *Dispatcher
}

// Recv returns a channel that receives notifications. The channel is closed if the connection to
// the controller is lost.
func (r *receiver) Recv() <-chan []byte {
	return r.ch
}

// Close tells the dispatcher to stop delivering notifications to this receiver.
func (r *receiver) Close() {
	if r.dispatcher != nil {
		r.dispatcher.closeHandler(r)
	}
}
