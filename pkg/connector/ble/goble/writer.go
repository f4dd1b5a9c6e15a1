package goble

import goble "github.com/go-ble/ble"

type writer struct {
	characteristic *goble.Characteristic
	client         goble.Client
	noResponse     bool
}

func (w *writer) Write(bytes []byte) (int, error) {
	err := w.client.WriteCharacteristic(w.characteristic, bytes, w.noResponse)
	if err != nil {
		return 0, err
	}

	return len(bytes), nil
}

func (w *writer) MTU(rxMTU int) (txMTU int, err error) {
	return w.client.ExchangeMTU(rxMTU)
}
