package goble

import (
	"context"
	"errors"
	"fmt"

	goble "github.com/go-ble/ble"

	"github.com/sp105e/led-command/pkg/connector/ble"
)

type device struct {
	client goble.Client
}

func (c *device) Service(_ context.Context, uuid string) (ble.Service, error) {
	id := goble.MustParse(uuid)
	services, err := c.client.DiscoverServices([]goble.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("ble: failed to enumerate device services: %s", err)
	}
	for _, s := range services {
		if s.UUID.Equal(id) {
			return &service{client: c.client, service: s}, nil
		}
	}
	return nil, fmt.Errorf("ble: controller does not expose service %s", uuid)
}

func (c *device) Close() error {
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil

	err1 := client.ClearSubscriptions()
	err2 := client.CancelConnection()

	return errors.Join(err1, err2)
}
