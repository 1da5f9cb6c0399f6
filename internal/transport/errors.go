package transport

import "errors"

var (
	// ErrPublishFailed is returned when a command could not be handed to the broker.
	ErrPublishFailed = errors.New("transport: publish failed")

	// ErrQueueFull is returned to the MQTT client when an inbound payload is dropped.
	ErrQueueFull = errors.New("transport: inbound queue full")
)
