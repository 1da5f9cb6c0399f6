package protocol

import "errors"

var (
	// ErrUnrecognisedPayload is returned when a status payload matches none of
	// the known shapes.
	ErrUnrecognisedPayload = errors.New("protocol: unrecognised payload")

	// ErrInvalidCommand is returned when a command cannot be encoded.
	ErrInvalidCommand = errors.New("protocol: invalid command")
)
