package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidID is returned when a device ID is not a UUID.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidLockState is returned when persisting an unknown lock state value.
	ErrInvalidLockState = errors.New("device: invalid lock state")
)
