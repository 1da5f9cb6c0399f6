package control

import "errors"

// Sentinel errors. Callers map them to HTTP statuses with errors.Is.
var (
	// ErrTimeout means the device did not acknowledge within AckTimeout.
	// The command may still have been carried out.
	ErrTimeout = errors.New("control: device did not acknowledge in time")

	// ErrPublishFailed means the command never left the broker client.
	ErrPublishFailed = errors.New("control: publish failed")

	// ErrForbidden means the actor lacks standing for the operation.
	ErrForbidden = errors.New("control: forbidden")

	// ErrInvalidConfig means a configuration item failed validation.
	ErrInvalidConfig = errors.New("control: invalid configuration")

	// ErrInvalidCommand means the control command is not LOCK or UNLOCK.
	ErrInvalidCommand = errors.New("control: invalid command")

	// ErrLockedDown means the device is in lockdown and refuses LOCK and UNLOCK.
	ErrLockedDown = errors.New("control: device is locked down")
)
