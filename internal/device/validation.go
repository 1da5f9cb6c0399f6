package device

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateID checks that id is a canonical UUID, the form firmware uses
// in its MQTT topics.
func ValidateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	// uuid.Parse also accepts braces and urn: prefixes.
	if parsed.String() != id {
		return fmt.Errorf("%w: %q is not canonical", ErrInvalidID, id)
	}
	return nil
}

func validLockState(s LockState) bool {
	switch s {
	case LockStateUnknown, LockStateLocked, LockStateUnlocked:
		return true
	default:
		return false
	}
}
