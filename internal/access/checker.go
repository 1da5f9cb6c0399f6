package access

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/lockwise-core/internal/device"
)

// DeviceLookup finds a device by ID. *device.Registry satisfies it.
type DeviceLookup interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// Checker answers who may act on a device and who should hear about it.
type Checker struct {
	devices DeviceLookup
	grants  GrantRepository
	now     func() time.Time
}

// NewChecker creates a Checker over the device registry and grant store.
func NewChecker(devices DeviceLookup, grants GrantRepository) *Checker {
	return &Checker{devices: devices, grants: grants, now: time.Now}
}

// Standing resolves actorID's relationship to deviceID.
// Returns device.ErrDeviceNotFound if the device has never been heard.
func (c *Checker) Standing(ctx context.Context, actorID, deviceID string) (Standing, error) {
	d, err := c.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return StandingNone, err
	}
	if actorID == "" {
		return StandingNone, nil
	}
	if d.OwnerID == actorID {
		return StandingOwner, nil
	}

	ok, err := c.grants.HasActiveGrant(ctx, deviceID, actorID, c.now())
	if err != nil {
		return StandingNone, fmt.Errorf("resolving standing: %w", err)
	}
	if ok {
		return StandingGrantee, nil
	}
	return StandingNone, nil
}

// Recipients returns the actors entitled to live updates for deviceID:
// the owner followed by every active grantee.
func (c *Checker) Recipients(ctx context.Context, deviceID string) ([]string, error) {
	d, err := c.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	receivers, err := c.grants.ActiveReceivers(ctx, deviceID, c.now())
	if err != nil {
		return nil, fmt.Errorf("resolving recipients: %w", err)
	}

	recipients := make([]string, 0, len(receivers)+1)
	if d.OwnerID != "" {
		recipients = append(recipients, d.OwnerID)
	}
	for _, r := range receivers {
		if r != d.OwnerID {
			recipients = append(recipients, r)
		}
	}
	return recipients, nil
}

// Owner returns the owner of deviceID, or "" if the heartbeat named nobody.
func (c *Checker) Owner(ctx context.Context, deviceID string) (string, error) {
	d, err := c.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return "", err
	}
	return d.OwnerID, nil
}

// SharedDeviceIDs returns the devices actorID can reach through grants.
func (c *Checker) SharedDeviceIDs(ctx context.Context, actorID string) ([]string, error) {
	ids, err := c.grants.ActiveDeviceIDs(ctx, actorID, c.now())
	if err != nil {
		return nil, fmt.Errorf("listing shared devices: %w", err)
	}
	return ids, nil
}
