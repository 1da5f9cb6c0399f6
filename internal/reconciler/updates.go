package reconciler

import (
	"time"

	"github.com/nerrad567/lockwise-core/internal/accesslog"
	"github.com/nerrad567/lockwise-core/internal/device"
)

// Live update types pushed to connected clients.
const (
	TypeDeviceOnline = "device_online"
	TypeDeviceUpdate = "device_update"
	TypeLogUpdate    = "log_update"
)

// Update is a live notification. Implementations marshal to JSON with a
// "type" field.
type Update interface {
	UpdateType() string
}

// DeviceUpdate reports presence, lock state and lockdown. Times are Unix
// milliseconds; LockedDownAt is null when the device is not locked down.
type DeviceUpdate struct {
	Type         string           `json:"type"`
	DeviceID     string           `json:"device_id"`
	LastHeard    *int64           `json:"last_heard,omitempty"`
	LockState    device.LockState `json:"lock_state"`
	LockedDownAt *int64           `json:"locked_down_at"`
}

// UpdateType implements Update.
func (u DeviceUpdate) UpdateType() string { return u.Type }

// LogUpdate carries a new access log entry to the device owner.
type LogUpdate struct {
	Type      string              `json:"type"`
	DeviceID  string              `json:"device_id"`
	Timestamp int64               `json:"timestamp"`
	EventType accesslog.EventType `json:"event_type"`
	Reason    string              `json:"reason"`
	UserID    *string             `json:"user_id"`
}

// UpdateType implements Update.
func (u LogUpdate) UpdateType() string { return u.Type }

func newDeviceUpdate(typ string, d *device.Device, withLastHeard bool) DeviceUpdate {
	u := DeviceUpdate{
		Type:      typ,
		DeviceID:  d.ID,
		LockState: d.LockState,
	}
	if withLastHeard {
		ms := d.LastHeard.UnixMilli()
		u.LastHeard = &ms
	}
	if d.LockedDownAt != nil {
		ms := d.LockedDownAt.UnixMilli()
		u.LockedDownAt = &ms
	}
	return u
}

func newLogUpdate(e *accesslog.Entry) LogUpdate {
	return LogUpdate{
		Type:      TypeLogUpdate,
		DeviceID:  e.DeviceID,
		Timestamp: e.Timestamp.UnixMilli(),
		EventType: e.EventType,
		Reason:    e.Reason,
		UserID:    e.UserID,
	}
}

// LockdownDebounce is how long a device must have been locked down before
// a heartbeat may clear it.
const LockdownDebounce = 10 * time.Second

// ShouldClearLockdown reports whether a heartbeat processed at now ends
// the lockdown that began at lockedDownAt.
func ShouldClearLockdown(lockedDownAt *time.Time, now time.Time) bool {
	return lockedDownAt != nil && now.Sub(*lockedDownAt) >= LockdownDebounce
}
