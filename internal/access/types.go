package access

import (
	"errors"
	"time"
)

// Standing is what an actor may do with a device.
type Standing int

const (
	// StandingNone means the actor may not see or command the device.
	StandingNone Standing = iota
	// StandingGrantee holds an accepted, unexpired grant.
	StandingGrantee
	// StandingOwner is the user the device's heartbeat names.
	StandingOwner
)

func (s Standing) String() string {
	switch s {
	case StandingOwner:
		return "owner"
	case StandingGrantee:
		return "grantee"
	default:
		return "none"
	}
}

// CanOperate reports whether the actor may probe, lock and unlock the device.
func (s Standing) CanOperate() bool {
	return s >= StandingGrantee
}

// CanManage reports whether the actor may configure, lock down or reboot
// the device and read its access log.
func (s Standing) CanManage() bool {
	return s == StandingOwner
}

// GrantStatus is the lifecycle state of a share.
type GrantStatus int

const (
	GrantPending  GrantStatus = 0
	GrantAccepted GrantStatus = 1
	GrantRejected GrantStatus = 2
)

// Grant shares one device with one receiver until Expiry.
type Grant struct {
	ID         int64       `json:"id"`
	DeviceID   string      `json:"device_id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Status     GrantStatus `json:"status"`
	Expiry     time.Time   `json:"expiry"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ActiveAt reports whether the grant confers standing at now.
func (g *Grant) ActiveAt(now time.Time) bool {
	return g.Status == GrantAccepted && g.Expiry.After(now)
}

// ErrInvalidGrant is returned when a grant is missing required fields.
var ErrInvalidGrant = errors.New("access: invalid grant")
