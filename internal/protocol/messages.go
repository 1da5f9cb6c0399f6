package protocol

import "time"

// Kind identifies which shape a status payload matched.
type Kind int

const (
	KindHeartbeat Kind = iota + 1
	KindEvent
	KindLockReport
)

func (k Kind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindEvent:
		return "event"
	case KindLockReport:
		return "lock_report"
	default:
		return "unknown"
	}
}

// HeartbeatMarker is the value of the heartbeat field on a genuine heartbeat.
const HeartbeatMarker = "HEARTBEAT"

// Event names sent by the firmware.
const (
	EventPong          = "PONG"
	EventConfigUpdated = "CONFIG_UPDATED"
	EventLockingDown   = "LOCKING_DOWN"
	EventPowerOn       = "POWER_ON"
	EventConnected     = "CONNECTED"
	EventRestarting    = "RESTARTING"
)

// LockedValue is the lock field value of a report that moved the bolt to locked.
// Any other value is treated as unlocked.
const LockedValue = "LOCKED"

// Heartbeat is the periodic full-state message.
type Heartbeat struct {
	Marker    string
	UptimeMs  uint64
	Timestamp uint64

	WiFiSSID                 string
	BackendURL               string
	MQTTBrokerURL            string
	MQTTHeartbeatEnable      bool
	MQTTHeartbeatIntervalSec int32
	AudioRecordTimeoutSec    int32
	LockTimeoutMs            int32
	PairingTimeoutSec        int32
	UserID                   string
	VoiceDetectionEnable     bool
	VADRMSThreshold          int32

	// LockState is nil when the firmware does not know the bolt position.
	LockState *string
}

// IsGenuine reports whether the marker field carries the heartbeat marker.
func (h *Heartbeat) IsGenuine() bool {
	return h.Marker == HeartbeatMarker
}

// Event is a one-off occurrence such as a probe or config acknowledgment.
type Event struct {
	Name      string
	UptimeMs  uint64
	Timestamp uint64
}

// Time returns the device timestamp as a wall-clock time.
func (e *Event) Time() time.Time {
	return secondsToTime(e.Timestamp)
}

// LockReport announces a physical lock transition.
type LockReport struct {
	Lock      string
	Reason    string
	UptimeMs  uint64
	Timestamp uint64
}

// Locked reports whether the transition ended in the locked position.
func (r *LockReport) Locked() bool {
	return r.Lock == LockedValue
}

// Time returns the device timestamp as a wall-clock time.
func (r *LockReport) Time() time.Time {
	return secondsToTime(r.Timestamp)
}

// Message is the result of classifying one status payload. Exactly one of
// Heartbeat, Event and LockReport is set, matching Kind.
type Message struct {
	Kind       Kind
	Heartbeat  *Heartbeat
	Event      *Event
	LockReport *LockReport
}

// Device clocks report whole seconds since the Unix epoch.
func secondsToTime(s uint64) time.Time {
	return time.Unix(int64(s), 0).UTC() //nolint:gosec // Seconds since epoch fit in int64
}
