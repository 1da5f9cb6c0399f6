package device

import "time"

// LockState is the last bolt position a device reported.
type LockState string

const (
	LockStateUnknown  LockState = "UNKNOWN"
	LockStateLocked   LockState = "LOCKED"
	LockStateUnlocked LockState = "UNLOCKED"
)

// ParseLockState maps a firmware-reported value to a LockState.
// A nil or unrecognised value is UNKNOWN.
func ParseLockState(s *string) LockState {
	if s == nil {
		return LockStateUnknown
	}
	switch LockState(*s) {
	case LockStateLocked:
		return LockStateLocked
	case LockStateUnlocked:
		return LockStateUnlocked
	default:
		return LockStateUnknown
	}
}

// Config mirrors the configuration the device reports in its heartbeat.
// It is stored as JSON in the devices.config column.
type Config struct {
	WiFiSSID                 string `json:"wifi_ssid"`
	BackendURL               string `json:"backend_url"`
	MQTTBrokerURL            string `json:"mqtt_broker_url"`
	MQTTHeartbeatEnable      bool   `json:"mqtt_heartbeat_enable"`
	MQTTHeartbeatIntervalSec int32  `json:"mqtt_heartbeat_interval_sec"`
	AudioRecordTimeoutSec    int32  `json:"audio_record_timeout_sec"`
	LockTimeoutMs            int32  `json:"lock_timeout_ms"`
	PairingTimeoutSec        int32  `json:"pairing_timeout_sec"`
	VoiceDetectionEnable     bool   `json:"voice_detection_enable"`
	VADRMSThreshold          int32  `json:"vad_rms_threshold"`
}

// Settings are backend-only options that never reach the firmware.
type Settings struct {
	VoiceInviteEnable bool    `json:"voice_invite_enable"`
	VoiceThreshold    float64 `json:"voice_threshold"`
}

// Default backend-only settings for a device seen for the first time.
const (
	DefaultVoiceInviteEnable = true
	DefaultVoiceThreshold    = 0.60
)

// Device is the last known state of one lock.
//
// Lock state and lockdown are independent: a device may be LOCKED and not
// locked down, or locked down with a stale lock state.
type Device struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	LastHeard time.Time `json:"last_heard"`
	UptimeMs  uint64    `json:"uptime_ms"`
	Config    Config    `json:"config"`

	LockState LockState `json:"lock_state"`

	// LockedDownAt is the device-clock time the device entered lockdown.
	// Nil when the device is not locked down.
	LockedDownAt *time.Time `json:"locked_down_at,omitempty"`

	Settings Settings `json:"settings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LockedDown reports whether the device is in lockdown.
func (d *Device) LockedDown() bool {
	return d.LockedDownAt != nil
}

// DeepCopy creates a complete independent copy of the Device.
// The cache hands out copies so callers never alias cached state.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.LockedDownAt != nil {
		t := *d.LockedDownAt
		cpy.LockedDownAt = &t
	}
	return &cpy
}

// HeartbeatUpdate is everything a heartbeat writes to a device row.
type HeartbeatUpdate struct {
	ID        string
	OwnerID   string
	Heard     time.Time
	UptimeMs  uint64
	Config    Config
	LockState LockState

	// ClearLockdown removes the lockdown timestamp in the same write.
	ClearLockdown bool
}

// Stats summarises the cached devices.
type Stats struct {
	Total      int `json:"total"`
	Locked     int `json:"locked"`
	Unlocked   int `json:"unlocked"`
	Unknown    int `json:"unknown"`
	LockedDown int `json:"locked_down"`
}
