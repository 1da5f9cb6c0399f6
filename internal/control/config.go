package control

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nerrad567/lockwise-core/internal/device"
)

// Configuration keys accepted by ApplyConfig.
const (
	KeyWiFiSSID             = "wifi_ssid"
	KeyWiFiPass             = "wifi_pass"
	KeyAudioTimeout         = "audio_timeout"
	KeyLockTimeout          = "lock_timeout"
	KeyPairingTimeout       = "pairing_timeout"
	KeyVoiceDetectionEnable = "voice_detection_enable"
	KeyVoiceInviteEnable    = "voice_invite_enable"
	KeyVoiceThreshold       = "voice_threshold"
)

// ConfigItem is one key/value pair to apply. Values are always strings on
// the wire.
type ConfigItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type intRange struct{ min, max int }

var intKeys = map[string]intRange{
	KeyAudioTimeout:         {3, 60},
	KeyLockTimeout:          {5000, 300000},
	KeyPairingTimeout:       {60, 600},
	KeyVoiceDetectionEnable: {0, 1},
	KeyVoiceInviteEnable:    {0, 1},
}

const (
	minVoiceThreshold = 0.20
	maxVoiceThreshold = 0.90
)

// IsBackendKey reports whether key is stored by the backend and never sent
// to the device.
func IsBackendKey(key string) bool {
	return key == KeyVoiceInviteEnable || key == KeyVoiceThreshold
}

// ValidateConfig checks every item. It returns the first failure wrapped
// in ErrInvalidConfig.
func ValidateConfig(items []ConfigItem) error {
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, item.Key, err)
		}
	}
	return nil
}

func validateItem(item ConfigItem) error {
	switch item.Key {
	case KeyWiFiSSID:
		if item.Value == "" {
			return errors.New("must not be empty")
		}
		return nil
	case KeyWiFiPass:
		// Empty keeps the current password.
		return nil
	case KeyVoiceThreshold:
		v, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			return errors.New("not a number")
		}
		// Written inclusively so NaN fails.
		if !(v >= minVoiceThreshold && v <= maxVoiceThreshold) {
			return fmt.Errorf("must be between %.2f and %.2f", minVoiceThreshold, maxVoiceThreshold)
		}
		return nil
	}

	r, ok := intKeys[item.Key]
	if !ok {
		return errors.New("unknown key")
	}
	v, err := strconv.Atoi(item.Value)
	if err != nil {
		return errors.New("not an integer")
	}
	if v < r.min || v > r.max {
		return fmt.Errorf("must be between %d and %d", r.min, r.max)
	}
	return nil
}

// applySettings folds validated backend-only items into s.
func applySettings(s device.Settings, items []ConfigItem) device.Settings {
	for _, item := range items {
		switch item.Key {
		case KeyVoiceInviteEnable:
			s.VoiceInviteEnable = item.Value == "1"
		case KeyVoiceThreshold:
			if v, err := strconv.ParseFloat(item.Value, 64); err == nil {
				s.VoiceThreshold = v
			}
		}
	}
	return s
}
