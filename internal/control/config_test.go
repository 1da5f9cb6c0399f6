package control

import (
	"errors"
	"testing"

	"github.com/nerrad567/lockwise-core/internal/device"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{KeyWiFiSSID, "home", false},
		{KeyWiFiSSID, "", true},
		{KeyWiFiPass, "", false},
		{KeyWiFiPass, "hunter2", false},
		{KeyAudioTimeout, "3", false},
		{KeyAudioTimeout, "60", false},
		{KeyAudioTimeout, "2", true},
		{KeyAudioTimeout, "61", true},
		{KeyAudioTimeout, "ten", true},
		{KeyLockTimeout, "5000", false},
		{KeyLockTimeout, "300000", false},
		{KeyLockTimeout, "4999", true},
		{KeyLockTimeout, "300001", true},
		{KeyPairingTimeout, "60", false},
		{KeyPairingTimeout, "600", false},
		{KeyPairingTimeout, "59", true},
		{KeyVoiceDetectionEnable, "0", false},
		{KeyVoiceDetectionEnable, "1", false},
		{KeyVoiceDetectionEnable, "2", true},
		{KeyVoiceInviteEnable, "1", false},
		{KeyVoiceInviteEnable, "-1", true},
		{KeyVoiceThreshold, "0.20", false},
		{KeyVoiceThreshold, "0.9", false},
		{KeyVoiceThreshold, "0.19", true},
		{KeyVoiceThreshold, "0.91", true},
		{KeyVoiceThreshold, "loud", true},
		{KeyVoiceThreshold, "NaN", true},
		{KeyVoiceThreshold, "-nan", true},
		{KeyVoiceThreshold, "Inf", true},
		{KeyVoiceThreshold, " 0.5", true},
		{KeyAudioTimeout, " 10", true},
		{KeyAudioTimeout, "10 ", true},
		{"mqtt_broker_url", "mqtt://evil", true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidateConfig([]ConfigItem{{Key: tt.key, Value: tt.value}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestIsBackendKey(t *testing.T) {
	for _, key := range []string{KeyVoiceInviteEnable, KeyVoiceThreshold} {
		if !IsBackendKey(key) {
			t.Errorf("IsBackendKey(%q) = false", key)
		}
	}
	for _, key := range []string{KeyWiFiSSID, KeyLockTimeout, KeyVoiceDetectionEnable} {
		if IsBackendKey(key) {
			t.Errorf("IsBackendKey(%q) = true", key)
		}
	}
}

func TestApplySettings(t *testing.T) {
	base := device.Settings{VoiceInviteEnable: false, VoiceThreshold: 0.6}

	got := applySettings(base, []ConfigItem{
		{Key: KeyVoiceInviteEnable, Value: "1"},
		{Key: KeyVoiceThreshold, Value: "0.35"},
	})

	if !got.VoiceInviteEnable || got.VoiceThreshold != 0.35 {
		t.Errorf("applySettings() = %+v", got)
	}
	if base.VoiceInviteEnable {
		t.Error("applySettings() modified its input")
	}
}
