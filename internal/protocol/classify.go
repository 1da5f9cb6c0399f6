package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Wire shapes. Every required field is a pointer so a missing key can be
// told apart from a zero value; a present key of the wrong CBOR type makes
// the whole decode fail.
type (
	heartbeatWire struct {
		Heartbeat                *string `cbor:"heartbeat"`
		UptimeMs                 *uint64 `cbor:"uptime_ms"`
		Timestamp                *uint64 `cbor:"timestamp"`
		WiFiSSID                 *string `cbor:"wifi_ssid"`
		BackendURL               *string `cbor:"backend_url"`
		MQTTBrokerURL            *string `cbor:"mqtt_broker_url"`
		MQTTHeartbeatEnable      *bool   `cbor:"mqtt_heartbeat_enable"`
		MQTTHeartbeatIntervalSec *int32  `cbor:"mqtt_heartbeat_interval_sec"`
		AudioRecordTimeoutSec    *int32  `cbor:"audio_record_timeout_sec"`
		LockTimeoutMs            *int32  `cbor:"lock_timeout_ms"`
		PairingTimeoutSec        *int32  `cbor:"pairing_timeout_sec"`
		UserID                   *string `cbor:"user_id"`
		VoiceDetectionEnable     *bool   `cbor:"voice_detection_enable"`
		VADRMSThreshold          *int32  `cbor:"vad_rms_threshold"`
		LockState                *string `cbor:"lock_state"` // optional
	}

	eventWire struct {
		Event     *string `cbor:"event"`
		UptimeMs  *uint64 `cbor:"uptime_ms"`
		Timestamp *uint64 `cbor:"timestamp"`
	}

	lockReportWire struct {
		Lock      *string `cbor:"lock"`
		Reason    *string `cbor:"reason"`
		UptimeMs  *uint64 `cbor:"uptime_ms"`
		Timestamp *uint64 `cbor:"timestamp"`
	}
)

var decMode cbor.DecMode

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		FieldNameMatching: cbor.FieldNameMatchingCaseSensitive,
		MaxNestedLevels:   16,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building CBOR decode mode: %v", err))
	}
}

// Classify decodes a status payload into the first shape it satisfies:
// heartbeat, then event, then lock report.
//
// Returns ErrUnrecognisedPayload (wrapped with the payload size) when no
// shape matches.
func Classify(payload []byte) (Message, error) {
	if hb, ok := decodeHeartbeat(payload); ok {
		return Message{Kind: KindHeartbeat, Heartbeat: hb}, nil
	}
	if ev, ok := decodeEvent(payload); ok {
		return Message{Kind: KindEvent, Event: ev}, nil
	}
	if lr, ok := decodeLockReport(payload); ok {
		return Message{Kind: KindLockReport, LockReport: lr}, nil
	}
	return Message{}, fmt.Errorf("%w (%d bytes)", ErrUnrecognisedPayload, len(payload))
}

func decodeHeartbeat(payload []byte) (*Heartbeat, bool) {
	var w heartbeatWire
	if err := decMode.Unmarshal(payload, &w); err != nil {
		return nil, false
	}
	if w.Heartbeat == nil || w.UptimeMs == nil || w.Timestamp == nil ||
		w.WiFiSSID == nil || w.BackendURL == nil || w.MQTTBrokerURL == nil ||
		w.MQTTHeartbeatEnable == nil || w.MQTTHeartbeatIntervalSec == nil ||
		w.AudioRecordTimeoutSec == nil || w.LockTimeoutMs == nil ||
		w.PairingTimeoutSec == nil || w.UserID == nil ||
		w.VoiceDetectionEnable == nil || w.VADRMSThreshold == nil {
		return nil, false
	}

	return &Heartbeat{
		Marker:                   *w.Heartbeat,
		UptimeMs:                 *w.UptimeMs,
		Timestamp:                *w.Timestamp,
		WiFiSSID:                 *w.WiFiSSID,
		BackendURL:               *w.BackendURL,
		MQTTBrokerURL:            *w.MQTTBrokerURL,
		MQTTHeartbeatEnable:      *w.MQTTHeartbeatEnable,
		MQTTHeartbeatIntervalSec: *w.MQTTHeartbeatIntervalSec,
		AudioRecordTimeoutSec:    *w.AudioRecordTimeoutSec,
		LockTimeoutMs:            *w.LockTimeoutMs,
		PairingTimeoutSec:        *w.PairingTimeoutSec,
		UserID:                   *w.UserID,
		VoiceDetectionEnable:     *w.VoiceDetectionEnable,
		VADRMSThreshold:          *w.VADRMSThreshold,
		LockState:                w.LockState,
	}, true
}

func decodeEvent(payload []byte) (*Event, bool) {
	var w eventWire
	if err := decMode.Unmarshal(payload, &w); err != nil {
		return nil, false
	}
	if w.Event == nil || w.UptimeMs == nil || w.Timestamp == nil {
		return nil, false
	}
	return &Event{Name: *w.Event, UptimeMs: *w.UptimeMs, Timestamp: *w.Timestamp}, true
}

func decodeLockReport(payload []byte) (*LockReport, bool) {
	var w lockReportWire
	if err := decMode.Unmarshal(payload, &w); err != nil {
		return nil, false
	}
	if w.Lock == nil || w.Reason == nil || w.UptimeMs == nil || w.Timestamp == nil {
		return nil, false
	}
	return &LockReport{
		Lock:      *w.Lock,
		Reason:    *w.Reason,
		UptimeMs:  *w.UptimeMs,
		Timestamp: *w.Timestamp,
	}, true
}
