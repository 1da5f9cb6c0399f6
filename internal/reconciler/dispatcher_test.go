package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/transport"
)

func encode(t *testing.T, v map[string]any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("cbor.Marshal() error = %v", err)
	}
	return data
}

func heartbeatPayload(t *testing.T, lockState string) []byte {
	return encode(t, map[string]any{
		"heartbeat":                   "HEARTBEAT",
		"uptime_ms":                   uint64(120000),
		"timestamp":                   uint64(t0.Unix()),
		"wifi_ssid":                   "home",
		"backend_url":                 "https://lockwise.example",
		"mqtt_broker_url":             "mqtts://broker.example:8883",
		"mqtt_heartbeat_enable":       true,
		"mqtt_heartbeat_interval_sec": 30,
		"audio_record_timeout_sec":    5,
		"lock_timeout_ms":             30000,
		"pairing_timeout_sec":         120,
		"user_id":                     testOwner,
		"voice_detection_enable":      true,
		"vad_rms_threshold":           900,
		"lock_state":                  lockState,
	})
}

func lockPayload(t *testing.T, lock string) []byte {
	return encode(t, map[string]any{
		"lock":      lock,
		"reason":    "remote",
		"uptime_ms": uint64(6000),
		"timestamp": uint64(t0.Unix()),
	})
}

func TestDispatcher_OrderedProcessing(t *testing.T) {
	h := newHarness()
	d := NewDispatcher(h.r)

	in := make(chan transport.Inbound, 4)
	in <- transport.Inbound{DeviceID: testDevice, Payload: heartbeatPayload(t, "UNLOCKED")}
	in <- transport.Inbound{DeviceID: testDevice, Payload: lockPayload(t, "LOCKED")}
	in <- transport.Inbound{DeviceID: testDevice, Payload: lockPayload(t, "UNLOCKED")}
	close(in)

	if err := d.Run(context.Background(), in); !errors.Is(err, ErrInboundClosed) {
		t.Fatalf("Run() error = %v, want ErrInboundClosed", err)
	}

	if got := h.store.get(t, testDevice).LockState; got != device.LockStateUnlocked {
		t.Errorf("LockState = %q, want last report UNLOCKED", got)
	}
	if len(h.log.entries) != 2 {
		t.Fatalf("access log entries = %d, want 2", len(h.log.entries))
	}
	if h.log.entries[0].EventType != "LOCK" || h.log.entries[1].EventType != "UNLOCK" {
		t.Errorf("entries out of order: %v, %v", h.log.entries[0].EventType, h.log.entries[1].EventType)
	}

	stats := d.Stats()
	if stats.Processed != 3 || stats.Reconciler.Heartbeats != 1 || stats.Reconciler.LockReports != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestDispatcher_UnrecognisedPayload(t *testing.T) {
	h := newHarness()
	d := NewDispatcher(h.r)

	d.Handle(context.Background(), transport.Inbound{DeviceID: testDevice, Payload: []byte{0xff, 0x00}})
	d.Handle(context.Background(), transport.Inbound{
		DeviceID: testDevice,
		Payload:  encode(t, map[string]any{"hello": "world"}),
	})

	stats := d.Stats()
	if stats.DecodeFailures != 2 {
		t.Errorf("DecodeFailures = %d, want 2", stats.DecodeFailures)
	}
	if _, err := h.store.GetDevice(context.Background(), testDevice); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("device state touched by undecodable payloads: err = %v", err)
	}
	if len(h.notifier.sent) != 0 {
		t.Error("updates sent for undecodable payloads")
	}
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	h := newHarness()
	d := NewDispatcher(h.r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, make(chan transport.Inbound)) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
