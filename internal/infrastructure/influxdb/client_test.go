package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/lockwise-core/internal/infrastructure/config"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "lockwise-dev-token",
		Org:           "lockwise",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the dev server or skips the test.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION to run against a live InfluxDB")
	}
	client, err := Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

const deviceID = "6f1c2a8e-4b3d-4e5f-9a0b-1c2d3e4f5a6b"

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func lineProtocol(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Second)
}

func TestHeartbeatPoint(t *testing.T) {
	line := lineProtocol(heartbeatPoint(deviceID, 120000, at))

	for _, want := range []string{
		"lock_heartbeat,device_id=" + deviceID,
		"uptime_ms=120000u",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(line), " 1772366400") {
		t.Errorf("line %q does not carry the heard timestamp", line)
	}
}

func TestLockPoint(t *testing.T) {
	tests := []struct {
		name       string
		locked     bool
		attributed bool
		want       []string
	}{
		{"locked by user", true, true, []string{"state=LOCKED", "locked=true", "attributed=true"}},
		{"unlocked by button", false, false, []string{"state=UNLOCKED", "locked=false", "attributed=false"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := lineProtocol(lockPoint(deviceID, tt.locked, "remote", tt.attributed, at))
			for _, want := range append(tt.want, "reason=remote", "lock_transition,") {
				if !strings.Contains(line, want) {
					t.Errorf("line %q missing %q", line, want)
				}
			}
		})
	}
}

func TestCommandPoint(t *testing.T) {
	line := lineProtocol(commandPoint(deviceID, "PING", "timed_out", 10*time.Second, at))

	for _, want := range []string{"command=PING", "outcome=timed_out", "wait_ms=10000i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() should return nil client when disabled")
	}
}

func TestNilClient_IsSafe(t *testing.T) {
	var client *Client

	if client.IsConnected() {
		t.Error("nil client reports connected")
	}
	// Writes on a nil client are dropped.
	client.WriteHeartbeat(deviceID, 1, at)
	client.WriteLockTransition(deviceID, true, "remote", false, at)
	client.WriteCommand(deviceID, "PING", "resolved", time.Second)
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWrites_Integration(t *testing.T) {
	client := connectOrSkip(t)

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteHeartbeat(deviceID, 120000, time.Now())
	client.WriteLockTransition(deviceID, true, "remote", true, time.Now())
	client.WriteCommand(deviceID, "PING", "resolved", 300*time.Millisecond)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestHealthCheck_Integration(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
