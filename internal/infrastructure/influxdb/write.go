package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementHeartbeat = "lock_heartbeat"
	measurementLock      = "lock_transition"
	measurementCommand   = "lock_command"
)

// WriteHeartbeat records the uptime a device reported at heard.
//
//	client.WriteHeartbeat("6f1c...", 120000, time.Now())
func (c *Client) WriteHeartbeat(deviceID string, uptimeMs uint64, heard time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(heartbeatPoint(deviceID, uptimeMs, heard))
}

// WriteLockTransition records a lock report at the device's own timestamp.
// attributed is true when the transition was credited to a user.
func (c *Client) WriteLockTransition(deviceID string, locked bool, reason string, attributed bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(lockPoint(deviceID, locked, reason, attributed, at))
}

// WriteCommand records how a correlated command ended and how long the
// caller waited.
//
//	client.WriteCommand("6f1c...", "PING", "resolved", 840*time.Millisecond)
func (c *Client) WriteCommand(deviceID, command, outcome string, waited time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandPoint(deviceID, command, outcome, waited, time.Now()))
}

func heartbeatPoint(deviceID string, uptimeMs uint64, heard time.Time) *write.Point {
	return write.NewPoint(
		measurementHeartbeat,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{"uptime_ms": uptimeMs},
		heard,
	)
}

func lockPoint(deviceID string, locked bool, reason string, attributed bool, at time.Time) *write.Point {
	state := "UNLOCKED"
	if locked {
		state = "LOCKED"
	}
	return write.NewPoint(
		measurementLock,
		map[string]string{
			"device_id": deviceID,
			"state":     state,
			"reason":    reason,
		},
		map[string]interface{}{
			"locked":     locked,
			"attributed": attributed,
		},
		at,
	)
}

func commandPoint(deviceID, command, outcome string, waited time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		measurementCommand,
		map[string]string{
			"device_id": deviceID,
			"command":   command,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"wait_ms": waited.Milliseconds(),
		},
		at,
	)
}
