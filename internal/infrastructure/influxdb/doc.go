// Package influxdb writes lock telemetry to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Three measurements
// are recorded:
//
//   - lock_heartbeat: uptime per device, timestamped on receipt
//   - lock_transition: every lock report, timestamped by the device clock
//   - lock_command: outcome and wait time of probe and config commands
//
// Telemetry is optional. When influxdb.enabled is false Connect returns
// ErrDisabled and callers run without it.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteHeartbeat(deviceID, uptimeMs, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched per batch_size and flush_interval; write failures arrive on the
// SetOnError callback.
package influxdb
