// Package reconciler applies device status messages to the rest of the
// system.
//
// A Dispatcher drains the transport's inbound channel on one goroutine,
// classifies every payload and passes it to the Reconciler, which:
//
//   - records heartbeats as presence and mirrors the reported state,
//     clearing a lockdown that is at least LockdownDebounce old
//   - resolves probe and config waiters on PONG and CONFIG_UPDATED
//   - marks a device locked down on LOCKING_DOWN
//   - appends an access log entry for every lock report, credited to the
//     actor whose command landed within the attribution window
//
// Every state change is followed by a live update to the owner and the
// active grantees of the device.
package reconciler
