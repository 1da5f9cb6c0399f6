// Package api implements the HTTP REST API and WebSocket server for LockWise Core.
//
// This package provides:
//   - device endpoints for owners and grantees (state, access log)
//   - command endpoints (ping, lock/unlock, config, lockdown, reboot)
//   - a WebSocket hub that delivers live updates to the actors entitled to them
//   - bearer token authentication and single-use WebSocket tickets
//   - middleware (request ID, logging, recovery, CORS, body limit)
//
// # Error Mapping
//
// Command failures keep their meaning at the boundary: a device that never
// acknowledged is 408 device_timeout, a command that could not be sent is
// 502 publish_failed. Forbidden is 403, unknown device 404, lockdown 409 and
// invalid input 400.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
