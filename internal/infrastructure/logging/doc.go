// Package logging provides structured logging for LockWise Core.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default attributes.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("reconciler").Info("heartbeat applied", "device_id", id)
//
// Never log secrets, tokens or broker passwords.
package logging
