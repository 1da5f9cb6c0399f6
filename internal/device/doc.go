// Package device holds the last known state of every lock.
//
// A device row is created by the first heartbeat the backend hears from it
// and is updated in place afterwards. This package never deletes devices.
//
// # Key Types
//
//   - Device: presence, uptime, configuration mirror, lock state, lockdown
//   - Config: the configuration the firmware reports in each heartbeat
//   - Settings: backend-only options (voice invites and threshold)
//   - LockState: UNKNOWN, LOCKED or UNLOCKED
//
// Lock state and lockdown are separate axes. A lock report changes only the
// lock state; a LOCKING_DOWN event changes only the lockdown time.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	dev, err := registry.ApplyHeartbeat(ctx, device.HeartbeatUpdate{...})
//
// # Thread Safety
//
// Registry is safe for concurrent use. Reads are served from the cache as
// deep copies. Writes hit SQLite first and then replace the cached entry.
package device
