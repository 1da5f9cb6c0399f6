// Package control issues commands to locks on behalf of authenticated actors.
//
// Probes and configuration updates are correlated with the device's
// acknowledgment through a shared correlation.Registry and bounded by
// AckTimeout. LOCK and UNLOCK are fire-and-forget; the sender is recorded
// in the attribution window so the lock report that follows can be
// credited to them.
//
// Standing rules:
//
//	Ping, Control                    owner or active grantee
//	ApplyConfig, Lockdown, Reboot    owner only
package control
