// Package correlation pairs outbound device commands with the inbound
// messages that answer them.
//
// A Registry holds at most one outstanding Waiter per device on each of two
// independent tracks: liveness probes (answered by a PONG event) and
// configuration applies (answered by CONFIG_UPDATED). Registering on a
// track replaces whatever waiter was there; the replaced waiter is never
// resolved and simply times out. Acknowledgments that arrive when nothing
// is waiting are dropped.
//
// An AttributionWindow remembers who last sent a command to each device so
// a lock report arriving shortly afterwards can be credited to them.
//
// Both tables are plain values owned by whoever constructs them. The
// inbound dispatcher and the command service share the same instances.
// Their locks cover a single map operation and are never held while
// waiting.
package correlation
