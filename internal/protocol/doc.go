// Package protocol implements the CBOR wire format spoken by LockWise locks.
//
// Devices publish three kinds of status message on lockwise/{id}/status
// without any type tag: full-state heartbeats, one-off events and lock
// transition reports. Classify tells them apart by shape, trying the
// heartbeat shape first, then event, then lock report. The first shape
// whose required fields are all present and well typed wins; unknown
// fields are ignored. A payload that happens to satisfy an earlier shape
// is classified as that shape, so an event that also carries lock and
// reason fields is an event.
//
// Commands travel the other way on lockwise/{id}/control as small CBOR maps
// built by EncodeCommand.
package protocol
