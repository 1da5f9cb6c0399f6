// Package transport connects the backend to lock devices over MQTT.
//
// Commands go out as CBOR maps on lockwise/{id}/control at the configured
// QoS (0 in production). Device status payloads arrive on
// lockwise/{id}/status and are queued, unparsed, on a single channel in
// the order the broker delivered them. Classification and state changes
// happen downstream in the reconciler.
package transport
