package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout shared with the lock firmware:
//
//	lockwise/{device_id}/control   backend -> device commands
//	lockwise/{device_id}/status    device -> backend heartbeats, events, lock reports
//	lockwise/backend/status        backend presence (retained, LWT)
const (
	// TopicPrefix is the root of every LockWise topic.
	TopicPrefix = "lockwise"

	topicSuffixControl = "control"
	topicSuffixStatus  = "status"
	backendSegment     = "backend"
)

// Topics provides builders for LockWise MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceControl("5b0c...")
//	// Returns: "lockwise/5b0c.../control"
type Topics struct{}

// DeviceControl returns the command topic for one device.
//
// Example: lockwise/3f2a9c1e-.../control
func (Topics) DeviceControl(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, deviceID, topicSuffixControl)
}

// DeviceStatus returns the status topic a device publishes on.
//
// Example: lockwise/3f2a9c1e-.../status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, deviceID, topicSuffixStatus)
}

// AllDeviceStatus matches every device's status topic.
//
// Pattern: lockwise/+/status
func (Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/+/%s", TopicPrefix, topicSuffixStatus)
}

// SystemStatus returns the backend presence topic used for the LWT.
//
// Example: lockwise/backend/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, backendSegment, topicSuffixStatus)
}

// DeviceIDFromStatus extracts the device id from a concrete status topic.
// It reports false for anything that is not lockwise/{id}/status, including
// the backend's own presence topic.
func (Topics) DeviceIDFromStatus(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] != topicSuffixStatus {
		return "", false
	}
	id := parts[1]
	if id == "" || id == backendSegment || strings.ContainsAny(id, "+#") {
		return "", false
	}
	return id, true
}
