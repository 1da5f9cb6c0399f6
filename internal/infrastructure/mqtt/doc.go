// Package mqtt provides MQTT broker connectivity for LockWise Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing of device commands
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) so the backend's absence is visible
//
// Locks speak QoS 0 only. Nothing published here is guaranteed to arrive,
// and the command path above this package is built around that.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceStatus(), 0,
//	    func(topic string, payload []byte) error {
//	        id, _ := mqtt.Topics{}.DeviceIDFromStatus(topic)
//	        log.Printf("status from %s: %d bytes", id, len(payload))
//	        return nil
//	    })
package mqtt
