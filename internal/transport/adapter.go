package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lockwise-core/internal/protocol"
)

// DefaultBuffer is the inbound queue length used when none is configured.
const DefaultBuffer = 256

// Client is the subset of the MQTT client the adapter needs.
// *mqtt.Client satisfies it.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the Adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Inbound is one raw payload received on a device status topic.
type Inbound struct {
	DeviceID string
	Payload  []byte
	Received time.Time
}

// Stats are the adapter's lifetime counters.
type Stats struct {
	Published     uint64 `json:"published"`
	PublishErrors uint64 `json:"publish_errors"`
	Received      uint64 `json:"received"`
	Dropped       uint64 `json:"dropped"`
	Rejected      uint64 `json:"rejected"`
}

// Adapter publishes commands to devices and queues their status payloads
// in arrival order for a single consumer.
//
// The MQTT client delivers messages one at a time, so the order on the
// Inbound channel is the broker's delivery order. When the queue is full
// the newest message is dropped rather than stalling the client.
type Adapter struct {
	client  Client
	topics  mqtt.Topics
	qos     byte
	inbound chan Inbound
	logger  Logger
	now     func() time.Time

	mu      sync.Mutex
	started bool

	published     atomic.Uint64
	publishErrors atomic.Uint64
	received      atomic.Uint64
	dropped       atomic.Uint64
	rejected      atomic.Uint64
}

// New creates an Adapter. A buffer of zero or less uses DefaultBuffer.
func New(client Client, qos byte, buffer int) *Adapter {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Adapter{
		client:  client,
		qos:     qos,
		inbound: make(chan Inbound, buffer),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the adapter.
func (a *Adapter) SetLogger(logger Logger) {
	a.logger = logger
}

// Inbound returns the queue of received status payloads.
func (a *Adapter) Inbound() <-chan Inbound {
	return a.inbound
}

// Start subscribes to every device status topic.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}
	if err := a.client.Subscribe(a.topics.AllDeviceStatus(), a.qos, a.handleStatus); err != nil {
		return fmt.Errorf("subscribing to device status: %w", err)
	}
	a.started = true
	return nil
}

// Stop unsubscribes from device status topics. The Inbound channel is
// left open because a late delivery may still be in flight.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.started = false
	if err := a.client.Unsubscribe(a.topics.AllDeviceStatus()); err != nil {
		return fmt.Errorf("unsubscribing from device status: %w", err)
	}
	return nil
}

// Publish sends cmd to the device's control topic. It returns once the
// packet has left the process; delivery to the device is not confirmed.
func (a *Adapter) Publish(ctx context.Context, deviceID string, cmd protocol.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	if err := a.client.Publish(a.topics.DeviceControl(deviceID), payload, a.qos, false); err != nil {
		a.publishErrors.Add(1)
		return fmt.Errorf("%w: %s to %s: %w", ErrPublishFailed, cmd.Name, deviceID, err)
	}

	a.published.Add(1)
	a.logger.Debug("command published", "device_id", deviceID, "command", cmd.Name)
	return nil
}

// Stats returns a snapshot of the adapter's counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Published:     a.published.Load(),
		PublishErrors: a.publishErrors.Load(),
		Received:      a.received.Load(),
		Dropped:       a.dropped.Load(),
		Rejected:      a.rejected.Load(),
	}
}

func (a *Adapter) handleStatus(topic string, payload []byte) error {
	deviceID, ok := a.topics.DeviceIDFromStatus(topic)
	if !ok {
		a.rejected.Add(1)
		return nil
	}
	// Only canonical UUIDs are addressable through the API.
	if err := device.ValidateID(deviceID); err != nil {
		a.rejected.Add(1)
		a.logger.Debug("status from invalid device id ignored", "topic", topic)
		return nil
	}

	msg := Inbound{
		DeviceID: deviceID,
		// The client may reuse its buffer once the handler returns.
		Payload:  append([]byte(nil), payload...),
		Received: a.now(),
	}

	select {
	case a.inbound <- msg:
		a.received.Add(1)
		return nil
	default:
		a.dropped.Add(1)
		return fmt.Errorf("%w: device %s", ErrQueueFull, deviceID)
	}
}
