package control

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/lockwise-core/internal/access"
	"github.com/nerrad567/lockwise-core/internal/correlation"
	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/protocol"
)

// AckTimeout bounds every wait for a device acknowledgment.
const AckTimeout = 10 * time.Second

// Publisher sends a command to a device. *transport.Adapter satisfies it.
type Publisher interface {
	Publish(ctx context.Context, deviceID string, cmd protocol.Command) error
}

// Authorizer resolves an actor's standing over a device. *access.Checker
// satisfies it.
type Authorizer interface {
	Standing(ctx context.Context, actorID, deviceID string) (access.Standing, error)
}

// DeviceStore reads device state and stores backend-only settings.
// *device.Registry satisfies it.
type DeviceStore interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	UpdateSettings(ctx context.Context, id string, s device.Settings) (*device.Device, error)
}

// Telemetry records command outcomes. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteCommand(deviceID, command, outcome string, waited time.Duration)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Deps are the collaborators of a Service. Telemetry may be nil.
type Deps struct {
	Publisher   Publisher
	Authorizer  Authorizer
	Devices     DeviceStore
	Waiters     *correlation.Registry
	Attribution *correlation.AttributionWindow
	Telemetry   Telemetry

	// AckTimeout overrides the acknowledgment deadline. Zero means AckTimeout.
	AckTimeout time.Duration
}

// Service issues commands on behalf of actors.
//
// Each call runs on its caller's goroutine and may run concurrently with
// any other call and with inbound reconciliation. A call suspends only
// while waiting for its own acknowledgment.
type Service struct {
	deps       Deps
	ackTimeout time.Duration
	logger     Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	timeout := deps.AckTimeout
	if timeout <= 0 {
		timeout = AckTimeout
	}
	return &Service{
		deps:       deps,
		ackTimeout: timeout,
		logger:     noopLogger{},
		now:        time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Ping probes a device and waits for its PONG.
//
// Returns ErrTimeout if no PONG arrives within the deadline. A newer probe
// for the same device supersedes this one, which then times out.
func (s *Service) Ping(ctx context.Context, actorID, deviceID string) error {
	if _, err := s.authorize(ctx, actorID, deviceID, access.Standing.CanOperate); err != nil {
		return err
	}

	w := s.deps.Waiters.RegisterProbe(deviceID)
	return s.publishAndAwait(ctx, w, protocol.NewCommand(protocol.CommandPing))
}

// Control sends LOCK or UNLOCK and returns once the command is published.
// The actor is remembered so the resulting lock report can be credited to
// them.
func (s *Service) Control(ctx context.Context, actorID, deviceID, command string) error {
	if command != protocol.CommandLock && command != protocol.CommandUnlock {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}

	d, err := s.authorize(ctx, actorID, deviceID, access.Standing.CanOperate)
	if err != nil {
		return err
	}
	if d.LockedDown() {
		return ErrLockedDown
	}

	// Recorded before publish so a fast report still finds it.
	s.deps.Attribution.Record(deviceID, actorID, s.now())

	if err := s.publish(ctx, deviceID, protocol.NewCommand(command)); err != nil {
		return err
	}
	s.logger.Info("lock command sent", "device_id", deviceID, "actor_id", actorID, "command", command)
	return nil
}

// Lockdown tells the device to enter lockdown. The device confirms with a
// LOCKING_DOWN event, which the reconciler records.
func (s *Service) Lockdown(ctx context.Context, actorID, deviceID string) error {
	return s.ownerCommand(ctx, actorID, deviceID, protocol.CommandLockdown)
}

// Reboot restarts the device.
func (s *Service) Reboot(ctx context.Context, actorID, deviceID string) error {
	return s.ownerCommand(ctx, actorID, deviceID, protocol.CommandReboot)
}

// ApplyConfig validates every item, stores the backend-only settings, then
// sends the device keys one at a time, waiting for each CONFIG_UPDATED.
//
// Nothing is applied if any item is invalid. The first timeout or publish
// failure aborts the remaining keys; keys already acknowledged stay applied.
func (s *Service) ApplyConfig(ctx context.Context, actorID, deviceID string, items []ConfigItem) error {
	d, err := s.authorize(ctx, actorID, deviceID, access.Standing.CanManage)
	if err != nil {
		return err
	}
	if err := ValidateConfig(items); err != nil {
		return err
	}

	var backend, firmware []ConfigItem
	for _, item := range items {
		if IsBackendKey(item.Key) {
			backend = append(backend, item)
		} else {
			firmware = append(firmware, item)
		}
	}

	if len(backend) > 0 {
		if _, err := s.deps.Devices.UpdateSettings(ctx, deviceID, applySettings(d.Settings, backend)); err != nil {
			return fmt.Errorf("storing settings: %w", err)
		}
	}

	for i, item := range firmware {
		w := s.deps.Waiters.RegisterConfig(deviceID)
		if err := s.publishAndAwait(ctx, w, protocol.NewConfigCommand(item.Key, item.Value)); err != nil {
			s.logger.Warn("config update aborted",
				"device_id", deviceID,
				"key", item.Key,
				"applied", i,
				"remaining", len(firmware)-i,
				"error", err,
			)
			return fmt.Errorf("applying %s: %w", item.Key, err)
		}
		s.logger.Debug("config key applied", "device_id", deviceID, "key", item.Key)
	}
	return nil
}

func (s *Service) ownerCommand(ctx context.Context, actorID, deviceID, command string) error {
	if _, err := s.authorize(ctx, actorID, deviceID, access.Standing.CanManage); err != nil {
		return err
	}
	if err := s.publish(ctx, deviceID, protocol.NewCommand(command)); err != nil {
		return err
	}
	s.logger.Info("device command sent", "device_id", deviceID, "actor_id", actorID, "command", command)
	return nil
}

// authorize loads the device and checks the actor's standing against allowed.
// Returns device.ErrDeviceNotFound for an unknown device.
func (s *Service) authorize(ctx context.Context, actorID, deviceID string, allowed func(access.Standing) bool) (*device.Device, error) {
	standing, err := s.deps.Authorizer.Standing(ctx, actorID, deviceID)
	if err != nil {
		return nil, err
	}
	if !allowed(standing) {
		return nil, fmt.Errorf("%w: %s has standing %s", ErrForbidden, actorID, standing)
	}
	d, err := s.deps.Devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) publish(ctx context.Context, deviceID string, cmd protocol.Command) error {
	if err := s.deps.Publisher.Publish(ctx, deviceID, cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// publishAndAwait sends cmd for an already registered waiter and blocks
// until it resolves or times out. The waiter is withdrawn if the publish
// fails.
func (s *Service) publishAndAwait(ctx context.Context, w *correlation.Waiter, cmd protocol.Command) error {
	start := s.now()
	if err := s.publish(ctx, w.DeviceID(), cmd); err != nil {
		s.deps.Waiters.Cancel(w)
		s.record(w.DeviceID(), cmd.Name, "publish_failed", 0)
		return err
	}

	outcome, err := w.Await(ctx, s.ackTimeout)
	s.record(w.DeviceID(), cmd.Name, outcome.String(), s.now().Sub(start))

	switch outcome {
	case correlation.Resolved:
		return nil
	case correlation.TimedOut:
		s.logger.Warn("device did not acknowledge", "device_id", w.DeviceID(), "command", cmd.Name, "timeout", s.ackTimeout)
		return ErrTimeout
	default:
		return fmt.Errorf("waiting for %s acknowledgment: %w", cmd.Name, err)
	}
}

func (s *Service) record(deviceID, command, outcome string, waited time.Duration) {
	if s.deps.Telemetry != nil {
		s.deps.Telemetry.WriteCommand(deviceID, command, outcome, waited)
	}
}
