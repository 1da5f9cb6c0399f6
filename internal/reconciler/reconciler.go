package reconciler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lockwise-core/internal/accesslog"
	"github.com/nerrad567/lockwise-core/internal/correlation"
	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/protocol"
)

// DeviceStore reads and writes device state. *device.Registry satisfies it.
type DeviceStore interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ApplyHeartbeat(ctx context.Context, u device.HeartbeatUpdate) (*device.Device, error)
	SetLockdown(ctx context.Context, id string, at time.Time) (*device.Device, error)
	SetLockState(ctx context.Context, id string, state device.LockState) (*device.Device, error)
}

// AccessLogger appends access log entries. *accesslog.SQLiteRepository
// satisfies it.
type AccessLogger interface {
	Create(ctx context.Context, e *accesslog.Entry) error
}

// Notifier delivers live updates to connected actors.
type Notifier interface {
	Notify(recipients []string, u Update)
}

// Audience resolves who may see a device's updates. *access.Checker
// satisfies it.
type Audience interface {
	Recipients(ctx context.Context, deviceID string) ([]string, error)
	Owner(ctx context.Context, deviceID string) (string, error)
}

// Telemetry records time-series points. *influxdb.Client satisfies it and
// drops writes when nil or disconnected.
type Telemetry interface {
	WriteHeartbeat(deviceID string, uptimeMs uint64, heard time.Time)
	WriteLockTransition(deviceID string, locked bool, reason string, attributed bool, at time.Time)
}

// Logger defines the logging interface used by the Reconciler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the collaborators of a Reconciler. Devices, Waiters and
// Attribution are required; the rest may be nil.
type Deps struct {
	Devices     DeviceStore
	Waiters     *correlation.Registry
	Attribution *correlation.AttributionWindow
	AccessLog   AccessLogger
	Notifier    Notifier
	Audience    Audience
	Telemetry   Telemetry
}

// Counters are the reconciler's lifetime message counts.
type Counters struct {
	Heartbeats        uint64 `json:"heartbeats"`
	IgnoredHeartbeats uint64 `json:"ignored_heartbeats"`
	Events            uint64 `json:"events"`
	LockReports       uint64 `json:"lock_reports"`
	StaleAcks         uint64 `json:"stale_acks"`
	AccessLogErrors   uint64 `json:"access_log_errors"`
	StoreErrors       uint64 `json:"store_errors"`
}

// Reconciler turns classified status messages into device state changes,
// waiter resolutions, access log entries and live updates.
//
// Apply is meant to be called from a single goroutine in arrival order.
// Counters may be read concurrently.
type Reconciler struct {
	deps   Deps
	logger Logger
	now    func() time.Time

	heartbeats        atomic.Uint64
	ignoredHeartbeats atomic.Uint64
	events            atomic.Uint64
	lockReports       atomic.Uint64
	staleAcks         atomic.Uint64
	accessLogErrors   atomic.Uint64
	storeErrors       atomic.Uint64
}

// New creates a Reconciler.
func New(deps Deps) *Reconciler {
	return &Reconciler{
		deps:   deps,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetClock replaces the processing clock. Used by tests.
func (r *Reconciler) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Counters returns a snapshot of the message counts.
func (r *Reconciler) Counters() Counters {
	return Counters{
		Heartbeats:        r.heartbeats.Load(),
		IgnoredHeartbeats: r.ignoredHeartbeats.Load(),
		Events:            r.events.Load(),
		LockReports:       r.lockReports.Load(),
		StaleAcks:         r.staleAcks.Load(),
		AccessLogErrors:   r.accessLogErrors.Load(),
		StoreErrors:       r.storeErrors.Load(),
	}
}

// Apply processes one classified message from deviceID.
func (r *Reconciler) Apply(ctx context.Context, deviceID string, msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindHeartbeat:
		r.applyHeartbeat(ctx, deviceID, msg.Heartbeat)
	case protocol.KindEvent:
		r.applyEvent(ctx, deviceID, msg.Event)
	case protocol.KindLockReport:
		r.applyLockReport(ctx, deviceID, msg.LockReport)
	}
}

func (r *Reconciler) applyHeartbeat(ctx context.Context, deviceID string, hb *protocol.Heartbeat) {
	if hb == nil {
		return
	}
	if !hb.IsGenuine() {
		r.ignoredHeartbeats.Add(1)
		r.logger.Debug("heartbeat marker mismatch, ignoring", "device_id", deviceID, "marker", hb.Marker)
		return
	}
	r.heartbeats.Add(1)

	now := r.now()

	var lockedDownAt *time.Time
	existing, err := r.deps.Devices.GetDevice(ctx, deviceID)
	switch {
	case err == nil:
		lockedDownAt = existing.LockedDownAt
	case errors.Is(err, device.ErrDeviceNotFound):
	default:
		r.storeErrors.Add(1)
		r.logger.Error("loading device for heartbeat", "device_id", deviceID, "error", err)
		return
	}

	d, err := r.deps.Devices.ApplyHeartbeat(ctx, device.HeartbeatUpdate{
		ID:            deviceID,
		OwnerID:       hb.UserID,
		Heard:         now,
		UptimeMs:      hb.UptimeMs,
		Config:        configFromHeartbeat(hb),
		LockState:     device.ParseLockState(hb.LockState),
		ClearLockdown: ShouldClearLockdown(lockedDownAt, now),
	})
	if err != nil {
		r.storeErrors.Add(1)
		r.logger.Error("applying heartbeat", "device_id", deviceID, "error", err)
		return
	}
	if lockedDownAt != nil && d.LockedDownAt == nil {
		r.logger.Info("lockdown cleared", "device_id", deviceID)
	}

	r.broadcast(ctx, deviceID, newDeviceUpdate(TypeDeviceOnline, d, true))
	if r.deps.Telemetry != nil {
		r.deps.Telemetry.WriteHeartbeat(deviceID, hb.UptimeMs, now)
	}
}

func (r *Reconciler) applyEvent(ctx context.Context, deviceID string, ev *protocol.Event) {
	if ev == nil {
		return
	}
	r.events.Add(1)

	switch ev.Name {
	case protocol.EventPong:
		if !r.deps.Waiters.ResolveProbe(deviceID) {
			r.staleAcks.Add(1)
			r.logger.Debug("pong with no pending probe", "device_id", deviceID)
		}
	case protocol.EventConfigUpdated:
		if !r.deps.Waiters.ResolveConfig(deviceID) {
			r.staleAcks.Add(1)
			r.logger.Debug("config ack with no pending update", "device_id", deviceID)
		}
	case protocol.EventLockingDown:
		d, err := r.deps.Devices.SetLockdown(ctx, deviceID, ev.Time())
		if err != nil {
			r.storeErrors.Add(1)
			r.logger.Warn("recording lockdown", "device_id", deviceID, "error", err)
			return
		}
		r.logger.Info("device locked down", "device_id", deviceID, "at", ev.Time())
		r.broadcast(ctx, deviceID, newDeviceUpdate(TypeDeviceUpdate, d, false))
	default:
		r.logger.Debug("device event", "device_id", deviceID, "event", ev.Name, "uptime_ms", ev.UptimeMs)
	}
}

func (r *Reconciler) applyLockReport(ctx context.Context, deviceID string, lr *protocol.LockReport) {
	if lr == nil {
		return
	}
	r.lockReports.Add(1)

	locked := lr.Locked()
	state, eventType := device.LockStateUnlocked, accesslog.EventUnlock
	if locked {
		state, eventType = device.LockStateLocked, accesslog.EventLock
	}

	entry := &accesslog.Entry{
		DeviceID:  deviceID,
		Timestamp: lr.Time(),
		EventType: eventType,
		Reason:    lr.Reason,
	}
	if actor, ok := r.deps.Attribution.TakeIfRecent(deviceID, r.now()); ok {
		entry.UserID = &actor
	}

	if r.deps.AccessLog != nil {
		if err := r.deps.AccessLog.Create(ctx, entry); err != nil {
			r.accessLogErrors.Add(1)
			r.logger.Warn("writing access log entry", "device_id", deviceID, "error", err)
		}
	}

	d, err := r.deps.Devices.SetLockState(ctx, deviceID, state)
	if err != nil {
		r.storeErrors.Add(1)
		r.logger.Warn("updating lock state", "device_id", deviceID, "state", state, "error", err)
	}

	if r.deps.Notifier != nil && r.deps.Audience != nil {
		if owner, err := r.deps.Audience.Owner(ctx, deviceID); err == nil && owner != "" {
			r.deps.Notifier.Notify([]string{owner}, newLogUpdate(entry))
		}
	}
	if d != nil {
		r.broadcast(ctx, deviceID, newDeviceUpdate(TypeDeviceUpdate, d, false))
	}

	if r.deps.Telemetry != nil {
		r.deps.Telemetry.WriteLockTransition(deviceID, locked, lr.Reason, entry.UserID != nil, entry.Timestamp)
	}
}

// broadcast sends u to everyone entitled to see deviceID.
func (r *Reconciler) broadcast(ctx context.Context, deviceID string, u Update) {
	if r.deps.Notifier == nil || r.deps.Audience == nil {
		return
	}
	recipients, err := r.deps.Audience.Recipients(ctx, deviceID)
	if err != nil {
		r.logger.Warn("resolving update recipients", "device_id", deviceID, "error", err)
		return
	}
	if len(recipients) == 0 {
		return
	}
	r.deps.Notifier.Notify(recipients, u)
}

func configFromHeartbeat(hb *protocol.Heartbeat) device.Config {
	return device.Config{
		WiFiSSID:                 hb.WiFiSSID,
		BackendURL:               hb.BackendURL,
		MQTTBrokerURL:            hb.MQTTBrokerURL,
		MQTTHeartbeatEnable:      hb.MQTTHeartbeatEnable,
		MQTTHeartbeatIntervalSec: hb.MQTTHeartbeatIntervalSec,
		AudioRecordTimeoutSec:    hb.AudioRecordTimeoutSec,
		LockTimeoutMs:            hb.LockTimeoutMs,
		PairingTimeoutSec:        hb.PairingTimeoutSec,
		VoiceDetectionEnable:     hb.VoiceDetectionEnable,
		VADRMSThreshold:          hb.VADRMSThreshold,
	}
}
