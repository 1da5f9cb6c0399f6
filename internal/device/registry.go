package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device state with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by every write. Writes go to the repository first; the cache is only
// touched once the row is stored.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	loaded  bool               // cache holds every device
	cacheMu sync.RWMutex       // Protects cache and loaded
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}
	r.loaded = true

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices ordered by ID.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.filter(ctx, func(*Device) bool { return true }, r.repo.List)
}

// ListByOwner retrieves the devices owned by ownerID, ordered by ID.
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]Device, error) {
	return r.filter(ctx,
		func(d *Device) bool { return d.OwnerID == ownerID },
		func(ctx context.Context) ([]Device, error) { return r.repo.ListByOwner(ctx, ownerID) },
	)
}

func (r *Registry) filter(ctx context.Context, keep func(*Device) bool, fallback func(context.Context) ([]Device, error)) ([]Device, error) {
	r.cacheMu.RLock()
	if !r.loaded {
		r.cacheMu.RUnlock()
		return fallback(ctx)
	}

	var devices []Device
	for _, d := range r.cache {
		if keep(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// ApplyHeartbeat stores a heartbeat, creating the device if needed, and
// returns the resulting device.
func (r *Registry) ApplyHeartbeat(ctx context.Context, u HeartbeatUpdate) (*Device, error) {
	if err := r.repo.UpsertHeartbeat(ctx, u); err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	cached, ok := r.cache[u.ID]
	if ok {
		updated := cached.DeepCopy()
		updated.OwnerID = u.OwnerID
		updated.LastHeard = u.Heard
		updated.UptimeMs = u.UptimeMs
		updated.Config = u.Config
		updated.LockState = u.LockState
		if u.ClearLockdown {
			updated.LockedDownAt = nil
		}
		updated.UpdatedAt = time.Now().UTC()
		r.cache[u.ID] = updated
		r.cacheMu.Unlock()
		return updated.DeepCopy(), nil
	}
	r.cacheMu.Unlock()

	// First heartbeat from this device: read back the defaults the row got.
	device, err := r.repo.GetByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading device after heartbeat: %w", err)
	}

	r.cacheMu.Lock()
	r.cache[u.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device registered", "id", u.ID, "owner_id", u.OwnerID)
	return device, nil
}

// SetLockdown marks the device as locked down since at.
func (r *Registry) SetLockdown(ctx context.Context, id string, at time.Time) (*Device, error) {
	if err := r.repo.SetLockdown(ctx, id, at); err != nil {
		return nil, err
	}
	return r.mutate(ctx, id, func(d *Device) {
		t := at.UTC()
		d.LockedDownAt = &t
	})
}

// SetLockState stores the bolt position reported by a lock report.
func (r *Registry) SetLockState(ctx context.Context, id string, state LockState) (*Device, error) {
	if err := r.repo.SetLockState(ctx, id, state); err != nil {
		return nil, err
	}
	return r.mutate(ctx, id, func(d *Device) { d.LockState = state })
}

// UpdateSettings stores the backend-only settings.
func (r *Registry) UpdateSettings(ctx context.Context, id string, s Settings) (*Device, error) {
	if err := r.repo.UpdateSettings(ctx, id, s); err != nil {
		return nil, err
	}
	return r.mutate(ctx, id, func(d *Device) { d.Settings = s })
}

// mutate applies fn to a copy of the cached device and swaps it in.
// An uncached device is loaded from the repository instead.
func (r *Registry) mutate(ctx context.Context, id string, fn func(*Device)) (*Device, error) {
	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		fn(updated)
		updated.UpdatedAt = time.Now().UTC()
		r.cache[id] = updated
		r.cacheMu.Unlock()
		return updated.DeepCopy(), nil
	}
	r.cacheMu.Unlock()

	return r.GetDevice(ctx, id)
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// GetStats returns lock state counts over the cached devices.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var s Stats
	for _, d := range r.cache {
		s.Total++
		switch d.LockState {
		case LockStateLocked:
			s.Locked++
		case LockStateUnlocked:
			s.Unlocked++
		default:
			s.Unknown++
		}
		if d.LockedDown() {
			s.LockedDown++
		}
	}
	return s
}
