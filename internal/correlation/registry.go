package correlation

import (
	"sync"
	"time"
)

type waiterKey struct {
	deviceID string
	track    Track
}

// Registry tracks outstanding waiters, one per device per track.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	waiters map[waiterKey]*Waiter
	now     func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		waiters: make(map[waiterKey]*Waiter),
		now:     time.Now,
	}
}

// RegisterProbe creates the liveness-probe waiter for deviceID, replacing
// any existing one. Call it before publishing the PING.
func (r *Registry) RegisterProbe(deviceID string) *Waiter {
	return r.register(deviceID, TrackProbe)
}

// RegisterConfig creates the configuration waiter for deviceID, replacing
// any existing one. Call it before publishing update_config.
func (r *Registry) RegisterConfig(deviceID string) *Waiter {
	return r.register(deviceID, TrackConfig)
}

// ResolveProbe completes and removes the current probe waiter for deviceID.
// It returns false when nothing was waiting.
func (r *Registry) ResolveProbe(deviceID string) bool {
	return r.resolve(deviceID, TrackProbe)
}

// ResolveConfig completes and removes the current configuration waiter for
// deviceID. It returns false when nothing was waiting.
func (r *Registry) ResolveConfig(deviceID string) bool {
	return r.resolve(deviceID, TrackConfig)
}

// Cancel removes w if it is still registered. Use it when the command
// could not be published. Cancelling never resolves w.
func (r *Registry) Cancel(w *Waiter) {
	if w == nil {
		return
	}
	r.removeIfCurrent(w)
}

// Pending returns the number of outstanding waiters.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *Registry) register(deviceID string, track Track) *Waiter {
	w := newWaiter(r, deviceID, track, r.now())

	r.mu.Lock()
	r.waiters[waiterKey{deviceID, track}] = w
	r.mu.Unlock()

	return w
}

func (r *Registry) resolve(deviceID string, track Track) bool {
	k := waiterKey{deviceID, track}

	r.mu.Lock()
	w, ok := r.waiters[k]
	if ok {
		delete(r.waiters, k)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	return w.complete()
}

func (r *Registry) removeIfCurrent(w *Waiter) {
	k := waiterKey{w.deviceID, w.track}

	r.mu.Lock()
	if r.waiters[k] == w {
		delete(r.waiters, k)
	}
	r.mu.Unlock()
}
