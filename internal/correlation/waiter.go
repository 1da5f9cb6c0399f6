package correlation

import (
	"context"
	"sync"
	"time"
)

// Track selects which acknowledgment a waiter expects.
type Track int

const (
	// TrackProbe waiters are resolved by a PONG event.
	TrackProbe Track = iota + 1
	// TrackConfig waiters are resolved by a CONFIG_UPDATED event.
	TrackConfig
)

func (t Track) String() string {
	switch t {
	case TrackProbe:
		return "probe"
	case TrackConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Outcome is how a wait ended.
type Outcome int

const (
	Resolved Outcome = iota + 1
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Waiter is a single-use completion signal for one command.
type Waiter struct {
	deviceID string
	track    Track
	issuedAt time.Time

	done chan struct{}
	once sync.Once

	registry *Registry
}

func newWaiter(r *Registry, deviceID string, track Track, issuedAt time.Time) *Waiter {
	return &Waiter{
		deviceID: deviceID,
		track:    track,
		issuedAt: issuedAt,
		done:     make(chan struct{}),
		registry: r,
	}
}

// DeviceID returns the device the waiter belongs to.
func (w *Waiter) DeviceID() string { return w.deviceID }

// Track returns which acknowledgment the waiter expects.
func (w *Waiter) Track() Track { return w.track }

// IssuedAt returns when the waiter was registered.
func (w *Waiter) IssuedAt() time.Time { return w.issuedAt }

// Done is closed once the waiter is resolved.
func (w *Waiter) Done() <-chan struct{} { return w.done }

// complete closes done exactly once and reports whether this call did it.
func (w *Waiter) complete() bool {
	fired := false
	w.once.Do(func() {
		close(w.done)
		fired = true
	})
	return fired
}

// Await blocks until the waiter is resolved, timeout elapses or ctx ends.
//
// On timeout or cancellation the waiter removes itself from its registry,
// but only if it is still the registered waiter for its device and track.
// A resolution that lands before that removal still counts.
//
// The error is non-nil only for cancellation and wraps ctx.Err().
func (w *Waiter) Await(ctx context.Context, timeout time.Duration) (Outcome, error) {
	if w == nil {
		return 0, ErrNilWaiter
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return Resolved, nil
	case <-timer.C:
		if w.withdraw() {
			return Resolved, nil
		}
		return TimedOut, nil
	case <-ctx.Done():
		if w.withdraw() {
			return Resolved, nil
		}
		return Cancelled, ctx.Err()
	}
}

// withdraw removes the waiter from its registry and reports whether it had
// already been resolved.
func (w *Waiter) withdraw() bool {
	if w.registry != nil {
		w.registry.removeIfCurrent(w)
	}
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
