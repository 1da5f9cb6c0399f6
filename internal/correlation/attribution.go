package correlation

import (
	"sync"
	"time"
)

// AttributionMaxAge is how long after a command a lock report may still be
// credited to the command's issuer.
const AttributionMaxAge = 5 * time.Second

type attribution struct {
	actorID  string
	issuedAt time.Time
}

// AttributionWindow remembers the last command issuer per device.
//
// It is a heuristic: two users commanding the same lock inside the window,
// or someone turning the key by hand just after an app command, will be
// misattributed.
type AttributionWindow struct {
	mu      sync.Mutex
	entries map[string]attribution
	maxAge  time.Duration
}

// NewAttributionWindow creates an empty window using AttributionMaxAge.
func NewAttributionWindow() *AttributionWindow {
	return &AttributionWindow{
		entries: make(map[string]attribution),
		maxAge:  AttributionMaxAge,
	}
}

// Record notes that actorID commanded deviceID at now, overwriting any
// earlier entry for the device.
func (a *AttributionWindow) Record(deviceID, actorID string, now time.Time) {
	a.mu.Lock()
	a.entries[deviceID] = attribution{actorID: actorID, issuedAt: now}
	a.mu.Unlock()
}

// TakeIfRecent returns the actor behind the last command to deviceID if it
// was issued less than the window ago. The entry is removed whether or not
// it was recent enough, so each command is credited at most once.
func (a *AttributionWindow) TakeIfRecent(deviceID string, now time.Time) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[deviceID]
	if !ok {
		return "", false
	}
	delete(a.entries, deviceID)

	if now.Sub(e.issuedAt) >= a.maxAge {
		return "", false
	}
	return e.actorID, true
}

// Len returns the number of remembered commands.
func (a *AttributionWindow) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
