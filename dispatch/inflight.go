package dispatch

import (
	"sync"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
)

// Tracker is the set of listing ids currently under active dispatch. It
// guarantees at most one active render per id: TryAdd either reserves the id
// or reports that another dispatch already holds it.
type Tracker struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewTracker creates an empty in-flight tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[string]struct{})}
}

// TryAdd reserves the id. It returns false when the id is already in flight.
func (t *Tracker) TryAdd(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ids[id]; exists {
		return false
	}
	t.ids[id] = struct{}{}
	monitoring.UpdateInFlight(len(t.ids))
	return true
}

// Remove releases the id. Safe to call for ids that are not present.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.ids, id)
	monitoring.UpdateInFlight(len(t.ids))
}

// Contains reports whether the id is currently in flight.
func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.ids[id]
	return exists
}

// Len returns the number of in-flight listings.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.ids)
}
