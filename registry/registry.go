/*
Package registry holds the ordered list of rendering worker endpoints.

Selection is round-robin: a single monotonically increasing cursor reduced
modulo the current list length picks the next endpoint. Replacing the list
does not reset the cursor, so a shrinking list wraps and a growing list simply
resumes rotation. The registry keeps no per-endpoint health state; health and
backoff are a dispatcher concern.
*/
package registry

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
)

// Store persists the endpoint list across restarts.
type Store interface {
	Load() ([]string, error)
	Save(endpoints []string) error
}

// Registry is the process-wide worker endpoint list with a shared rotation
// cursor. All mutation is serialized under one mutex.
type Registry struct {
	mu        sync.Mutex
	endpoints []string
	cursor    uint64
	store     Store
	logger    *logrus.Logger
}

// New creates a registry, loading the persisted endpoint list from the store.
// When the store is empty the fallback list is used and written through.
func New(store Store, fallback []string, logger *logrus.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		logger: logger,
	}

	endpoints, err := store.Load()
	if err != nil {
		monitoring.RecordPersistence("load", "failed")
		return nil, fmt.Errorf("failed to load worker endpoints: %v", err)
	}
	monitoring.RecordPersistence("load", "success")

	if len(endpoints) == 0 {
		endpoints = append([]string(nil), fallback...)
		if len(endpoints) > 0 {
			if err := store.Save(endpoints); err != nil {
				monitoring.RecordPersistence("save", "failed")
				logger.WithError(err).Warn("Failed to persist initial worker endpoints")
			} else {
				monitoring.RecordPersistence("save", "success")
			}
		}
	}

	r.endpoints = endpoints

	logger.WithField("worker_count", len(endpoints)).Info("Worker registry initialized")

	return r, nil
}

// Next returns the endpoint at the current rotation position and advances
// the cursor. It returns "" when the list is empty.
func (r *Registry) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.endpoints) == 0 {
		return ""
	}

	endpoint := r.endpoints[r.cursor%uint64(len(r.endpoints))]
	r.cursor++
	return endpoint
}

// Replace atomically swaps the endpoint list and writes it through to the
// store. The in-memory swap applies even when persistence fails; the failure
// is logged and surfaced through metrics only.
func (r *Registry) Replace(endpoints []string) error {
	if len(endpoints) == 0 {
		return fmt.Errorf("worker endpoint list cannot be empty")
	}
	for _, endpoint := range endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("invalid worker endpoint %q", endpoint)
		}
	}

	r.mu.Lock()
	r.endpoints = append([]string(nil), endpoints...)
	r.mu.Unlock()

	r.logger.WithField("worker_count", len(endpoints)).Info("Worker endpoint list replaced")

	if err := r.store.Save(endpoints); err != nil {
		monitoring.RecordPersistence("save", "failed")
		r.logger.WithError(err).Error("Failed to persist worker endpoints; in-memory list still applies")
		return nil
	}
	monitoring.RecordPersistence("save", "success")

	return nil
}

// All returns a snapshot of the endpoint list.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.endpoints...)
}

// Len returns the current number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.endpoints)
}
