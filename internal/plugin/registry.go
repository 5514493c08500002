package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned for an unknown plugin id.
	ErrNotFound = errors.New("plugin not found")
	// ErrRootPathFixed is returned when a patch tries to move an existing plugin.
	ErrRootPathFixed = errors.New("plugin root path cannot change")
)

// Registry maps plugin ids to their records. Each call is atomic; the
// registry knows nothing about builds in flight.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]Record),
	}
}

// Upsert merges p into the record for id, creating it if absent, and returns
// the resulting record.
func (r *Registry) Upsert(id string, p Patch) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("upsert: empty plugin id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.records[id]
	if !exists {
		cur = Record{ID: id, Status: Pending()}
	}
	if exists && p.RootPath != nil && *p.RootPath != cur.RootPath {
		return cur.clone(), fmt.Errorf("plugin %q: %w", id, ErrRootPathFixed)
	}

	next := p.apply(cur)
	r.records[id] = next
	return next.clone(), nil
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// List returns copies of all records sorted by id.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes the record for id. It reports whether a record was removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return true
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
