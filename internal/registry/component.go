// Package registry keeps the components of one application build in
// discovery order and resolves them into a build order.
package registry

import (
	"sync"

	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
)

// ComponentRegistry holds the records of one application build in the order
// they were registered. Names are unique.
type ComponentRegistry struct {
	records []*component.Record
	index   map[string]int
	mutex   sync.RWMutex
}

// NewComponentRegistry creates a new component registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		index: make(map[string]int),
	}
}

// Register appends a record. A second record with an already registered
// name is rejected.
func (r *ComponentRegistry) Register(rec *component.Record) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if i, exists := r.index[rec.Name()]; exists {
		return duplicateError(r.records[i], rec)
	}

	r.index[rec.Name()] = len(r.records)
	r.records = append(r.records, rec)
	return nil
}

// Get retrieves a component by name
func (r *ComponentRegistry) Get(name string) (*component.Record, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	i, exists := r.index[name]
	if !exists {
		return nil, false
	}
	return r.records[i], true
}

// All returns the registered records in registration order.
func (r *ComponentRegistry) All() []*component.Record {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*component.Record, len(r.records))
	copy(result, r.records)
	return result
}

// Names returns the registered names in registration order.
func (r *ComponentRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.Name()
	}
	return names
}

// Count returns the number of registered components
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.records)
}

// ResolveOrder resolves the registered records into a build order.
func (r *ComponentRegistry) ResolveOrder() ([]string, error) {
	return Resolve(r.All())
}

// GetDependents returns the records that declare name as a dependency, in
// registration order.
func (r *ComponentRegistry) GetDependents(name string) []*component.Record {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var dependents []*component.Record
	for _, rec := range r.records {
		for _, dep := range rec.Dependencies() {
			if dep == name {
				dependents = append(dependents, rec)
				break
			}
		}
	}
	return dependents
}

func duplicateError(first, second *component.Record) error {
	return &errors.MalformedComponentError{
		Source:  second.Source(),
		Element: "name",
		Reason:  "duplicate component name " + second.Name() + ", first defined in " + first.Source(),
	}
}
