package registry

import (
	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
)

// Resolve returns a build order for records in which every component comes
// after all of its dependencies.
//
// The order is a post-order depth-first traversal: roots are visited in the
// order of records and dependencies in declaration order, so equal input
// yields an equal order. The traversal state belongs to this call only.
func Resolve(records []*component.Record) ([]string, error) {
	res := &resolver{
		byName: make(map[string]*component.Record, len(records)),
		done:   make(map[string]bool, len(records)),
		onPath: make(map[string]int),
		order:  make([]string, 0, len(records)),
	}

	for _, rec := range records {
		if first, exists := res.byName[rec.Name()]; exists {
			return nil, duplicateError(first, rec)
		}
		res.byName[rec.Name()] = rec
	}

	for _, rec := range records {
		if err := res.visit(rec); err != nil {
			return nil, err
		}
	}

	return res.order, nil
}

type resolver struct {
	byName map[string]*component.Record
	done   map[string]bool
	// onPath maps the names on the current recursion path to their position
	// in path.
	onPath map[string]int
	path   []string
	order  []string
}

func (r *resolver) visit(rec *component.Record) error {
	name := rec.Name()
	if r.done[name] {
		return nil
	}

	if start, active := r.onPath[name]; active {
		cycle := make([]string, 0, len(r.path)-start+1)
		cycle = append(cycle, r.path[start:]...)
		cycle = append(cycle, name)
		return &errors.CyclicDependencyError{Path: cycle}
	}

	r.onPath[name] = len(r.path)
	r.path = append(r.path, name)

	for _, dep := range rec.Dependencies() {
		next, exists := r.byName[dep]
		if !exists {
			return &errors.UnknownDependencyError{
				Component:  name,
				Source:     rec.Source(),
				Dependency: dep,
			}
		}
		if err := r.visit(next); err != nil {
			return err
		}
	}

	r.path = r.path[:len(r.path)-1]
	delete(r.onPath, name)
	r.done[name] = true
	r.order = append(r.order, name)

	return nil
}
