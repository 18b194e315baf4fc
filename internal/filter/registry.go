package filter

import (
	"errors"
	"fmt"
)

// ErrUnknownFilter is returned when a route names a filter that was never
// registered.
var ErrUnknownFilter = errors.New("unknown filter")

// Registry maps filter names to instances. Routes reference filters by name
// only; the mapping is resolved at dispatch time, so a filter never holds a
// back-reference to the routes using it.
type Registry struct {
	filters map[string]Filter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]Filter)}
}

// Register adds a filter under its own name, replacing any previous
// registration.
func (r *Registry) Register(f Filter) {
	r.filters[f.Name()] = f
}

// Get returns the filter registered under name.
func (r *Registry) Get(name string) (Filter, bool) {
	f, ok := r.filters[name]
	return f, ok
}

// Resolve maps an ordered list of names to filter instances, preserving
// order. An unknown name is a configuration error.
func (r *Registry) Resolve(names []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(names))
	for _, name := range names {
		f, ok := r.filters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
