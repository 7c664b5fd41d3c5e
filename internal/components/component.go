// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/strongbox/internal/faults"
)

// Component dumps one platform component into a directory and restores it back.
type Component interface {
	// Name is one of the models.Component* names.
	Name() string
	// Dump writes the component's data into dir, which already exists.
	Dump(ctx context.Context, dir string) error
	// Restore applies the data previously written by Dump from dir.
	Restore(ctx context.Context, dir string) error
	// Version reports the running component version.
	Version(ctx context.Context) (string, error)
}

// Prober checks that a restored system is usable.
type Prober interface {
	Name() string
	Probe(ctx context.Context) error
}

// Registry maps component names to implementations.
type Registry struct {
	components map[string]Component
}

// NewRegistry registers comps. Registering a name twice is a ConfigurationError.
func NewRegistry(comps ...Component) (*Registry, error) {
	r := &Registry{components: make(map[string]Component, len(comps))}
	for _, c := range comps {
		if _, dup := r.components[c.Name()]; dup {
			return nil, faults.Configuration("components", fmt.Sprintf("component %q registered twice", c.Name()))
		}
		r.components[c.Name()] = c
	}
	return r, nil
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the components for names in the given order, failing on
// the first unknown name.
func (r *Registry) Resolve(names []string) ([]Component, error) {
	out := make([]Component, 0, len(names))
	for _, n := range names {
		c, ok := r.components[n]
		if !ok {
			return nil, faults.Configuration("components", fmt.Sprintf("component %q is not registered", n))
		}
		out = append(out, c)
	}
	return out, nil
}
