package api

import (
	"github.com/radiosky/gosky/internal/archive"
	"github.com/radiosky/gosky/internal/sky"
)

// Registry maps model names to their family definitions and the archive
// store backing them. Registration happens once at startup; afterwards
// the registry is read-only and safe for concurrent handlers.
type Registry struct {
	names   []string
	entries map[string]Entry
}

// Entry is one registered model family.
type Entry struct {
	Def   sky.Definition
	Store *archive.Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a model family. Registering the same name twice keeps
// the latest definition but not a duplicate listing.
func (r *Registry) Register(def sky.Definition, store *archive.Store) {
	if _, ok := r.entries[def.Name]; !ok {
		r.names = append(r.names, def.Name)
	}
	r.entries[def.Name] = Entry{Def: def, Store: store}
}

// Names returns model names in registration order.
func (r *Registry) Names() []string {
	return r.names
}

// Lookup returns the entry for a model name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Ready reports whether every registered model has a loaded archive.
func (r *Registry) Ready() bool {
	if len(r.names) == 0 {
		return false
	}
	for _, e := range r.entries {
		if !e.Store.Ready() {
			return false
		}
	}
	return true
}
