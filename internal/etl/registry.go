package etl

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh pipeline instance. A new instance is built per run so
// connection state never leaks between runs.
type Factory func() Pipeline

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePipeline, name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

func (r *Registry) Exists(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Build returns a new pipeline for the named view.
func (r *Registry) Build(name string) (Pipeline, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return f(), nil
}

// Names lists registered views in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
