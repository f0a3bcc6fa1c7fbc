package collector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/crossover/internal/core"
)

// Registry manages bar providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]BarProvider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]BarProvider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p BarProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (BarProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// MustGet retrieves a provider by name, reporting an unknown name as invalid configuration.
func (r *Registry) MustGet(name string) (BarProvider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data source %q (have %v)", name, r.Names()))
	}
	return p, nil
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
