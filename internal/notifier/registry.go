package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// Names returns the registered notifier names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends a trade to all registered notifiers. The returned map
// holds the failures by notifier name.
func (r *Registry) NotifyAll(ctx context.Context, trade Trade) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errors := make(map[string]error)
	for name, n := range r.notifiers {
		if err := n.Send(ctx, trade); err != nil {
			errors[name] = err
		}
	}
	return errors
}
