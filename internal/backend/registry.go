package backend

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds the providers compiled into the binary, in registration
// order. Registration of a duplicate provider name is a programmer error,
// so it panics at startup rather than failing a run later.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, dup := r.providers[name]; dup {
		panic(fmt.Sprintf("backend provider %q registered twice", name))
	}
	r.providers[name] = p
	r.order = append(r.order, name)
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Backends lists every backend from every provider. A provider failure
// aborts the listing; partial catalogs would make backend selection
// misleading.
func (r *Registry) Backends(ctx context.Context) ([]Backend, error) {
	var out []Backend
	for _, p := range r.Providers() {
		backends, err := p.Backends(ctx)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		out = append(out, backends...)
	}
	return out, nil
}

// Lookup finds a backend by name across all providers.
func (r *Registry) Lookup(ctx context.Context, name string) (Backend, error) {
	for _, p := range r.Providers() {
		b, err := p.Backend(ctx, name)
		if err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("backend %q not found", name)
}

// FirstOperational returns the first backend reporting an operational
// status, the fallback used when the user names no backend and declines the
// interactive picker.
func (r *Registry) FirstOperational(ctx context.Context) (Backend, error) {
	backends, err := r.Backends(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range backends {
		status, err := b.Status(ctx)
		if err != nil {
			continue
		}
		if status.Operational {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no operational backends available")
}
