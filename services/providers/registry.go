package providers

import (
	"context"
	"sync"
)

// Registry maps provider names to adapter instances. Registration normally
// happens once during startup wiring, but wiring may run from asynchronous
// initialization, so the map is guarded for concurrent register/read.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Provider
	order    []string
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Provider),
	}
}

// Register adds an adapter under its own name. Registering a second adapter
// with the same name replaces the first and keeps its position in the
// registration order; it is never an error.
func (r *Registry) Register(adapter Provider) {
	if adapter == nil || adapter.Name() == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = adapter
}

// Get looks up an adapter by name. Absence is not an error at this layer;
// callers decide what a missing provider means.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	return adapter, ok
}

// ListNames returns the registered provider names in registration order.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered adapters
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.adapters)
}

// Availability probes every registered adapter and collects the results.
// Probes run concurrently and independently; a misbehaving adapter (even one
// that panics) cannot abort the other probes.
func (r *Registry) Availability(ctx context.Context) map[string]bool {
	r.mu.RLock()
	adapters := make(map[string]Provider, len(r.adapters))
	for name, adapter := range r.adapters {
		adapters[name] = adapter
	}
	r.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]bool, len(adapters))
	)

	for name, adapter := range adapters {
		wg.Add(1)
		go func(name string, adapter Provider) {
			defer wg.Done()

			available := probe(ctx, adapter)

			mu.Lock()
			results[name] = available
			mu.Unlock()
		}(name, adapter)
	}

	wg.Wait()
	return results
}

// probe isolates a single adapter's liveness check
func probe(ctx context.Context, adapter Provider) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()
	return adapter.IsAvailable(ctx)
}
