package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrFactoryNotFound indicates no factory is registered for the provider.
	ErrFactoryNotFound = errors.New("provider factory not found")
)

// ProviderFactory creates a Provider from its configuration.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// Registry maps provider names to factories. Factories are registered up
// front and only instantiated by New, so an unused provider costs nothing.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// RegisterFactory registers a provider factory. Registering the same name
// twice overwrites the previous factory.
func (r *Registry) RegisterFactory(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// HasFactory returns true if a factory is registered for name.
func (r *Registry) HasFactory(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// ListFactories returns the registered names, sorted alphabetically.
func (r *Registry) ListFactories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the provider registered under name.
func (r *Registry) New(name string, cfg ProviderConfig) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}
	return p, nil
}
