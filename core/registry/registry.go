package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/core/embeddings"
	"github.com/leofalp/sagent/providers/ai"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrEmbeddingsUnsupported = errors.New("provider does not support embeddings")
	ErrInvalidFactory        = errors.New("invalid provider factory")
)

// ProviderValue carries explicit credentials for FromValue constructors.
// Providers ignore fields they do not use.
type ProviderValue struct {
	APIKey     string
	BaseURL    string
	APIVersion string
}

// Factory builds one named provider either from the environment or from an
// explicit value. Both constructors are required.
type Factory struct {
	Name      string
	FromEnv   func() (ai.Provider, error)
	FromValue func(ProviderValue) (ai.Provider, error)
}

// Registry maps provider names to factories. Build one at startup with New
// and Register; there is no package-level registry.
type Registry struct {
	factories map[string]Factory
}

// New returns a registry holding factories.
func New(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for _, factory := range factories {
		if err := r.Register(factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds factory, replacing any factory with the same name.
func (r *Registry) Register(factory Factory) error {
	switch {
	case factory.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidFactory)
	case factory.FromEnv == nil:
		return fmt.Errorf("%w: %s has no environment constructor", ErrInvalidFactory, factory.Name)
	case factory.FromValue == nil:
		return fmt.Errorf("%w: %s has no value constructor", ErrInvalidFactory, factory.Name)
	}
	r.factories[factory.Name] = factory
	return nil
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) factory(name string) (Factory, error) {
	factory, ok := r.factories[name]
	if !ok {
		return Factory{}, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return factory, nil
}

// Client builds the named provider from the environment.
func (r *Registry) Client(name string) (ai.Provider, error) {
	factory, err := r.factory(name)
	if err != nil {
		return nil, err
	}
	provider, err := factory.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return provider, nil
}

// ClientFromValue builds the named provider from explicit credentials.
func (r *Registry) ClientFromValue(name string, value ProviderValue) (ai.Provider, error) {
	factory, err := r.factory(name)
	if err != nil {
		return nil, err
	}
	provider, err := factory.FromValue(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return provider, nil
}

// Agent starts an agent builder for model on the named provider.
func (r *Registry) Agent(name, model string) (*agent.Builder, error) {
	provider, err := r.Client(name)
	if err != nil {
		return nil, err
	}
	return agent.NewBuilder(provider, model), nil
}

// Embeddings returns an embedding model on the named provider.
func (r *Registry) Embeddings(name, model string, opts ...embeddings.Option) (*embeddings.Model, error) {
	provider, err := r.Client(name)
	if err != nil {
		return nil, err
	}
	embedder, ok := provider.(ai.EmbeddingProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingsUnsupported, name)
	}
	return embeddings.NewModel(embedder, model, opts...), nil
}
