package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/pkg/types"
)

// modelServer is implemented by providers that answer for named models.
type modelServer interface {
	ServesModel(name string) bool
}

// Registry manages the available providers. Registration order is kept and
// decides which provider wins when several can serve a request.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	preferred string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// SetDefault names the provider preferred when a lookup gives no ID.
func (r *Registry) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferred = providerID
}

// Register adds a provider, replacing any provider with the same ID.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.ID()
	if _, ok := r.providers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.providers[id] = provider
}

// Unregister removes a provider by ID.
func (r *Registry) Unregister(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[providerID]; !ok {
		return
	}
	delete(r.providers, providerID)
	for i, id := range r.order {
		if id == providerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return provider, nil
}

// List returns providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		providers = append(providers, r.providers[id])
	}
	return providers
}

// Resolve picks a provider for mode: by ID when one is given, otherwise the
// default provider if it supports the mode, otherwise the first registered
// provider that does.
func (r *Registry) Resolve(providerID string, mode types.Mode) (Provider, error) {
	return r.ResolveFor(providerID, "", mode)
}

// ResolveFor is Resolve with a model hint: without an explicit ID, a provider
// that serves modelName is preferred over the default.
func (r *Registry) ResolveFor(providerID, modelName string, mode types.Mode) (Provider, error) {
	if providerID != "" {
		p, err := r.Get(providerID)
		if err != nil {
			return nil, err
		}
		if !p.Supports(mode) {
			return nil, unsupported(p, mode)
		}
		return p, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if modelName != "" {
		for _, id := range r.order {
			p := r.providers[id]
			if ms, ok := p.(modelServer); ok && ms.ServesModel(modelName) && p.Supports(mode) {
				return p, nil
			}
		}
	}
	if p, ok := r.providers[r.preferred]; ok && p.Supports(mode) {
		return p, nil
	}
	for _, id := range r.order {
		if p := r.providers[id]; p.Supports(mode) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no provider supports %s", ErrProviderNotFound, mode)
}

// ServesModel reports whether p answers for modelName.
func ServesModel(p Provider, modelName string) bool {
	ms, ok := p.(modelServer)
	return ok && modelName != "" && ms.ServesModel(modelName)
}

// InitializeProviders creates and registers all providers from config.
// A provider that fails to build is skipped with a warning.
func InitializeProviders(ctx context.Context, config *types.Config) (*Registry, error) {
	registry := NewRegistry()
	registry.SetDefault(config.DefaultProvider)
	log := logging.Component("provider")

	register := func(id string, build func(cfg types.ProviderConfig) (Provider, error)) {
		cfg, ok := config.Provider[id]
		if !ok || cfg.Disable {
			return
		}
		p, err := build(cfg)
		if err != nil {
			log.Warn().Err(err).Str("provider", id).Msg("provider skipped")
			return
		}
		registry.Register(p)
		log.Debug().Str("provider", id).Msg("provider registered")
	}

	register("anthropic", func(cfg types.ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(ctx, UpstreamConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	})
	register("openai", func(cfg types.ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(ctx, UpstreamConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	})
	register("ark", func(cfg types.ProviderConfig) (Provider, error) {
		return NewArkProvider(ctx, UpstreamConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	})
	register("gemini", func(cfg types.ProviderConfig) (Provider, error) {
		return NewGenAIProvider(ctx, &GenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			ImageModel: cfg.ImageModel,
			MaxTokens:  cfg.MaxTokens,
		})
	})
	register(TestProviderID, func(cfg types.ProviderConfig) (Provider, error) {
		return NewTestProvider(), nil
	})

	return registry, nil
}
