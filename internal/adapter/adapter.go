package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/evalgate/evalgate/internal/models"
)

// ErrUnregistered is returned when no factory exists for an adapter
// identifier.
var ErrUnregistered = errors.New("unregistered adapter")

// Adapter drives one system under test. Setup is called once before a
// run's first case and Teardown after its last; Run is called once per
// case, strictly sequentially, because conversational adapters carry
// dialogue state between calls.
type Adapter interface {
	Setup(ctx context.Context) error
	Run(ctx context.Context, query string) (*models.PipelineOutput, error)
	Teardown() error
}

// Factory builds an adapter from a run's pipeline configuration.
type Factory func(config map[string]any) (Adapter, error)

// Registry maps stable adapter identifiers to factories. Identifiers
// are data (they travel in run configs); constructors are code
// registered at process start. Unknown identifiers fail fast.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *Registry) Create(name string, config map[string]any) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregistered, name)
	}
	return factory(config)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// NewDemoRegistry returns a registry with the built-in demo adapters,
// the same set the demo test sets reference.
func NewDemoRegistry() *Registry {
	r := NewRegistry()
	r.Register("demo_rag", func(config map[string]any) (Adapter, error) {
		return NewDemoRAG(configInt(config, "top_k", 3)), nil
	})
	r.Register("demo_search", func(config map[string]any) (Adapter, error) {
		return NewDemoSearch(configInt(config, "top_k", 5)), nil
	})
	r.Register("demo_tool_agent", func(config map[string]any) (Adapter, error) {
		return NewDemoToolAgent(), nil
	})
	r.Register("demo_chatbot", func(config map[string]any) (Adapter, error) {
		return NewDemoChatbot(nil), nil
	})
	return r
}

func configInt(config map[string]any, key string, fallback int) int {
	if config == nil {
		return fallback
	}
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
