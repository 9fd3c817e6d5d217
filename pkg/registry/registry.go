// Package registry maps engine type tags to constructors.
//
// A Registry is an ordinary value owned by whoever creates it; there is no
// package-level instance.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/engine"
)

// ErrUnregisteredEngineType is returned when no factory exists for a type.
// No engine is created.
var ErrUnregisteredEngineType = errors.New("unregistered engine type")

// Factory creates an engine bound to a graph.
type Factory func(g *domain.Graph, opts ...engine.Option) engine.Engine

// Info describes a registered engine type.
type Info struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}

type entry struct {
	info    Info
	factory Factory
}

// Registry manages the available engine types.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]entry
	defaultType string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// NewWithBuiltins creates a registry holding the Dependency and Forward
// engines, with Dependency as the default.
func NewWithBuiltins() *Registry {
	r := New()
	r.Register(engine.TypeDependency, Info{
		Name:        "Dependency Engine",
		Description: "Recalculates the whole graph in topological order.",
	}, func(g *domain.Graph, opts ...engine.Option) engine.Engine {
		return engine.NewDependency(g, opts...)
	})
	r.Register(engine.TypeForward, Info{
		Name:        "Forward Engine",
		Description: "Propagates changes downstream from the node that changed.",
	}, func(g *domain.Graph, opts ...engine.Option) engine.Engine {
		return engine.NewForward(g, opts...)
	})
	return r
}

// Register adds an engine type. If the type exists, it is overwritten.
// The first registered type becomes the default.
func (r *Registry) Register(engineType string, info Info, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info.Type = engineType
	r.entries[engineType] = entry{info: info, factory: factory}
	if r.defaultType == "" {
		r.defaultType = engineType
	}
}

// Create builds an engine of the given type for g.
func (r *Registry) Create(engineType string, g *domain.Graph, opts ...engine.Option) (engine.Engine, error) {
	r.mu.RLock()
	e, ok := r.entries[engineType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredEngineType, engineType)
	}
	return e.factory(g, opts...), nil
}

// CreateDefault builds an engine of the default type.
func (r *Registry) CreateDefault(g *domain.Graph, opts ...engine.Option) (engine.Engine, error) {
	return r.Create(r.DefaultType(), g, opts...)
}

// AvailableTypes returns the registered types sorted by tag.
func (r *Registry) AvailableTypes() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		info := e.info
		info.Default = info.Type == r.defaultType
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

// SetDefaultType selects the type used by CreateDefault.
func (r *Registry) SetDefaultType(engineType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[engineType]; !ok {
		return fmt.Errorf("%w: %q", ErrUnregisteredEngineType, engineType)
	}
	r.defaultType = engineType
	return nil
}

// DefaultType returns the current default type, empty when nothing is registered.
func (r *Registry) DefaultType() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultType
}
