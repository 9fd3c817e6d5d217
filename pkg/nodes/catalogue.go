// Package nodes provides the node type catalogue: the calculation function and
// interface declarations behind each node type tag.
package nodes

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/schema"
)

var (
	// ErrUnknownNodeType is returned when no definition exists for a type tag.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDuplicateNodeType is returned when a type tag is registered twice.
	ErrDuplicateNodeType = errors.New("node type already registered")

	// ErrUndeclaredInterface is returned when a document sets an interface the
	// node type does not declare.
	ErrUndeclaredInterface = errors.New("undeclared interface")
)

// Port declares an interface and its default value. Type is optional.
type Port struct {
	Name    string
	Default any
	Type    schema.Type
}

// Definition describes a node type.
type Definition struct {
	Type        string
	Description string
	Inputs      []Port
	Outputs     []Port
	// Calculate is nil for pure value holders.
	Calculate domain.CalculateFunc
	// DynamicInputs accepts inputs beyond the declared ones, declared in
	// lexical order after them.
	DynamicInputs bool
}

// InputSchema returns the types of the typed inputs.
func (d Definition) InputSchema() schema.Schema {
	s := make(schema.Schema)
	for _, p := range d.Inputs {
		if p.Type != nil {
			s[p.Name] = p.Type
		}
	}
	return s
}

// Catalogue maps type tags to definitions. It is safe for concurrent use.
type Catalogue struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{defs: make(map[string]Definition)}
}

// Register adds a definition.
func (c *Catalogue) Register(def Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[def.Type]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeType, def.Type)
	}
	c.defs[def.Type] = def
	return nil
}

// Lookup returns the definition of a type tag.
func (c *Catalogue) Lookup(nodeType string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[nodeType]
	return def, ok
}

// Types returns the registered type tags in lexical order.
func (c *Catalogue) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.defs))
	for t := range c.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New instantiates a node of the given type. Values in inputs and outputs
// replace the declared defaults. An empty id generates one.
func (c *Catalogue) New(nodeType, id string, inputs, outputs map[string]any) (*domain.Node, error) {
	def, ok := c.Lookup(nodeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	var opts []domain.NodeOption
	if id != "" {
		opts = append(opts, domain.WithNodeID(id))
	}

	declared := make(map[string]bool, len(def.Inputs))
	for _, p := range def.Inputs {
		declared[p.Name] = true
		opts = append(opts, domain.WithInput(p.Name, valueOr(inputs, p)))
	}
	var extra []string
	for name := range inputs {
		if declared[name] {
			continue
		}
		if !def.DynamicInputs {
			return nil, fmt.Errorf("node %q input %q: %w", id, name, ErrUndeclaredInterface)
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		opts = append(opts, domain.WithInput(name, inputs[name]))
	}

	declaredOut := make(map[string]bool, len(def.Outputs))
	for _, p := range def.Outputs {
		declaredOut[p.Name] = true
		opts = append(opts, domain.WithOutput(p.Name, valueOr(outputs, p)))
	}
	for name := range outputs {
		if !declaredOut[name] {
			return nil, fmt.Errorf("node %q output %q: %w", id, name, ErrUndeclaredInterface)
		}
	}

	if def.Calculate != nil {
		opts = append(opts, domain.WithCalculate(def.Calculate))
	}
	return domain.NewNode(def.Type, opts...), nil
}

func valueOr(values map[string]any, p Port) any {
	if v, ok := values[p.Name]; ok {
		return v
	}
	return p.Default
}
