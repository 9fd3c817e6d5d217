// Package document defines the persisted shape of a graph and converts it to
// and from a live domain.Graph.
package document

import (
	"errors"
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// ErrInvalidDocument is returned when a document is structurally invalid.
var ErrInvalidDocument = errors.New("invalid graph document")

// Document is the serialised form of a graph.
type Document struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Node is the serialised form of a node. Values replace the defaults of its
// type.
type Node struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"`
	Inputs  map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs map[string]any `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Connection links two interfaces written as "node:interface".
type Connection struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// NodeFactory builds a node from its type tag. nodes.Catalogue implements it.
type NodeFactory interface {
	New(nodeType, id string, inputs, outputs map[string]any) (*domain.Node, error)
}

// Validate checks identities and references without instantiating nodes.
func (d *Document) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("missing graph id"))
	}

	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Errorf("node #%d: missing id", i))
		case ids[n.ID]:
			errs = append(errs, fmt.Errorf("node %q: duplicate id", n.ID))
		}
		if n.Type == "" {
			errs = append(errs, fmt.Errorf("node %q: missing type", n.ID))
		}
		ids[n.ID] = true
	}

	for _, c := range d.Connections {
		for _, ref := range []string{c.From, c.To} {
			nodeID, _, ok := domain.ParseInterfaceID(ref)
			if !ok {
				errs = append(errs, fmt.Errorf("connection %q: malformed reference %q", c.ID, ref))
				continue
			}
			if !ids[nodeID] {
				errs = append(errs, fmt.Errorf("connection %q: unknown node %q", c.ID, nodeID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return nil
}

// Materialize builds a live graph from the document. Calculation functions are
// attached by factory according to each node's type.
func Materialize(d *Document, factory NodeFactory) (*domain.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	g := domain.NewGraph(domain.WithGraphID(d.ID))
	for _, spec := range d.Nodes {
		n, err := factory.New(spec.Type, spec.ID, spec.Inputs, spec.Outputs)
		if err != nil {
			return nil, fmt.Errorf("materialize node %q: %w", spec.ID, err)
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("materialize node %q: %w", spec.ID, err)
		}
	}

	for _, c := range d.Connections {
		from, ok := resolve(g, c.From, domain.DirectionOutput)
		if !ok {
			return nil, &domain.ConnectionError{From: c.From, To: c.To, Reason: "unknown source interface"}
		}
		to, ok := resolve(g, c.To, domain.DirectionInput)
		if !ok {
			return nil, &domain.ConnectionError{From: c.From, To: c.To, Reason: "unknown target interface"}
		}
		if _, err := g.AddConnection(from, to); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// resolve finds a "node:interface" reference, preferring the given direction
// when a node declares an input and an output of the same name.
func resolve(g *domain.Graph, ref string, dir domain.Direction) (*domain.Interface, bool) {
	nodeID, name, ok := domain.ParseInterfaceID(ref)
	if !ok {
		return nil, false
	}
	n, ok := g.FindNodeByID(nodeID)
	if !ok {
		return nil, false
	}
	if dir == domain.DirectionOutput {
		if out, ok := n.Output(name); ok {
			return out, true
		}
	} else if in, ok := n.Input(name); ok {
		return in, true
	}
	return g.FindInterfaceByID(ref)
}

// FromGraph snapshots a live graph, including current interface values.
func FromGraph(g *domain.Graph) *Document {
	d := &Document{ID: g.ID()}
	for _, n := range g.Nodes() {
		spec := Node{ID: n.ID(), Type: n.Type()}
		if vals := n.InputValues(); len(vals) > 0 {
			spec.Inputs = vals
		}
		if vals := n.OutputValues(); len(vals) > 0 {
			spec.Outputs = vals
		}
		d.Nodes = append(d.Nodes, spec)
	}
	for _, c := range g.Connections() {
		d.Connections = append(d.Connections, Connection{
			ID:   c.ID,
			From: c.From.ID(),
			To:   c.To.ID(),
		})
	}
	return d
}

// Clone returns a copy that shares no slices or maps with d. Interface values
// themselves are copied shallowly.
func (d *Document) Clone() *Document {
	out := *d
	out.Nodes = make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		n.Inputs = cloneValues(n.Inputs)
		n.Outputs = cloneValues(n.Outputs)
		out.Nodes[i] = n
	}
	out.Connections = append([]Connection(nil), d.Connections...)
	return &out
}

func cloneValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
