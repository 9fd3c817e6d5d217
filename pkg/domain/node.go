package domain

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// CalculationContext is handed to every calculation alongside its inputs.
type CalculationContext struct {
	// GlobalValues is the caller-supplied calculation data for the run.
	GlobalValues any
	// Engine is the engine executing the run.
	Engine any
}

// CalculateFunc maps an input record to an output record.
// The engine waits for it to return before calculating any other node, so a
// long-running calculation may block; it should honour ctx for cancellation.
type CalculateFunc func(ctx context.Context, inputs Record, cc CalculationContext) (Record, error)

// Node is a unit of computation. A node without a CalculateFunc is a pure value
// holder (source or sink) whose outputs are static.
type Node struct {
	id        string
	nodeType  string
	inputs    []*Interface
	outputs   []*Interface
	calculate CalculateFunc

	graph atomic.Pointer[Graph]
}

// NodeOption configures a Node under construction.
type NodeOption func(*Node)

// WithNodeID sets the node identity. Without it a UUID is generated.
func WithNodeID(id string) NodeOption {
	return func(n *Node) {
		n.id = id
	}
}

// WithInput declares an input interface with its default value.
func WithInput(name string, value any) NodeOption {
	return func(n *Node) {
		n.inputs = append(n.inputs, &Interface{name: name, direction: DirectionInput, value: value})
	}
}

// WithOutput declares an output interface with an initial value.
func WithOutput(name string, value any) NodeOption {
	return func(n *Node) {
		n.outputs = append(n.outputs, &Interface{name: name, direction: DirectionOutput, value: value})
	}
}

// WithCalculate attaches the calculation function.
func WithCalculate(fn CalculateFunc) NodeOption {
	return func(n *Node) {
		n.calculate = fn
	}
}

// NewNode creates a node of the given type tag.
// Interface names must be unique per direction; later declarations win.
func NewNode(nodeType string, opts ...NodeOption) *Node {
	n := &Node{nodeType: nodeType}
	for _, opt := range opts {
		opt(n)
	}
	if n.id == "" {
		n.id = uuid.NewString()
	}
	n.inputs = bindInterfaces(n, n.inputs)
	n.outputs = bindInterfaces(n, n.outputs)
	return n
}

func bindInterfaces(n *Node, list []*Interface) []*Interface {
	seen := make(map[string]int, len(list))
	out := make([]*Interface, 0, len(list))
	for _, iface := range list {
		iface.node = n
		iface.id = MakeInterfaceID(n.id, iface.name)
		if idx, ok := seen[iface.name]; ok {
			out[idx] = iface
			continue
		}
		seen[iface.name] = len(out)
		out = append(out, iface)
	}
	return out
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Type() string { return n.nodeType }

// Graph returns the graph the node is attached to, or nil.
func (n *Node) Graph() *Graph { return n.graph.Load() }

// HasCalculation reports whether the node computes its outputs.
func (n *Node) HasCalculation() bool { return n.calculate != nil }

// Calculate returns the node's calculation function, which may be nil.
func (n *Node) Calculate() CalculateFunc { return n.calculate }

// Inputs returns the input interfaces in declaration order.
func (n *Node) Inputs() []*Interface {
	return append([]*Interface(nil), n.inputs...)
}

// Outputs returns the output interfaces in declaration order.
func (n *Node) Outputs() []*Interface {
	return append([]*Interface(nil), n.outputs...)
}

// Input looks up an input interface by name.
func (n *Node) Input(name string) (*Interface, bool) {
	return find(n.inputs, name)
}

// Output looks up an output interface by name.
func (n *Node) Output(name string) (*Interface, bool) {
	return find(n.outputs, name)
}

// Interfaces returns inputs followed by outputs.
func (n *Node) Interfaces() []*Interface {
	all := make([]*Interface, 0, len(n.inputs)+len(n.outputs))
	all = append(all, n.inputs...)
	return append(all, n.outputs...)
}

// OutputNames returns the declared output names in declaration order.
func (n *Node) OutputNames() []string {
	names := make([]string, len(n.outputs))
	for i, o := range n.outputs {
		names[i] = o.name
	}
	return names
}

// InputValues returns the stored value of every input interface.
func (n *Node) InputValues() Record {
	rec := make(Record, len(n.inputs))
	for _, in := range n.inputs {
		rec[in.name] = in.Value()
	}
	return rec
}

// OutputValues returns the stored value of every output interface.
func (n *Node) OutputValues() Record {
	rec := make(Record, len(n.outputs))
	for _, out := range n.outputs {
		rec[out.name] = out.Value()
	}
	return rec
}

func find(list []*Interface, name string) (*Interface, bool) {
	for _, iface := range list {
		if iface.name == name {
			return iface, true
		}
	}
	return nil, false
}
