package dsl

import (
	"maps"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    document.Node
	builder *Builder
}

// Set replaces the default value of an input interface.
func (n *NodeBuilder) Set(input string, value any) *NodeBuilder {
	if n.node.Inputs == nil {
		n.node.Inputs = make(map[string]any)
	}
	n.node.Inputs[input] = value
	return n
}

// Output seeds the value of an output interface.
func (n *NodeBuilder) Output(output string, value any) *NodeBuilder {
	if n.node.Outputs == nil {
		n.node.Outputs = make(map[string]any)
	}
	n.node.Outputs[output] = value
	return n
}

// To connects one of this node's outputs to the target "node:interface".
func (n *NodeBuilder) To(output, target string) *NodeBuilder {
	n.builder.Connect(n.node.ID+":"+output, target)
	return n
}

// From connects the source "node:interface" to one of this node's inputs.
func (n *NodeBuilder) From(source, input string) *NodeBuilder {
	n.builder.Connect(source, n.node.ID+":"+input)
	return n
}

// Build returns a copy of the underlying document node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() document.Node {
	out := n.node
	out.Inputs = maps.Clone(n.node.Inputs)
	out.Outputs = maps.Clone(n.node.Outputs)
	return out
}
