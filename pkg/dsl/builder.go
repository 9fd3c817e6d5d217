package dsl

import (
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
)

// Builder manages the graph construction.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
	conns []document.Connection
}

// New creates a new graph builder.
func New(graphID string) *Builder {
	return &Builder{
		id:    graphID,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the human readable graph name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder and keeps its type.
func (b *Builder) Add(id, nodeType string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    document.Node{ID: id, Type: nodeType},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect links two interfaces written as "node:interface".
func (b *Builder) Connect(from, to string) *Builder {
	b.conns = append(b.conns, document.Connection{From: from, To: to})
	return b
}

// Build assembles the document in insertion order and validates it.
func (b *Builder) Build() (*document.Document, error) {
	doc := &document.Document{ID: b.id, Name: b.name}
	for _, id := range b.order {
		doc.Nodes = append(doc.Nodes, b.nodes[id].Build())
	}
	for i, c := range b.conns {
		c.ID = fmt.Sprintf("c%d", i+1)
		doc.Connections = append(doc.Connections, c)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.id, err)
	}
	return doc, nil
}
