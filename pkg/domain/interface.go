package domain

import "sync"

// Direction tells whether an Interface receives or produces values.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Interface is a named input or output slot on a Node.
// Its connection count is maintained by the owning Graph only.
type Interface struct {
	id        string
	name      string
	direction Direction
	node      *Node

	mu          sync.RWMutex
	value       any
	connections int
}

// MakeInterfaceID builds the identity of an interface from its node and name.
func MakeInterfaceID(nodeID, name string) string {
	return nodeID + ":" + name
}

// ParseInterfaceID splits an interface ID into node ID and interface name.
func ParseInterfaceID(id string) (nodeID, name string, ok bool) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

func (i *Interface) ID() string           { return i.id }
func (i *Interface) Name() string         { return i.name }
func (i *Interface) Direction() Direction { return i.direction }
func (i *Interface) IsInput() bool        { return i.direction == DirectionInput }
func (i *Interface) Node() *Node          { return i.node }

// Value returns the stored value of the interface.
func (i *Interface) Value() any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.value
}

// SetValue stores v and, when the node is attached to a graph, emits
// EventValueChanged to the graph's subscribers.
func (i *Interface) SetValue(v any) {
	i.mu.Lock()
	i.value = v
	i.mu.Unlock()

	if g := i.node.Graph(); g != nil {
		g.emit(GraphEvent{
			Type:      EventValueChanged,
			Graph:     g,
			Node:      i.node,
			Interface: i,
			Value:     v,
		})
	}
}

// ConnectionCount reports how many connections end or start at this interface.
func (i *Interface) ConnectionCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.connections
}

// IsConnected reports whether at least one connection touches the interface.
// For inputs this means the value is driven by an upstream node.
func (i *Interface) IsConnected() bool {
	return i.ConnectionCount() > 0
}

func (i *Interface) addConnection(delta int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connections += delta
	if i.connections < 0 {
		i.connections = 0
	}
}
