package domain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Connection is a directed edge from an output interface to an input interface.
type Connection struct {
	ID   string
	From *Interface
	To   *Interface
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s -> %s", c.From.ID(), c.To.ID())
}

// Graph is the container the engines operate on. Nodes are kept in insertion
// order, connections in an index-addressed list; nodes never reference each
// other directly.
type Graph struct {
	id string

	mu          sync.RWMutex
	nodes       []*Node
	index       map[string]*Node
	connections []*Connection
	revision    uint64

	subMu       sync.Mutex
	subscribers []subscriber
	nextSub     int
}

type subscriber struct {
	id int
	fn func(GraphEvent)
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithGraphID sets the graph identity. Without it a UUID is generated.
func WithGraphID(id string) GraphOption {
	return func(g *Graph) {
		g.id = id
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{index: make(map[string]*Node)}
	for _, opt := range opts {
		opt(g)
	}
	if g.id == "" {
		g.id = uuid.NewString()
	}
	return g
}

func (g *Graph) ID() string { return g.id }

// Revision increases on every structural change (node or connection add/remove).
func (g *Graph) Revision() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.revision
}

// AddNode attaches n to the graph.
func (g *Graph) AddNode(n *Node) error {
	g.mu.Lock()
	if _, exists := g.index[n.id]; exists {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.id)
	}
	if !n.graph.CompareAndSwap(nil, g) {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeInUse, n.id)
	}
	g.nodes = append(g.nodes, n)
	g.index[n.id] = n
	g.revision++
	g.mu.Unlock()

	g.emit(GraphEvent{Type: EventNodeAdded, Graph: g, Node: n})
	return nil
}

// RemoveNode detaches n and every connection touching it.
func (g *Graph) RemoveNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrNodeNotFound)
	}
	g.mu.Lock()
	if g.index[n.id] != n {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, n.id)
	}

	var events []GraphEvent
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.From.node == n || c.To.node == n {
			c.From.addConnection(-1)
			c.To.addConnection(-1)
			events = append(events, GraphEvent{Type: EventConnectionRemoved, Graph: g, Connection: c})
			continue
		}
		kept = append(kept, c)
	}
	g.connections = kept

	for i, existing := range g.nodes {
		if existing == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.index, n.id)
	n.graph.Store(nil)
	g.revision++
	g.mu.Unlock()

	events = append(events, GraphEvent{Type: EventNodeRemoved, Graph: g, Node: n})
	g.emit(events...)
	return nil
}

// AddConnection connects an output interface to an input interface.
// An input is driven by at most one connection: connecting an already driven
// input replaces its previous connection.
func (g *Graph) AddConnection(from, to *Interface) (*Connection, error) {
	if from == nil || to == nil {
		return nil, &ConnectionError{Reason: "missing endpoint"}
	}
	if from.direction != DirectionOutput {
		return nil, &ConnectionError{From: from.id, To: to.id, Reason: "source is not an output"}
	}
	if to.direction != DirectionInput {
		return nil, &ConnectionError{From: from.id, To: to.id, Reason: "target is not an input"}
	}

	g.mu.Lock()
	if g.index[from.node.id] != from.node {
		g.mu.Unlock()
		return nil, &ConnectionError{From: from.id, To: to.id, Reason: "source node is not in this graph"}
	}
	if g.index[to.node.id] != to.node {
		g.mu.Unlock()
		return nil, &ConnectionError{From: from.id, To: to.id, Reason: "target node is not in this graph"}
	}

	var events []GraphEvent
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.To == to {
			c.From.addConnection(-1)
			c.To.addConnection(-1)
			events = append(events, GraphEvent{Type: EventConnectionRemoved, Graph: g, Connection: c})
			continue
		}
		kept = append(kept, c)
	}
	g.connections = kept

	c := &Connection{ID: uuid.NewString(), From: from, To: to}
	g.connections = append(g.connections, c)
	from.addConnection(1)
	to.addConnection(1)
	g.revision++
	g.mu.Unlock()

	events = append(events, GraphEvent{Type: EventConnectionAdded, Graph: g, Connection: c})
	g.emit(events...)
	return c, nil
}

// Connect is a convenience wrapper resolving the output of fromNode and the
// input of toNode by name.
func (g *Graph) Connect(fromNode, fromOutput, toNode, toInput string) (*Connection, error) {
	fromID, toID := MakeInterfaceID(fromNode, fromOutput), MakeInterfaceID(toNode, toInput)
	var src, dst *Interface
	if n, ok := g.FindNodeByID(fromNode); ok {
		src, _ = n.Output(fromOutput)
	}
	if src == nil {
		return nil, &ConnectionError{From: fromID, To: toID, Reason: "unknown source interface"}
	}
	if n, ok := g.FindNodeByID(toNode); ok {
		dst, _ = n.Input(toInput)
	}
	if dst == nil {
		return nil, &ConnectionError{From: fromID, To: toID, Reason: "unknown target interface"}
	}
	return g.AddConnection(src, dst)
}

// RemoveConnection removes c and decrements both endpoint counts.
func (g *Graph) RemoveConnection(c *Connection) error {
	if c == nil {
		return fmt.Errorf("%w: nil connection", ErrConnectionNotFound)
	}
	g.mu.Lock()
	idx := -1
	for i, existing := range g.connections {
		if existing == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, c.ID)
	}
	g.connections = append(g.connections[:idx], g.connections[idx+1:]...)
	c.From.addConnection(-1)
	c.To.addConnection(-1)
	g.revision++
	g.mu.Unlock()

	g.emit(GraphEvent{Type: EventConnectionRemoved, Graph: g, Connection: c})
	return nil
}

// FindNodeByID returns the node with the given ID.
func (g *Graph) FindNodeByID(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.index[id]
	return n, ok
}

// FindInterfaceByID resolves a "node:interface" identity.
func (g *Graph) FindInterfaceByID(id string) (*Interface, bool) {
	nodeID, name, ok := ParseInterfaceID(id)
	if !ok {
		return nil, false
	}
	n, ok := g.FindNodeByID(nodeID)
	if !ok {
		return nil, false
	}
	if in, ok := n.Input(name); ok {
		return in, true
	}
	return n.Output(name)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Node(nil), g.nodes...)
}

// Connections returns the connections in creation order.
func (g *Graph) Connections() []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Connection(nil), g.connections...)
}

// ConnectionsFrom returns every connection whose source is an output of n.
func (g *Graph) ConnectionsFrom(n *Node) []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Connection
	for _, c := range g.connections {
		if c.From.node == n {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionsTo returns every connection ending at iface.
func (g *Graph) ConnectionsTo(iface *Interface) []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Connection
	for _, c := range g.connections {
		if c.To == iface {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe registers fn for every graph event and returns a function that
// removes the subscription.
func (g *Graph) Subscribe(fn func(GraphEvent)) (unsubscribe func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.subscribers = append(g.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			g.subMu.Lock()
			defer g.subMu.Unlock()
			for i, s := range g.subscribers {
				if s.id == id {
					g.subscribers = append(g.subscribers[:i], g.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// emit delivers events synchronously. It must be called without g.mu held.
func (g *Graph) emit(events ...GraphEvent) {
	g.subMu.Lock()
	subs := append([]subscriber(nil), g.subscribers...)
	g.subMu.Unlock()

	for _, e := range events {
		for _, s := range subs {
			s.fn(e)
		}
	}
}
