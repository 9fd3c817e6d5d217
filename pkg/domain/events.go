package domain

import (
	"context"
	"time"
)

// EventType defines the category of a graph change.
type EventType string

const (
	EventNodeAdded         EventType = "node_added"
	EventNodeRemoved       EventType = "node_removed"
	EventConnectionAdded   EventType = "connection_added"
	EventConnectionRemoved EventType = "connection_removed"
	EventValueChanged      EventType = "value_changed"
)

// GraphEvent is emitted by a Graph after each mutation.
type GraphEvent struct {
	Type       EventType
	Graph      *Graph
	Node       *Node
	Interface  *Interface
	Connection *Connection
	Value      any
}

// IsStructural reports whether the event changes nodes or connections.
func (e GraphEvent) IsStructural() bool {
	return e.Type != EventValueChanged
}

// RunEvent describes one engine run.
type RunEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	GraphID   string            `json:"graph_id"`
	Engine    string            `json:"engine"`
	Trigger   string            `json:"trigger"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Nodes     int               `json:"nodes,omitempty"`
	Result    CalculationResult `json:"-"`
	Err       error             `json:"-"`
}

// NodeEvent describes one node calculation.
type NodeEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	GraphID   string        `json:"graph_id"`
	Engine    string        `json:"engine"`
	NodeID    string        `json:"node_id"`
	NodeType  string        `json:"node_type"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// StatusEvent describes an engine lifecycle transition.
type StatusEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	GraphID   string       `json:"graph_id"`
	Engine    string       `json:"engine"`
	From      EngineStatus `json:"from"`
	To        EngineStatus `json:"to"`
}

// LifecycleHooks defines callbacks for engine observability. Nil fields are skipped.
type LifecycleHooks struct {
	OnRunStart          func(context.Context, *RunEvent)
	OnRunFinish         func(context.Context, *RunEvent)
	OnNodeCalculated    func(context.Context, *NodeEvent)
	OnContractViolation func(context.Context, *ContractViolationError)
	OnStatusChange      func(context.Context, *StatusEvent)
}
