package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected is returned when a graph has no valid execution order.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrInvalidConnection is returned when a connection request is rejected.
	// The graph is left unchanged.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrContractViolation is reported when a calculation returns a different
	// set of outputs than the node declares.
	ErrContractViolation = errors.New("calculation contract violation")

	// ErrCalculationFailure wraps an error raised by a node's calculation.
	ErrCalculationFailure = errors.New("calculation failure")

	// ErrNodeNotFound is returned when a node is not part of the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when a node ID is already used in the graph.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrNodeInUse is returned when a node is added while attached to another graph.
	ErrNodeInUse = errors.New("node already belongs to a graph")

	// ErrConnectionNotFound is returned when removing an unknown connection.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrGraphNotFound is returned by graph stores when a document does not exist.
	ErrGraphNotFound = errors.New("graph not found")
)

// CycleError names the graph that could not be ordered.
type CycleError struct {
	GraphID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph %q: %s", e.GraphID, ErrCycleDetected)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// ConnectionError describes why a connection was rejected.
type ConnectionError struct {
	From   string
	To     string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %s", ErrInvalidConnection, e.From, e.To, e.Reason)
}

func (e *ConnectionError) Unwrap() error { return ErrInvalidConnection }

// ContractViolationError records a node whose calculation returned keys that
// differ from its declared outputs.
type ContractViolationError struct {
	GraphID  string
	NodeID   string
	Expected []string
	Got      []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("graph %q node %q: %s: expected outputs [%s], got [%s]",
		e.GraphID, e.NodeID, ErrContractViolation,
		strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

func (e *ContractViolationError) Unwrap() error { return ErrContractViolation }

// CalculationError wraps the error returned by a node's calculation.
type CalculationError struct {
	GraphID string
	NodeID  string
	Err     error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("graph %q node %q: %s: %v", e.GraphID, e.NodeID, ErrCalculationFailure, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *CalculationError) Unwrap() []error { return []error{ErrCalculationFailure, e.Err} }
