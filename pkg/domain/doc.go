/*
Package domain contains the graph model that every execution strategy reads and mutates.

It defines the entities of a node graph: Nodes with named input and output Interfaces,
Connections between an output and an input, and the Graph that owns them and emits
change notifications. The package has no I/O and no knowledge of how a graph is
executed; engines live in pkg/engine.

# Key Entities

  - Interface: a named input or output slot carrying a value and a connection count.
  - Node: a unit of computation with an optional CalculateFunc.
  - Connection: a directed edge from an output Interface to an input Interface.
  - Graph: an insertion-ordered arena of nodes plus a connection list.
  - CalculationResult: per-run mapping of node ID to its output Record.

The Graph is deliberately cycle-agnostic. Rejecting cycles is the job of the
topological sorter (pkg/topo), so editors can hold transient cyclic states.
*/
package domain
