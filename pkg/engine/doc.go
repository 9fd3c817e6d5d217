/*
Package engine executes node graphs.

Two strategies share the lifecycle and mechanics of Base:

  - Dependency recalculates every node in topological order (see package topo).
  - Forward propagates from a starting node through a FIFO queue and only
    recalculates what is reachable from it.

# Lifecycle

An engine is created Idle. Start subscribes to the graph and moves to Running;
while Running, a value change on an unconnected input schedules a triggered run
on the engine's own trigger loop. Pause defers those runs and Resume performs a
single recalculation if anything changed in between. Stop unsubscribes.

RunGraph and Execute may be called in any status. Runs on the same graph are
serialised through the RunLocker, so at most one run per graph is in flight and
later requests wait for it in arrival order. Calculations must not call back
into a run on their own graph.

# Errors

A cycle aborts a Dependency run before any node is calculated. A failing
calculation aborts the run and is returned as *domain.CalculationError along
with the partial result. A calculation returning other keys than its declared
outputs is reported through LifecycleHooks.OnContractViolation and the run
continues with the declared keys that were present.
*/
package engine
