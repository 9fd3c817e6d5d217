// Package topo computes execution orders for node graphs.
//
// Sort is pure: it reads the graph once and never mutates it. Cycles are
// rejected before any ordering work starts.
package topo

import (
	"container/heap"
	"slices"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// Dependencies maps every node ID to the IDs of the nodes feeding one of its
// inputs, in graph insertion order.
func Dependencies(g *domain.Graph) map[string][]string {
	nodes := g.Nodes()
	position := make(map[string]int, len(nodes))
	for i, n := range nodes {
		position[n.ID()] = i
	}

	sets := make(map[string]map[string]bool, len(nodes))
	for _, n := range nodes {
		sets[n.ID()] = make(map[string]bool)
	}
	for _, c := range g.Connections() {
		to, from := c.To.Node().ID(), c.From.Node().ID()
		if _, ok := sets[to]; !ok {
			continue
		}
		if _, ok := position[from]; !ok {
			continue
		}
		sets[to][from] = true
	}

	deps := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		list := make([]string, 0, len(sets[n.ID()]))
		for id := range sets[n.ID()] {
			list = append(list, id)
		}
		slices.SortFunc(list, func(a, b string) int { return position[a] - position[b] })
		deps[n.ID()] = list
	}
	return deps
}

// Sort returns the nodes of g so that every node appears after all nodes that
// feed one of its inputs. Nodes that are not constrained relative to each other
// keep graph insertion order. A cyclic graph yields a *domain.CycleError.
func Sort(g *domain.Graph) ([]*domain.Node, error) {
	nodes := g.Nodes()
	deps := Dependencies(g)

	if HasCycle(nodes, deps) {
		return nil, &domain.CycleError{GraphID: g.ID()}
	}

	dependents := make(map[string][]string, len(nodes))
	remaining := make(map[string]int, len(nodes))
	for _, n := range nodes {
		remaining[n.ID()] = len(deps[n.ID()])
		for _, dep := range deps[n.ID()] {
			dependents[dep] = append(dependents[dep], n.ID())
		}
	}

	// Kahn's algorithm; the ready set is a min-heap on insertion position so
	// the earliest inserted ready node is always emitted first.
	position := make(map[string]int, len(nodes))
	ready := &readyQueue{}
	for i, n := range nodes {
		position[n.ID()] = i
		if remaining[n.ID()] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]*domain.Node, 0, len(nodes))
	for ready.Len() > 0 {
		n := nodes[heap.Pop(ready).(int)]
		order = append(order, n)
		for _, next := range dependents[n.ID()] {
			remaining[next]--
			if remaining[next] == 0 {
				heap.Push(ready, position[next])
			}
		}
	}
	if len(order) < len(nodes) {
		return nil, &domain.CycleError{GraphID: g.ID()}
	}
	return order, nil
}

// HasCycle runs an iterative depth-first search with an on-stack marker set.
// Any edge back to a node still on the stack is a cycle.
func HasCycle(nodes []*domain.Node, deps map[string][]string) bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(nodes))

	type frame struct {
		id   string
		next int
	}

	for _, root := range nodes {
		if state[root.ID()] != unvisited {
			continue
		}
		stack := []frame{{id: root.ID()}}
		state[root.ID()] = visiting

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := deps[top.id]
			if top.next == len(edges) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			dep := edges[top.next]
			top.next++

			switch state[dep] {
			case visiting:
				return true
			case unvisited:
				state[dep] = visiting
				stack = append(stack, frame{id: dep})
			}
		}
	}
	return false
}

// readyQueue is a min-heap of node insertion positions.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(int)) }

func (q *readyQueue) Pop() any {
	old := *q
	x := old[len(old)-1]
	*q = old[:len(old)-1]
	return x
}
