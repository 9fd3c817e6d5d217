package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// TypeForward is the registry tag of the Forward engine.
const TypeForward = "forward"

// Override replaces the value of one input of the starting node.
type Override struct {
	// Interface is the input name on the starting node.
	Interface string
	Value     any
}

// Forward propagates values downstream from a starting node through a FIFO
// queue, recalculating only what is reachable.
//
// Fan-in is accumulated per calculation step only. Each step starts a target's
// inputs from their stored defaults, so a node fed by upstream paths of
// different lengths is calculated once per arriving branch, each time with
// only that branch's values. Use Dependency when such graphs need globally
// consistent results.
type Forward struct {
	*Base
}

// NewForward creates an idle Forward engine for g.
func NewForward(g *domain.Graph, opts ...Option) *Forward {
	f := &Forward{}
	f.Base = newBase(TypeForward, g, f, f, opts)
	return f
}

// RunGraph executes from every source node: nodes with a calculation and no
// connected input. When there is none, the first node with a calculation is
// used. Results of all starting nodes are merged.
func (f *Forward) RunGraph(ctx context.Context, overrides map[string]any, calculationData any) (domain.CalculationResult, error) {
	return f.run(ctx, "run", func(ctx context.Context) (domain.CalculationResult, error) {
		return f.fromSources(ctx, overrides, calculationData)
	})
}

func (f *Forward) fromSources(ctx context.Context, overrides map[string]any, calculationData any) (domain.CalculationResult, error) {
	result := make(domain.CalculationResult)
	for _, start := range f.startingNodes() {
		seed := make(domain.Record, len(start.Inputs()))
		for _, in := range start.Inputs() {
			seed[in.Name()] = inputDefault(in, overrides)
		}
		partial, err := f.propagate(ctx, calculationData, start, seed, overrides)
		result.Merge(partial)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Execute propagates from start. When override is set, it replaces the stored
// value of the named input of start. The result only contains visited nodes.
func (f *Forward) Execute(ctx context.Context, calculationData any, start *domain.Node, override *Override) (domain.CalculationResult, error) {
	if start == nil || start.Graph() != f.graph {
		return nil, fmt.Errorf("execute from node outside graph %q: %w", f.graph.ID(), domain.ErrNodeNotFound)
	}
	if override != nil {
		if _, ok := start.Input(override.Interface); !ok {
			return nil, fmt.Errorf("override %q on node %q: %w", override.Interface, start.ID(), domain.ErrNodeNotFound)
		}
	}

	return f.execute(ctx, "execute", calculationData, start, override)
}

func (f *Forward) execute(ctx context.Context, trigger string, calculationData any, start *domain.Node, override *Override) (domain.CalculationResult, error) {
	return f.run(ctx, trigger, func(ctx context.Context) (domain.CalculationResult, error) {
		seed := start.InputValues()
		if override != nil {
			seed[override.Interface] = override.Value
		}
		return f.propagate(ctx, calculationData, start, seed, nil)
	})
}

func (f *Forward) startingNodes() []*domain.Node {
	var sources []*domain.Node
	var first *domain.Node
	for _, n := range f.graph.Nodes() {
		if !n.HasCalculation() {
			continue
		}
		if first == nil {
			first = n
		}
		driven := false
		for _, in := range n.Inputs() {
			if in.IsConnected() {
				driven = true
				break
			}
		}
		if !driven {
			sources = append(sources, n)
		}
	}
	if len(sources) == 0 && first != nil {
		return []*domain.Node{first}
	}
	return sources
}

type workItem struct {
	node   *domain.Node
	inputs domain.Record
}

func (f *Forward) propagate(ctx context.Context, calculationData any, start *domain.Node, seed domain.Record, overrides map[string]any) (domain.CalculationResult, error) {
	result := make(domain.CalculationResult)
	queue := []workItem{{node: start, inputs: seed}}

	for steps := 0; len(queue) > 0; steps++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if steps >= f.maxSteps {
			return result, fmt.Errorf("graph %q after %d steps: %w", f.graph.ID(), steps, ErrPropagationLimit)
		}

		item := queue[0]
		queue = queue[1:]
		if !item.node.HasCalculation() {
			continue
		}

		outputs, err := f.calculate(ctx, item.node, item.inputs, calculationData)
		if err != nil {
			return result, err
		}
		result[item.node.ID()] = outputs

		// Fold every outgoing connection into per-target accumulators before
		// enqueueing, so a target fed twice by this node is calculated once.
		accumulated := make(map[*domain.Node]domain.Record)
		var targets []*domain.Node
		for _, c := range f.graph.ConnectionsFrom(item.node) {
			target := c.To.Node()
			inputs, ok := accumulated[target]
			if !ok {
				inputs = make(domain.Record, len(target.Inputs()))
				for _, in := range target.Inputs() {
					inputs[in.Name()] = inputDefault(in, overrides)
				}
				accumulated[target] = inputs
				targets = append(targets, target)
			}
			inputs[c.To.Name()] = f.transform(upstreamValue(result, c), c)
		}
		for _, target := range targets {
			queue = append(queue, workItem{node: target, inputs: accumulated[target]})
		}
	}
	return result, nil
}

// recalculate replays the changes deferred while paused: it propagates once
// from each node owning a changed input, with the values stored now, and
// reports the merged result as a single run.
func (f *Forward) recalculate(ctx context.Context, changed []*domain.Interface) {
	var starts []*domain.Node
	for _, iface := range changed {
		n := iface.Node()
		if n.Graph() == f.graph && !slices.Contains(starts, n) {
			starts = append(starts, n)
		}
	}
	if len(starts) == 0 {
		return
	}

	_, _ = f.run(ctx, "resume", func(ctx context.Context) (domain.CalculationResult, error) {
		result := make(domain.CalculationResult)
		for _, start := range starts {
			partial, err := f.propagate(ctx, f.calcData, start, start.InputValues(), nil)
			result.Merge(partial)
			if err != nil {
				return result, err
			}
		}
		return result, nil
	})
}

// inputChanged re-executes from the node owning the changed input, recomputing
// only its downstream subgraph.
func (f *Forward) inputChanged(ctx context.Context, iface *domain.Interface, value any) {
	if iface.Node().Graph() != f.graph {
		return
	}
	_, _ = f.execute(ctx, "input", f.calcData, iface.Node(), &Override{Interface: iface.Name(), Value: value})
}
