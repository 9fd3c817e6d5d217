package engine

import (
	"context"
	"sync"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/topo"
)

// TypeDependency is the registry tag of the Dependency engine.
const TypeDependency = "dependency"

// Dependency recalculates the whole graph in topological order.
type Dependency struct {
	*Base

	orderMu  sync.Mutex
	order    []*domain.Node
	orderRev uint64
}

// NewDependency creates an idle Dependency engine for g.
func NewDependency(g *domain.Graph, opts ...Option) *Dependency {
	d := &Dependency{}
	d.Base = newBase(TypeDependency, g, d, d, opts)
	return d
}

// RunGraph calculates every node carrying a calculation, one at a time in
// topological order.
//
// A cyclic graph returns a *domain.CycleError before any node runs. A failing
// calculation aborts the walk and returns a *domain.CalculationError together
// with the results of the nodes calculated before it.
func (d *Dependency) RunGraph(ctx context.Context, overrides map[string]any, calculationData any) (domain.CalculationResult, error) {
	return d.run(ctx, "run", func(ctx context.Context) (domain.CalculationResult, error) {
		return d.walk(ctx, overrides, calculationData)
	})
}

func (d *Dependency) walk(ctx context.Context, overrides map[string]any, calculationData any) (domain.CalculationResult, error) {
	order, err := d.sorted()
	if err != nil {
		return nil, err
	}

	result := make(domain.CalculationResult)
	for _, n := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !n.HasCalculation() {
			continue
		}

		inputs := make(domain.Record, len(n.Inputs()))
		for _, in := range n.Inputs() {
			conns := d.graph.ConnectionsTo(in)
			if len(conns) == 0 {
				inputs[in.Name()] = inputDefault(in, overrides)
				continue
			}
			c := conns[0]
			inputs[in.Name()] = d.transform(upstreamValue(result, c), c)
		}

		outputs, err := d.calculate(ctx, n, inputs, calculationData)
		if err != nil {
			return result, err
		}
		result[n.ID()] = outputs
	}
	return result, nil
}

// sorted returns the cached order, recomputing it after structural changes.
func (d *Dependency) sorted() ([]*domain.Node, error) {
	d.orderMu.Lock()
	defer d.orderMu.Unlock()

	stale := d.stale.Swap(false)
	rev := d.graph.Revision()
	if !stale && d.order != nil && d.orderRev == rev {
		return d.order, nil
	}

	order, err := topo.Sort(d.graph)
	if err != nil {
		d.order = nil
		return nil, err
	}
	d.order, d.orderRev = order, rev
	return order, nil
}

func (d *Dependency) recalculate(ctx context.Context, _ []*domain.Interface) {
	d.triggered(ctx, "resume")
}

func (d *Dependency) inputChanged(ctx context.Context, _ *domain.Interface, _ any) {
	d.triggered(ctx, "input")
}

func (d *Dependency) triggered(ctx context.Context, trigger string) {
	_, _ = d.run(ctx, trigger, func(ctx context.Context) (domain.CalculationResult, error) {
		return d.walk(ctx, nil, d.calcData)
	})
}
