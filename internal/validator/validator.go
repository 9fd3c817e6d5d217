// Package validator checks a materialised graph for problems that do not stop
// it from being built but make a run fail or do nothing useful.
package validator

import (
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/hgl-pong/baklavajs-sub000/pkg/schema"
	"github.com/hgl-pong/baklavajs-sub000/pkg/topo"
)

// Report is the outcome of a successful validation.
type Report struct {
	// Order is the dependency order a whole-graph run would use.
	Order []string
	// Warnings list suspicious but legal constructs, in node order.
	Warnings []string
}

type options struct {
	catalogue *nodes.Catalogue
}

// Option configures ValidateGraph.
type Option func(*options)

// WithCatalogue checks the values of unconnected inputs against the input
// types declared in c.
func WithCatalogue(c *nodes.Catalogue) Option {
	return func(o *options) { o.catalogue = c }
}

// ValidateGraph orders g and crawls it upstream from its holder nodes. A cycle
// is an error. Isolated nodes, undriven holders and calculations whose results
// reach no holder are warnings, as are mistyped input values when a catalogue
// is given.
func ValidateGraph(g *domain.Graph, opts ...Option) (*Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	order, err := topo.Sort(g)
	if err != nil {
		return nil, err
	}

	report := &Report{Order: make([]string, 0, len(order))}
	for _, n := range order {
		report.Order = append(report.Order, n.ID())
	}

	deps := topo.Dependencies(g)
	nodes := g.Nodes()

	// Crawl upstream from every driven holder node; calculations never
	// reached feed nothing a holder shows.
	visited := make(map[string]bool)
	var queue []string
	for _, n := range nodes {
		if !n.HasCalculation() && anyConnected(n.Inputs()) {
			queue = append(queue, n.ID())
		}
	}
	crawled := len(queue) > 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range deps[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	for _, n := range nodes {
		switch {
		case len(nodes) > 1 && isolated(n):
			report.Warnings = append(report.Warnings, fmt.Sprintf("node %q has no connections", n.ID()))
		case !n.HasCalculation() && len(n.Inputs()) > 0 && !anyConnected(n.Inputs()):
			report.Warnings = append(report.Warnings, fmt.Sprintf("node %q (%s) never receives a value", n.ID(), n.Type()))
		case crawled && n.HasCalculation() && !visited[n.ID()]:
			report.Warnings = append(report.Warnings, fmt.Sprintf("node %q does not feed any holder node", n.ID()))
		}
		if o.catalogue != nil {
			report.Warnings = append(report.Warnings, typeWarnings(o.catalogue, n)...)
		}
	}
	return report, nil
}

// typeWarnings checks the stored values of unconnected inputs. Connected
// inputs are overwritten by their source before n is calculated.
func typeWarnings(c *nodes.Catalogue, n *domain.Node) []string {
	def, ok := c.Lookup(n.Type())
	if !ok {
		return nil
	}
	values := make(map[string]any)
	for _, in := range n.Inputs() {
		if !in.IsConnected() {
			values[in.Name()] = in.Value()
		}
	}
	var warnings []string
	for _, err := range schema.ValidationErrors(schema.Validate(def.InputSchema(), values)) {
		warnings = append(warnings, fmt.Sprintf("node %q: %v", n.ID(), err))
	}
	return warnings
}

func isolated(n *domain.Node) bool {
	return !anyConnected(n.Interfaces())
}

func anyConnected(ifaces []*domain.Interface) bool {
	for _, iface := range ifaces {
		if iface.IsConnected() {
			return true
		}
	}
	return false
}
