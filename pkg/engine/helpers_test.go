package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/stretchr/testify/require"
)

// calls counts calculations per node ID.
type calls struct {
	mu sync.Mutex
	n  map[string]int
}

func newCalls() *calls { return &calls{n: make(map[string]int)} }

func (c *calls) inc(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[id]++
}

func (c *calls) get(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[id]
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	default:
		return 0
	}
}

// sumDiff returns {c: a+b, d: a-b}.
func sumDiff(_ context.Context, in domain.Record, _ domain.CalculationContext) (domain.Record, error) {
	a, b := toInt(in["a"]), toInt(in["b"])
	return domain.Record{"c": a + b, "d": a - b}, nil
}

func sumDiffNode(id string, a, b int, counter *calls) *domain.Node {
	calc := domain.CalculateFunc(sumDiff)
	if counter != nil {
		calc = func(ctx context.Context, in domain.Record, cc domain.CalculationContext) (domain.Record, error) {
			counter.inc(id)
			return sumDiff(ctx, in, cc)
		}
	}
	return domain.NewNode("sum-diff",
		domain.WithNodeID(id),
		domain.WithInput("a", a),
		domain.WithInput("b", b),
		domain.WithOutput("c", 0),
		domain.WithOutput("d", 0),
		domain.WithCalculate(calc),
	)
}

func mustAdd(t *testing.T, g *domain.Graph, nodes ...*domain.Node) {
	t.Helper()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
}

func mustConnect(t *testing.T, g *domain.Graph, fromNode, fromOutput, toNode, toInput string) {
	t.Helper()
	_, err := g.Connect(fromNode, fromOutput, toNode, toInput)
	require.NoError(t, err)
}

// fixture builds N1 -> N2 and N1 -> N3 with N1.c feeding both inputs of the
// downstream nodes. Nodes are inserted in reverse to exercise ordering.
func fixture(t *testing.T, counter *calls) *domain.Graph {
	t.Helper()
	g := domain.NewGraph(domain.WithGraphID("fixture"))
	mustAdd(t, g,
		sumDiffNode("n3", 0, 0, counter),
		sumDiffNode("n2", 0, 0, counter),
		sumDiffNode("n1", 10, 5, counter),
	)
	for _, target := range []string{"n2", "n3"} {
		mustConnect(t, g, "n1", "c", target, "a")
		mustConnect(t, g, "n1", "c", target, "b")
	}
	return g
}
