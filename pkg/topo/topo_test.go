package topo_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/topo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string) *domain.Node {
	return domain.NewNode("test",
		domain.WithNodeID(id),
		domain.WithInput("a", 0),
		domain.WithInput("b", 0),
		domain.WithOutput("out", 0),
	)
}

func build(t testing.TB, ids []string, edges [][2]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph(domain.WithGraphID("topo"))
	for _, id := range ids {
		require.NoError(t, g.AddNode(node(id)))
	}
	used := make(map[string]int)
	for _, e := range edges {
		input := "a"
		if used[e[1]] > 0 {
			input = "b"
		}
		used[e[1]]++
		_, err := g.Connect(e[0], "out", e[1], input)
		require.NoError(t, err)
	}
	return g
}

func ids(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func TestSort_Orders(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "empty graph",
			nodes: nil,
			want:  []string{},
		},
		{
			name:  "independent nodes keep insertion order",
			nodes: []string{"c", "a", "b"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "chain inserted backwards",
			nodes: []string{"n3", "n2", "n1"},
			edges: [][2]string{{"n1", "n2"}, {"n2", "n3"}},
			want:  []string{"n1", "n2", "n3"},
		},
		{
			name:  "diamond",
			nodes: []string{"sink", "left", "right", "src"},
			edges: [][2]string{{"src", "left"}, {"src", "right"}, {"left", "sink"}, {"right", "sink"}},
			want:  []string{"src", "left", "right", "sink"},
		},
		{
			name:  "earliest ready node wins ties",
			nodes: []string{"x", "y", "z"},
			edges: [][2]string{{"z", "x"}},
			want:  []string{"y", "z", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.nodes, tt.edges)
			order, err := topo.Sort(g)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, ids(order)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSort_RespectsEveryEdge(t *testing.T) {
	g := build(t,
		[]string{"f", "e", "d", "c", "b", "a"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "e"}, {"a", "f"}, {"e", "f"}},
	)

	order, err := topo.Sort(g)
	require.NoError(t, err)
	require.Len(t, order, 6)

	pos := make(map[string]int)
	for i, n := range order {
		pos[n.ID()] = i
	}
	for _, c := range g.Connections() {
		assert.Less(t, pos[c.From.Node().ID()], pos[c.To.Node().ID()], c.String())
	}
}

func TestSort_Deterministic(t *testing.T) {
	g := build(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "c"}, {"b", "c"}, {"c", "d"}},
	)

	first, err := topo.Sort(g)
	require.NoError(t, err)
	for range 5 {
		again, err := topo.Sort(g)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(ids(first), ids(again)))
	}
}

func TestSort_Cycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
	}{
		{"self loop", []string{"a"}, [][2]string{{"a", "a"}}},
		{"two nodes", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}}},
		{"cycle behind a source", []string{"src", "x", "y"}, [][2]string{{"src", "x"}, {"x", "y"}, {"y", "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.nodes, tt.edges)
			rev := g.Revision()

			order, err := topo.Sort(g)
			assert.Nil(t, order)
			require.ErrorIs(t, err, domain.ErrCycleDetected)

			var cycleErr *domain.CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, "topo", cycleErr.GraphID)
			assert.Equal(t, rev, g.Revision())
		})
	}
}

func TestDependencies(t *testing.T) {
	g := build(t,
		[]string{"sink", "a", "b"},
		[][2]string{{"b", "sink"}, {"a", "sink"}},
	)

	want := map[string][]string{
		"sink": {"a", "b"},
		"a":    {},
		"b":    {},
	}
	assert.Empty(t, cmp.Diff(want, topo.Dependencies(g)))
}

// reversedChain links n0 -> n1 -> ... with nodes inserted last to first, so
// every node becomes ready only after its predecessor is emitted.
func reversedChain(t testing.TB, size int) (*domain.Graph, []string) {
	want := make([]string, size)
	inserted := make([]string, size)
	edges := make([][2]string, 0, size)
	for i := range size {
		want[i] = fmt.Sprintf("n%d", i)
		inserted[size-1-i] = want[i]
		if i > 0 {
			edges = append(edges, [2]string{want[i-1], want[i]})
		}
	}
	return build(t, inserted, edges), want
}

func TestSort_LargeReversedChain(t *testing.T) {
	g, want := reversedChain(t, 2000)

	order, err := topo.Sort(g)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, ids(order)))
}

func BenchmarkSort(b *testing.B) {
	g, _ := reversedChain(b, 2000)
	for b.Loop() {
		if _, err := topo.Sort(g); err != nil {
			b.Fatal(err)
		}
	}
}
