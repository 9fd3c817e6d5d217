package validator

import (
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materialize(t *testing.T, doc *document.Document) *domain.Graph {
	t.Helper()
	g, err := document.Materialize(doc, nodes.Builtin())
	require.NoError(t, err)
	return g
}

func TestValidateGraph(t *testing.T) {
	// Scenario A: clean chain into a display node
	g := materialize(t, &document.Document{
		ID: "clean",
		Nodes: []document.Node{
			{ID: "show", Type: nodes.TypeDisplay},
			{ID: "src", Type: nodes.TypeSumDiff},
			{ID: "twice", Type: nodes.TypeDouble},
		},
		Connections: []document.Connection{
			{From: "src:c", To: "twice:value"},
			{From: "twice:result", To: "show:value"},
		},
	})
	report, err := ValidateGraph(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "twice", "show"}, report.Order)
	assert.Empty(t, report.Warnings)

	// Scenario B: suspicious but legal constructs
	g = materialize(t, &document.Document{
		ID: "loose",
		Nodes: []document.Node{
			{ID: "lonely", Type: nodes.TypeMath},
			{ID: "src", Type: nodes.TypeSumDiff},
			{ID: "side", Type: nodes.TypeDouble},
			{ID: "show", Type: nodes.TypeDisplay},
			{ID: "blank", Type: nodes.TypeDisplay},
		},
		Connections: []document.Connection{
			{From: "src:c", To: "show:value"},
			{From: "src:d", To: "side:value"},
		},
	})
	report, err = ValidateGraph(g)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`node "lonely" has no connections`,
		`node "side" does not feed any holder node`,
		`node "blank" has no connections`,
	}, report.Warnings)
}

func TestValidateGraph_UndrivenHolder(t *testing.T) {
	g := materialize(t, &document.Document{
		ID:    "single",
		Nodes: []document.Node{{ID: "show", Type: nodes.TypeDisplay}},
	})
	report, err := ValidateGraph(g)
	require.NoError(t, err)
	assert.Equal(t, []string{`node "show" (display) never receives a value`}, report.Warnings)
}

func TestValidateGraph_Cycle(t *testing.T) {
	g := materialize(t, &document.Document{
		ID: "loop",
		Nodes: []document.Node{
			{ID: "x", Type: nodes.TypeSumDiff},
			{ID: "y", Type: nodes.TypeSumDiff},
		},
		Connections: []document.Connection{
			{From: "x:c", To: "y:a"},
			{From: "y:c", To: "x:a"},
		},
	})
	report, err := ValidateGraph(g)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestValidateGraph_InputTypes(t *testing.T) {
	cat := nodes.Builtin()
	g := materialize(t, &document.Document{
		ID: "typed",
		Nodes: []document.Node{
			{ID: "src", Type: nodes.TypeMath, Inputs: map[string]any{"a": "ten", "operation": "pow"}},
			{ID: "twice", Type: nodes.TypeDouble, Inputs: map[string]any{"value": "ignored"}},
			{ID: "show", Type: nodes.TypeDisplay},
		},
		Connections: []document.Connection{
			{From: "src:result", To: "twice:value"},
			{From: "twice:result", To: "show:value"},
		},
	})

	report, err := ValidateGraph(g)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)

	report, err = ValidateGraph(g, WithCatalogue(cat))
	require.NoError(t, err)
	assert.Equal(t, []string{
		`node "src": interface "a": expected number, got string`,
		`node "src": interface "operation": expected one of add|subtract|multiply|divide, got "pow"`,
	}, report.Warnings)
}
