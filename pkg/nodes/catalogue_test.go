package nodes_test

import (
	"context"
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calc(t *testing.T, n *domain.Node, in domain.Record) domain.Record {
	t.Helper()
	require.True(t, n.HasCalculation())
	out, err := n.Calculate()(context.Background(), in, domain.CalculationContext{GlobalValues: map[string]any{"k": 3}})
	require.NoError(t, err)
	return out
}

func TestBuiltin_Types(t *testing.T) {
	assert.Equal(t,
		[]string{"display", "double", "expr", "math", "sum-diff", "value"},
		nodes.Builtin().Types(),
	)
}

func TestCatalogue_New(t *testing.T) {
	cat := nodes.Builtin()

	n, err := cat.New(nodes.TypeSumDiff, "n1", map[string]any{"a": 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID())
	assert.Equal(t, "sum-diff", n.Type())
	assert.Equal(t, domain.Record{"a": 10, "b": 0.0}, n.InputValues())
	assert.Equal(t, []string{"c", "d"}, n.OutputNames())

	_, err = cat.New("nope", "x", nil, nil)
	assert.ErrorIs(t, err, nodes.ErrUnknownNodeType)

	_, err = cat.New(nodes.TypeDouble, "x", map[string]any{"bogus": 1}, nil)
	assert.ErrorIs(t, err, nodes.ErrUndeclaredInterface)

	_, err = cat.New(nodes.TypeDouble, "x", nil, map[string]any{"bogus": 1})
	assert.ErrorIs(t, err, nodes.ErrUndeclaredInterface)

	generated, err := cat.New(nodes.TypeValue, "", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID())
}

func TestCatalogue_Register(t *testing.T) {
	cat := nodes.NewCatalogue()
	require.NoError(t, cat.Register(nodes.Definition{Type: "custom"}))
	assert.ErrorIs(t, cat.Register(nodes.Definition{Type: "custom"}), nodes.ErrDuplicateNodeType)

	def, ok := cat.Lookup("custom")
	require.True(t, ok)
	assert.Nil(t, def.Calculate)
}

func TestBuiltin_Calculations(t *testing.T) {
	cat := nodes.Builtin()
	newNode := func(nodeType string) *domain.Node {
		n, err := cat.New(nodeType, "", nil, nil)
		require.NoError(t, err)
		return n
	}

	tests := []struct {
		name     string
		nodeType string
		in       domain.Record
		want     domain.Record
	}{
		{"value forwards", nodes.TypeValue, domain.Record{"value": "hi"}, domain.Record{"value": "hi"}},
		{"sum-diff", nodes.TypeSumDiff, domain.Record{"a": 10, "b": 5}, domain.Record{"c": 15.0, "d": 5.0}},
		{"sum-diff weak strings", nodes.TypeSumDiff, domain.Record{"a": "1.5", "b": "0.5"}, domain.Record{"c": 2.0, "d": 1.0}},
		{"double", nodes.TypeDouble, domain.Record{"value": 21}, domain.Record{"result": 42.0}},
		{"math add default", nodes.TypeMath, domain.Record{"a": 2, "b": 3}, domain.Record{"result": 5.0}},
		{"math multiply", nodes.TypeMath, domain.Record{"a": 2, "b": 3, "operation": "multiply"}, domain.Record{"result": 6.0}},
		{"math divide", nodes.TypeMath, domain.Record{"a": 3, "b": 2, "operation": "divide"}, domain.Record{"result": 1.5}},
		{"expr variables", nodes.TypeExpr, domain.Record{"expression": "x * y + 1", "x": 2, "y": 4}, domain.Record{"result": 9}},
		{"expr globals", nodes.TypeExpr, domain.Record{"expression": "globals.k * 2"}, domain.Record{"result": 6}},
		{"expr empty", nodes.TypeExpr, domain.Record{"expression": ""}, domain.Record{"result": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc(t, newNode(tt.nodeType), tt.in))
		})
	}
}

func TestBuiltin_CalculationErrors(t *testing.T) {
	cat := nodes.Builtin()
	ctx := context.Background()

	math, err := cat.New(nodes.TypeMath, "m", nil, nil)
	require.NoError(t, err)
	_, err = math.Calculate()(ctx, domain.Record{"a": 1, "b": 0, "operation": "divide"}, domain.CalculationContext{})
	assert.ErrorIs(t, err, nodes.ErrDivisionByZero)

	_, err = math.Calculate()(ctx, domain.Record{"operation": "pow"}, domain.CalculationContext{})
	assert.Error(t, err)

	e, err := cat.New(nodes.TypeExpr, "e", map[string]any{"x": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"expression", "x"}, inputNames(e))
	_, err = e.Calculate()(ctx, domain.Record{"expression": "x +"}, domain.CalculationContext{})
	assert.Error(t, err)
}

func TestDisplay_IsValueHolder(t *testing.T) {
	n, err := nodes.Builtin().New(nodes.TypeDisplay, "d", map[string]any{"value": 1}, nil)
	require.NoError(t, err)
	assert.False(t, n.HasCalculation())
	assert.Empty(t, n.OutputNames())
}

func inputNames(n *domain.Node) []string {
	var names []string
	for _, in := range n.Inputs() {
		names = append(names, in.Name())
	}
	return names
}

func TestDefinition_InputSchema(t *testing.T) {
	def, ok := nodes.Builtin().Lookup(nodes.TypeMath)
	require.True(t, ok)

	s := def.InputSchema()
	assert.Len(t, s, 3)
	assert.Equal(t, "number", s["a"].Name())
	assert.NoError(t, s["operation"].Validate("divide"))
	assert.Error(t, s["operation"].Validate("pow"))

	display, ok := nodes.Builtin().Lookup(nodes.TypeDisplay)
	require.True(t, ok)
	assert.Empty(t, display.InputSchema())
}
