package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Built-in type tags.
const (
	TypeValue   = "value"
	TypeDisplay = "display"
	TypeMath    = "math"
	TypeSumDiff = "sum-diff"
	TypeDouble  = "double"
	TypeExpr    = "expr"
)

// ErrDivisionByZero is returned by the math node.
var ErrDivisionByZero = errors.New("division by zero")

// ProgramCacheSize bounds the compiled expressions kept by each catalogue
// returned from Builtin.
const ProgramCacheSize = 256

// Builtin returns a catalogue holding every built-in node type. Its expr nodes
// share one program cache, owned by the catalogue.
func Builtin() *Catalogue {
	programs, _ := lru.New[string, *vm.Program](ProgramCacheSize)
	c := NewCatalogue()
	for _, def := range builtins(&exprNode{programs: programs}) {
		// Tags are unique by construction.
		_ = c.Register(def)
	}
	return c
}

func builtins(ex *exprNode) []Definition {
	return []Definition{
		{
			Type:        TypeValue,
			Description: "Forwards its input value to its output.",
			Inputs:      []Port{{Name: "value", Default: 0.0}},
			Outputs:     []Port{{Name: "value", Default: 0.0}},
			Calculate:   calculateValue,
		},
		{
			Type:        TypeDisplay,
			Description: "Sink holding the value delivered to it.",
			Inputs:      []Port{{Name: "value"}},
		},
		{
			Type:        TypeMath,
			Description: "Applies operation (add, subtract, multiply, divide) to a and b.",
			Inputs: []Port{
				{Name: "a", Default: 0.0, Type: schema.Number()},
				{Name: "b", Default: 0.0, Type: schema.Number()},
				{Name: "operation", Default: "add", Type: schema.OneOf("add", "subtract", "multiply", "divide")},
			},
			Outputs:   []Port{{Name: "result", Default: 0.0}},
			Calculate: calculateMath,
		},
		{
			Type:        TypeSumDiff,
			Description: "Returns c = a + b and d = a - b.",
			Inputs: []Port{
				{Name: "a", Default: 0.0, Type: schema.Number()},
				{Name: "b", Default: 0.0, Type: schema.Number()},
			},
			Outputs:     []Port{{Name: "c", Default: 0.0}, {Name: "d", Default: 0.0}},
			Calculate:   calculateSumDiff,
		},
		{
			Type:        TypeDouble,
			Description: "Returns twice its input.",
			Inputs:      []Port{{Name: "value", Default: 0.0, Type: schema.Number()}},
			Outputs:     []Port{{Name: "result", Default: 0.0}},
			Calculate:   calculateDouble,
		},
		{
			Type:          TypeExpr,
			Description:   "Evaluates expression with every other input bound as a variable.",
			Inputs:        []Port{{Name: "expression", Default: "", Type: schema.String()}},
			Outputs:       []Port{{Name: "result"}},
			Calculate:     ex.calculate,
			DynamicInputs: true,
		},
	}
}

// decode converts an input record into a typed struct. Weak typing accepts
// strings and JSON numbers coming from documents and the CLI.
func decode(in domain.Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(in)); err != nil {
		return fmt.Errorf("decode inputs: %w", err)
	}
	return nil
}

func calculateValue(_ context.Context, in domain.Record, _ domain.CalculationContext) (domain.Record, error) {
	return domain.Record{"value": in["value"]}, nil
}

type mathInputs struct {
	A         float64 `mapstructure:"a"`
	B         float64 `mapstructure:"b"`
	Operation string  `mapstructure:"operation"`
}

func calculateMath(_ context.Context, in domain.Record, _ domain.CalculationContext) (domain.Record, error) {
	var args mathInputs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	var result float64
	switch args.Operation {
	case "", "add":
		result = args.A + args.B
	case "subtract":
		result = args.A - args.B
	case "multiply":
		result = args.A * args.B
	case "divide":
		if args.B == 0 {
			return nil, ErrDivisionByZero
		}
		result = args.A / args.B
	default:
		return nil, fmt.Errorf("unknown operation %q", args.Operation)
	}
	return domain.Record{"result": result}, nil
}

type pairInputs struct {
	A float64 `mapstructure:"a"`
	B float64 `mapstructure:"b"`
}

func calculateSumDiff(_ context.Context, in domain.Record, _ domain.CalculationContext) (domain.Record, error) {
	var args pairInputs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	return domain.Record{"c": args.A + args.B, "d": args.A - args.B}, nil
}

func calculateDouble(_ context.Context, in domain.Record, _ domain.CalculationContext) (domain.Record, error) {
	var args struct {
		Value float64 `mapstructure:"value"`
	}
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	return domain.Record{"result": args.Value * 2}, nil
}

// exprNode evaluates expr-lang programs, caching compiled programs by source.
type exprNode struct {
	programs *lru.Cache[string, *vm.Program]
}

func (e *exprNode) calculate(_ context.Context, in domain.Record, cc domain.CalculationContext) (domain.Record, error) {
	source, _ := in["expression"].(string)
	if source == "" {
		return domain.Record{"result": nil}, nil
	}

	program, err := e.compile(source)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(in)+1)
	for k, v := range in {
		if k != "expression" {
			env[k] = v
		}
	}
	env["globals"] = cc.GlobalValues

	output, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", source, err)
	}
	return domain.Record{"result": output}, nil
}

func (e *exprNode) compile(source string) (*vm.Program, error) {
	if cached, ok := e.programs.Get(source); ok {
		return cached, nil
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsAny())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	e.programs.Add(source, program)
	return program, nil
}
