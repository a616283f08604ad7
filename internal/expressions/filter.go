package expressions

import (
	"context"
	"fmt"

	"github.com/rendis/reqbot/pkg/schema"
)

// Engine names accepted by NewEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJQ   = "jq"
)

// NewEngine returns the engine with the given name; empty selects Expr.
func NewEngine(name string) (Engine, error) {
	switch name {
	case EngineExpr, "":
		return NewExprEngine(), nil
	case EngineCEL:
		return NewCELEngine()
	case EngineJQ:
		return NewGoJQEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown filter engine %q", name)
	}
}

// Filter keeps the requirements for which a boolean expression holds.
type Filter struct {
	engine     Engine
	expression string
}

// NewFilter compiles expression with the named engine.
func NewFilter(engineName, expression string) (*Filter, error) {
	engine, err := NewEngine(engineName)
	if err != nil {
		return nil, err
	}
	if err := engine.Compile(expression); err != nil {
		return nil, err
	}
	return &Filter{engine: engine, expression: expression}, nil
}

// String describes the filter for logs.
func (f *Filter) String() string {
	if f == nil {
		return "none"
	}
	return fmt.Sprintf("%s: %s", f.engine.Name(), f.expression)
}

// Apply returns the matching requirements in input order. A nil filter
// keeps everything.
func (f *Filter) Apply(ctx context.Context, reqs []schema.Requirement) ([]schema.Requirement, error) {
	if f == nil {
		return reqs, nil
	}
	out := make([]schema.Requirement, 0, len(reqs))
	for _, r := range reqs {
		v, err := f.engine.Evaluate(ctx, f.expression, schema.RequirementMap(r))
		if err != nil {
			return nil, err
		}
		keep, ok := v.(bool)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"filter %q returned %T for requirement %s, want bool", f.expression, v, r.ID).
				WithDetails(map[string]any{"expression": f.expression, "engine": f.engine.Name()})
		}
		if keep {
			out = append(out, r)
		}
	}
	return out, nil
}

func compileError(engine, expression string, err error) *schema.ReqbotError {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "engine": engine})
}

func evalError(engine, expression string, err error) *schema.ReqbotError {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "engine": engine})
}
