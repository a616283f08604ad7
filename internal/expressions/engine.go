// Package expressions evaluates boolean predicates over requirements. Three
// engines are available: Expr (default), CEL and jq.
package expressions

import "context"

// Engine evaluates one expression against one requirement's map form.
type Engine interface {
	Name() string
	// Compile checks the expression up front so syntax errors surface
	// before any requirement is evaluated.
	Compile(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
