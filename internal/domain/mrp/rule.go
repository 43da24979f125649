package mrp

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain/catalogs/item"
)

// DefaultPurchaseRule suggests purchasing raw materials and producing
// everything else.
const DefaultPurchaseRule = `item.kind == "raw_material"`

// Rule is a compiled CEL predicate over a component item. A true result
// suggests purchase, false suggests production.
//
// Variables: item.kind, item.code, item.name, item.stock (double),
// item.standard_cost (double), item.attributes (map).
type Rule struct {
	expr    string
	program cel.Program
}

// NewRule compiles expr. An empty expr selects DefaultPurchaseRule.
func NewRule(expr string) (*Rule, error) {
	if expr == "" {
		expr = DefaultPurchaseRule
	}
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid purchase rule: " + iss.Err().Error()).
			WithDetail("rule", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("purchase rule must evaluate to bool").
			WithDetail("rule", expr).
			WithDetail("type", ast.OutputType().String())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}
	return &Rule{expr: expr, program: prg}, nil
}

// MustRule is NewRule that panics on error. Use only for constants and tests.
func MustRule(expr string) *Rule {
	r, err := NewRule(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the rule source.
func (r *Rule) String() string { return r.expr }

// Suggest classifies a component.
func (r *Rule) Suggest(it *item.Item) (SuggestedType, error) {
	attrs := map[string]any{}
	if it.Attributes != nil {
		attrs = it.Attributes.Plain()
	}
	out, _, err := r.program.Eval(map[string]any{
		"item": map[string]any{
			"kind":          string(it.Kind),
			"code":          it.Code,
			"name":          it.Name,
			"stock":         it.Stock.Float64(),
			"standard_cost": it.StandardCost.InexactFloat64(),
			"attributes":    attrs,
		},
	})
	if err != nil {
		return "", fmt.Errorf("evaluate purchase rule for %s: %w", it.Code, err)
	}
	purchase, ok := out.Value().(bool)
	if !ok {
		return "", fmt.Errorf("purchase rule returned %T", out.Value())
	}
	if purchase {
		return SuggestPurchase, nil
	}
	return SuggestProduction, nil
}
