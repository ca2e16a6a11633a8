package services

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/services/formula"
)

// QuantityResolver derives the quantity of a related product from the
// parent quantity. Parsed formulas are cached; the resolver is safe for
// concurrent use.
type QuantityResolver struct {
	formulas sync.Map // expression -> *formula.Formula
}

// NewQuantityResolver creates a new quantity resolver
func NewQuantityResolver() *QuantityResolver {
	return &QuantityResolver{}
}

// Resolve returns the derived quantity, or 0 when the parent quantity falls
// outside the trigger bounds. A formula failure or a non-finite result yields
// 0 together with an error so the caller can record it and drop the relation.
func (r *QuantityResolver) Resolve(
	rule entities.QuantityRule,
	parentQty float64,
	minTrigger, maxTrigger *float64,
) (float64, error) {
	if minTrigger != nil && parentQty < *minTrigger {
		return 0, nil
	}
	if maxTrigger != nil && parentQty > *maxTrigger {
		return 0, nil
	}

	var qty float64
	switch rule.Type {
	case entities.QuantityFixed:
		qty = rule.Value
	case entities.QuantityMultiplied:
		qty = parentQty * rule.Value
	case entities.QuantityFormula:
		f, err := r.compile(rule.Expression)
		if err != nil {
			return 0, err
		}
		v, err := f.Eval(parentQty)
		if err != nil {
			return 0, err
		}
		qty = v
	default:
		return 0, errors.Wrapf(entities.ErrInvalidQuantityRule, "unknown quantity type %q", rule.Type)
	}

	if !entities.IsFinite(qty) {
		return 0, errors.Wrapf(entities.ErrInvalidQuantity, "%s at parent quantity %g is not finite", rule, parentQty)
	}
	// Negative quantities never make sense downstream
	if qty < 0 {
		return 0, nil
	}
	return qty, nil
}

// ResolveEdge resolves the quantity of edge for the given parent quantity
func (r *QuantityResolver) ResolveEdge(edge *entities.RelationEdge, parentQty float64) (float64, error) {
	return r.Resolve(edge.QuantityRule, parentQty, edge.MinQuantityTrigger, edge.MaxQuantityTrigger)
}

// ValidateRule checks the rule shape and, for formulas, the formula grammar
func (r *QuantityResolver) ValidateRule(rule entities.QuantityRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Type != entities.QuantityFormula {
		return nil
	}
	if _, err := r.compile(rule.Expression); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid formula"), entities.ErrInvalidQuantityRule)
	}
	return nil
}

func (r *QuantityResolver) compile(expression string) (*formula.Formula, error) {
	if cached, ok := r.formulas.Load(expression); ok {
		return cached.(*formula.Formula), nil
	}
	f, err := formula.Parse(expression)
	if err != nil {
		return nil, err
	}
	r.formulas.Store(expression, f)
	return f, nil
}
