package entities

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// QuantityType selects how a related quantity is derived from the parent quantity
type QuantityType string

const (
	// QuantityFixed yields a constant amount regardless of the parent quantity
	QuantityFixed QuantityType = "fixed"
	// QuantityMultiplied yields parent quantity * factor
	QuantityMultiplied QuantityType = "multiplied"
	// QuantityFormula evaluates an arithmetic expression over qty
	QuantityFormula QuantityType = "formula"
)

// QuantityRule is a tagged value: Value holds the amount (fixed) or the
// factor (multiplied); Expression is only set for formulas.
type QuantityRule struct {
	Type       QuantityType
	Value      float64
	Expression string
}

// FixedQuantity creates a rule that always yields amount
func FixedQuantity(amount float64) QuantityRule {
	return QuantityRule{Type: QuantityFixed, Value: amount}
}

// RatioQuantity creates a rule that yields parent quantity * factor
func RatioQuantity(factor float64) QuantityRule {
	return QuantityRule{Type: QuantityMultiplied, Value: factor}
}

// FormulaQuantity creates a rule evaluated by the formula evaluator
func FormulaQuantity(expression string) QuantityRule {
	return QuantityRule{Type: QuantityFormula, Expression: strings.TrimSpace(expression)}
}

// ParseQuantityRule converts the stored (quantity_type, quantity_value) pair.
// An empty type defaults to fixed, as the relations table does.
func ParseQuantityRule(quantityType, value string) (QuantityRule, error) {
	value = strings.TrimSpace(value)

	switch QuantityType(strings.ToLower(strings.TrimSpace(quantityType))) {
	case QuantityFixed, "":
		amount, err := parseRuleNumber(value)
		if err != nil {
			return QuantityRule{}, err
		}
		return FixedQuantity(amount), nil
	case QuantityMultiplied, "ratio":
		factor, err := parseRuleNumber(value)
		if err != nil {
			return QuantityRule{}, err
		}
		return RatioQuantity(factor), nil
	case QuantityFormula:
		if value == "" {
			return QuantityRule{}, errors.Wrap(ErrInvalidQuantityRule, "formula cannot be empty")
		}
		return FormulaQuantity(value), nil
	default:
		return QuantityRule{}, errors.Wrapf(ErrInvalidQuantityRule, "unknown quantity type %q", quantityType)
	}
}

func parseRuleNumber(value string) (float64, error) {
	if value == "" {
		return 1, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidQuantityRule, "quantity value %q is not a number", value)
	}
	if !IsFinite(n) {
		return 0, errors.Wrapf(ErrInvalidQuantityRule, "quantity value %q is not finite", value)
	}
	return n, nil
}

// Validate checks the rule shape. Formula syntax is checked separately by
// the formula package.
func (r QuantityRule) Validate() error {
	switch r.Type {
	case QuantityFixed, QuantityMultiplied:
		if !IsFinite(r.Value) {
			return errors.Wrapf(ErrInvalidQuantityRule, "quantity value must be finite, got %g", r.Value)
		}
		if r.Value < 0 {
			return errors.Wrapf(ErrInvalidQuantityRule, "quantity value must not be negative, got %g", r.Value)
		}
		return nil
	case QuantityFormula:
		if strings.TrimSpace(r.Expression) == "" {
			return errors.Wrap(ErrInvalidQuantityRule, "formula cannot be empty")
		}
		return nil
	default:
		return errors.Wrapf(ErrInvalidQuantityRule, "unknown quantity type %q", r.Type)
	}
}

// StoredValue returns the quantity_value column representation
func (r QuantityRule) StoredValue() string {
	if r.Type == QuantityFormula {
		return r.Expression
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

func (r QuantityRule) String() string {
	switch r.Type {
	case QuantityFixed:
		return "fixed(" + r.StoredValue() + ")"
	case QuantityMultiplied:
		return "x" + r.StoredValue()
	case QuantityFormula:
		return "formula(" + r.Expression + ")"
	default:
		return "unknown"
	}
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
