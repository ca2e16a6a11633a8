// Package formula evaluates relation quantity formulas such as "ceil(qty/6)".
//
// The grammar is fixed: numbers, the single variable qty, + - * / and
// parentheses, and the functions ceil, floor, round, min and max. Anything
// else is rejected before evaluation.
package formula

import (
	"fmt"
	"math"
	"strings"
)

// Formula is a parsed expression, safe for concurrent evaluation
type Formula struct {
	source string
	root   node
}

// Parse validates an expression and returns its compiled form
func Parse(expression string) (*Formula, error) {
	src := strings.TrimSpace(expression)
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Formula{source: src, root: root}, nil
}

// Evaluate parses expression and evaluates it with qty bound to the given value
func Evaluate(expression string, qty float64) (float64, error) {
	f, err := Parse(expression)
	if err != nil {
		return 0, err
	}
	return f.Eval(qty)
}

// Eval evaluates the formula with qty bound to the given value
func (f *Formula) Eval(qty float64) (float64, error) {
	v, err := f.root.eval(qty)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{Kind: ErrNonFinite, Pos: -1, Msg: fmt.Sprintf("%q yields %g", f.source, v)}
	}
	return v, nil
}

// String returns the normalized source expression
func (f *Formula) String() string {
	return f.source
}

type node interface {
	eval(qty float64) (float64, error)
}

type numberNode struct {
	value float64
}

func (n *numberNode) eval(float64) (float64, error) {
	return n.value, nil
}

type variableNode struct{}

func (n *variableNode) eval(qty float64) (float64, error) {
	return qty, nil
}

type negateNode struct {
	operand node
}

func (n *negateNode) eval(qty float64) (float64, error) {
	v, err := n.operand.eval(qty)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryNode struct {
	op          tokenKind
	pos         int
	left, right node
}

func (n *binaryNode) eval(qty float64) (float64, error) {
	l, err := n.left.eval(qty)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(qty)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, &Error{Kind: ErrDivisionByZero, Pos: n.pos, Msg: "divisor evaluates to zero"}
		}
		return l / r, nil
	default:
		return 0, syntaxError(n.pos, "unsupported operator")
	}
}

type function struct {
	minArgs int
	maxArgs int // -1 = variadic
	apply   func(args []float64) float64
}

var functions = map[string]function{
	"ceil":  {minArgs: 1, maxArgs: 1, apply: func(a []float64) float64 { return math.Ceil(a[0]) }},
	"floor": {minArgs: 1, maxArgs: 1, apply: func(a []float64) float64 { return math.Floor(a[0]) }},
	"round": {minArgs: 1, maxArgs: 2, apply: roundHalfAwayFromZero},
	"min":   {minArgs: 1, maxArgs: -1, apply: minOf},
	"max":   {minArgs: 1, maxArgs: -1, apply: maxOf},
}

// roundHalfAwayFromZero rounds a[0] to a[1] decimal places (0 when omitted)
func roundHalfAwayFromZero(a []float64) float64 {
	if len(a) == 1 {
		return math.Round(a[0])
	}
	scale := math.Pow(10, math.Trunc(a[1]))
	return math.Round(a[0]*scale) / scale
}

func minOf(a []float64) float64 {
	m := a[0]
	for _, v := range a[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(a []float64) float64 {
	m := a[0]
	for _, v := range a[1:] {
		m = math.Max(m, v)
	}
	return m
}

type callNode struct {
	name string
	fn   function
	args []node
}

func (n *callNode) eval(qty float64) (float64, error) {
	values := make([]float64, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(qty)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}
	return n.fn.apply(values), nil
}
