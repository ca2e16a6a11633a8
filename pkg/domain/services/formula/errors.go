package formula

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors matched with errors.Is against an *Error
var (
	ErrSyntax          = errors.New("formula syntax error")
	ErrUnknownFunction = errors.New("formula unknown function")
	ErrDivisionByZero  = errors.New("formula division by zero")
	ErrNonFinite       = errors.New("formula result not finite")
)

// Error describes why a formula could not be parsed or evaluated.
// Pos is the byte offset in the expression, -1 when not applicable.
type Error struct {
	Kind error
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%v at position %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap exposes the sentinel to wrapping helpers
func (e *Error) Unwrap() error {
	return e.Kind
}

func syntaxError(pos int, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrSyntax, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
