package entities

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Write-time validation errors. Every one of them rejects the attempted
// mutation; nothing is persisted.
var (
	ErrInvalidRelation    = errors.New("invalid relation")
	ErrSelfReference      = errors.Wrap(ErrInvalidRelation, "a product cannot be related to itself")
	ErrSourceNotComposite = errors.Wrap(ErrInvalidRelation, "only composite products can have components")

	ErrCircularDependency   = errors.New("circular dependency")
	ErrDuplicateRelation    = errors.New("relation already exists for this product, related product and kind")
	ErrUnknownRelationKind  = errors.New("unknown relation kind")
	ErrInactiveRelationKind = errors.New("relation kind is not active")
	ErrInvalidQuantityRule  = errors.New("invalid quantity rule")

	ErrProductNotFound  = errors.New("product not found")
	ErrRelationNotFound = errors.New("relation not found")

	// ErrInvalidQuantity rejects a negative or non-finite root quantity
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// CircularDependencyError reports a component edge that would close a cycle:
// Target already reaches Source through existing component relations.
type CircularDependencyError struct {
	Source ProductID
	Target ProductID
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: product %d already reaches product %d through its components", e.Target, e.Source)
}

// Is makes errors.Is(err, ErrCircularDependency) hold for every CircularDependencyError
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}
