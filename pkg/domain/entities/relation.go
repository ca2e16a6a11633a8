package entities

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// RelationID represents a unique relation edge identifier
type RelationID int64

// KindComponent is the only relation kind subject to the cycle guard and
// the only kind summed into composite cost.
const KindComponent = "component"

// RelationKind is a configurable category of relation edge. Label, icon and
// color are presentation data; only the code matters to the engine.
type RelationKind struct {
	Code      string
	Name      string
	Icon      string
	Color     string
	SortOrder int
	Active    bool
}

// IsComponent reports whether the kind expresses nested composition
func (k *RelationKind) IsComponent() bool {
	return k.Code == KindComponent
}

// DefaultRelationKinds returns the kinds every catalog starts with
func DefaultRelationKinds() []*RelationKind {
	return []*RelationKind{
		{Code: KindComponent, Name: "Componente", Icon: "package", Color: "#3B82F6", SortOrder: 1, Active: true},
		{Code: "container", Name: "Contenitore", Icon: "box", Color: "#64748B", SortOrder: 2, Active: true},
		{Code: "accessory", Name: "Accessorio", Icon: "plug", Color: "#8B5CF6", SortOrder: 3, Active: true},
		{Code: "cable", Name: "Cavo", Icon: "cable", Color: "#F59E0B", SortOrder: 4, Active: true},
		{Code: "consumable", Name: "Consumabile", Icon: "shopping-bag", Color: "#10B981", SortOrder: 5, Active: true},
		{Code: "tool", Name: "Attrezzo", Icon: "wrench", Color: "#EF4444", SortOrder: 6, Active: true},
	}
}

// RelationEdge is a directed, typed link from SourceID to TargetID
type RelationEdge struct {
	ID           RelationID
	SourceID     ProductID
	TargetID     ProductID
	Kind         string
	QuantityRule QuantityRule

	// The three downstream lists are independent of one another
	VisibleInQuote        bool
	VisibleInMaterialList bool
	RequiredForStock      bool

	// Optional lines need a human confirmation downstream; the engine only passes it through
	Optional bool

	// Nil bounds are unbounded
	MinQuantityTrigger *float64
	MaxQuantityTrigger *float64

	SortOrder int
	Notes     string
}

// NewRelationEdge creates a validated RelationEdge with the list flags the
// relations table defaults to: material list and stock on, quote off.
func NewRelationEdge(sourceID, targetID ProductID, kind string, rule QuantityRule) (*RelationEdge, error) {
	edge := &RelationEdge{
		SourceID:              sourceID,
		TargetID:              targetID,
		Kind:                  strings.TrimSpace(kind),
		QuantityRule:          rule,
		VisibleInMaterialList: true,
		RequiredForStock:      true,
	}
	if err := edge.Validate(); err != nil {
		return nil, err
	}
	return edge, nil
}

// Validate checks the edge invariants that do not need the rest of the graph
func (e *RelationEdge) Validate() error {
	if e.SourceID <= 0 {
		return errors.Wrapf(ErrInvalidRelation, "product id must be positive, got %d", e.SourceID)
	}
	if e.TargetID <= 0 {
		return errors.Wrapf(ErrInvalidRelation, "related product id must be positive, got %d", e.TargetID)
	}
	if e.SourceID == e.TargetID {
		return errors.Wrapf(ErrSelfReference, "product %d", e.SourceID)
	}
	if e.Kind == "" {
		return errors.Wrap(ErrInvalidRelation, "relation kind cannot be empty")
	}
	if err := e.QuantityRule.Validate(); err != nil {
		return err
	}
	if e.MinQuantityTrigger != nil && (!IsFinite(*e.MinQuantityTrigger) || *e.MinQuantityTrigger < 0) {
		return errors.Wrapf(ErrInvalidRelation, "min quantity trigger must be a finite non-negative number, got %g", *e.MinQuantityTrigger)
	}
	if e.MaxQuantityTrigger != nil && (!IsFinite(*e.MaxQuantityTrigger) || *e.MaxQuantityTrigger < 0) {
		return errors.Wrapf(ErrInvalidRelation, "max quantity trigger must be a finite non-negative number, got %g", *e.MaxQuantityTrigger)
	}
	if e.MinQuantityTrigger != nil && e.MaxQuantityTrigger != nil && *e.MinQuantityTrigger > *e.MaxQuantityTrigger {
		return errors.Wrapf(ErrInvalidRelation, "min quantity trigger %g exceeds max quantity trigger %g",
			*e.MinQuantityTrigger, *e.MaxQuantityTrigger)
	}
	return nil
}

// IsComponent reports whether the edge belongs to the component subgraph
func (e *RelationEdge) IsComponent() bool {
	return e.Kind == KindComponent
}

// Applies reports whether the parent quantity falls within the trigger bounds
func (e *RelationEdge) Applies(parentQty float64) bool {
	if e.MinQuantityTrigger != nil && parentQty < *e.MinQuantityTrigger {
		return false
	}
	if e.MaxQuantityTrigger != nil && parentQty > *e.MaxQuantityTrigger {
		return false
	}
	return true
}

// Clone returns a deep copy so snapshots never share trigger pointers with the store
func (e *RelationEdge) Clone() *RelationEdge {
	c := *e
	if e.MinQuantityTrigger != nil {
		v := *e.MinQuantityTrigger
		c.MinQuantityTrigger = &v
	}
	if e.MaxQuantityTrigger != nil {
		v := *e.MaxQuantityTrigger
		c.MaxQuantityTrigger = &v
	}
	return &c
}

// Less orders edges by sort order, then id
func (e *RelationEdge) Less(other *RelationEdge) bool {
	if e.SortOrder != other.SortOrder {
		return e.SortOrder < other.SortOrder
	}
	return e.ID < other.ID
}

// Trigger is a small helper for building optional trigger bounds
func Trigger(v float64) *float64 {
	return &v
}

// ResolvedRelation is one relation instance produced by an expansion.
// It is never persisted.
type ResolvedRelation struct {
	Edge     *RelationEdge
	Target   *ProductNode
	Quantity float64
	// Depth is 1 for relations of the root product
	Depth int
	// Path holds product ids from the root to the target, both inclusive
	Path []ProductID
}
