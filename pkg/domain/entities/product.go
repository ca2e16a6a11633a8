package entities

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// ProductID represents a unique catalog product identifier
type ProductID int64

// ProductKind represents the catalog type of a product
type ProductKind string

const (
	// KindArticle is a physical, inventoriable item (cement, cables, tools)
	KindArticle ProductKind = "article"
	// KindService is a non-inventoriable service (labour, installation)
	KindService ProductKind = "service"
	// KindComposite is a kit assembled from other products
	KindComposite ProductKind = "composite"
)

// ParseProductKind converts a stored product_type value into a ProductKind
func ParseProductKind(value string) (ProductKind, error) {
	switch kind := ProductKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindArticle, KindService, KindComposite:
		return kind, nil
	default:
		return "", errors.Newf("unknown product kind %q", value)
	}
}

// String method for ProductKind enum
func (k ProductKind) String() string {
	return string(k)
}

// CanHaveComponents reports whether the kind may be the source of a component relation
func (k ProductKind) CanHaveComponents() bool {
	return k == KindComposite
}

// ProductNode is the read-only view of a catalog product used during resolution.
// Nodes are snapshots: the engine never mutates them.
type ProductNode struct {
	ID               ProductID
	Code             string
	Name             string
	Kind             ProductKind
	Unit             string
	PurchaseCost     decimal.Decimal
	SalePrice        decimal.Decimal
	MarkupPercentage decimal.Decimal
}

// IsComposite reports whether the product is a kit
func (p *ProductNode) IsComposite() bool {
	return p.Kind == KindComposite
}

// Label returns a short human readable identifier for logs and tables
func (p *ProductNode) Label() string {
	switch {
	case p.Code != "" && p.Name != "":
		return p.Code + " " + p.Name
	case p.Name != "":
		return p.Name
	default:
		return p.Code
	}
}
