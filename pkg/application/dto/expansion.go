package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// DiagnosticCode classifies a read-time anomaly. Anomalies never fail an
// expansion; they are reported next to the (possibly partial) result.
type DiagnosticCode string

const (
	// DiagnosticCycleAtRead means a component edge led back into the current branch
	DiagnosticCycleAtRead DiagnosticCode = "cycle_detected_at_read"
	// DiagnosticMaxDepth means recursion stopped at the configured depth limit
	DiagnosticMaxDepth DiagnosticCode = "max_depth_exceeded"
	// DiagnosticFormulaFailed means a formula could not be evaluated and the relation was dropped
	DiagnosticFormulaFailed DiagnosticCode = "formula_failed"
	// DiagnosticInvalidQuantity means a stored rule yielded a non-finite quantity and the relation was dropped
	DiagnosticInvalidQuantity DiagnosticCode = "invalid_quantity"
	// DiagnosticMissingProduct means an edge points at a product absent from the catalog
	DiagnosticMissingProduct DiagnosticCode = "missing_product"
)

// Diagnostic is one anomaly observed during an expansion
type Diagnostic struct {
	Code       DiagnosticCode       `json:"code" yaml:"code"`
	RelationID entities.RelationID  `json:"relation_id" yaml:"relation_id"`
	ProductID  entities.ProductID   `json:"product_id" yaml:"product_id"`
	Depth      int                  `json:"depth" yaml:"depth"`
	Path       []entities.ProductID `json:"path" yaml:"path"`
	Message    string               `json:"message" yaml:"message"`
}

// Expansion is the result of resolving a root product and quantity into
// its flat, pre-ordered relation set
type Expansion struct {
	ID          uuid.UUID
	Root        entities.ProductID
	Quantity    float64
	Relations   []entities.ResolvedRelation
	Diagnostics []Diagnostic
	ComputedAt  time.Time
}

// Truncated reports whether part of the tree was cut off by a read-time guard
func (e *Expansion) Truncated() bool {
	for _, d := range e.Diagnostics {
		if d.Code == DiagnosticCycleAtRead || d.Code == DiagnosticMaxDepth {
			return true
		}
	}
	return false
}

// ListLine is one entry of a quote, material or stock list
type ListLine struct {
	RelationID entities.RelationID   `json:"relation_id" yaml:"relation_id"`
	Product    *entities.ProductNode `json:"-" yaml:"-"`
	ProductID  entities.ProductID    `json:"product_id" yaml:"product_id"`
	Kind       string                `json:"kind" yaml:"kind"`
	Quantity   float64               `json:"quantity" yaml:"quantity"`
	UnitPrice  decimal.Decimal       `json:"unit_price" yaml:"unit_price"`
	TotalPrice decimal.Decimal       `json:"total_price" yaml:"total_price"`
	Optional   bool                  `json:"optional" yaml:"optional"`
	Depth      int                   `json:"depth" yaml:"depth"`
	Path       []entities.ProductID  `json:"path" yaml:"path"`
	Rule       entities.QuantityRule `json:"-" yaml:"-"`
}

// RelationLists holds the three independent consumer lists of one expansion
type RelationLists struct {
	Quote    []ListLine `json:"quote" yaml:"quote"`
	Material []ListLine `json:"material" yaml:"material"`
	Stock    []ListLine `json:"stock" yaml:"stock"`
}

// QuoteTotal sums the quote lines, skipping optional ones unless asked
func (l *RelationLists) QuoteTotal(includeOptional bool) decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.Quote {
		if line.Optional && !includeOptional {
			continue
		}
		total = total.Add(line.TotalPrice)
	}
	return total
}

// CostLine is the contribution of one component to a composite cost
type CostLine struct {
	RelationID entities.RelationID   `json:"relation_id" yaml:"relation_id"`
	Product    *entities.ProductNode `json:"-" yaml:"-"`
	ProductID  entities.ProductID    `json:"product_id" yaml:"product_id"`
	Quantity   float64               `json:"quantity" yaml:"quantity"`
	Depth      int                   `json:"depth" yaml:"depth"`
	UnitCost   decimal.Decimal       `json:"unit_cost" yaml:"unit_cost"`
	TotalCost  decimal.Decimal       `json:"total_cost" yaml:"total_cost"`
	UnitPrice  decimal.Decimal       `json:"unit_price" yaml:"unit_price"`
	TotalPrice decimal.Decimal       `json:"total_price" yaml:"total_price"`
}

// CostBreakdown explains the cost and sale price of a composite product
type CostBreakdown struct {
	ProductID entities.ProductID    `json:"product_id" yaml:"product_id"`
	Product   *entities.ProductNode `json:"-" yaml:"-"`
	Lines     []CostLine            `json:"lines" yaml:"lines"`

	Cost              decimal.Decimal `json:"cost" yaml:"cost"`
	ComputedSalePrice decimal.Decimal `json:"computed_sale_price" yaml:"computed_sale_price"`
	// SalePrice is the manual sale price when one is set, the computed one otherwise
	SalePrice       decimal.Decimal `json:"sale_price" yaml:"sale_price"`
	ManualSalePrice bool            `json:"manual_sale_price" yaml:"manual_sale_price"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Margin returns sale price minus cost
func (b *CostBreakdown) Margin() decimal.Decimal {
	return b.SalePrice.Sub(b.Cost)
}

// MarginPercentage returns the margin relative to cost, 0 when cost is 0
func (b *CostBreakdown) MarginPercentage() decimal.Decimal {
	if b.Cost.IsZero() {
		return decimal.Zero
	}
	return b.Margin().Div(b.Cost).Mul(decimal.NewFromInt(100)).Round(2)
}
