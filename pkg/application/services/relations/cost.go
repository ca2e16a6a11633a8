package relations

import (
	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// CostCalculator folds the component tree of a composite (built for one
// unit) into its structural cost and sale price
type CostCalculator struct {
	expander *Expander
}

// NewCostCalculator creates a new cost calculator
func NewCostCalculator(expander *Expander) *CostCalculator {
	return &CostCalculator{expander: expander}
}

// Breakdown computes the cost breakdown of root. Only component relations
// count; every nested component contributes with its own purchase cost.
// Non-composite products yield a zero breakdown without expanding.
func (c *CostCalculator) Breakdown(graph *Graph, root *entities.ProductNode, maxDepth int) *dto.CostBreakdown {
	breakdown := &dto.CostBreakdown{
		ProductID:         root.ID,
		Product:           root,
		Lines:             make([]dto.CostLine, 0),
		Cost:              decimal.Zero,
		ComputedSalePrice: decimal.Zero,
		SalePrice:         decimal.Zero,
	}
	if !root.IsComposite() {
		return breakdown
	}

	opts := ExpandOptions{MaxDepth: maxDepth, ComponentsOnly: true}
	breakdown.Diagnostics = c.expander.Walk(graph, root.ID, 1, opts, func(rel entities.ResolvedRelation) {
		qty := decimal.NewFromFloat(rel.Quantity)
		line := dto.CostLine{
			RelationID: rel.Edge.ID,
			Product:    rel.Target,
			ProductID:  rel.Target.ID,
			Quantity:   rel.Quantity,
			Depth:      rel.Depth,
			UnitCost:   rel.Target.PurchaseCost,
			TotalCost:  qty.Mul(rel.Target.PurchaseCost),
			UnitPrice:  rel.Target.SalePrice,
			TotalPrice: qty.Mul(rel.Target.SalePrice),
		}
		breakdown.Lines = append(breakdown.Lines, line)
		breakdown.Cost = breakdown.Cost.Add(line.TotalCost)
		breakdown.ComputedSalePrice = breakdown.ComputedSalePrice.Add(line.TotalPrice)
	})

	// A manual sale price on the kit wins over the computed one
	if root.SalePrice.IsPositive() {
		breakdown.SalePrice = root.SalePrice
		breakdown.ManualSalePrice = true
	} else {
		breakdown.SalePrice = breakdown.ComputedSalePrice
	}

	return breakdown
}
