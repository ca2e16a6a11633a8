package relations

import (
	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// Classifier partitions resolved relations into the quote, material and
// stock lists. Membership in each list depends only on the matching edge flag.
type Classifier struct{}

// NewClassifier creates a new classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify builds the three lists, preserving the expansion order
func (c *Classifier) Classify(resolved []entities.ResolvedRelation) *dto.RelationLists {
	lists := &dto.RelationLists{
		Quote:    make([]dto.ListLine, 0),
		Material: make([]dto.ListLine, 0),
		Stock:    make([]dto.ListLine, 0),
	}

	for _, rel := range resolved {
		// Dropped relations never reach the lists
		if rel.Quantity <= 0 {
			continue
		}
		line := c.line(rel)
		if rel.Edge.VisibleInQuote {
			lists.Quote = append(lists.Quote, line)
		}
		if rel.Edge.VisibleInMaterialList {
			lists.Material = append(lists.Material, line)
		}
		if rel.Edge.RequiredForStock {
			lists.Stock = append(lists.Stock, line)
		}
	}

	return lists
}

func (c *Classifier) line(rel entities.ResolvedRelation) dto.ListLine {
	unit := rel.Target.SalePrice
	return dto.ListLine{
		RelationID: rel.Edge.ID,
		Product:    rel.Target,
		ProductID:  rel.Target.ID,
		Kind:       rel.Edge.Kind,
		Quantity:   rel.Quantity,
		UnitPrice:  unit,
		TotalPrice: decimal.NewFromFloat(rel.Quantity).Mul(unit),
		Optional:   rel.Edge.Optional,
		Depth:      rel.Depth,
		Path:       rel.Path,
		Rule:       rel.Edge.QuantityRule,
	}
}
