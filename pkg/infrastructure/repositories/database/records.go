package database

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

type productRecord struct {
	ID               int64           `gorm:"primaryKey"`
	Code             string          `gorm:"size:64;index"`
	Name             string          `gorm:"size:255;not null"`
	ProductType      string          `gorm:"size:20;not null"`
	Unit             string          `gorm:"size:20"`
	PurchasePrice    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	SalePrice        decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	MarkupPercentage decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (productRecord) TableName() string { return "products" }

type relationKindRecord struct {
	Code      string `gorm:"primaryKey;size:50"`
	Name      string `gorm:"size:100;not null"`
	Icon      string `gorm:"size:50"`
	Color     string `gorm:"size:20"`
	SortOrder int    `gorm:"not null"`
	IsActive  bool   `gorm:"not null"`
}

func (relationKindRecord) TableName() string { return "product_relation_types" }

// relationRecord mirrors the product_relations table. The unique_relation
// index enforces one edge per (product, related product, type).
type relationRecord struct {
	ID                      int64    `gorm:"primaryKey;autoIncrement"`
	ProductID               int64    `gorm:"not null;uniqueIndex:unique_relation;index:idx_relations_product_sort,priority:1"`
	RelatedProductID        int64    `gorm:"not null;uniqueIndex:unique_relation"`
	RelationType            string   `gorm:"size:50;not null;uniqueIndex:unique_relation"`
	QuantityType            string   `gorm:"size:20;not null"`
	QuantityValue           string   `gorm:"size:255;not null"`
	IsVisibleInQuote        bool     `gorm:"not null"`
	IsVisibleInMaterialList bool     `gorm:"not null"`
	IsRequiredForStock      bool     `gorm:"not null"`
	IsOptional              bool     `gorm:"not null"`
	MinQuantityTrigger      *float64 `gorm:"type:decimal(10,2)"`
	MaxQuantityTrigger      *float64 `gorm:"type:decimal(10,2)"`
	SortOrder               int      `gorm:"not null;index:idx_relations_product_sort,priority:2"`
	Notes                   string   `gorm:"type:text"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (relationRecord) TableName() string { return "product_relations" }

func toProductRecord(p *entities.ProductNode) productRecord {
	return productRecord{
		ID:               int64(p.ID),
		Code:             p.Code,
		Name:             p.Name,
		ProductType:      string(p.Kind),
		Unit:             p.Unit,
		PurchasePrice:    p.PurchaseCost,
		SalePrice:        p.SalePrice,
		MarkupPercentage: p.MarkupPercentage,
	}
}

func (r productRecord) toEntity() (*entities.ProductNode, error) {
	kind, err := entities.ParseProductKind(r.ProductType)
	if err != nil {
		return nil, err
	}
	return &entities.ProductNode{
		ID:               entities.ProductID(r.ID),
		Code:             r.Code,
		Name:             r.Name,
		Kind:             kind,
		Unit:             r.Unit,
		PurchaseCost:     r.PurchasePrice,
		SalePrice:        r.SalePrice,
		MarkupPercentage: r.MarkupPercentage,
	}, nil
}

func toRelationKindRecord(k *entities.RelationKind) relationKindRecord {
	return relationKindRecord{
		Code:      k.Code,
		Name:      k.Name,
		Icon:      k.Icon,
		Color:     k.Color,
		SortOrder: k.SortOrder,
		IsActive:  k.Active,
	}
}

func (r relationKindRecord) toEntity() *entities.RelationKind {
	return &entities.RelationKind{
		Code:      r.Code,
		Name:      r.Name,
		Icon:      r.Icon,
		Color:     r.Color,
		SortOrder: r.SortOrder,
		Active:    r.IsActive,
	}
}

func toRelationRecord(e *entities.RelationEdge) relationRecord {
	return relationRecord{
		ID:                      int64(e.ID),
		ProductID:               int64(e.SourceID),
		RelatedProductID:        int64(e.TargetID),
		RelationType:            e.Kind,
		QuantityType:            string(e.QuantityRule.Type),
		QuantityValue:           e.QuantityRule.StoredValue(),
		IsVisibleInQuote:        e.VisibleInQuote,
		IsVisibleInMaterialList: e.VisibleInMaterialList,
		IsRequiredForStock:      e.RequiredForStock,
		IsOptional:              e.Optional,
		MinQuantityTrigger:      e.MinQuantityTrigger,
		MaxQuantityTrigger:      e.MaxQuantityTrigger,
		SortOrder:               e.SortOrder,
		Notes:                   e.Notes,
	}
}

func (r relationRecord) toEntity() (*entities.RelationEdge, error) {
	rule, err := entities.ParseQuantityRule(r.QuantityType, r.QuantityValue)
	if err != nil {
		return nil, err
	}
	return &entities.RelationEdge{
		ID:                    entities.RelationID(r.ID),
		SourceID:              entities.ProductID(r.ProductID),
		TargetID:              entities.ProductID(r.RelatedProductID),
		Kind:                  r.RelationType,
		QuantityRule:          rule,
		VisibleInQuote:        r.IsVisibleInQuote,
		VisibleInMaterialList: r.IsVisibleInMaterialList,
		RequiredForStock:      r.IsRequiredForStock,
		Optional:              r.IsOptional,
		MinQuantityTrigger:    r.MinQuantityTrigger,
		MaxQuantityTrigger:    r.MaxQuantityTrigger,
		SortOrder:             r.SortOrder,
		Notes:                 r.Notes,
	}, nil
}

func toRelationEntities(records []relationRecord) ([]*entities.RelationEdge, error) {
	edges := make([]*entities.RelationEdge, 0, len(records))
	for _, r := range records {
		e, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}
