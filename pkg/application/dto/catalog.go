package dto

import (
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// Catalog is the content of an import or export file. Relation ids in a
// file only label rejections; the relation store assigns fresh ids.
type Catalog struct {
	Kinds     []*entities.RelationKind
	Products  []*entities.ProductNode
	Relations []*entities.RelationEdge
}

// RejectedRelation is a relation the cycle guard or validation refused during an import
type RejectedRelation struct {
	FileID   entities.RelationID `json:"file_id" yaml:"file_id"`
	SourceID entities.ProductID  `json:"product_id" yaml:"product_id"`
	TargetID entities.ProductID  `json:"related_product_id" yaml:"related_product_id"`
	Kind     string              `json:"kind" yaml:"kind"`
	Reason   string              `json:"reason" yaml:"reason"`
}

// ImportReport summarizes a catalog import
type ImportReport struct {
	Kinds     int                `json:"kinds" yaml:"kinds"`
	Products  int                `json:"products" yaml:"products"`
	Relations int                `json:"relations" yaml:"relations"`
	Rejected  []RejectedRelation `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}
