package repositories

import (
	"context"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// ProductRepository provides read access to product snapshots.
// Product CRUD lives outside the relation engine; SaveProducts exists for
// catalog imports.
type ProductRepository interface {
	GetProduct(ctx context.Context, id entities.ProductID) (*entities.ProductNode, error)
	// GetProducts returns the products found among ids; missing ids are skipped
	GetProducts(ctx context.Context, ids []entities.ProductID) (map[entities.ProductID]*entities.ProductNode, error)
	ListProducts(ctx context.Context) ([]*entities.ProductNode, error)
	SaveProducts(ctx context.Context, products []*entities.ProductNode) error
}

// RelationKindRepository provides access to the configurable relation kinds
type RelationKindRepository interface {
	GetKind(ctx context.Context, code string) (*entities.RelationKind, error)
	// ListKinds returns kinds ordered by sort order, then code
	ListKinds(ctx context.Context) ([]*entities.RelationKind, error)
	SaveKinds(ctx context.Context, kinds []*entities.RelationKind) error
}
