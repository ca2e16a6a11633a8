package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

// ProductRepository provides in-memory product storage
type ProductRepository struct {
	mu          sync.RWMutex
	products    []entities.ProductNode
	productsMap map[entities.ProductID]int
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(expectedProducts int) *ProductRepository {
	return &ProductRepository{
		products:    make([]entities.ProductNode, 0, expectedProducts),
		productsMap: make(map[entities.ProductID]int, expectedProducts),
	}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// AddProduct adds or replaces a product
func (r *ProductRepository) AddProduct(product entities.ProductNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addProduct(product)
}

func (r *ProductRepository) addProduct(product entities.ProductNode) {
	if index, exists := r.productsMap[product.ID]; exists {
		r.products[index] = product
		return
	}
	r.productsMap[product.ID] = len(r.products)
	r.products = append(r.products, product)
}

// GetProduct returns the product snapshot for id
func (r *ProductRepository) GetProduct(_ context.Context, id entities.ProductID) (*entities.ProductNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.productsMap[id]
	if !exists {
		return nil, errors.Wrapf(entities.ErrProductNotFound, "product %d", id)
	}
	product := r.products[index]
	return &product, nil
}

// GetProducts returns the products found among ids
func (r *ProductRepository) GetProducts(
	_ context.Context,
	ids []entities.ProductID,
) (map[entities.ProductID]*entities.ProductNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[entities.ProductID]*entities.ProductNode, len(ids))
	for _, id := range ids {
		if index, exists := r.productsMap[id]; exists {
			product := r.products[index]
			found[id] = &product
		}
	}
	return found, nil
}

// ListProducts returns all products ordered by id
func (r *ProductRepository) ListProducts(_ context.Context) ([]*entities.ProductNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*entities.ProductNode, 0, len(r.products))
	for i := range r.products {
		product := r.products[i]
		products = append(products, &product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// SaveProducts adds or replaces products
func (r *ProductRepository) SaveProducts(_ context.Context, products []*entities.ProductNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range products {
		if p.ID <= 0 {
			return errors.Newf("product id must be positive, got %d", p.ID)
		}
	}
	for _, p := range products {
		r.addProduct(*p)
	}
	return nil
}

// RelationKindRepository provides in-memory relation kind storage
type RelationKindRepository struct {
	mu    sync.RWMutex
	kinds map[string]entities.RelationKind
}

// NewRelationKindRepository creates a kind repository seeded with kinds
func NewRelationKindRepository(kinds ...*entities.RelationKind) *RelationKindRepository {
	r := &RelationKindRepository{kinds: make(map[string]entities.RelationKind, len(kinds))}
	for _, k := range kinds {
		r.kinds[k.Code] = *k
	}
	return r
}

// Verify interface compliance
var _ repositories.RelationKindRepository = (*RelationKindRepository)(nil)

// GetKind returns the kind with the given code
func (r *RelationKindRepository) GetKind(_ context.Context, code string) (*entities.RelationKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, exists := r.kinds[code]
	if !exists {
		return nil, errors.Wrapf(entities.ErrUnknownRelationKind, "%q", code)
	}
	return &kind, nil
}

// ListKinds returns kinds ordered by sort order, then code
func (r *RelationKindRepository) ListKinds(_ context.Context) ([]*entities.RelationKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]*entities.RelationKind, 0, len(r.kinds))
	for code := range r.kinds {
		kind := r.kinds[code]
		kinds = append(kinds, &kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if kinds[i].SortOrder != kinds[j].SortOrder {
			return kinds[i].SortOrder < kinds[j].SortOrder
		}
		return kinds[i].Code < kinds[j].Code
	})
	return kinds, nil
}

// SaveKinds adds or replaces kinds
func (r *RelationKindRepository) SaveKinds(_ context.Context, kinds []*entities.RelationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range kinds {
		if k.Code == "" {
			return errors.New("relation kind code cannot be empty")
		}
		r.kinds[k.Code] = *k
	}
	return nil
}
