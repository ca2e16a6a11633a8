package database

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

// lookupBatchSize keeps IN lists below the SQLite bound variable limit
const lookupBatchSize = 500

// ProductRepository reads product snapshots from the products table
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a gorm backed product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.ProductNode, error) {
	var record productRecord
	err := r.db.WithContext(ctx).First(&record, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(entities.ErrProductNotFound, "product %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load product %d", id)
	}
	return record.toEntity()
}

func (r *ProductRepository) GetProducts(
	ctx context.Context,
	ids []entities.ProductID,
) (map[entities.ProductID]*entities.ProductNode, error) {
	found := make(map[entities.ProductID]*entities.ProductNode, len(ids))
	for start := 0; start < len(ids); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(ids))
		batch := make([]int64, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, int64(id))
		}

		var records []productRecord
		if err := r.db.WithContext(ctx).Where("id IN ?", batch).Find(&records).Error; err != nil {
			return nil, errors.Wrap(err, "failed to load products")
		}
		for _, record := range records {
			p, err := record.toEntity()
			if err != nil {
				return nil, err
			}
			found[p.ID] = p
		}
	}
	return found, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]*entities.ProductNode, error) {
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	products := make([]*entities.ProductNode, 0, len(records))
	for _, record := range records {
		p, err := record.toEntity()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// SaveProducts upserts products by id
func (r *ProductRepository) SaveProducts(ctx context.Context, products []*entities.ProductNode) error {
	if len(products) == 0 {
		return nil
	}
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		if p.ID <= 0 {
			return errors.Newf("product id must be positive, got %d", p.ID)
		}
		records = append(records, toProductRecord(p))
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"code", "name", "product_type", "unit", "purchase_price", "sale_price", "markup_percentage", "updated_at",
			}),
		}).
		CreateInBatches(&records, 200).Error
	return errors.Wrap(err, "failed to save products")
}

// RelationKindRepository reads relation kinds from product_relation_types
type RelationKindRepository struct {
	db *gorm.DB
}

// NewRelationKindRepository creates a gorm backed relation kind repository
func NewRelationKindRepository(db *gorm.DB) *RelationKindRepository {
	return &RelationKindRepository{db: db}
}

// Verify interface compliance
var _ repositories.RelationKindRepository = (*RelationKindRepository)(nil)

func (r *RelationKindRepository) GetKind(ctx context.Context, code string) (*entities.RelationKind, error) {
	var record relationKindRecord
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(entities.ErrUnknownRelationKind, "%q", code)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load relation kind %q", code)
	}
	return record.toEntity(), nil
}

func (r *RelationKindRepository) ListKinds(ctx context.Context) ([]*entities.RelationKind, error) {
	var records []relationKindRecord
	if err := r.db.WithContext(ctx).Order("sort_order, code").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list relation kinds")
	}
	kinds := make([]*entities.RelationKind, 0, len(records))
	for _, record := range records {
		kinds = append(kinds, record.toEntity())
	}
	return kinds, nil
}

// SaveKinds upserts kinds by code
func (r *RelationKindRepository) SaveKinds(ctx context.Context, kinds []*entities.RelationKind) error {
	if len(kinds) == 0 {
		return nil
	}
	records := make([]relationKindRecord, 0, len(kinds))
	for _, k := range kinds {
		if k.Code == "" {
			return errors.New("relation kind code cannot be empty")
		}
		records = append(records, toRelationKindRecord(k))
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "icon", "color", "sort_order", "is_active"}),
		}).
		Create(&records).Error
	return errors.Wrap(err, "failed to save relation kinds")
}
