package database

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

const maxSerializationRetries = 3

// RelationRepository stores relation edges in product_relations. Writes are
// serialized in-process and run check and write in one transaction, which
// is serializable on Postgres.
type RelationRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewRelationRepository creates a gorm backed relation repository
func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// Verify interface compliance
var _ repositories.RelationRepository = (*RelationRepository)(nil)

func (r *RelationRepository) EdgesFrom(ctx context.Context, id entities.ProductID) ([]*entities.RelationEdge, error) {
	var records []relationRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ?", int64(id)).
		Order("sort_order, id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load relations of product %d", id)
	}
	return toRelationEntities(records)
}

func (r *RelationRepository) AllEdges(ctx context.Context) ([]*entities.RelationEdge, error) {
	var records []relationRecord
	if err := r.db.WithContext(ctx).Order("product_id, sort_order, id").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load relations")
	}
	return toRelationEntities(records)
}

func (r *RelationRepository) GetEdge(ctx context.Context, id entities.RelationID) (*entities.RelationEdge, error) {
	var record relationRecord
	err := r.db.WithContext(ctx).First(&record, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(entities.ErrRelationNotFound, "relation %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load relation %d", id)
	}
	return record.toEntity()
}

func (r *RelationRepository) StoreEdge(
	ctx context.Context,
	edge *entities.RelationEdge,
	check repositories.EdgeCheck,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		var id int64
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			id, txErr = storeInTx(ctx, tx, edge, check)
			return txErr
		}, txOptions(r.db))
		if err == nil {
			edge.ID = entities.RelationID(id)
			return nil
		}
		if !isSerializationFailure(err) {
			break
		}
	}

	if isDuplicateKey(err) {
		return errors.Wrapf(entities.ErrDuplicateRelation, "%d -> %d (%s)", edge.SourceID, edge.TargetID, edge.Kind)
	}
	return err
}

func storeInTx(ctx context.Context, tx *gorm.DB, edge *entities.RelationEdge, check repositories.EdgeCheck) (int64, error) {
	record := toRelationRecord(edge)

	if edge.ID != 0 {
		var existing relationRecord
		err := tx.First(&existing, int64(edge.ID)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errors.Wrapf(entities.ErrRelationNotFound, "relation %d", edge.ID)
		}
		if err != nil {
			return 0, err
		}
		record.CreatedAt = existing.CreatedAt
	}

	if check != nil {
		if err := check(ctx, txView{tx: tx}); err != nil {
			return 0, err
		}
	}

	if record.ID == 0 {
		if err := tx.Create(&record).Error; err != nil {
			return 0, err
		}
	} else if err := tx.Save(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func (r *RelationRepository) DeleteEdge(ctx context.Context, id entities.RelationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.WithContext(ctx).Delete(&relationRecord{}, int64(id))
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to delete relation %d", id)
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(entities.ErrRelationNotFound, "relation %d", id)
	}
	return nil
}

// txView exposes the transaction's view of the edge set to an EdgeCheck
type txView struct {
	tx *gorm.DB
}

func (v txView) ComponentEdges(context.Context) ([]*entities.RelationEdge, error) {
	var records []relationRecord
	err := v.tx.
		Where("relation_type = ?", entities.KindComponent).
		Order("product_id, sort_order, id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load component relations")
	}
	return toRelationEntities(records)
}

func (v txView) FindEdge(
	_ context.Context,
	source, target entities.ProductID,
	kind string,
) (*entities.RelationEdge, error) {
	var records []relationRecord
	err := v.tx.
		Where("product_id = ? AND related_product_id = ? AND relation_type = ?", int64(source), int64(target), kind).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up relation")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].toEntity()
}
