package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, Migrate(db))
	require.NoError(t, SeedRelationKinds(context.Background(), db))
	return db
}

func seedProducts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := NewProductRepository(db).SaveProducts(context.Background(), []*entities.ProductNode{
		{ID: 1, Code: "KIT", Name: "Kit", Kind: entities.KindComposite},
		{ID: 2, Code: "PART-A", Name: "Part A", Kind: entities.KindComposite, PurchaseCost: decimal.RequireFromString("1")},
		{ID: 3, Code: "SCREW", Name: "Screw", Kind: entities.KindArticle, Unit: "pz",
			PurchaseCost: decimal.RequireFromString("0.1"), SalePrice: decimal.RequireFromString("0.25")},
	})
	require.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.Error(t, err)
}

func TestProductRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	seedProducts(t, db)
	repo := NewProductRepository(db)
	ctx := context.Background()

	screw, err := repo.GetProduct(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "SCREW", screw.Code)
	assert.Equal(t, entities.KindArticle, screw.Kind)
	assert.True(t, screw.PurchaseCost.Equal(decimal.RequireFromString("0.1")), "got %s", screw.PurchaseCost)
	assert.True(t, screw.SalePrice.Equal(decimal.RequireFromString("0.25")))

	_, err = repo.GetProduct(ctx, 42)
	assert.True(t, errors.Is(err, entities.ErrProductNotFound))

	found, err := repo.GetProducts(ctx, []entities.ProductID{1, 3, 42})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Upsert replaces existing rows
	require.NoError(t, repo.SaveProducts(ctx, []*entities.ProductNode{
		{ID: 3, Code: "SCREW", Name: "Screw M4", Kind: entities.KindArticle, PurchaseCost: decimal.RequireFromString("0.12")},
	}))
	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Screw M4", all[2].Name)
}

func TestRelationKindRepository_Seeded(t *testing.T) {
	db := testDB(t)
	repo := NewRelationKindRepository(db)
	ctx := context.Background()

	kinds, err := repo.ListKinds(ctx)
	require.NoError(t, err)
	require.Len(t, kinds, 6)
	assert.Equal(t, entities.KindComponent, kinds[0].Code)

	// Seeding twice keeps edits
	require.NoError(t, repo.SaveKinds(ctx, []*entities.RelationKind{{Code: "tool", Name: "Utensile", SortOrder: 6, Active: false}}))
	require.NoError(t, SeedRelationKinds(ctx, db))

	tool, err := repo.GetKind(ctx, "tool")
	require.NoError(t, err)
	assert.Equal(t, "Utensile", tool.Name)
	assert.False(t, tool.Active)

	_, err = repo.GetKind(ctx, "spare")
	assert.True(t, errors.Is(err, entities.ErrUnknownRelationKind))
}

func TestRelationRepository_StoreAndRead(t *testing.T) {
	db := testDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	formula := &entities.RelationEdge{
		SourceID: 1, TargetID: 3, Kind: "consumable",
		QuantityRule:       entities.FormulaQuantity("ceil(qty / 6)"),
		VisibleInQuote:     true,
		MinQuantityTrigger: entities.Trigger(10),
		SortOrder:          2,
		Notes:              "one box every six",
	}
	component := &entities.RelationEdge{
		SourceID: 1, TargetID: 2, Kind: entities.KindComponent,
		QuantityRule:          entities.RatioQuantity(2),
		VisibleInMaterialList: true,
		RequiredForStock:      true,
		SortOrder:             1,
	}
	require.NoError(t, repo.StoreEdge(ctx, formula, nil))
	require.NoError(t, repo.StoreEdge(ctx, component, nil))
	assert.NotZero(t, formula.ID)
	assert.NotZero(t, component.ID)

	edges, err := repo.EdgesFrom(ctx, 1)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, component.ID, edges[0].ID)
	assert.Equal(t, entities.RatioQuantity(2), edges[0].QuantityRule)
	assert.True(t, edges[0].RequiredForStock)
	assert.False(t, edges[0].VisibleInQuote)

	stored := edges[1]
	assert.Equal(t, entities.FormulaQuantity("ceil(qty / 6)"), stored.QuantityRule)
	require.NotNil(t, stored.MinQuantityTrigger)
	assert.Equal(t, 10.0, *stored.MinQuantityTrigger)
	assert.Nil(t, stored.MaxQuantityTrigger)
	assert.Equal(t, "one box every six", stored.Notes)
	assert.False(t, stored.RequiredForStock)

	all, err := repo.AllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRelationRepository_UniqueRelation(t *testing.T) {
	db := testDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	first := &entities.RelationEdge{SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}
	require.NoError(t, repo.StoreEdge(ctx, first, nil))

	// The index rejects a duplicate even without a check
	second := &entities.RelationEdge{SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(3)}
	err := repo.StoreEdge(ctx, second, nil)
	assert.True(t, errors.Is(err, entities.ErrDuplicateRelation), "got %v", err)
	assert.Zero(t, second.ID)

	// Same pair with another kind is a different relation
	accessory := &entities.RelationEdge{SourceID: 1, TargetID: 2, Kind: "accessory", QuantityRule: entities.FixedQuantity(1)}
	require.NoError(t, repo.StoreEdge(ctx, accessory, nil))
}

func TestRelationRepository_CheckRunsInTransaction(t *testing.T) {
	db := testDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.StoreEdge(ctx, &entities.RelationEdge{
		SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1),
	}, nil))

	rejected := errors.New("rejected")
	err := repo.StoreEdge(ctx, &entities.RelationEdge{
		SourceID: 2, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1),
	}, func(ctx context.Context, view repositories.EdgeView) error {
		components, err := view.ComponentEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, components, 1)

		existing, err := view.FindEdge(ctx, 1, 2, entities.KindComponent)
		require.NoError(t, err)
		assert.NotNil(t, existing)
		return rejected
	})
	assert.True(t, errors.Is(err, rejected))

	all, err := repo.AllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRelationRepository_UpdateAndDelete(t *testing.T) {
	db := testDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	edge := &entities.RelationEdge{SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}
	require.NoError(t, repo.StoreEdge(ctx, edge, nil))
	id := edge.ID

	edge.QuantityRule = entities.RatioQuantity(1.5)
	edge.MaxQuantityTrigger = entities.Trigger(100)
	require.NoError(t, repo.StoreEdge(ctx, edge, nil))
	assert.Equal(t, id, edge.ID)

	got, err := repo.GetEdge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.RatioQuantity(1.5), got.QuantityRule)
	require.NotNil(t, got.MaxQuantityTrigger)
	assert.Equal(t, 100.0, *got.MaxQuantityTrigger)

	missing := &entities.RelationEdge{ID: 999, SourceID: 1, TargetID: 3, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}
	assert.True(t, errors.Is(repo.StoreEdge(ctx, missing, nil), entities.ErrRelationNotFound))

	require.NoError(t, repo.DeleteEdge(ctx, id))
	_, err = repo.GetEdge(ctx, id)
	assert.True(t, errors.Is(err, entities.ErrRelationNotFound))
	assert.True(t, errors.Is(repo.DeleteEdge(ctx, id), entities.ErrRelationNotFound))
}

func TestRelationRepository_ConcurrentWritersAreSerialized(t *testing.T) {
	db := testDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	// Each check admits the write only if no component edge exists yet
	onlyFirst := func(ctx context.Context, view repositories.EdgeView) error {
		components, err := view.ComponentEdges(ctx)
		if err != nil {
			return err
		}
		if len(components) > 0 {
			return errors.New("graph already has a component edge")
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			edge := &entities.RelationEdge{
				SourceID:     entities.ProductID(i + 10),
				TargetID:     entities.ProductID(i + 100),
				Kind:         entities.KindComponent,
				QuantityRule: entities.FixedQuantity(1),
			}
			errs[i] = repo.StoreEdge(ctx, edge, onlyFirst)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)

	all, err := repo.AllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
