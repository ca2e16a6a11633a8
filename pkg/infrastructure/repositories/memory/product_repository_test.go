package memory

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

func TestProductRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(4)

	require.NoError(t, repo.SaveProducts(ctx, []*entities.ProductNode{
		{ID: 2, Code: "SCR", Kind: entities.KindArticle, PurchaseCost: decimal.RequireFromString("0.1")},
		{ID: 1, Code: "KIT", Kind: entities.KindComposite},
	}))

	product, err := repo.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "SCR", product.Code)
	assert.True(t, product.PurchaseCost.Equal(decimal.RequireFromString("0.1")))

	_, err = repo.GetProduct(ctx, 3)
	assert.True(t, errors.Is(err, entities.ErrProductNotFound))

	found, err := repo.GetProducts(ctx, []entities.ProductID{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, entities.ProductID(1), all[0].ID)
}

func TestProductRepository_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(1)
	repo.AddProduct(entities.ProductNode{ID: 1, Name: "Old", Kind: entities.KindArticle})
	require.NoError(t, repo.SaveProducts(ctx, []*entities.ProductNode{{ID: 1, Name: "New", Kind: entities.KindComposite}}))

	product, err := repo.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New", product.Name)

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Error(t, repo.SaveProducts(ctx, []*entities.ProductNode{{ID: 0}}))
}

func TestRelationKindRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRelationKindRepository(entities.DefaultRelationKinds()...)

	kind, err := repo.GetKind(ctx, "accessory")
	require.NoError(t, err)
	assert.Equal(t, "Accessorio", kind.Name)

	_, err = repo.GetKind(ctx, "spare")
	assert.True(t, errors.Is(err, entities.ErrUnknownRelationKind))

	require.NoError(t, repo.SaveKinds(ctx, []*entities.RelationKind{{Code: "spare", Name: "Spare", SortOrder: 1}}))
	kinds, err := repo.ListKinds(ctx)
	require.NoError(t, err)
	require.Len(t, kinds, 7)
	// Equal sort order falls back to the code
	assert.Equal(t, entities.KindComponent, kinds[0].Code)
	assert.Equal(t, "spare", kinds[1].Code)

	assert.Error(t, repo.SaveKinds(ctx, []*entities.RelationKind{{Name: "no code"}}))
}
