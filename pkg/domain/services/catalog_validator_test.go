package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

func catalogOf(nodes ...*entities.ProductNode) map[entities.ProductID]*entities.ProductNode {
	products := make(map[entities.ProductID]*entities.ProductNode, len(nodes))
	for _, n := range nodes {
		products[n.ID] = n
	}
	return products
}

func TestCatalogValidator_CleanCatalog(t *testing.T) {
	products := catalogOf(composite(1), composite(2), &entities.ProductNode{ID: 3, Kind: entities.KindArticle})
	edges := []*entities.RelationEdge{component(1, 1, 2), component(2, 2, 3), component(3, 1, 3)}

	result := NewCatalogValidator().ValidateCatalog(products, edges)

	assert.True(t, result.Valid())
	assert.False(t, result.HasCycles)
	assert.Empty(t, result.DuplicateEdges)
}

func TestCatalogValidator_DetectSimpleCycle(t *testing.T) {
	// Create a simple cycle: A -> B -> A
	products := catalogOf(composite(1), composite(2))
	edges := []*entities.RelationEdge{component(1, 1, 2), component(2, 2, 1)}

	result := NewCatalogValidator().ValidateCatalog(products, edges)

	require.True(t, result.HasCycles)
	require.Len(t, result.CyclePaths, 1)
	assert.Equal(t, []entities.ProductID{1, 2, 1}, result.CyclePaths[0])
	assert.False(t, result.Valid())
}

func TestCatalogValidator_DetectLongerCycle(t *testing.T) {
	// A -> B -> C -> A, with D hanging off B
	products := catalogOf(composite(1), composite(2), composite(3), composite(4))
	edges := []*entities.RelationEdge{
		component(1, 1, 2),
		component(2, 2, 4),
		component(3, 2, 3),
		component(4, 3, 1),
	}

	result := NewCatalogValidator().ValidateCatalog(products, edges)

	require.True(t, result.HasCycles)
	assert.Equal(t, []entities.ProductID{1, 2, 3, 1}, result.CyclePaths[0])
}

func TestCatalogValidator_IgnoresNonComponentLoops(t *testing.T) {
	products := catalogOf(composite(1), composite(2))
	edges := []*entities.RelationEdge{
		component(1, 1, 2),
		{ID: 2, SourceID: 2, TargetID: 1, Kind: "accessory", QuantityRule: entities.FixedQuantity(1)},
	}

	result := NewCatalogValidator().ValidateCatalog(products, edges)
	assert.False(t, result.HasCycles)
	assert.True(t, result.Valid())
}

func TestCatalogValidator_StructuralProblems(t *testing.T) {
	products := catalogOf(composite(1), &entities.ProductNode{ID: 2, Kind: entities.KindArticle}, &entities.ProductNode{ID: 3, Kind: entities.KindService})
	edges := []*entities.RelationEdge{
		component(1, 2, 3),  // article with components
		component(2, 1, 2),  // fine
		component(3, 1, 2),  // duplicate of 2
		component(4, 1, 99), // dangling
		component(5, 1, 1),  // self reference
	}

	result := NewCatalogValidator().ValidateCatalog(products, edges)

	require.Len(t, result.NonCompositeSources, 1)
	assert.Equal(t, entities.RelationID(1), result.NonCompositeSources[0].ID)
	require.Len(t, result.DuplicateEdges, 2)
	require.Len(t, result.DanglingEdges, 1)
	assert.Equal(t, entities.RelationID(4), result.DanglingEdges[0].ID)
	require.Len(t, result.SelfReferences, 1)
	assert.False(t, result.HasCycles)
	assert.Len(t, result.Errors, 4)
}
