package relations

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/events"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/memory"
)

type serviceFixture struct {
	products  *memory.ProductRepository
	kinds     *memory.RelationKindRepository
	relations *memory.RelationRepository
	events    *events.MemoryStore
	service   *RelationService
}

func newServiceFixture(t *testing.T, products ...*entities.ProductNode) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		products:  memory.NewProductRepository(len(products)),
		kinds:     memory.NewRelationKindRepository(entities.DefaultRelationKinds()...),
		relations: memory.NewRelationRepository(),
		events:    events.NewMemoryStore(),
	}
	require.NoError(t, f.products.SaveProducts(context.Background(), products))
	f.service = NewRelationServiceWithConfig(f.products, f.kinds, f.relations, ServiceConfig{EventStore: f.events})
	return f
}

func (f *serviceFixture) store(t *testing.T, source, target entities.ProductID, kind string, rule entities.QuantityRule) *entities.RelationEdge {
	t.Helper()
	edge, err := entities.NewRelationEdge(source, target, kind, rule)
	require.NoError(t, err)
	require.NoError(t, f.service.StoreEdge(context.Background(), edge))
	return edge
}

func (f *serviceFixture) eventTypes(t *testing.T) []string {
	t.Helper()
	all, err := f.events.Read(context.Background(), events.Query{})
	require.NoError(t, err)
	types := make([]string, 0, len(all))
	for _, e := range all {
		types = append(types, e.Type)
	}
	return types
}

func kitCatalog() []*entities.ProductNode {
	return []*entities.ProductNode{
		kit(1, "0", "0"),
		kit(2, "1", "2"),
		article(3, "0.1", "0.25"),
		article(4, "5", "8"),
		{ID: 5, Code: "SRV-5", Kind: entities.KindService, SalePrice: decimal.RequireFromString("30")},
	}
}

func TestRelationService_StoreEdge(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	edge := f.store(t, 1, 2, entities.KindComponent, entities.RatioQuantity(2))

	assert.NotZero(t, edge.ID)
	stored, err := f.service.EdgesFrom(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, edge.ID, stored[0].ID)
	assert.Equal(t, []string{events.RelationStoredEvent}, f.eventTypes(t))
}

func TestRelationService_StoreEdgeRejections(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(2))
	f.store(t, 2, 3, entities.KindComponent, entities.FixedQuantity(3))
	require.NoError(t, f.kinds.SaveKinds(context.Background(), []*entities.RelationKind{{Code: "legacy", Active: false}}))

	tests := []struct {
		name     string
		edge     *entities.RelationEdge
		expected error
	}{
		{"self reference", &entities.RelationEdge{SourceID: 1, TargetID: 1, Kind: "accessory", QuantityRule: entities.FixedQuantity(1)}, entities.ErrSelfReference},
		{"component of an article", &entities.RelationEdge{SourceID: 3, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}, entities.ErrSourceNotComposite},
		{"cycle between kits", &entities.RelationEdge{SourceID: 2, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}, entities.ErrCircularDependency},
		{"component of a service", &entities.RelationEdge{SourceID: 5, TargetID: 3, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}, entities.ErrSourceNotComposite},
		{"duplicate", &entities.RelationEdge{SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(5)}, entities.ErrDuplicateRelation},
		{"unknown kind", &entities.RelationEdge{SourceID: 1, TargetID: 4, Kind: "spare", QuantityRule: entities.FixedQuantity(1)}, entities.ErrUnknownRelationKind},
		{"inactive kind", &entities.RelationEdge{SourceID: 1, TargetID: 4, Kind: "legacy", QuantityRule: entities.FixedQuantity(1)}, entities.ErrInactiveRelationKind},
		{"bad formula", &entities.RelationEdge{SourceID: 1, TargetID: 4, Kind: "accessory", QuantityRule: entities.FormulaQuantity("exec(qty)")}, entities.ErrInvalidQuantityRule},
		{"missing target", &entities.RelationEdge{SourceID: 1, TargetID: 99, Kind: "accessory", QuantityRule: entities.FixedQuantity(1)}, entities.ErrProductNotFound},
		{"NaN amount", &entities.RelationEdge{SourceID: 1, TargetID: 4, Kind: "accessory", QuantityRule: entities.FixedQuantity(math.NaN())}, entities.ErrInvalidQuantityRule},
		{
			"infinite trigger",
			&entities.RelationEdge{SourceID: 1, TargetID: 4, Kind: "cable", QuantityRule: entities.FixedQuantity(1), MaxQuantityTrigger: entities.Trigger(math.Inf(1))},
			entities.ErrInvalidRelation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.StoreEdge(context.Background(), tt.edge)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			assert.Zero(t, tt.edge.ID)
		})
	}

	all, err := f.relations.AllEdges(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRelationService_CycleErrorCarriesEndpoints(t *testing.T) {
	f := newServiceFixture(t, kit(1, "0", "0"), kit(2, "0", "0"), kit(3, "0", "0"))
	f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(1))
	f.store(t, 2, 3, entities.KindComponent, entities.FixedQuantity(1))

	closing := &entities.RelationEdge{SourceID: 3, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)}
	err := f.service.StoreEdge(context.Background(), closing)

	var cycleErr *entities.CircularDependencyError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, entities.ProductID(3), cycleErr.Source)
	assert.Equal(t, entities.ProductID(1), cycleErr.Target)

	// Non-component back edges are allowed
	f.store(t, 3, 1, "accessory", entities.FixedQuantity(1))
	assert.Contains(t, f.eventTypes(t), events.RelationRejectedEvent)
}

func TestRelationService_UpdateEdge(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	edge := f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(2))

	edge.QuantityRule = entities.RatioQuantity(4)
	require.NoError(t, f.service.StoreEdge(context.Background(), edge))

	stored, err := f.service.EdgesFrom(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entities.RatioQuantity(4), stored[0].QuantityRule)
}

func TestRelationService_ConcurrentInsertsCannotCloseACycle(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newServiceFixture(t, kit(1, "0", "0"), kit(2, "0", "0"))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, pair := range [][2]entities.ProductID{{1, 2}, {2, 1}} {
			wg.Add(1)
			go func(i int, source, target entities.ProductID) {
				defer wg.Done()
				edge := &entities.RelationEdge{
					SourceID:     source,
					TargetID:     target,
					Kind:         entities.KindComponent,
					QuantityRule: entities.FixedQuantity(1),
				}
				errs[i] = f.service.StoreEdge(context.Background(), edge)
			}(i, pair[0], pair[1])
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.True(t, errors.Is(err, entities.ErrCircularDependency))
		}
		assert.Equal(t, 1, accepted)

		audit, err := f.service.Audit(context.Background())
		require.NoError(t, err)
		assert.False(t, audit.HasCycles)
	}
}

func TestRelationService_DeleteEdge(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	edge := f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(2))

	require.NoError(t, f.service.DeleteEdge(context.Background(), edge.ID))
	stored, err := f.service.EdgesFrom(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, stored)

	err = f.service.DeleteEdge(context.Background(), edge.ID)
	assert.True(t, errors.Is(err, entities.ErrRelationNotFound))
	assert.Equal(t, []string{events.RelationStoredEvent, events.RelationDeletedEvent}, f.eventTypes(t))
}

func TestRelationService_ListRelations(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(2))
	accessory := f.store(t, 1, 4, "accessory", entities.FixedQuantity(1))
	accessory.VisibleInQuote = true
	require.NoError(t, f.service.StoreEdge(context.Background(), accessory))
	f.store(t, 1, 5, "tool", entities.FixedQuantity(1))

	yes := true
	tests := []struct {
		name     string
		filter   RelationFilter
		expected []entities.ProductID
	}{
		{"no filter", RelationFilter{}, []entities.ProductID{2, 4, 5}},
		{"kind", RelationFilter{Kind: "tool"}, []entities.ProductID{5}},
		{"components only", RelationFilter{ComponentsOnly: true}, []entities.ProductID{2}},
		{"dependencies only", RelationFilter{DependenciesOnly: true}, []entities.ProductID{4, 5}},
		{"visible in quote", RelationFilter{VisibleInQuote: &yes}, []entities.ProductID{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges, err := f.service.ListRelations(context.Background(), 1, tt.filter)
			require.NoError(t, err)
			got := make([]entities.ProductID, 0, len(edges))
			for _, e := range edges {
				got = append(got, e.TargetID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := f.service.ListRelations(context.Background(), 99, RelationFilter{})
	assert.True(t, errors.Is(err, entities.ErrProductNotFound))
}

func TestRelationService_ExpandAndLists(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	f.store(t, 1, 2, entities.KindComponent, entities.RatioQuantity(2))
	f.store(t, 2, 3, entities.KindComponent, entities.RatioQuantity(3))
	accessory, err := entities.NewRelationEdge(1, 4, "accessory", entities.FormulaQuantity("ceil(qty / 6)"))
	require.NoError(t, err)
	accessory.VisibleInQuote = true
	accessory.RequiredForStock = false
	require.NoError(t, f.service.StoreEdge(context.Background(), accessory))

	lists, expansion, err := f.service.CalculateLists(context.Background(), 1, 13)
	require.NoError(t, err)

	assert.NotEqual(t, expansion.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, []entities.ProductID{2, 3, 4}, targets(expansion.Relations))
	assert.Equal(t, 3.0, expansion.Relations[2].Quantity)
	assert.False(t, expansion.Truncated())

	require.Len(t, lists.Quote, 1)
	assert.Equal(t, entities.ProductID(4), lists.Quote[0].ProductID)
	assert.True(t, lists.Quote[0].TotalPrice.Equal(decimal.RequireFromString("24")))
	assert.Len(t, lists.Material, 3)
	assert.Len(t, lists.Stock, 2)

	again, err := f.service.Expand(context.Background(), 1, 13)
	require.NoError(t, err)
	assert.Equal(t, expansion.Relations, again.Relations)
	assert.NotEqual(t, expansion.ID, again.ID)
}

func TestRelationService_ExpandErrors(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)

	_, err := f.service.Expand(context.Background(), 99, 1)
	assert.True(t, errors.Is(err, entities.ErrProductNotFound))

	_, err = f.service.Expand(context.Background(), 1, -1)
	assert.True(t, errors.Is(err, entities.ErrInvalidQuantity))

	empty, err := f.service.Expand(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Empty(t, empty.Relations)
}

func TestRelationService_ReadTimeAnomaliesAreReported(t *testing.T) {
	f := newServiceFixture(t, kit(1, "0", "0"), kit(2, "0", "0"))
	// Bypass the write path to simulate damaged data
	f.relations.LoadEdges([]*entities.RelationEdge{
		{ID: 1, SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)},
		{ID: 2, SourceID: 2, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1)},
	})

	expansion, err := f.service.Expand(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, expansion.Truncated())
	assert.Equal(t, []dto.DiagnosticCode{dto.DiagnosticCycleAtRead}, diagnosticCodes(expansion.Diagnostics))
	assert.Contains(t, f.eventTypes(t), events.ExpansionAnomalyEvent)

	audit, err := f.service.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, audit.HasCycles)
}

func TestRelationService_OverflowingQuantityIsDropped(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	ctx := context.Background()
	f.store(t, 1, 2, entities.KindComponent, entities.RatioQuantity(1e308))
	f.store(t, 2, 3, entities.KindComponent, entities.RatioQuantity(10))
	f.store(t, 1, 4, "accessory", entities.FixedQuantity(1))

	lists, expansion, err := f.service.CalculateLists(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []entities.ProductID{2, 4}, targets(expansion.Relations))
	assert.Equal(t, []dto.DiagnosticCode{dto.DiagnosticInvalidQuantity}, diagnosticCodes(expansion.Diagnostics))
	assert.Len(t, lists.Material, 2)

	breakdown, err := f.service.CostBreakdown(ctx, 1)
	require.NoError(t, err)
	require.Len(t, breakdown.Lines, 1)
	assert.Equal(t, entities.ProductID(2), breakdown.Lines[0].ProductID)
	assert.Equal(t, []dto.DiagnosticCode{dto.DiagnosticInvalidQuantity}, diagnosticCodes(breakdown.Diagnostics))
}

func TestRelationService_DamagedQuantityDoesNotBreakListsOrCost(t *testing.T) {
	f := newServiceFixture(t, kit(1, "0", "0"), article(2, "4", "6"), article(3, "1", "2"))
	ctx := context.Background()
	// Bypass the write path to simulate rows written before validation existed
	f.relations.LoadEdges([]*entities.RelationEdge{
		{ID: 1, SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(math.NaN()), VisibleInQuote: true},
		{ID: 2, SourceID: 1, TargetID: 3, Kind: entities.KindComponent, QuantityRule: entities.RatioQuantity(math.Inf(1)), VisibleInQuote: true},
	})

	lists, expansion, err := f.service.CalculateLists(ctx, 1, 2)
	require.NoError(t, err)
	assert.Empty(t, expansion.Relations)
	assert.Empty(t, lists.Quote)
	assert.Equal(t,
		[]dto.DiagnosticCode{dto.DiagnosticInvalidQuantity, dto.DiagnosticInvalidQuantity},
		diagnosticCodes(expansion.Diagnostics))

	cost, err := f.service.CompositeCost(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())
	assert.Contains(t, f.eventTypes(t), events.ExpansionAnomalyEvent)
}

func TestRelationService_History(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	ctx := context.Background()
	stored := f.store(t, 1, 2, entities.KindComponent, entities.FixedQuantity(2))
	f.store(t, 2, 3, entities.KindComponent, entities.FixedQuantity(3))
	require.Error(t, f.service.StoreEdge(ctx, &entities.RelationEdge{
		SourceID: 2, TargetID: 1, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(1),
	}))
	require.NoError(t, f.service.DeleteEdge(ctx, stored.ID))

	kitHistory, err := f.service.History(ctx, events.Query{Stream: events.ProductStream(1)})
	require.NoError(t, err)
	require.Len(t, kitHistory, 2)
	assert.Equal(t, events.RelationStoredEvent, kitHistory[0].Type)
	assert.Equal(t, events.RelationDeletedEvent, kitHistory[1].Type)
	assert.Equal(t, 2, kitHistory[1].Version)

	rejected, err := f.service.History(ctx, events.Query{Types: []string{events.RelationRejectedEvent}})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	data, ok := rejected[0].Data.(events.RelationRejected)
	require.True(t, ok)
	assert.Equal(t, entities.ProductID(2), data.SourceID)
	assert.Contains(t, data.Reason, entities.ErrCircularDependency.Error())

	silent := NewRelationService(f.products, f.kinds, f.relations)
	none, err := silent.History(ctx, events.Query{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRelationService_CompositeCostAndPrice(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	f.store(t, 1, 2, entities.KindComponent, entities.RatioQuantity(2))
	f.store(t, 2, 3, entities.KindComponent, entities.RatioQuantity(3))
	f.store(t, 1, 4, "accessory", entities.FixedQuantity(1))

	cost, err := f.service.CompositeCost(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("2.6")), "got %s", cost)

	price, err := f.service.CompositeSalePrice(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("5.5")), "got %s", price)

	// PartA is itself a kit with a manual price
	partPrice, err := f.service.CompositeSalePrice(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, partPrice.Equal(decimal.RequireFromString("2")))

	screwCost, err := f.service.CompositeCost(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, screwCost.IsZero())

	_, err = f.service.CompositeCost(context.Background(), 99)
	assert.True(t, errors.Is(err, entities.ErrProductNotFound))
}

func TestRelationService_CostAll(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	f.store(t, 1, 2, entities.KindComponent, entities.RatioQuantity(2))
	f.store(t, 2, 3, entities.KindComponent, entities.RatioQuantity(3))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	breakdowns, err := f.service.CostAll(ctx, 4)
	require.NoError(t, err)
	require.Len(t, breakdowns, 2)
	assert.Equal(t, entities.ProductID(1), breakdowns[0].ProductID)
	assert.True(t, breakdowns[0].Cost.Equal(decimal.RequireFromString("2.6")))
	assert.Equal(t, entities.ProductID(2), breakdowns[1].ProductID)
	assert.True(t, breakdowns[1].Cost.Equal(decimal.RequireFromString("0.3")))
}

func TestRelationService_CostAllHonoursCancellation(t *testing.T) {
	f := newServiceFixture(t, kitCatalog()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.CostAll(ctx, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}
