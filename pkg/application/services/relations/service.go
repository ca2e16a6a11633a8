package relations

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
	"github.com/diaghi13/dggm-sub002/pkg/domain/services"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/events"
)

// ServiceConfig holds the tunables of a RelationService
type ServiceConfig struct {
	// MaxDepth bounds every expansion; <= 0 uses DefaultMaxDepth
	MaxDepth int
	Logger   zerolog.Logger
	// EventStore is optional; nil disables the relation history
	EventStore events.Store
}

// RelationService is the entry point of the relation engine for the CRUD,
// pricing and list consumers
type RelationService struct {
	products  repositories.ProductRepository
	kinds     repositories.RelationKindRepository
	relations repositories.RelationRepository

	guard      *services.CycleGuard
	resolver   *services.QuantityResolver
	validator  *services.CatalogValidator
	expander   *Expander
	classifier *Classifier
	costs      *CostCalculator

	maxDepth   int
	logger     zerolog.Logger
	eventStore events.Store
}

// NewRelationService creates a relation service with default configuration
func NewRelationService(
	products repositories.ProductRepository,
	kinds repositories.RelationKindRepository,
	relations repositories.RelationRepository,
) *RelationService {
	return NewRelationServiceWithConfig(products, kinds, relations, ServiceConfig{
		MaxDepth: DefaultMaxDepth,
		Logger:   zerolog.Nop(),
	})
}

// NewRelationServiceWithConfig creates a relation service with custom configuration
func NewRelationServiceWithConfig(
	products repositories.ProductRepository,
	kinds repositories.RelationKindRepository,
	relations repositories.RelationRepository,
	config ServiceConfig,
) *RelationService {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	resolver := services.NewQuantityResolver()
	expander := NewExpander(resolver)
	return &RelationService{
		products:   products,
		kinds:      kinds,
		relations:  relations,
		guard:      services.NewCycleGuard(),
		resolver:   resolver,
		validator:  services.NewCatalogValidator(),
		expander:   expander,
		classifier: NewClassifier(),
		costs:      NewCostCalculator(expander),
		maxDepth:   config.MaxDepth,
		logger:     config.Logger.With().Str("component", "relations").Logger(),
		eventStore: config.EventStore,
	}
}

// StoreEdge validates edge and inserts it (ID == 0) or updates it. The
// duplicate and cycle checks run inside the repository write scope, so
// concurrent writers cannot jointly close a cycle. On success the assigned
// id is written back into edge.
func (s *RelationService) StoreEdge(ctx context.Context, edge *entities.RelationEdge) error {
	if err := s.storeEdge(ctx, edge); err != nil {
		s.logger.Warn().Err(err).
			Int64("product_id", int64(edge.SourceID)).
			Int64("related_product_id", int64(edge.TargetID)).
			Str("kind", edge.Kind).
			Msg("relation rejected")
		s.publish(ctx, events.NewRelationRejectedEvent(*edge, err))
		return err
	}

	s.logger.Info().
		Int64("relation_id", int64(edge.ID)).
		Int64("product_id", int64(edge.SourceID)).
		Int64("related_product_id", int64(edge.TargetID)).
		Str("kind", edge.Kind).
		Str("quantity", edge.QuantityRule.String()).
		Msg("relation stored")
	return nil
}

func (s *RelationService) storeEdge(ctx context.Context, edge *entities.RelationEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	kind, err := s.kinds.GetKind(ctx, edge.Kind)
	if err != nil {
		return err
	}
	if !kind.Active {
		return errors.Wrapf(entities.ErrInactiveRelationKind, "%q", kind.Code)
	}

	if err := s.resolver.ValidateRule(edge.QuantityRule); err != nil {
		return err
	}

	source, err := s.products.GetProduct(ctx, edge.SourceID)
	if err != nil {
		return err
	}
	if _, err := s.products.GetProduct(ctx, edge.TargetID); err != nil {
		return err
	}

	updated := edge.ID != 0
	err = s.relations.StoreEdge(ctx, edge, func(ctx context.Context, view repositories.EdgeView) error {
		existing, err := view.FindEdge(ctx, edge.SourceID, edge.TargetID, edge.Kind)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != edge.ID {
			return errors.Wrapf(entities.ErrDuplicateRelation, "relation %d (%d -> %d, %s)",
				existing.ID, edge.SourceID, edge.TargetID, edge.Kind)
		}
		return s.guard.Check(ctx, view, edge, source)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewRelationStoredEvent(*edge, updated))
	return nil
}

// DeleteEdge removes the relation with the given id
func (s *RelationService) DeleteEdge(ctx context.Context, id entities.RelationID) error {
	edge, err := s.relations.GetEdge(ctx, id)
	if err != nil {
		return err
	}
	if err := s.relations.DeleteEdge(ctx, id); err != nil {
		return err
	}

	s.logger.Info().
		Int64("relation_id", int64(id)).
		Int64("product_id", int64(edge.SourceID)).
		Msg("relation deleted")
	s.publish(ctx, events.NewRelationDeletedEvent(*edge))
	return nil
}

// EdgesFrom returns the outgoing edges of a product, ordered by sort order, then id
func (s *RelationService) EdgesFrom(ctx context.Context, id entities.ProductID) ([]*entities.RelationEdge, error) {
	return s.relations.EdgesFrom(ctx, id)
}

// ListRelations returns the outgoing edges of a product matching filter
func (s *RelationService) ListRelations(
	ctx context.Context,
	id entities.ProductID,
	filter RelationFilter,
) ([]*entities.RelationEdge, error) {
	if _, err := s.products.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	edges, err := s.relations.EdgesFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	return filter.Apply(edges), nil
}

// ListKinds returns the configured relation kinds
func (s *RelationService) ListKinds(ctx context.Context) ([]*entities.RelationKind, error) {
	return s.kinds.ListKinds(ctx)
}

// Expand resolves root at qty into its full relation tree
func (s *RelationService) Expand(ctx context.Context, root entities.ProductID, qty float64) (*dto.Expansion, error) {
	return s.ExpandWithOptions(ctx, root, qty, ExpandOptions{})
}

// ExpandWithOptions is Expand with an explicit depth limit or component filter
func (s *RelationService) ExpandWithOptions(
	ctx context.Context,
	root entities.ProductID,
	qty float64,
	opts ExpandOptions,
) (*dto.Expansion, error) {
	if qty < 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return nil, errors.Wrapf(entities.ErrInvalidQuantity, "%g", qty)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = s.maxDepth
	}

	graph, err := LoadGraph(ctx, s.products, s.relations, root)
	if err != nil {
		return nil, err
	}
	if _, ok := graph.Product(root); !ok {
		return nil, errors.Wrapf(entities.ErrProductNotFound, "product %d", root)
	}

	resolved, diagnostics := s.expander.Expand(graph, root, qty, opts)
	expansion := &dto.Expansion{
		ID:          uuid.New(),
		Root:        root,
		Quantity:    qty,
		Relations:   resolved,
		Diagnostics: diagnostics,
		ComputedAt:  time.Now(),
	}
	s.reportDiagnostics(ctx, expansion.ID, root, diagnostics)

	s.logger.Debug().
		Str("expansion_id", expansion.ID.String()).
		Int64("root", int64(root)).
		Float64("quantity", qty).
		Int("relations", len(resolved)).
		Msg("expansion completed")
	return expansion, nil
}

// Classify partitions resolved relations into the quote, material and stock lists
func (s *RelationService) Classify(resolved []entities.ResolvedRelation) *dto.RelationLists {
	return s.classifier.Classify(resolved)
}

// CalculateLists expands root at qty and classifies the result
func (s *RelationService) CalculateLists(
	ctx context.Context,
	root entities.ProductID,
	qty float64,
) (*dto.RelationLists, *dto.Expansion, error) {
	expansion, err := s.Expand(ctx, root, qty)
	if err != nil {
		return nil, nil, err
	}
	return s.Classify(expansion.Relations), expansion, nil
}

// CompositeCost returns the structural cost of one unit of a composite
func (s *RelationService) CompositeCost(ctx context.Context, id entities.ProductID) (decimal.Decimal, error) {
	breakdown, err := s.CostBreakdown(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.Cost, nil
}

// CompositeSalePrice returns the manual sale price of a composite when set,
// otherwise the sale price computed from its components
func (s *RelationService) CompositeSalePrice(ctx context.Context, id entities.ProductID) (decimal.Decimal, error) {
	breakdown, err := s.CostBreakdown(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.SalePrice, nil
}

// CostBreakdown returns the per-component cost and price of a composite
func (s *RelationService) CostBreakdown(ctx context.Context, id entities.ProductID) (*dto.CostBreakdown, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsComposite() {
		return s.costs.Breakdown(nil, product, s.maxDepth), nil
	}

	graph, err := LoadGraph(ctx, s.products, s.relations, id)
	if err != nil {
		return nil, err
	}
	breakdown := s.costs.Breakdown(graph, product, s.maxDepth)
	s.reportDiagnostics(ctx, uuid.New(), id, breakdown.Diagnostics)
	return breakdown, nil
}

// CostAll computes the breakdown of every composite product from a single
// catalog snapshot, using up to concurrency workers. Results are ordered by
// product id.
func (s *RelationService) CostAll(ctx context.Context, concurrency int) ([]*dto.CostBreakdown, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	graph, err := LoadCatalog(ctx, s.products, s.relations)
	if err != nil {
		return nil, err
	}

	composites := graph.Composites()
	results := make([]*dto.CostBreakdown, len(composites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range composites {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			product, _ := graph.Product(id)
			results[i] = s.costs.Breakdown(graph, product, s.maxDepth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to compute composite costs")
	}

	for _, breakdown := range results {
		s.reportDiagnostics(ctx, uuid.New(), breakdown.ProductID, breakdown.Diagnostics)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ProductID < results[j].ProductID })
	return results, nil
}

// Audit checks the stored catalog for structural damage the write path
// should have prevented
func (s *RelationService) Audit(ctx context.Context) (*services.ValidationResult, error) {
	graph, err := LoadCatalog(ctx, s.products, s.relations)
	if err != nil {
		return nil, err
	}

	result := s.validator.ValidateCatalog(graph.Products(), graph.Edges())
	if !result.Valid() {
		s.logger.Warn().
			Int("problems", len(result.Errors)).
			Bool("cycles", result.HasCycles).
			Msg("catalog audit found problems")
	}
	return result, nil
}

func (s *RelationService) reportDiagnostics(
	ctx context.Context,
	expansionID uuid.UUID,
	root entities.ProductID,
	diagnostics []dto.Diagnostic,
) {
	for _, d := range diagnostics {
		s.logger.Warn().
			Str("expansion_id", expansionID.String()).
			Int64("root", int64(root)).
			Str("code", string(d.Code)).
			Int64("relation_id", int64(d.RelationID)).
			Int64("product_id", int64(d.ProductID)).
			Msg(d.Message)

		s.publish(ctx, events.NewExpansionAnomalyEvent(events.ExpansionAnomaly{
			ExpansionID: expansionID,
			Root:        root,
			Code:        string(d.Code),
			RelationID:  d.RelationID,
			ProductID:   d.ProductID,
			Message:     d.Message,
		}))
	}
}

// History returns the recorded relation events matching query, oldest
// first. Without an event store the history is empty.
func (s *RelationService) History(ctx context.Context, query events.Query) ([]events.Event, error) {
	if s.eventStore == nil {
		return []events.Event{}, nil
	}
	return s.eventStore.Read(ctx, query)
}

// publish records event without failing the operation that produced it
func (s *RelationService) publish(ctx context.Context, event events.Event) {
	if s.eventStore == nil {
		return
	}
	// A cancelled request still records what it already did
	if _, err := s.eventStore.Append(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to record event")
	}
}
