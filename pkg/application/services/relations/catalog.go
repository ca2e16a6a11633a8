package relations

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// rejectionErrors are write-time validation failures. An import records them
// and moves on; any other error aborts the import.
var rejectionErrors = []error{
	entities.ErrInvalidRelation,
	entities.ErrCircularDependency,
	entities.ErrDuplicateRelation,
	entities.ErrUnknownRelationKind,
	entities.ErrInactiveRelationKind,
	entities.ErrInvalidQuantityRule,
	entities.ErrProductNotFound,
}

func isRejection(err error) bool {
	for _, target := range rejectionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Import saves the kinds and products of catalog, then stores every relation
// in file order through StoreEdge. When two relations close a cycle the
// later one is rejected.
func (s *RelationService) Import(ctx context.Context, catalog *dto.Catalog) (*dto.ImportReport, error) {
	report := &dto.ImportReport{}

	if err := s.kinds.SaveKinds(ctx, catalog.Kinds); err != nil {
		return nil, err
	}
	report.Kinds = len(catalog.Kinds)

	if err := s.products.SaveProducts(ctx, catalog.Products); err != nil {
		return nil, err
	}
	report.Products = len(catalog.Products)

	for _, rel := range catalog.Relations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		edge := rel.Clone()
		edge.ID = 0
		err := s.StoreEdge(ctx, edge)
		switch {
		case err == nil:
			report.Relations++
		case isRejection(err):
			report.Rejected = append(report.Rejected, dto.RejectedRelation{
				FileID:   rel.ID,
				SourceID: rel.SourceID,
				TargetID: rel.TargetID,
				Kind:     rel.Kind,
				Reason:   err.Error(),
			})
		default:
			return nil, errors.Wrapf(err, "failed to import relation %d -> %d", rel.SourceID, rel.TargetID)
		}
	}

	s.logger.Info().
		Int("kinds", report.Kinds).
		Int("products", report.Products).
		Int("relations", report.Relations).
		Int("rejected", len(report.Rejected)).
		Msg("catalog imported")
	return report, nil
}

// Export returns the stored kinds, products and relations
func (s *RelationService) Export(ctx context.Context) (*dto.Catalog, error) {
	kinds, err := s.kinds.ListKinds(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.relations.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.Catalog{Kinds: kinds, Products: products, Relations: edges}, nil
}
