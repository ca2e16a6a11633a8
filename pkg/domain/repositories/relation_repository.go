package repositories

import (
	"context"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// EdgeView is the consistent edge set visible to a write check
type EdgeView interface {
	// ComponentEdges returns every stored edge of kind component
	ComponentEdges(ctx context.Context) ([]*entities.RelationEdge, error)
	// FindEdge returns the stored edge with the same source, target and kind, or nil
	FindEdge(ctx context.Context, source, target entities.ProductID, kind string) (*entities.RelationEdge, error)
}

// EdgeCheck validates a candidate edge against the stored graph. It runs
// inside the same critical section or transaction as the write.
type EdgeCheck func(ctx context.Context, view EdgeView) error

// RelationRepository provides access to relation edges
type RelationRepository interface {
	// EdgesFrom returns the edges of a product ordered by sort order, then id
	EdgesFrom(ctx context.Context, id entities.ProductID) ([]*entities.RelationEdge, error)

	// AllEdges returns every edge in one fetch, ordered by source, sort order, id
	AllEdges(ctx context.Context) ([]*entities.RelationEdge, error)

	GetEdge(ctx context.Context, id entities.RelationID) (*entities.RelationEdge, error)

	// StoreEdge runs check and then inserts (ID == 0) or updates the edge
	// atomically. The assigned id is written back into edge. Nothing is
	// stored when check fails.
	StoreEdge(ctx context.Context, edge *entities.RelationEdge, check EdgeCheck) error

	DeleteEdge(ctx context.Context, id entities.RelationID) error
}
