package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

// RelationRepository provides in-memory relation edge storage. StoreEdge
// holds the write lock across check and write, which serializes writers.
type RelationRepository struct {
	mu          sync.RWMutex
	edges       map[entities.RelationID]*entities.RelationEdge
	edgeIndexes map[entities.ProductID][]entities.RelationID
	nextID      entities.RelationID
}

// NewRelationRepository creates a new in-memory relation repository
func NewRelationRepository() *RelationRepository {
	return &RelationRepository{
		edges:       make(map[entities.RelationID]*entities.RelationEdge),
		edgeIndexes: make(map[entities.ProductID][]entities.RelationID),
		nextID:      1,
	}
}

// Verify interface compliance
var _ repositories.RelationRepository = (*RelationRepository)(nil)

// EdgesFrom returns the edges of a product ordered by sort order, then id
func (r *RelationRepository) EdgesFrom(_ context.Context, id entities.ProductID) ([]*entities.RelationEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.edgeIndexes[id]
	edges := make([]*entities.RelationEdge, 0, len(indexes))
	for _, edgeID := range indexes {
		edges = append(edges, r.edges[edgeID].Clone())
	}
	sortEdges(edges)
	return edges, nil
}

// AllEdges returns every edge ordered by source, sort order, id
func (r *RelationRepository) AllEdges(_ context.Context) ([]*entities.RelationEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot(false), nil
}

// GetEdge returns the edge with the given id
func (r *RelationRepository) GetEdge(_ context.Context, id entities.RelationID) (*entities.RelationEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	edge, exists := r.edges[id]
	if !exists {
		return nil, errors.Wrapf(entities.ErrRelationNotFound, "relation %d", id)
	}
	return edge.Clone(), nil
}

// StoreEdge runs check under the write lock, then inserts or updates edge
func (r *RelationRepository) StoreEdge(
	ctx context.Context,
	edge *entities.RelationEdge,
	check repositories.EdgeCheck,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var previous *entities.RelationEdge
	if edge.ID != 0 {
		existing, exists := r.edges[edge.ID]
		if !exists {
			return errors.Wrapf(entities.ErrRelationNotFound, "relation %d", edge.ID)
		}
		previous = existing
	}

	if check != nil {
		if err := check(ctx, lockedView{r}); err != nil {
			return err
		}
	}

	if previous != nil {
		r.unindex(previous)
	} else {
		edge.ID = r.nextID
		r.nextID++
	}
	stored := edge.Clone()
	r.edges[stored.ID] = stored
	r.edgeIndexes[stored.SourceID] = append(r.edgeIndexes[stored.SourceID], stored.ID)
	return nil
}

// DeleteEdge removes the edge with the given id
func (r *RelationRepository) DeleteEdge(_ context.Context, id entities.RelationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	edge, exists := r.edges[id]
	if !exists {
		return errors.Wrapf(entities.ErrRelationNotFound, "relation %d", id)
	}
	r.unindex(edge)
	delete(r.edges, id)
	return nil
}

// LoadEdges stores edges as-is, bypassing every check. It exists to build
// fixtures, including damaged graphs.
func (r *RelationRepository) LoadEdges(edges []*entities.RelationEdge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range edges {
		stored := e.Clone()
		if stored.ID == 0 {
			stored.ID = r.nextID
		}
		if stored.ID >= r.nextID {
			r.nextID = stored.ID + 1
		}
		if previous, exists := r.edges[stored.ID]; exists {
			r.unindex(previous)
		}
		r.edges[stored.ID] = stored
		r.edgeIndexes[stored.SourceID] = append(r.edgeIndexes[stored.SourceID], stored.ID)
	}
}

func (r *RelationRepository) unindex(edge *entities.RelationEdge) {
	indexes := r.edgeIndexes[edge.SourceID]
	for i, id := range indexes {
		if id == edge.ID {
			r.edgeIndexes[edge.SourceID] = append(indexes[:i:i], indexes[i+1:]...)
			break
		}
	}
	if len(r.edgeIndexes[edge.SourceID]) == 0 {
		delete(r.edgeIndexes, edge.SourceID)
	}
}

// snapshot must be called with the lock held
func (r *RelationRepository) snapshot(componentsOnly bool) []*entities.RelationEdge {
	edges := make([]*entities.RelationEdge, 0, len(r.edges))
	for _, e := range r.edges {
		if componentsOnly && !e.IsComponent() {
			continue
		}
		edges = append(edges, e.Clone())
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].Less(edges[j])
	})
	return edges
}

func sortEdges(edges []*entities.RelationEdge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
}

// lockedView exposes the store to an EdgeCheck while StoreEdge holds the lock
type lockedView struct {
	r *RelationRepository
}

func (v lockedView) ComponentEdges(context.Context) ([]*entities.RelationEdge, error) {
	return v.r.snapshot(true), nil
}

func (v lockedView) FindEdge(
	_ context.Context,
	source, target entities.ProductID,
	kind string,
) (*entities.RelationEdge, error) {
	for _, id := range v.r.edgeIndexes[source] {
		e := v.r.edges[id]
		if e.TargetID == target && e.Kind == kind {
			return e.Clone(), nil
		}
	}
	return nil, nil
}
