package services

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

// CycleGuard rejects relation edges that would break the structural invariants
// of the component subgraph. It is meant to run inside the write scope of the
// relation repository (see repositories.EdgeCheck).
type CycleGuard struct{}

// NewCycleGuard creates a new cycle guard
func NewCycleGuard() *CycleGuard {
	return &CycleGuard{}
}

// Check validates edge against the stored graph. source is the snapshot of
// the edge's source product.
func (g *CycleGuard) Check(
	ctx context.Context,
	view repositories.EdgeView,
	edge *entities.RelationEdge,
	source *entities.ProductNode,
) error {
	if edge.SourceID == edge.TargetID {
		return errors.Wrapf(entities.ErrSelfReference, "product %d", edge.SourceID)
	}
	if !edge.IsComponent() {
		return nil
	}
	if source == nil || !source.Kind.CanHaveComponents() {
		kind := entities.ProductKind("unknown")
		if source != nil {
			kind = source.Kind
		}
		return errors.Wrapf(entities.ErrSourceNotComposite, "product %d is %s", edge.SourceID, kind)
	}

	componentEdges, err := view.ComponentEdges(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load component edges")
	}
	if WouldCreateCycle(componentEdges, edge) {
		return &entities.CircularDependencyError{Source: edge.SourceID, Target: edge.TargetID}
	}
	return nil
}

// WouldCreateCycle reports whether candidate's target already reaches its
// source through the existing component edges. The stored version of the
// candidate itself (same non-zero ID) is ignored so updates are checked
// against the graph without their old shape.
func WouldCreateCycle(componentEdges []*entities.RelationEdge, candidate *entities.RelationEdge) bool {
	if candidate.SourceID == candidate.TargetID {
		return true
	}

	adjacency := make(map[entities.ProductID][]entities.ProductID)
	for _, e := range componentEdges {
		if !e.IsComponent() {
			continue
		}
		if candidate.ID != 0 && e.ID == candidate.ID {
			continue
		}
		adjacency[e.SourceID] = append(adjacency[e.SourceID], e.TargetID)
	}

	// Iterative DFS from target looking for source. The visited set keeps
	// the search finite even if the stored graph is already inconsistent.
	visited := map[entities.ProductID]bool{candidate.TargetID: true}
	stack := []entities.ProductID{candidate.TargetID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range adjacency[current] {
			if next == candidate.SourceID {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
