package services

import (
	"fmt"
	"sort"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

// CatalogValidator audits a whole relation graph. The write-time CycleGuard
// keeps a healthy catalog acyclic; the validator finds damage that slipped in
// through imports, manual SQL or concurrent writers on a weaker store.
type CatalogValidator struct{}

// NewCatalogValidator creates a new catalog validator
func NewCatalogValidator() *CatalogValidator {
	return &CatalogValidator{}
}

// ValidationResult contains the results of catalog validation
type ValidationResult struct {
	HasCycles           bool
	CyclePaths          [][]entities.ProductID
	NonCompositeSources []*entities.RelationEdge
	SelfReferences      []*entities.RelationEdge
	DuplicateEdges      []*entities.RelationEdge
	DanglingEdges       []*entities.RelationEdge
	Errors              []string
}

// Valid reports whether the audit found nothing
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateCatalog performs comprehensive validation on products and their relation edges
func (v *CatalogValidator) ValidateCatalog(
	products map[entities.ProductID]*entities.ProductNode,
	edges []*entities.RelationEdge,
) *ValidationResult {
	result := &ValidationResult{
		CyclePaths: make([][]entities.ProductID, 0),
		Errors:     make([]string, 0),
	}

	for _, edge := range edges {
		source, sourceFound := products[edge.SourceID]
		_, targetFound := products[edge.TargetID]
		if !sourceFound || !targetFound {
			result.DanglingEdges = append(result.DanglingEdges, edge)
			result.Errors = append(result.Errors,
				fmt.Sprintf("Relation %d references a missing product (%d -> %d)", edge.ID, edge.SourceID, edge.TargetID))
		}
		if edge.SourceID == edge.TargetID {
			result.SelfReferences = append(result.SelfReferences, edge)
			result.Errors = append(result.Errors, fmt.Sprintf("Relation %d references its own product %d", edge.ID, edge.SourceID))
		}
		if edge.IsComponent() && sourceFound && !source.IsComposite() {
			result.NonCompositeSources = append(result.NonCompositeSources, edge)
			result.Errors = append(result.Errors,
				fmt.Sprintf("Relation %d: product %d is %s and cannot have components", edge.ID, edge.SourceID, source.Kind))
		}
	}

	// Build adjacency map for cycle detection
	adjacencyMap := v.buildAdjacencyMap(edges)

	cycles := v.detectCycles(adjacencyMap)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("Component cycle detected: %v", cycle))
	}

	result.DuplicateEdges = v.detectDuplicateEdges(edges)
	if len(result.DuplicateEdges) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate relations", len(result.DuplicateEdges)))
	}

	return result
}

// buildAdjacencyMap creates a map of source -> component targets
func (v *CatalogValidator) buildAdjacencyMap(edges []*entities.RelationEdge) map[entities.ProductID][]entities.ProductID {
	adjacencyMap := make(map[entities.ProductID][]entities.ProductID)

	for _, edge := range edges {
		if !edge.IsComponent() || edge.SourceID == edge.TargetID {
			continue
		}
		children := adjacencyMap[edge.SourceID]

		// Avoid duplicate children in adjacency list
		found := false
		for _, child := range children {
			if child == edge.TargetID {
				found = true
				break
			}
		}

		if !found {
			adjacencyMap[edge.SourceID] = append(children, edge.TargetID)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the component subgraph
func (v *CatalogValidator) detectCycles(adjacencyMap map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	recursionStack := make(map[entities.ProductID]bool)
	cycles := make([][]entities.ProductID, 0)

	// Sorted roots keep the report stable between runs
	parents := make([]entities.ProductID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *CatalogValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacencyMap map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	recursionStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}

		// Found a cycle - extract the cycle path
		for i, part := range path {
			if part == child {
				cycle := make([]entities.ProductID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child) // Close the cycle
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateEdges finds edges sharing source, target and kind
func (v *CatalogValidator) detectDuplicateEdges(edges []*entities.RelationEdge) []*entities.RelationEdge {
	type edgeKey struct {
		source, target entities.ProductID
		kind           string
	}
	seen := make(map[edgeKey]*entities.RelationEdge)
	duplicates := make([]*entities.RelationEdge, 0)

	for _, edge := range edges {
		key := edgeKey{edge.SourceID, edge.TargetID, edge.Kind}
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, existing, edge)
		} else {
			seen[key] = edge
		}
	}

	return duplicates
}
