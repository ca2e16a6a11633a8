package relations

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/services"
)

// DefaultMaxDepth bounds recursion when no limit is configured
const DefaultMaxDepth = 32

// ExpandOptions tunes a single expansion
type ExpandOptions struct {
	// MaxDepth is the deepest relation level emitted; <= 0 uses DefaultMaxDepth
	MaxDepth int
	// ComponentsOnly skips every non-component edge
	ComponentsOnly bool
}

func (o ExpandOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// RelationVisitor is called for every resolved relation, in pre-order
type RelationVisitor func(rel entities.ResolvedRelation)

// Expander resolves a root product and quantity into its relation tree
type Expander struct {
	resolver *services.QuantityResolver
}

// NewExpander creates a new expander
func NewExpander(resolver *services.QuantityResolver) *Expander {
	return &Expander{resolver: resolver}
}

// Expand returns the resolved relations of root in deterministic pre-order:
// a parent before its children, siblings in sort order. Read-time anomalies
// are returned as diagnostics and never abort the expansion.
func (x *Expander) Expand(
	graph *Graph,
	root entities.ProductID,
	qty float64,
	opts ExpandOptions,
) ([]entities.ResolvedRelation, []dto.Diagnostic) {
	resolved := make([]entities.ResolvedRelation, 0)
	diagnostics := x.Walk(graph, root, qty, opts, func(rel entities.ResolvedRelation) {
		resolved = append(resolved, rel)
	})
	return resolved, diagnostics
}

// Walk traverses the relation tree of root and hands every resolved relation
// to visit
func (x *Expander) Walk(
	graph *Graph,
	root entities.ProductID,
	qty float64,
	opts ExpandOptions,
	visit RelationVisitor,
) []dto.Diagnostic {
	w := &walker{
		graph:    graph,
		resolver: x.resolver,
		maxDepth: opts.maxDepth(),
		opts:     opts,
		visit:    visit,
		onPath:   map[entities.ProductID]bool{root: true},
	}
	w.walk(root, qty, 1, []entities.ProductID{root})
	return w.diagnostics
}

type walker struct {
	graph       *Graph
	resolver    *services.QuantityResolver
	maxDepth    int
	opts        ExpandOptions
	visit       RelationVisitor
	onPath      map[entities.ProductID]bool
	diagnostics []dto.Diagnostic
}

// walk emits the relations of node at the given depth. path ends with node.
func (w *walker) walk(node entities.ProductID, qty float64, depth int, path []entities.ProductID) {
	for _, edge := range w.graph.EdgesFrom(node) {
		if w.opts.ComponentsOnly && !edge.IsComponent() {
			continue
		}

		childPath := make([]entities.ProductID, len(path)+1)
		copy(childPath, path)
		childPath[len(path)] = edge.TargetID

		target, ok := w.graph.Product(edge.TargetID)
		if !ok {
			w.report(dto.DiagnosticMissingProduct, edge, depth, childPath,
				fmt.Sprintf("relation %d points at missing product %d", edge.ID, edge.TargetID))
			continue
		}

		computed, err := w.resolver.ResolveEdge(edge, qty)
		if err != nil {
			code := dto.DiagnosticFormulaFailed
			if errors.Is(err, entities.ErrInvalidQuantity) {
				code = dto.DiagnosticInvalidQuantity
			}
			w.report(code, edge, depth, childPath,
				fmt.Sprintf("relation %d dropped: %v", edge.ID, err))
			continue
		}
		if computed <= 0 {
			continue
		}

		w.visit(entities.ResolvedRelation{
			Edge:     edge,
			Target:   target,
			Quantity: computed,
			Depth:    depth,
			Path:     childPath,
		})

		// Only the component subgraph expresses nested composition
		if !edge.IsComponent() || !target.IsComposite() {
			continue
		}
		if w.onPath[target.ID] {
			w.report(dto.DiagnosticCycleAtRead, edge, depth, childPath,
				fmt.Sprintf("product %d is already on the expansion path", target.ID))
			continue
		}
		if depth >= w.maxDepth {
			if len(w.graph.EdgesFrom(target.ID)) > 0 {
				w.report(dto.DiagnosticMaxDepth, edge, depth, childPath,
					fmt.Sprintf("relations of product %d not expanded beyond depth %d", target.ID, w.maxDepth))
			}
			continue
		}

		w.onPath[target.ID] = true
		w.walk(target.ID, computed, depth+1, childPath)
		delete(w.onPath, target.ID)
	}
}

func (w *walker) report(
	code dto.DiagnosticCode,
	edge *entities.RelationEdge,
	depth int,
	path []entities.ProductID,
	message string,
) {
	w.diagnostics = append(w.diagnostics, dto.Diagnostic{
		Code:       code,
		RelationID: edge.ID,
		ProductID:  edge.TargetID,
		Depth:      depth,
		Path:       path,
		Message:    message,
	})
}
