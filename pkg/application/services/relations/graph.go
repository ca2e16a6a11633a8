package relations

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/repositories"
)

// Graph is an immutable in-memory snapshot of the relation graph. It is
// loaded with one bulk edge fetch and one bulk product fetch, traversed,
// then discarded. Concurrent readers may share a Graph.
type Graph struct {
	products  map[entities.ProductID]*entities.ProductNode
	adjacency map[entities.ProductID][]*entities.RelationEdge
	edges     []*entities.RelationEdge
}

// NewGraph builds a snapshot from already loaded products and edges
func NewGraph(products []*entities.ProductNode, edges []*entities.RelationEdge) *Graph {
	g := &Graph{
		products:  make(map[entities.ProductID]*entities.ProductNode, len(products)),
		adjacency: make(map[entities.ProductID][]*entities.RelationEdge),
		edges:     make([]*entities.RelationEdge, 0, len(edges)),
	}
	for _, p := range products {
		g.products[p.ID] = p
	}
	for _, e := range edges {
		g.edges = append(g.edges, e)
		g.adjacency[e.SourceID] = append(g.adjacency[e.SourceID], e)
	}
	for _, list := range g.adjacency {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Less(list[j]) })
	}
	return g
}

// LoadGraph snapshots every edge plus the products those edges (and the
// extra ids) reference.
func LoadGraph(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	relationRepo repositories.RelationRepository,
	extra ...entities.ProductID,
) (*Graph, error) {
	edges, err := relationRepo.AllEdges(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load relation edges")
	}

	seen := make(map[entities.ProductID]struct{}, len(edges)+len(extra))
	ids := make([]entities.ProductID, 0, len(edges)+len(extra))
	add := func(id entities.ProductID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, id := range extra {
		add(id)
	}
	for _, e := range edges {
		add(e.SourceID)
		add(e.TargetID)
	}

	found, err := productRepo.GetProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load products")
	}
	products := make([]*entities.ProductNode, 0, len(found))
	for _, p := range found {
		products = append(products, p)
	}
	return NewGraph(products, edges), nil
}

// LoadCatalog snapshots every product and every edge
func LoadCatalog(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	relationRepo repositories.RelationRepository,
) (*Graph, error) {
	products, err := productRepo.ListProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load products")
	}
	edges, err := relationRepo.AllEdges(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load relation edges")
	}
	return NewGraph(products, edges), nil
}

// Product returns the product snapshot for id
func (g *Graph) Product(id entities.ProductID) (*entities.ProductNode, bool) {
	p, ok := g.products[id]
	return p, ok
}

// EdgesFrom returns the outgoing edges of id in sort order, then id
func (g *Graph) EdgesFrom(id entities.ProductID) []*entities.RelationEdge {
	return g.adjacency[id]
}

// Products returns the product map. Callers must not modify it.
func (g *Graph) Products() map[entities.ProductID]*entities.ProductNode {
	return g.products
}

// Edges returns every edge in load order
func (g *Graph) Edges() []*entities.RelationEdge {
	return g.edges
}

// Composites returns the ids of every composite product, ascending
func (g *Graph) Composites() []entities.ProductID {
	ids := make([]entities.ProductID, 0)
	for id, p := range g.products {
		if p.IsComposite() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
