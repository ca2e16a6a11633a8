package relations

import "github.com/diaghi13/dggm-sub002/pkg/domain/entities"

// RelationFilter narrows the edges returned by ListRelations. Nil flags and
// an empty kind match everything.
type RelationFilter struct {
	Kind                  string
	VisibleInQuote        *bool
	VisibleInMaterialList *bool
	RequiredForStock      *bool
	// ComponentsOnly keeps component edges, DependenciesOnly keeps the rest
	ComponentsOnly   bool
	DependenciesOnly bool
}

// Matches reports whether edge passes the filter
func (f RelationFilter) Matches(edge *entities.RelationEdge) bool {
	if f.Kind != "" && edge.Kind != f.Kind {
		return false
	}
	if f.ComponentsOnly && !edge.IsComponent() {
		return false
	}
	if f.DependenciesOnly && edge.IsComponent() {
		return false
	}
	if f.VisibleInQuote != nil && edge.VisibleInQuote != *f.VisibleInQuote {
		return false
	}
	if f.VisibleInMaterialList != nil && edge.VisibleInMaterialList != *f.VisibleInMaterialList {
		return false
	}
	if f.RequiredForStock != nil && edge.RequiredForStock != *f.RequiredForStock {
		return false
	}
	return true
}

// Apply returns the edges matching the filter, preserving order
func (f RelationFilter) Apply(edges []*entities.RelationEdge) []*entities.RelationEdge {
	out := make([]*entities.RelationEdge, 0, len(edges))
	for _, e := range edges {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
