package testing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/memory"
)

// Catalog bundles the in-memory repositories of a test scenario
type Catalog struct {
	Products  *memory.ProductRepository
	Kinds     *memory.RelationKindRepository
	Relations *memory.RelationRepository
}

// Stage kit product ids
const (
	StageKit     entities.ProductID = 100
	ParBar       entities.ProductID = 101
	ParLED       entities.ProductID = 201
	TrussBar     entities.ProductID = 202
	Clamp        entities.ProductID = 203
	DMXCable     entities.ProductID = 204
	FlightCase   entities.ProductID = 205
	GaffaTape    entities.ProductID = 206
	Installation entities.ProductID = 301
)

func product(id entities.ProductID, code, name string, kind entities.ProductKind, unit, cost, price string) entities.ProductNode {
	return entities.ProductNode{
		ID:           id,
		Code:         code,
		Name:         name,
		Kind:         kind,
		Unit:         unit,
		PurchaseCost: decimal.RequireFromString(cost),
		SalePrice:    decimal.RequireFromString(price),
	}
}

// BuildStageKitTestData builds an event lighting catalog:
//
//	LED stage kit (100)
//	├── component   4 x PAR bar (101)
//	│   ├── component 4 x PAR 64 LED (201)
//	│   ├── component 1 x truss bar (202)
//	│   └── component 4 x clamp (203)
//	├── cable       ceil(qty / 2) DMX cables (204)
//	├── container   1 flight case (205), only from 2 kits on
//	├── consumable  max(1, round(qty * 0.5)) gaffa tape (206), quote only
//	└── accessory   2 h installation (301), quote only, optional
func BuildStageKitTestData() *Catalog {
	products := memory.NewProductRepository(9)
	for _, p := range []entities.ProductNode{
		product(StageKit, "KIT-STAGE", "LED stage kit", entities.KindComposite, "pz", "0", "0"),
		product(ParBar, "KIT-PARBAR", "PAR bar", entities.KindComposite, "pz", "0", "0"),
		product(ParLED, "PAR64", "PAR 64 LED", entities.KindArticle, "pz", "120.50", "180"),
		product(TrussBar, "TRUSS-1M", "Truss bar 1m", entities.KindArticle, "pz", "35", "55"),
		product(Clamp, "CLAMP", "Half coupler clamp", entities.KindArticle, "pz", "3.20", "5"),
		product(DMXCable, "DMX-10", "DMX cable 10m", entities.KindArticle, "pz", "12", "20"),
		product(FlightCase, "CASE-L", "Flight case L", entities.KindArticle, "pz", "90", "150"),
		product(GaffaTape, "TAPE", "Gaffa tape", entities.KindArticle, "roll", "4", "7.50"),
		product(Installation, "INST", "Installation", entities.KindService, "h", "0", "60"),
	} {
		products.AddProduct(p)
	}

	relations := memory.NewRelationRepository()
	edge := func(id entities.RelationID, source, target entities.ProductID, kind string, rule entities.QuantityRule) *entities.RelationEdge {
		return &entities.RelationEdge{
			ID:                    id,
			SourceID:              source,
			TargetID:              target,
			Kind:                  kind,
			QuantityRule:          rule,
			VisibleInMaterialList: true,
			RequiredForStock:      true,
			SortOrder:             int(id),
		}
	}

	caseEdge := edge(5, StageKit, FlightCase, "container", entities.FixedQuantity(1))
	caseEdge.MinQuantityTrigger = entities.Trigger(2)

	tape := edge(6, StageKit, GaffaTape, "consumable", entities.FormulaQuantity("max(1, round(qty * 0.5))"))
	tape.VisibleInQuote = true
	tape.VisibleInMaterialList = false
	tape.RequiredForStock = false

	install := edge(7, StageKit, Installation, "accessory", entities.FixedQuantity(2))
	install.VisibleInQuote = true
	install.VisibleInMaterialList = false
	install.RequiredForStock = false
	install.Optional = true

	relations.LoadEdges([]*entities.RelationEdge{
		edge(1, StageKit, ParBar, entities.KindComponent, entities.RatioQuantity(4)),
		edge(2, ParBar, ParLED, entities.KindComponent, entities.RatioQuantity(4)),
		edge(3, ParBar, TrussBar, entities.KindComponent, entities.RatioQuantity(1)),
		edge(4, StageKit, DMXCable, "cable", entities.FormulaQuantity("ceil(qty / 2)")),
		caseEdge,
		tape,
		install,
		edge(8, ParBar, Clamp, entities.KindComponent, entities.RatioQuantity(4)),
	})

	return &Catalog{
		Products:  products,
		Kinds:     memory.NewRelationKindRepository(entities.DefaultRelationKinds()...),
		Relations: relations,
	}
}

// BuildLayeredCatalog builds a balanced component tree under product 1:
// every composite above the last level has fanout children at ratio 2, and
// the last level holds articles costing 1.
func BuildLayeredCatalog(depth, fanout int) *Catalog {
	products := memory.NewProductRepository(0)
	relations := memory.NewRelationRepository()
	var edges []*entities.RelationEdge

	nextID := entities.ProductID(1)
	level := []entities.ProductID{nextID}
	products.AddProduct(product(nextID, "L0-1", "Level 0", entities.KindComposite, "pz", "0", "0"))
	nextID++

	for l := 1; l <= depth; l++ {
		kind, cost, price := entities.KindComposite, "0", "0"
		if l == depth {
			kind, cost, price = entities.KindArticle, "1", "2"
		}

		var next []entities.ProductID
		for _, parent := range level {
			for i := 0; i < fanout; i++ {
				id := nextID
				nextID++
				products.AddProduct(product(id, fmt.Sprintf("L%d-%d", l, id), fmt.Sprintf("Level %d", l), kind, "pz", cost, price))
				edges = append(edges, &entities.RelationEdge{
					ID:                    entities.RelationID(len(edges) + 1),
					SourceID:              parent,
					TargetID:              id,
					Kind:                  entities.KindComponent,
					QuantityRule:          entities.RatioQuantity(2),
					VisibleInMaterialList: true,
					RequiredForStock:      true,
					SortOrder:             i,
				})
				next = append(next, id)
			}
		}
		level = next
	}

	relations.LoadEdges(edges)
	return &Catalog{
		Products:  products,
		Kinds:     memory.NewRelationKindRepository(entities.DefaultRelationKinds()...),
		Relations: relations,
	}
}
