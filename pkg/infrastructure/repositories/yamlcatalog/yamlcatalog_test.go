package yamlcatalog

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

const stageKit = `
kinds:
  - code: spare
    name: Ricambio
    color: "#112233"
    sort_order: 7
  - code: legacy
    name: Legacy
    sort_order: 8
    active: false
products:
  - id: 1
    code: KIT-LED
    name: LED stage kit
    kind: composite
  - id: 2
    code: PAR-64
    name: PAR 64 LED
    kind: article
    purchase_cost: 120.50
    sale_price: 180
  - id: 3
    name: DMX cable
    kind: article
    purchase_cost: "2.5"
    markup_percentage: 40
relations:
  - id: 1
    product_id: 1
    related_product_id: 2
    kind: component
    quantity: {type: multiplied, value: 4}
    visible_in_quote: true
  - product_id: 1
    related_product_id: 3
    kind: cable
    quantity: {type: formula, value: "ceil(qty / 2)"}
    required_for_stock: false
    min_quantity_trigger: 2
    sort_order: 2
`

func TestDecode(t *testing.T) {
	catalog, err := Decode(strings.NewReader(stageKit))
	require.NoError(t, err)

	require.Len(t, catalog.Kinds, 2)
	assert.True(t, catalog.Kinds[0].Active)
	assert.False(t, catalog.Kinds[1].Active)

	require.Len(t, catalog.Products, 3)
	assert.Equal(t, entities.KindComposite, catalog.Products[0].Kind)
	assert.True(t, catalog.Products[1].PurchaseCost.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, catalog.Products[2].MarkupPercentage.Equal(decimal.NewFromInt(40)))

	require.Len(t, catalog.Relations, 2)
	component := catalog.Relations[0]
	assert.Equal(t, entities.RatioQuantity(4), component.QuantityRule)
	assert.True(t, component.VisibleInQuote)
	assert.True(t, component.VisibleInMaterialList)
	assert.True(t, component.RequiredForStock)

	cable := catalog.Relations[1]
	assert.Equal(t, entities.RelationID(0), cable.ID)
	assert.Equal(t, entities.FormulaQuantity("ceil(qty / 2)"), cable.QuantityRule)
	assert.False(t, cable.RequiredForStock)
	require.NotNil(t, cable.MinQuantityTrigger)
	assert.Equal(t, 2.0, *cable.MinQuantityTrigger)
}

func TestDecode_Empty(t *testing.T) {
	catalog, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, catalog.Products)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown key",
			content: "products:\n  - id: 1\n    name: X\n    kind: article\n    price: 3\n",
			wantErr: "price",
		},
		{
			name:    "missing name",
			content: "products:\n  - id: 1\n    kind: article\n",
			wantErr: "Document.Products[0].Name (required)",
		},
		{
			name:    "unknown product kind",
			content: "products:\n  - id: 1\n    name: X\n    kind: bundle\n",
			wantErr: "Document.Products[0].Kind (oneof)",
		},
		{
			name:    "negative cost",
			content: "products:\n  - id: 1\n    name: X\n    kind: article\n    purchase_cost: -1\n",
			wantErr: "PurchaseCost (gte)",
		},
		{
			name:    "unknown quantity type",
			content: "products: []\nrelations:\n  - product_id: 1\n    related_product_id: 2\n    kind: component\n    quantity: {type: percent, value: 3}\n",
			wantErr: "Quantity.Type (oneof)",
		},
		{
			name:    "non numeric value",
			content: "products: []\nrelations:\n  - product_id: 1\n    related_product_id: 2\n    kind: component\n    quantity: {type: fixed, value: lots}\n",
			wantErr: "invalid quantity rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncodeDecodeKeepsCatalog(t *testing.T) {
	original, err := Decode(strings.NewReader(stageKit))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(original.Relations), len(decoded.Relations))
	assert.Equal(t, original.Relations[1].QuantityRule, decoded.Relations[1].QuantityRule)
	assert.Equal(t, original.Relations[1].RequiredForStock, decoded.Relations[1].RequiredForStock)
	assert.False(t, decoded.Kinds[1].Active)
	assert.True(t, original.Products[1].PurchaseCost.Equal(decoded.Products[1].PurchaseCost))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	catalog := &dto.Catalog{
		Kinds: entities.DefaultRelationKinds(),
		Products: []*entities.ProductNode{
			{ID: 1, Name: "Kit", Kind: entities.KindComposite},
			{ID: 2, Name: "Part", Kind: entities.KindArticle, PurchaseCost: decimal.RequireFromString("1.25")},
		},
		Relations: []*entities.RelationEdge{
			{ID: 9, SourceID: 1, TargetID: 2, Kind: entities.KindComponent, QuantityRule: entities.FixedQuantity(3)},
		},
	}
	require.NoError(t, Save(path, catalog))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Kinds, 6)
	require.Len(t, loaded.Relations, 1)
	assert.Equal(t, entities.FixedQuantity(3), loaded.Relations[0].QuantityRule)
	assert.False(t, loaded.Relations[0].VisibleInMaterialList)
	assert.Equal(t, entities.RelationID(9), loaded.Relations[0].ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
