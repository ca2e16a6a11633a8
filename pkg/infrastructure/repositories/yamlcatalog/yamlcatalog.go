// Package yamlcatalog reads and writes catalog files holding relation kinds,
// products and relations.
package yamlcatalog

import (
	"bytes"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

var validate = validator.New()

func init() {
	// Let numeric tags such as gte=0 apply to decimal fields
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// Document is the on-disk layout of a catalog file
type Document struct {
	Kinds     []Kind     `yaml:"kinds,omitempty" validate:"dive"`
	Products  []Product  `yaml:"products" validate:"dive"`
	Relations []Relation `yaml:"relations,omitempty" validate:"dive"`
}

type Kind struct {
	Code      string `yaml:"code" validate:"required,max=50"`
	Name      string `yaml:"name" validate:"required,max=100"`
	Icon      string `yaml:"icon,omitempty"`
	Color     string `yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	SortOrder int    `yaml:"sort_order"`
	// Active defaults to true
	Active *bool `yaml:"active,omitempty"`
}

type Product struct {
	ID               int64           `yaml:"id" validate:"required,gt=0"`
	Code             string          `yaml:"code,omitempty" validate:"max=64"`
	Name             string          `yaml:"name" validate:"required,max=255"`
	Kind             string          `yaml:"kind" validate:"required,oneof=article service composite"`
	Unit             string          `yaml:"unit,omitempty"`
	PurchaseCost     decimal.Decimal `yaml:"purchase_cost" validate:"gte=0"`
	SalePrice        decimal.Decimal `yaml:"sale_price" validate:"gte=0"`
	MarkupPercentage decimal.Decimal `yaml:"markup_percentage,omitempty" validate:"gte=0"`
}

type Quantity struct {
	Type  string `yaml:"type" validate:"omitempty,oneof=fixed multiplied ratio formula"`
	Value string `yaml:"value"`
}

type Relation struct {
	ID               int64    `yaml:"id,omitempty" validate:"gte=0"`
	ProductID        int64    `yaml:"product_id" validate:"required,gt=0"`
	RelatedProductID int64    `yaml:"related_product_id" validate:"required,gt=0"`
	Kind             string   `yaml:"kind" validate:"required,max=50"`
	Quantity         Quantity `yaml:"quantity"`

	VisibleInQuote bool `yaml:"visible_in_quote,omitempty"`
	// VisibleInMaterialList and RequiredForStock default to true
	VisibleInMaterialList *bool `yaml:"visible_in_material_list,omitempty"`
	RequiredForStock      *bool `yaml:"required_for_stock,omitempty"`
	Optional              bool  `yaml:"optional,omitempty"`

	MinQuantityTrigger *float64 `yaml:"min_quantity_trigger,omitempty" validate:"omitempty,gte=0"`
	MaxQuantityTrigger *float64 `yaml:"max_quantity_trigger,omitempty" validate:"omitempty,gte=0"`
	SortOrder          int      `yaml:"sort_order,omitempty"`
	Notes              string   `yaml:"notes,omitempty"`
}

// Load reads and validates a catalog file
func Load(path string) (*dto.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", path)
	}
	catalog, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "catalog file %s", path)
	}
	return catalog, nil
}

// Decode parses a catalog document. Unknown keys are rejected.
func Decode(r io.Reader) (*dto.Catalog, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &dto.Catalog{}, nil
		}
		return nil, errors.Wrap(err, "invalid catalog YAML")
	}

	if err := validate.Struct(&doc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problems := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				problems = append(problems, fe.Namespace()+" ("+fe.Tag()+")")
			}
			return nil, errors.Newf("invalid catalog: %s", strings.Join(problems, ", "))
		}
		return nil, errors.Wrap(err, "invalid catalog")
	}

	return doc.toCatalog()
}

// Save writes catalog to path
func Save(path string, catalog *dto.Catalog) error {
	var buf bytes.Buffer
	if err := Encode(&buf, catalog); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write catalog file %s", path)
	}
	return nil
}

// Encode writes catalog as a YAML document
func Encode(w io.Writer, catalog *dto.Catalog) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(fromCatalog(catalog)); err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}
	return encoder.Close()
}

func (d *Document) toCatalog() (*dto.Catalog, error) {
	catalog := &dto.Catalog{
		Kinds:     make([]*entities.RelationKind, 0, len(d.Kinds)),
		Products:  make([]*entities.ProductNode, 0, len(d.Products)),
		Relations: make([]*entities.RelationEdge, 0, len(d.Relations)),
	}

	for _, k := range d.Kinds {
		catalog.Kinds = append(catalog.Kinds, &entities.RelationKind{
			Code:      k.Code,
			Name:      k.Name,
			Icon:      k.Icon,
			Color:     k.Color,
			SortOrder: k.SortOrder,
			Active:    boolOr(k.Active, true),
		})
	}

	for _, p := range d.Products {
		kind, err := entities.ParseProductKind(p.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "product %d", p.ID)
		}
		catalog.Products = append(catalog.Products, &entities.ProductNode{
			ID:               entities.ProductID(p.ID),
			Code:             p.Code,
			Name:             p.Name,
			Kind:             kind,
			Unit:             p.Unit,
			PurchaseCost:     p.PurchaseCost,
			SalePrice:        p.SalePrice,
			MarkupPercentage: p.MarkupPercentage,
		})
	}

	for i, r := range d.Relations {
		rule, err := entities.ParseQuantityRule(r.Quantity.Type, r.Quantity.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "relations[%d]", i)
		}
		catalog.Relations = append(catalog.Relations, &entities.RelationEdge{
			ID:                    entities.RelationID(r.ID),
			SourceID:              entities.ProductID(r.ProductID),
			TargetID:              entities.ProductID(r.RelatedProductID),
			Kind:                  r.Kind,
			QuantityRule:          rule,
			VisibleInQuote:        r.VisibleInQuote,
			VisibleInMaterialList: boolOr(r.VisibleInMaterialList, true),
			RequiredForStock:      boolOr(r.RequiredForStock, true),
			Optional:              r.Optional,
			MinQuantityTrigger:    r.MinQuantityTrigger,
			MaxQuantityTrigger:    r.MaxQuantityTrigger,
			SortOrder:             r.SortOrder,
			Notes:                 r.Notes,
		})
	}

	return catalog, nil
}

func fromCatalog(catalog *dto.Catalog) *Document {
	doc := &Document{
		Kinds:     make([]Kind, 0, len(catalog.Kinds)),
		Products:  make([]Product, 0, len(catalog.Products)),
		Relations: make([]Relation, 0, len(catalog.Relations)),
	}

	for _, k := range catalog.Kinds {
		active := k.Active
		doc.Kinds = append(doc.Kinds, Kind{
			Code:      k.Code,
			Name:      k.Name,
			Icon:      k.Icon,
			Color:     k.Color,
			SortOrder: k.SortOrder,
			Active:    &active,
		})
	}

	for _, p := range catalog.Products {
		doc.Products = append(doc.Products, Product{
			ID:               int64(p.ID),
			Code:             p.Code,
			Name:             p.Name,
			Kind:             string(p.Kind),
			Unit:             p.Unit,
			PurchaseCost:     p.PurchaseCost,
			SalePrice:        p.SalePrice,
			MarkupPercentage: p.MarkupPercentage,
		})
	}

	for _, e := range catalog.Relations {
		material, stock := e.VisibleInMaterialList, e.RequiredForStock
		doc.Relations = append(doc.Relations, Relation{
			ID:                    int64(e.ID),
			ProductID:             int64(e.SourceID),
			RelatedProductID:      int64(e.TargetID),
			Kind:                  e.Kind,
			Quantity:              Quantity{Type: string(e.QuantityRule.Type), Value: e.QuantityRule.StoredValue()},
			VisibleInQuote:        e.VisibleInQuote,
			VisibleInMaterialList: &material,
			RequiredForStock:      &stock,
			Optional:              e.Optional,
			MinQuantityTrigger:    e.MinQuantityTrigger,
			MaxQuantityTrigger:    e.MaxQuantityTrigger,
			SortOrder:             e.SortOrder,
			Notes:                 e.Notes,
		})
	}

	return doc
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
