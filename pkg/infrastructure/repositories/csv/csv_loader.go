package csv

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

const (
	// ProductsFile and RelationsFile are the file names LoadCatalog looks for
	ProductsFile  = "products.csv"
	RelationsFile = "relations.csv"
)

var (
	productsHeader = []string{"id", "code", "name", "kind", "unit", "purchase_cost", "sale_price", "markup_percentage"}

	relationsHeader = []string{
		"id", "product_id", "related_product_id", "kind", "quantity_type", "quantity_value",
		"visible_in_quote", "visible_in_material_list", "required_for_stock", "optional",
		"min_quantity_trigger", "max_quantity_trigger", "sort_order", "notes",
	}
)

// Loader handles loading catalog data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadCatalog reads products.csv and relations.csv from dir. Relation kinds
// are not part of the CSV format; the store's kinds apply.
func (l *Loader) LoadCatalog(dir string) (*dto.Catalog, error) {
	products, err := l.LoadProducts(filepath.Join(dir, ProductsFile))
	if err != nil {
		return nil, err
	}
	relations, err := l.LoadRelations(filepath.Join(dir, RelationsFile))
	if err != nil {
		return nil, err
	}
	return &dto.Catalog{Products: products, Relations: relations}, nil
}

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.ProductNode, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open products file %s", filename)
	}
	defer file.Close()

	return l.ReadProducts(file)
}

// ReadProducts parses products CSV content
func (l *Loader) ReadProducts(r io.Reader) ([]*entities.ProductNode, error) {
	records, err := readRecords(r, "products", productsHeader)
	if err != nil {
		return nil, err
	}

	products := make([]*entities.ProductNode, 0, len(records))
	for i, record := range records {
		product, err := parseProduct(record)
		if err != nil {
			return nil, errors.Wrapf(err, "products CSV row %d", i+2)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadRelations loads relation edges from a CSV file
func (l *Loader) LoadRelations(filename string) ([]*entities.RelationEdge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open relations file %s", filename)
	}
	defer file.Close()

	return l.ReadRelations(file)
}

// ReadRelations parses relations CSV content. Rows are only checked for
// shape here; the relation service validates them on store.
func (l *Loader) ReadRelations(r io.Reader) ([]*entities.RelationEdge, error) {
	records, err := readRecords(r, "relations", relationsHeader)
	if err != nil {
		return nil, err
	}

	relations := make([]*entities.RelationEdge, 0, len(records))
	for i, record := range records {
		edge, err := parseRelation(record)
		if err != nil {
			return nil, errors.Wrapf(err, "relations CSV row %d", i+2)
		}
		relations = append(relations, edge)
	}
	return relations, nil
}

// Helper functions for parsing CSV records

func readRecords(r io.Reader, name string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s CSV", name)
	}

	if len(records) < 1 {
		return nil, errors.Newf("%s CSV must have a header", name)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, errors.Newf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, records[0])
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseProduct(record []string) (*entities.ProductNode, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.Newf("invalid id: %s", record[0])
	}

	kind, err := entities.ParseProductKind(record[3])
	if err != nil {
		return nil, err
	}

	purchaseCost, err := parseMoney("purchase_cost", record[5])
	if err != nil {
		return nil, err
	}
	salePrice, err := parseMoney("sale_price", record[6])
	if err != nil {
		return nil, err
	}
	markup, err := parseMoney("markup_percentage", record[7])
	if err != nil {
		return nil, err
	}

	return &entities.ProductNode{
		ID:               entities.ProductID(id),
		Code:             strings.TrimSpace(record[1]),
		Name:             strings.TrimSpace(record[2]),
		Kind:             kind,
		Unit:             strings.TrimSpace(record[4]),
		PurchaseCost:     purchaseCost,
		SalePrice:        salePrice,
		MarkupPercentage: markup,
	}, nil
}

func parseRelation(record []string) (*entities.RelationEdge, error) {
	var id int64
	if s := strings.TrimSpace(record[0]); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Newf("invalid id: %s", record[0])
		}
		id = parsed
	}

	source, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return nil, errors.Newf("invalid product_id: %s", record[1])
	}
	target, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return nil, errors.Newf("invalid related_product_id: %s", record[2])
	}

	rule, err := entities.ParseQuantityRule(record[4], record[5])
	if err != nil {
		return nil, err
	}

	edge := &entities.RelationEdge{
		ID:           entities.RelationID(id),
		SourceID:     entities.ProductID(source),
		TargetID:     entities.ProductID(target),
		Kind:         strings.TrimSpace(record[3]),
		QuantityRule: rule,
		Notes:        strings.TrimSpace(record[13]),
	}

	flags := []struct {
		column string
		value  string
		def    bool
		dst    *bool
	}{
		{"visible_in_quote", record[6], false, &edge.VisibleInQuote},
		{"visible_in_material_list", record[7], true, &edge.VisibleInMaterialList},
		{"required_for_stock", record[8], true, &edge.RequiredForStock},
		{"optional", record[9], false, &edge.Optional},
	}
	for _, f := range flags {
		v, err := parseFlag(f.column, f.value, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if edge.MinQuantityTrigger, err = parseTrigger("min_quantity_trigger", record[10]); err != nil {
		return nil, err
	}
	if edge.MaxQuantityTrigger, err = parseTrigger("max_quantity_trigger", record[11]); err != nil {
		return nil, err
	}

	if s := strings.TrimSpace(record[12]); s != "" {
		edge.SortOrder, err = strconv.Atoi(s)
		if err != nil {
			return nil, errors.Newf("invalid sort_order: %s", record[12])
		}
	}

	return edge, nil
}

func parseMoney(column, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Newf("invalid %s: %s", column, s)
	}
	return d, nil
}

func parseFlag(column, s string, def bool) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Newf("invalid %s: %s (expected true/false or 1/0)", column, s)
	}
	return v, nil
}

func parseTrigger(column, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !entities.IsFinite(v) {
		return nil, errors.Newf("invalid %s: %s", column, s)
	}
	return &v, nil
}
