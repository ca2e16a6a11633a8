package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/domain/services"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/events"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).Padding(0, 2, 0, 0)
	cellStyle    = lipgloss.NewStyle().Padding(0, 2, 0, 0)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Printer renders command results as a table, JSON or YAML
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter creates a printer for one of the supported formats
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return &Printer{w: w, format: format}, nil
	default:
		return nil, errors.Newf("unsupported output format: %s (expected table, json or yaml)", format)
	}
}

// render writes value as JSON or YAML, or calls printTable for the table format
func (p *Printer) render(value interface{}, printTable func()) error {
	switch p.format {
	case FormatJSON:
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return errors.Wrap(err, "failed to marshal YAML")
		}
		_, err = p.w.Write(data)
		return err
	default:
		printTable()
		return nil
	}
}

func (p *Printer) writeTable(title string, headers []string, rows [][]string) {
	if title != "" {
		fmt.Fprintln(p.w, titleStyle.Render(title))
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "(none)")
		return
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.w, t.String())
}

func (p *Printer) diagnostics(diagnostics []dto.Diagnostic) {
	for _, d := range diagnostics {
		fmt.Fprintln(p.w, warningStyle.Render(fmt.Sprintf("! %s: %s (path %s)", d.Code, d.Message, formatPath(d.Path))))
	}
}

// RelationView is the serialized form of a stored relation edge
type RelationView struct {
	ID                    entities.RelationID `json:"id" yaml:"id"`
	ProductID             entities.ProductID  `json:"product_id" yaml:"product_id"`
	RelatedProductID      entities.ProductID  `json:"related_product_id" yaml:"related_product_id"`
	Kind                  string              `json:"kind" yaml:"kind"`
	QuantityType          string              `json:"quantity_type" yaml:"quantity_type"`
	QuantityValue         string              `json:"quantity_value" yaml:"quantity_value"`
	VisibleInQuote        bool                `json:"visible_in_quote" yaml:"visible_in_quote"`
	VisibleInMaterialList bool                `json:"visible_in_material_list" yaml:"visible_in_material_list"`
	RequiredForStock      bool                `json:"required_for_stock" yaml:"required_for_stock"`
	Optional              bool                `json:"optional" yaml:"optional"`
	MinQuantityTrigger    *float64            `json:"min_quantity_trigger,omitempty" yaml:"min_quantity_trigger,omitempty"`
	MaxQuantityTrigger    *float64            `json:"max_quantity_trigger,omitempty" yaml:"max_quantity_trigger,omitempty"`
	SortOrder             int                 `json:"sort_order" yaml:"sort_order"`
	Notes                 string              `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func relationView(e *entities.RelationEdge) RelationView {
	return RelationView{
		ID:                    e.ID,
		ProductID:             e.SourceID,
		RelatedProductID:      e.TargetID,
		Kind:                  e.Kind,
		QuantityType:          string(e.QuantityRule.Type),
		QuantityValue:         e.QuantityRule.StoredValue(),
		VisibleInQuote:        e.VisibleInQuote,
		VisibleInMaterialList: e.VisibleInMaterialList,
		RequiredForStock:      e.RequiredForStock,
		Optional:              e.Optional,
		MinQuantityTrigger:    e.MinQuantityTrigger,
		MaxQuantityTrigger:    e.MaxQuantityTrigger,
		SortOrder:             e.SortOrder,
		Notes:                 e.Notes,
	}
}

// Relations prints stored relation edges
func (p *Printer) Relations(edges []*entities.RelationEdge) error {
	views := make([]RelationView, 0, len(edges))
	for _, e := range edges {
		views = append(views, relationView(e))
	}
	return p.render(views, func() {
		rows := make([][]string, 0, len(edges))
		for _, e := range edges {
			rows = append(rows, []string{
				strconv.FormatInt(int64(e.ID), 10),
				strconv.FormatInt(int64(e.TargetID), 10),
				e.Kind,
				e.QuantityRule.String(),
				formatTriggers(e),
				formatFlags(e),
				strconv.Itoa(e.SortOrder),
			})
		}
		p.writeTable("", []string{"ID", "RELATED", "KIND", "QUANTITY", "TRIGGER", "LISTS", "SORT"}, rows)
	})
}

// Relation prints a single stored edge
func (p *Printer) Relation(edge *entities.RelationEdge) error {
	return p.render(relationView(edge), func() {
		fmt.Fprintf(p.w, "relation %d: %d -> %d %s %s\n",
			edge.ID, edge.SourceID, edge.TargetID, edge.Kind, edge.QuantityRule)
	})
}

// ResolvedView is the serialized form of one resolved relation
type ResolvedView struct {
	RelationID entities.RelationID  `json:"relation_id" yaml:"relation_id"`
	ProductID  entities.ProductID   `json:"product_id" yaml:"product_id"`
	Product    string               `json:"product" yaml:"product"`
	Kind       string               `json:"kind" yaml:"kind"`
	Quantity   float64              `json:"quantity" yaml:"quantity"`
	Depth      int                  `json:"depth" yaml:"depth"`
	Path       []entities.ProductID `json:"path" yaml:"path"`
}

// ExpansionView is the serialized form of an expansion
type ExpansionView struct {
	ID          string             `json:"id" yaml:"id"`
	Root        entities.ProductID `json:"root" yaml:"root"`
	Quantity    float64            `json:"quantity" yaml:"quantity"`
	Relations   []ResolvedView     `json:"relations" yaml:"relations"`
	Diagnostics []dto.Diagnostic   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Expansion prints a resolved relation tree, indented by depth
func (p *Printer) Expansion(expansion *dto.Expansion) error {
	view := ExpansionView{
		ID:          expansion.ID.String(),
		Root:        expansion.Root,
		Quantity:    expansion.Quantity,
		Relations:   make([]ResolvedView, 0, len(expansion.Relations)),
		Diagnostics: expansion.Diagnostics,
	}
	for _, r := range expansion.Relations {
		view.Relations = append(view.Relations, ResolvedView{
			RelationID: r.Edge.ID,
			ProductID:  r.Target.ID,
			Product:    r.Target.Label(),
			Kind:       r.Edge.Kind,
			Quantity:   r.Quantity,
			Depth:      r.Depth,
			Path:       r.Path,
		})
	}

	return p.render(view, func() {
		rows := make([][]string, 0, len(view.Relations))
		for _, r := range view.Relations {
			rows = append(rows, []string{
				strings.Repeat("  ", r.Depth-1) + r.Product,
				r.Kind,
				formatQuantity(r.Quantity),
				strconv.Itoa(r.Depth),
			})
		}
		title := fmt.Sprintf("Expansion of product %d x %s", expansion.Root, formatQuantity(expansion.Quantity))
		p.writeTable(title, []string{"PRODUCT", "KIND", "QUANTITY", "DEPTH"}, rows)
		p.diagnostics(expansion.Diagnostics)
	})
}

// Lists prints the requested consumer lists; an empty which prints all three
func (p *Printer) Lists(lists *dto.RelationLists, which string) error {
	var value interface{} = lists
	switch which {
	case "quote":
		value = lists.Quote
	case "material":
		value = lists.Material
	case "stock":
		value = lists.Stock
	case "":
	default:
		return errors.Newf("unknown list %q (expected quote, material or stock)", which)
	}

	return p.render(value, func() {
		if which == "" || which == "quote" {
			p.listTable("Quote", lists.Quote, true)
			fmt.Fprintf(p.w, "total %s (with optional lines %s)\n\n",
				lists.QuoteTotal(false).StringFixed(2), lists.QuoteTotal(true).StringFixed(2))
		}
		if which == "" || which == "material" {
			p.listTable("Material list", lists.Material, false)
			fmt.Fprintln(p.w)
		}
		if which == "" || which == "stock" {
			p.listTable("Stock", lists.Stock, false)
		}
	})
}

func (p *Printer) listTable(title string, lines []dto.ListLine, priced bool) {
	headers := []string{"PRODUCT", "KIND", "QUANTITY"}
	if priced {
		headers = append(headers, "UNIT PRICE", "TOTAL", "OPTIONAL")
	}
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		row := []string{line.Product.Label(), line.Kind, formatQuantity(line.Quantity)}
		if priced {
			row = append(row, line.UnitPrice.StringFixed(2), line.TotalPrice.StringFixed(2), strconv.FormatBool(line.Optional))
		}
		rows = append(rows, row)
	}
	p.writeTable(title, headers, rows)
}

// Costs prints one or more composite cost breakdowns
func (p *Printer) Costs(breakdowns []*dto.CostBreakdown) error {
	var value interface{} = breakdowns
	if len(breakdowns) == 1 {
		value = breakdowns[0]
	}

	return p.render(value, func() {
		if len(breakdowns) == 1 {
			p.costDetail(breakdowns[0])
			return
		}
		rows := make([][]string, 0, len(breakdowns))
		for _, b := range breakdowns {
			rows = append(rows, []string{
				b.Product.Label(),
				b.Cost.StringFixed(2),
				b.SalePrice.StringFixed(2),
				b.Margin().StringFixed(2),
				b.MarginPercentage().StringFixed(2) + "%",
			})
		}
		p.writeTable("Composite costs", []string{"PRODUCT", "COST", "SALE PRICE", "MARGIN", "MARGIN %"}, rows)
	})
}

func (p *Printer) costDetail(b *dto.CostBreakdown) {
	rows := make([][]string, 0, len(b.Lines))
	for _, line := range b.Lines {
		rows = append(rows, []string{
			strings.Repeat("  ", line.Depth-1) + line.Product.Label(),
			formatQuantity(line.Quantity),
			line.UnitCost.StringFixed(2),
			line.TotalCost.StringFixed(2),
			line.TotalPrice.StringFixed(2),
		})
	}
	p.writeTable("Cost of "+b.Product.Label(), []string{"COMPONENT", "QUANTITY", "UNIT COST", "COST", "PRICE"}, rows)

	source := "computed"
	if b.ManualSalePrice {
		source = "manual"
	}
	fmt.Fprintf(p.w, "cost %s  sale price %s (%s)  margin %s (%s%%)\n",
		b.Cost.StringFixed(2), b.SalePrice.StringFixed(2), source,
		b.Margin().StringFixed(2), b.MarginPercentage().StringFixed(2))
	p.diagnostics(b.Diagnostics)
}

// AuditView is the serialized form of a catalog audit
type AuditView struct {
	Valid      bool                   `json:"valid" yaml:"valid"`
	CyclePaths [][]entities.ProductID `json:"cycle_paths,omitempty" yaml:"cycle_paths,omitempty"`
	Problems   []string               `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// Audit prints the result of a catalog audit
func (p *Printer) Audit(result *services.ValidationResult) error {
	view := AuditView{Valid: result.Valid(), CyclePaths: result.CyclePaths, Problems: result.Errors}
	return p.render(view, func() {
		if view.Valid {
			fmt.Fprintln(p.w, "catalog is consistent")
			return
		}
		rows := make([][]string, 0, len(view.Problems))
		for _, problem := range view.Problems {
			rows = append(rows, []string{problem})
		}
		p.writeTable(fmt.Sprintf("%d problems found", len(view.Problems)), []string{"PROBLEM"}, rows)
	})
}

// KindView is the serialized form of a relation kind
type KindView struct {
	Code      string `json:"code" yaml:"code"`
	Name      string `json:"name" yaml:"name"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
	Active    bool   `json:"active" yaml:"active"`
}

// Kinds prints the configured relation kinds
func (p *Printer) Kinds(kinds []*entities.RelationKind) error {
	views := make([]KindView, 0, len(kinds))
	for _, k := range kinds {
		views = append(views, KindView{Code: k.Code, Name: k.Name, Icon: k.Icon, Color: k.Color, SortOrder: k.SortOrder, Active: k.Active})
	}
	return p.render(views, func() {
		rows := make([][]string, 0, len(views))
		for _, k := range views {
			rows = append(rows, []string{k.Code, k.Name, strconv.Itoa(k.SortOrder), strconv.FormatBool(k.Active)})
		}
		p.writeTable("", []string{"CODE", "NAME", "SORT", "ACTIVE"}, rows)
	})
}

// Events prints the relation history, oldest first
func (p *Printer) Events(history []events.Event) error {
	return p.render(history, func() {
		rows := make([][]string, 0, len(history))
		for _, e := range history {
			rows = append(rows, []string{
				e.Time.Local().Format("2006-01-02 15:04:05"),
				e.Stream,
				strconv.Itoa(e.Version),
				e.Type,
				eventDetail(e),
			})
		}
		p.writeTable("", []string{"TIME", "STREAM", "VERSION", "TYPE", "DETAIL"}, rows)
	})
}

func eventDetail(e events.Event) string {
	switch d := e.Data.(type) {
	case events.RelationStored:
		verb := "added"
		if d.Updated {
			verb = "updated"
		}
		return fmt.Sprintf("#%d %d -> %d %s %s %s", d.Relation.ID, d.Relation.SourceID, d.Relation.TargetID,
			d.Relation.Kind, d.Relation.QuantityRule, verb)
	case events.RelationRejected:
		return fmt.Sprintf("%d -> %d %s %s: %s", d.SourceID, d.TargetID, d.Kind, d.Quantity, d.Reason)
	case events.RelationDeleted:
		return fmt.Sprintf("#%d %d -> %d %s", d.RelationID, d.SourceID, d.TargetID, d.Kind)
	case events.ExpansionAnomaly:
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	default:
		return ""
	}
}

// ImportReport prints the outcome of a catalog import
func (p *Printer) ImportReport(report *dto.ImportReport) error {
	return p.render(report, func() {
		fmt.Fprintf(p.w, "imported %d kinds, %d products, %d relations\n", report.Kinds, report.Products, report.Relations)
		if len(report.Rejected) == 0 {
			return
		}
		rows := make([][]string, 0, len(report.Rejected))
		for _, r := range report.Rejected {
			rows = append(rows, []string{
				strconv.FormatInt(int64(r.FileID), 10),
				fmt.Sprintf("%d -> %d", r.SourceID, r.TargetID),
				r.Kind,
				r.Reason,
			})
		}
		p.writeTable(fmt.Sprintf("%d relations rejected", len(rows)), []string{"FILE ID", "RELATION", "KIND", "REASON"}, rows)
	})
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatPath(path []entities.ProductID) string {
	parts := make([]string, 0, len(path))
	for _, id := range path {
		parts = append(parts, strconv.FormatInt(int64(id), 10))
	}
	return strings.Join(parts, " > ")
}

func formatTriggers(e *entities.RelationEdge) string {
	switch {
	case e.MinQuantityTrigger != nil && e.MaxQuantityTrigger != nil:
		return formatQuantity(*e.MinQuantityTrigger) + ".." + formatQuantity(*e.MaxQuantityTrigger)
	case e.MinQuantityTrigger != nil:
		return ">= " + formatQuantity(*e.MinQuantityTrigger)
	case e.MaxQuantityTrigger != nil:
		return "<= " + formatQuantity(*e.MaxQuantityTrigger)
	default:
		return "-"
	}
}

func formatFlags(e *entities.RelationEdge) string {
	flags := make([]string, 0, 4)
	if e.VisibleInQuote {
		flags = append(flags, "quote")
	}
	if e.VisibleInMaterialList {
		flags = append(flags, "material")
	}
	if e.RequiredForStock {
		flags = append(flags, "stock")
	}
	if e.Optional {
		flags = append(flags, "optional")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
