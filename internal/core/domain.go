package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field names the business meaning of a sheet column.
type Field string

const (
	FieldPlant        Field = "Plant"
	FieldPostingDate  Field = "Posting Date"
	FieldCostCenter   Field = "Cost Center"
	FieldDocumentType Field = "Document Type"
	FieldCostClass    Field = "Cost Class Name"
	FieldValue        Field = "Value"
	FieldMaterial     Field = "Material Description"
	FieldUserName     Field = "User Name"
	FieldReference    Field = "Reference Document Number"
)

type (
	// RawTable is an untyped sheet: named columns over rows of cell values.
	// Rows may be shorter than Columns; absent cells read as nil.
	RawTable struct {
		Columns []string
		Rows    [][]any
	}

	// CostRecord is one cleaned cost-center transaction.
	CostRecord struct {
		Plant        string         `json:"plant"`
		PostingDate  time.Time      `json:"posting_date"`
		CostCenter   string         `json:"cost_center"`
		DocumentType string         `json:"document_type"`
		CostClass    string         `json:"cost_class"`
		Value        float64        `json:"value"`
		YearMonth    string         `json:"year_month"`
		Extra        map[string]any `json:"extra,omitempty"`
	}

	// Table is the cleaned output of the normalizer.
	Table struct {
		Records []CostRecord
		// Extras lists pass-through column headers in input order.
		Extras []string
	}

	// Column binds a field to the header it carries in the sheet.
	Column struct {
		Field    Field
		Header   string
		Required bool
	}

	// Schema is the fixed, known shape of the cost sheet.
	Schema struct {
		Columns []Column
	}
)

// ErrSchema matches every *SchemaError via errors.Is.
var ErrSchema = errors.New("schema error")

// SchemaError reports a required column absent from the raw input.
type SchemaError struct {
	Field  Field
	Header string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column %q (%s)", e.Header, e.Field)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// DefaultSchema returns the headers used by the SAP cost report export.
func DefaultSchema() Schema {
	return Schema{Columns: []Column{
		{Field: FieldPlant, Header: "Planta", Required: true},
		{Field: FieldPostingDate, Header: "Data de lançamento", Required: true},
		{Field: FieldCostCenter, Header: "Centro custo", Required: true},
		{Field: FieldDocumentType, Header: "Tipo de documento", Required: true},
		{Field: FieldCostClass, Header: "Denom.classe custo", Required: true},
		{Field: FieldValue, Header: "Valor/MR", Required: true},
		{Field: FieldMaterial, Header: "Texto breve material"},
		{Field: FieldUserName, Header: "Nome do usuário"},
		{Field: FieldReference, Header: "Nº documento de referência"},
	}}
}

// Header returns the sheet header bound to f, or "" when f is unknown.
func (s Schema) Header(f Field) string {
	for _, c := range s.Columns {
		if c.Field == f {
			return c.Header
		}
	}
	return ""
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// IsEmpty reports whether the table holds no records.
func (t Table) IsEmpty() bool {
	return len(t.Records) == 0
}

// Raw converts the cleaned table back into an untyped table with typed
// cells, using the headers of s. Normalizing the result yields t again.
func (t Table) Raw(s Schema) RawTable {
	fields := []Field{FieldPlant, FieldPostingDate, FieldCostCenter, FieldDocumentType, FieldCostClass, FieldValue}
	cols := make([]string, 0, len(fields)+len(t.Extras))
	for _, f := range fields {
		cols = append(cols, s.Header(f))
	}
	cols = append(cols, t.Extras...)

	rows := make([][]any, 0, len(t.Records))
	for _, r := range t.Records {
		row := make([]any, 0, len(cols))
		var plant any
		if r.Plant != "" {
			plant = r.Plant
		}
		row = append(row, plant, r.PostingDate, r.CostCenter, r.DocumentType, r.CostClass, r.Value)
		for _, h := range t.Extras {
			row = append(row, r.Extra[h])
		}
		rows = append(rows, row)
	}
	return RawTable{Columns: cols, Rows: rows}
}

// ExtraString returns a pass-through column as text.
func (r CostRecord) ExtraString(header string) string {
	if r.Extra == nil {
		return ""
	}
	return strings.TrimSpace(cellString(r.Extra[header]))
}
