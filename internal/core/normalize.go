package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeStats counts what the normalizer absorbed silently.
type NormalizeStats struct {
	InputRows                int `json:"input_rows"`
	OutputRows               int `json:"output_rows"`
	DroppedInvalidDate       int `json:"dropped_invalid_date"`
	DroppedMissingCostCenter int `json:"dropped_missing_cost_center"`
	// DefaultedValues counts kept rows whose Value could not be parsed
	// and was set to 0.
	DefaultedValues int `json:"defaulted_values"`
	FilledPlants    int `json:"filled_plants"`
}

// Dropped returns the total number of rows removed.
func (s NormalizeStats) Dropped() int {
	return s.DroppedInvalidDate + s.DroppedMissingCostCenter
}

// Result is a cleaned table together with its stats.
type Result struct {
	Table Table
	Stats NormalizeStats
}

// Normalizer cleans raw cost sheets laid out according to Schema.
// It holds no state and is safe for concurrent use.
type Normalizer struct {
	Schema Schema
}

// NewNormalizer returns a normalizer for the default cost sheet layout.
func NewNormalizer() Normalizer {
	return Normalizer{Schema: DefaultSchema()}
}

// Normalize cleans raw using the default schema.
func Normalize(raw RawTable) (Result, error) {
	return NewNormalizer().Normalize(raw)
}

// columnIndex holds the positions of the core fields within a raw table.
type columnIndex struct {
	plant, date, costCenter, docType, costClass, value int
	extras                                             []int
}

// Normalize produces cleaned records from raw. It returns a *SchemaError,
// before looking at any row, when a required column is absent. Malformed
// cells never fail: dates that do not parse drop the row, values that do
// not parse become 0. raw is not modified.
func (n Normalizer) Normalize(raw RawTable) (Result, error) {
	idx, err := n.resolve(raw.Columns)
	if err != nil {
		return Result{}, err
	}

	stats := NormalizeStats{InputRows: len(raw.Rows)}

	// Forward-fill runs over the original row order, before any drop.
	plants := make([]string, len(raw.Rows))
	var last string
	var seen bool
	for i, row := range raw.Rows {
		v := cellAt(row, idx.plant)
		if isMissing(v) {
			if seen {
				plants[i] = last
				stats.FilledPlants++
			}
			continue
		}
		last = cellString(v)
		seen = true
		plants[i] = last
	}

	extras := make([]string, len(idx.extras))
	for i, c := range idx.extras {
		extras[i] = strings.TrimSpace(raw.Columns[c])
	}

	records := make([]CostRecord, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		date, dateOK := ParseDayFirst(cellAt(row, idx.date))
		value, valueOK := CoerceValue(cellAt(row, idx.value))
		costCenter := strings.TrimSpace(cellString(cellAt(row, idx.costCenter)))
		docType := strings.TrimSpace(cellString(cellAt(row, idx.docType)))

		if !dateOK {
			stats.DroppedInvalidDate++
			continue
		}
		if costCenter == "" {
			stats.DroppedMissingCostCenter++
			continue
		}
		if !valueOK {
			stats.DefaultedValues++
		}

		rec := CostRecord{
			Plant:        plants[i],
			PostingDate:  date,
			CostCenter:   costCenter,
			DocumentType: docType,
			CostClass:    cellString(cellAt(row, idx.costClass)),
			Value:        value,
			YearMonth:    YearMonth(date),
		}
		if len(extras) > 0 {
			rec.Extra = make(map[string]any, len(extras))
			for j, c := range idx.extras {
				rec.Extra[extras[j]] = cellAt(row, c)
			}
		}
		records = append(records, rec)
	}

	stats.OutputRows = len(records)
	return Result{Table: Table{Records: records, Extras: extras}, Stats: stats}, nil
}

// resolve maps schema fields onto raw column positions.
func (n Normalizer) resolve(columns []string) (columnIndex, error) {
	positions := make(map[string]int, len(columns))
	for i, c := range columns {
		key := NormalizeHeader(c)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	idx := columnIndex{plant: -1, date: -1, costCenter: -1, docType: -1, costClass: -1, value: -1}
	targets := map[Field]*int{
		FieldPlant:        &idx.plant,
		FieldPostingDate:  &idx.date,
		FieldCostCenter:   &idx.costCenter,
		FieldDocumentType: &idx.docType,
		FieldCostClass:    &idx.costClass,
		FieldValue:        &idx.value,
	}
	used := make(map[int]bool, len(targets))
	for _, col := range n.Schema.Columns {
		pos, found := positions[NormalizeHeader(col.Header)]
		if !found {
			if col.Required {
				return columnIndex{}, &SchemaError{Field: col.Field, Header: col.Header}
			}
			continue
		}
		if target, ok := targets[col.Field]; ok {
			*target = pos
			used[pos] = true
		}
	}
	for _, field := range []Field{FieldPlant, FieldPostingDate, FieldCostCenter, FieldDocumentType, FieldCostClass, FieldValue} {
		if *targets[field] < 0 {
			return columnIndex{}, &SchemaError{Field: field, Header: n.Schema.Header(field)}
		}
	}

	for i, c := range columns {
		if used[i] || strings.TrimSpace(c) == "" {
			continue
		}
		if positions[NormalizeHeader(c)] != i {
			continue
		}
		idx.extras = append(idx.extras, i)
	}
	return idx, nil
}

// NormalizeHeader folds a header for comparison: diacritics removed,
// lower case, inner whitespace collapsed.
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

func cellAt(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

// cellString renders a cell as text. Whole numbers print without a
// fractional part so numeric codes such as cost centers stay readable.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
