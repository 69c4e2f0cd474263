// Package report filters cleaned cost records and aggregates them for the
// dashboard: summary cards, monthly evolution and top cost classes.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"custos/internal/core"
)

// AllOption is the select-box entry meaning "no filter".
const AllOption = "(Todos)"

// DefaultTopN is the number of cost classes charted on the dashboard.
const DefaultTopN = 10

type (
	// Filter selects records. Empty strings and zero times match anything.
	// From and To are inclusive calendar days.
	Filter struct {
		CostCenter   string    `json:"cost_center,omitempty"`
		DocumentType string    `json:"document_type,omitempty"`
		From         time.Time `json:"from,omitzero"`
		To           time.Time `json:"to,omitzero"`
	}

	// MonthTotal is the summed value of one year_month.
	MonthTotal struct {
		YearMonth string  `json:"year_month"`
		Total     float64 `json:"total"`
	}

	// ClassTotal is the summed value of one cost class.
	ClassTotal struct {
		CostClass string  `json:"cost_class"`
		Total     float64 `json:"total"`
	}

	// Summary holds the headline metrics.
	Summary struct {
		Total    float64 `json:"total"`
		Count    int     `json:"count"`
		Mean     float64 `json:"mean"`
		Inflows  float64 `json:"inflows"`
		Outflows float64 `json:"outflows"`
	}

	// FilterOptions feeds the filter widgets.
	FilterOptions struct {
		CostCenters   []string  `json:"cost_centers"`
		DocumentTypes []string  `json:"document_types"`
		MinDate       time.Time `json:"min_date"`
		MaxDate       time.Time `json:"max_date"`
	}
)

// ParseFilter builds a filter from form values. Dates use YYYY-MM-DD and
// may be empty; AllOption clears a select.
func ParseFilter(costCenter, documentType, from, to string) (Filter, error) {
	f := Filter{
		CostCenter:   selectValue(costCenter),
		DocumentType: selectValue(documentType),
	}
	var err error
	if f.From, err = parseDay(from); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseDay(to); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func selectValue(s string) string {
	s = strings.TrimSpace(s)
	if s == AllOption {
		return ""
	}
	return s
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

// Match reports whether r passes the filter.
func (f Filter) Match(r core.CostRecord) bool {
	if f.CostCenter != "" && r.CostCenter != f.CostCenter {
		return false
	}
	if f.DocumentType != "" && r.DocumentType != f.DocumentType {
		return false
	}
	day := dayOf(r.PostingDate)
	if !f.From.IsZero() && day.Before(dayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(dayOf(f.To)) {
		return false
	}
	return true
}

// Apply returns the records that pass the filter, in input order.
func (f Filter) Apply(records []core.CostRecord) []core.CostRecord {
	out := make([]core.CostRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Bounded fills open date ends with the data range and keeps the window
// inside it, the way the date pickers constrain the user.
func (f Filter) Bounded(opts FilterOptions) Filter {
	if opts.MinDate.IsZero() || opts.MaxDate.IsZero() {
		return f
	}
	lo, hi := dayOf(opts.MinDate), dayOf(opts.MaxDate)
	if f.From.IsZero() || f.From.Before(lo) {
		f.From = lo
	}
	if f.From.After(hi) {
		f.From = hi
	}
	if f.To.IsZero() || f.To.After(hi) {
		f.To = hi
	}
	if f.To.Before(f.From) {
		f.To = f.From
	}
	return f
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summarize computes the headline metrics. Mean is 0 for no records.
func Summarize(records []core.CostRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Total += r.Value
		if r.Value > 0 {
			s.Inflows += r.Value
		} else {
			s.Outflows += r.Value
		}
	}
	s.Count = len(records)
	if s.Count > 0 {
		s.Mean = s.Total / float64(s.Count)
	}
	return s
}

// MonthlyTotals group-sums value by year_month in ascending key order.
func MonthlyTotals(records []core.CostRecord) []MonthTotal {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[r.YearMonth] += r.Value
	}
	out := make([]MonthTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, MonthTotal{YearMonth: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

// RankCostClasses group-sums value by cost class, largest absolute total
// first. Ties break on the class name.
func RankCostClasses(records []core.CostRecord) []ClassTotal {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[r.CostClass] += r.Value
	}
	out := make([]ClassTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, ClassTotal{CostClass: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Total), math.Abs(out[j].Total)
		if ai != aj {
			return ai > aj
		}
		return out[i].CostClass < out[j].CostClass
	})
	return out
}

// TopCostClasses returns the n classes with the largest absolute totals,
// ordered ascending so a horizontal bar chart draws the largest on top.
func TopCostClasses(records []core.CostRecord, n int) []ClassTotal {
	ranked := RankCostClasses(records)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return ranked
}

// Options collects the distinct filter values and the posting date range.
func Options(table core.Table) FilterOptions {
	ccs := make(map[string]struct{})
	docs := make(map[string]struct{})
	var opts FilterOptions
	for _, r := range table.Records {
		ccs[r.CostCenter] = struct{}{}
		if r.DocumentType != "" {
			docs[r.DocumentType] = struct{}{}
		}
		if opts.MinDate.IsZero() || r.PostingDate.Before(opts.MinDate) {
			opts.MinDate = r.PostingDate
		}
		if r.PostingDate.After(opts.MaxDate) {
			opts.MaxDate = r.PostingDate
		}
	}
	opts.CostCenters = sortedKeys(ccs)
	opts.DocumentTypes = sortedKeys(docs)
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
