package report

import "custos/internal/core"

// Dashboard is everything the page renders for one filter.
type Dashboard struct {
	Filter     Filter            `json:"filter"`
	Options    FilterOptions     `json:"options"`
	Summary    Summary           `json:"summary"`
	Monthly    []MonthTotal      `json:"monthly"`
	TopClasses []ClassTotal      `json:"top_classes"`
	Records    []core.CostRecord `json:"records"`
}

// Empty reports whether the filter matched nothing.
func (d Dashboard) Empty() bool {
	return len(d.Records) == 0
}

// Build filters table with f and aggregates the result.
func Build(table core.Table, f Filter) Dashboard {
	opts := Options(table)
	f = f.Bounded(opts)
	records := f.Apply(table.Records)
	return Dashboard{
		Filter:     f,
		Options:    opts,
		Summary:    Summarize(records),
		Monthly:    MonthlyTotals(records),
		TopClasses: TopCostClasses(records, DefaultTopN),
		Records:    records,
	}
}
