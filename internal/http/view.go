package http

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"custos/internal/core"
	"custos/internal/report"
	"custos/internal/services"
)

// Chart canvas, in SVG user units.
const (
	chartWidth   = 600
	chartHeight  = 240
	chartPadX    = 40
	chartPadY    = 24
	maxTableRows = 500
)

// noDataMessage is shown whenever there is nothing to chart.
const noDataMessage = "Nenhum dado encontrado para os filtros selecionados."

type (
	// dashboardView is what the templates render.
	dashboardView struct {
		Filter      filterView
		Options     optionsView
		Summary     report.Summary
		Line        lineChart
		Bars        []barView
		Rows        []rowView
		Truncated   int
		Empty       bool
		NoData      string
		Unavailable bool
		SchemaError string
		Outcome     services.LoadOutcome
	}

	filterView struct {
		CostCenter   string
		DocumentType string
		From         string
		To           string
	}

	optionsView struct {
		All           string
		CostCenters   []string
		DocumentTypes []string
		MinDate       string
		MaxDate       string
	}

	lineChart struct {
		Width, Height int
		Points        []pointView
		Polyline      string
		ZeroY         float64
	}

	pointView struct {
		X, Y  float64
		Label string
		Value float64
	}

	barView struct {
		Label    string
		Value    float64
		Percent  float64
		Negative bool
	}

	rowView struct {
		Date         string
		Plant        string
		CostCenter   string
		DocumentType string
		CostClass    string
		Value        float64
	}
)

var templateFuncs = template.FuncMap{
	"brl": core.FormatBRL,
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}

func newDashboardView(rep services.Report) dashboardView {
	d := rep.Dashboard
	v := dashboardView{
		Filter: filterView{
			CostCenter:   d.Filter.CostCenter,
			DocumentType: d.Filter.DocumentType,
			From:         isoDate(d.Filter.From),
			To:           isoDate(d.Filter.To),
		},
		Options: optionsView{
			All:           report.AllOption,
			CostCenters:   d.Options.CostCenters,
			DocumentTypes: d.Options.DocumentTypes,
			MinDate:       isoDate(d.Options.MinDate),
			MaxDate:       isoDate(d.Options.MaxDate),
		},
		Summary:     d.Summary,
		Line:        buildLineChart(d.Monthly),
		Bars:        buildBars(d.TopClasses),
		Empty:       d.Empty(),
		NoData:      noDataMessage,
		Unavailable: rep.Outcome.Status == services.StatusUpstreamFailure,
		Outcome:     rep.Outcome,
	}

	records := d.Records
	if len(records) > maxTableRows {
		v.Truncated = len(records) - maxTableRows
		records = records[:maxTableRows]
	}
	v.Rows = make([]rowView, 0, len(records))
	for _, r := range records {
		v.Rows = append(v.Rows, rowView{
			Date:         r.PostingDate.Format("02/01/2006"),
			Plant:        r.Plant,
			CostCenter:   r.CostCenter,
			DocumentType: r.DocumentType,
			CostClass:    r.CostClass,
			Value:        r.Value,
		})
	}
	return v
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// buildLineChart scales the monthly totals into the chart canvas. The
// value axis always includes zero.
func buildLineChart(months []report.MonthTotal) lineChart {
	c := lineChart{Width: chartWidth, Height: chartHeight}
	if len(months) == 0 {
		return c
	}

	lo, hi := 0.0, 0.0
	for _, m := range months {
		lo = math.Min(lo, m.Total)
		hi = math.Max(hi, m.Total)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	plotW := float64(chartWidth - 2*chartPadX)
	plotH := float64(chartHeight - 2*chartPadY)
	y := func(v float64) float64 {
		return round1(float64(chartPadY) + plotH*(hi-v)/span)
	}

	pts := make([]string, 0, len(months))
	for i, m := range months {
		x := float64(chartWidth) / 2
		if len(months) > 1 {
			x = float64(chartPadX) + plotW*float64(i)/float64(len(months)-1)
		}
		p := pointView{X: round1(x), Y: y(m.Total), Label: m.YearMonth, Value: m.Total}
		c.Points = append(c.Points, p)
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", p.X, p.Y))
	}
	c.Polyline = strings.Join(pts, " ")
	c.ZeroY = y(0)
	return c
}

// buildBars sizes each class relative to the largest absolute total.
// Classes arrive ascending and are drawn largest first.
func buildBars(classes []report.ClassTotal) []barView {
	var peak float64
	for _, c := range classes {
		peak = math.Max(peak, math.Abs(c.Total))
	}
	out := make([]barView, 0, len(classes))
	for i := len(classes) - 1; i >= 0; i-- {
		c := classes[i]
		pct := 0.0
		if peak > 0 {
			pct = round1(100 * math.Abs(c.Total) / peak)
		}
		out = append(out, barView{Label: c.CostClass, Value: c.Total, Percent: pct, Negative: c.Total < 0})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
