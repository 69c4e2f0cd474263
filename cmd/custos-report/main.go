// Command custos-report prints the cost dashboard figures for a workbook
// without starting the web server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"custos/internal/cli"
	"custos/internal/core"
	applog "custos/internal/log"
	"custos/internal/report"
	"custos/internal/services"
	"custos/internal/sheets"
	"custos/internal/sheets/file"
	"custos/internal/sheets/remote"
)

// Exit codes.
const (
	exitOK          = 0
	exitSchemaError = 1
	exitNoData      = 2
	exitUsage       = 64
)

func main() {
	cli.LoadEnvFile()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file         string
	url          string
	sheet        string
	costCenter   string
	documentType string
	from         string
	to           string
	asJSON       bool
	timeout      time.Duration
	logLevel     string
}

func run(args []string, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("custos-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "local .xlsx workbook")
	fs.StringVar(&o.url, "url", "", "workbook URL in the private repository (token from GITHUB_TOKEN, defaults to PRIVATE_REPO_URL)")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet name, first sheet when empty")
	fs.StringVar(&o.costCenter, "cost-center", "", "only this cost center")
	fs.StringVar(&o.documentType, "document-type", "", "only this document type")
	fs.StringVar(&o.from, "from", "", "first day, YYYY-MM-DD")
	fs.StringVar(&o.to, "to", "", "last day, YYYY-MM-DD")
	fs.BoolVar(&o.asJSON, "json", false, "print JSON instead of tables")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "download timeout")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(o.logLevel),
		Format:    "text",
		Component: applog.ComponentReport,
		Output:    stderr,
	})

	source, err := newSource(o)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	filter, err := report.ParseFilter(o.costCenter, o.documentType, o.from, o.to)
	if err != nil {
		fmt.Fprintf(stderr, "invalid date, expected YYYY-MM-DD: %v\n", err)
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout+10*time.Second)
	defer cancel()

	svc := services.NewDashboardService(source, services.Options{Logger: logger})
	rep, err := svc.Report(ctx, filter)
	if err != nil {
		var se *core.SchemaError
		if errors.As(err, &se) {
			fmt.Fprintf(stderr, "schema error: %v\n", se)
			return exitSchemaError
		}
		fmt.Fprintln(stderr, err)
		return exitSchemaError
	}

	if rep.Outcome.Status == services.StatusUpstreamFailure {
		fmt.Fprintf(stderr, "could not load workbook: %s\n", rep.Outcome.Reason)
	}

	if o.asJSON {
		if err := writeJSON(stdout, rep); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
	} else {
		writeText(stdout, rep)
	}

	if rep.Dashboard.Empty() {
		return exitNoData
	}
	return exitOK
}

func newSource(o options) (sheets.Source, error) {
	if o.file != "" && o.url != "" {
		return nil, errors.New("use either -file or -url, not both")
	}
	if o.file != "" {
		return file.New(o.file, o.sheet), nil
	}
	url := o.url
	if url == "" {
		url = os.Getenv("PRIVATE_REPO_URL")
	}
	if url == "" {
		return nil, errors.New("one of -file or -url is required")
	}
	return remote.New(remote.Config{
		URL:        url,
		Token:      os.Getenv("GITHUB_TOKEN"),
		AuthScheme: os.Getenv("REMOTE_AUTH_SCHEME"),
		Sheet:      o.sheet,
		Timeout:    o.timeout,
	}), nil
}

type jsonReport struct {
	Filter     report.Filter        `json:"filter"`
	Summary    report.Summary       `json:"summary"`
	Monthly    []report.MonthTotal  `json:"monthly"`
	TopClasses []report.ClassTotal  `json:"top_classes"`
	Stats      core.NormalizeStats  `json:"stats"`
	Outcome    services.LoadOutcome `json:"outcome"`
	Empty      bool                 `json:"empty"`
}

func writeJSON(w io.Writer, rep services.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Filter:     rep.Dashboard.Filter,
		Summary:    rep.Dashboard.Summary,
		Monthly:    rep.Dashboard.Monthly,
		TopClasses: rep.Dashboard.TopClasses,
		Stats:      rep.Stats,
		Outcome:    rep.Outcome,
		Empty:      rep.Dashboard.Empty(),
	})
}

func writeText(w io.Writer, rep services.Report) {
	d := rep.Dashboard
	if d.Empty() {
		fmt.Fprintln(w, "Nenhum dado encontrado para os filtros selecionados.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Custo Total no Período\t%s\t\n", core.FormatBRL(d.Summary.Total))
	fmt.Fprintf(tw, "Nº de Lançamentos\t%d\t\n", d.Summary.Count)
	fmt.Fprintf(tw, "Custo Médio/Lançamento\t%s\t\n", core.FormatBRL(d.Summary.Mean))
	fmt.Fprintf(tw, "Entradas\t%s\t\n", core.FormatBRL(d.Summary.Inflows))
	fmt.Fprintf(tw, "Saídas\t%s\t\n", core.FormatBRL(d.Summary.Outflows))
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Evolução do Custo Mensal")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, m := range d.Monthly {
		fmt.Fprintf(tw, "%s\t%s\t\n", m.YearMonth, core.FormatBRL(m.Total))
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top 10 Classes de Custo")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i := len(d.TopClasses) - 1; i >= 0; i-- {
		c := d.TopClasses[i]
		fmt.Fprintf(tw, "%s\t%s\t\n", c.CostClass, core.FormatBRL(c.Total))
	}
	tw.Flush()

	if rep.Stats.Dropped() > 0 || rep.Stats.DefaultedValues > 0 {
		fmt.Fprintf(w, "\n%d linhas descartadas, %d valores zerados\n", rep.Stats.Dropped(), rep.Stats.DefaultedValues)
	}
}
