package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var sapColumns = []string{"Planta", "Data de lançamento", "Centro custo", "Tipo de documento", "Denom.classe custo", "Valor/MR"}

func TestNormalizeEndToEnd(t *testing.T) {
	raw := RawTable{
		Columns: sapColumns,
		Rows: [][]any{
			{"P1", "01/03/2025", "CC1", "AA", "Energia", "1.000,00"},
			{nil, "02/03/2025", "CC1", "AA", "Energia", "abc"},
			{"P2", "bad-date", "CC2", "AB", "Frete", "500,00"},
		},
	}

	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := res.Table.Records
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Value != 1000 || recs[0].Plant != "P1" {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].Plant != "P1" {
		t.Fatalf("expected forward-filled plant P1, got %q", recs[1].Plant)
	}
	if recs[1].Value != 0 {
		t.Fatalf("expected unparseable value to become 0, got %v", recs[1].Value)
	}
	for _, r := range recs {
		if r.YearMonth != "2025-03" {
			t.Fatalf("expected year_month 2025-03, got %q", r.YearMonth)
		}
	}

	want := NormalizeStats{InputRows: 3, OutputRows: 2, DroppedInvalidDate: 1, DefaultedValues: 1, FilledPlants: 1}
	if res.Stats != want {
		t.Fatalf("stats = %+v, want %+v", res.Stats, want)
	}
	if len(raw.Rows) != 3 || raw.Rows[1][0] != nil {
		t.Fatalf("input was modified")
	}
}

func TestNormalizeDayFirstDate(t *testing.T) {
	raw := RawTable{Columns: sapColumns, Rows: [][]any{{"P1", "05/01/2025", "CC1", "AA", "X", "1,00"}}}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := res.Table.Records[0].PostingDate
	if !got.Equal(time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 5 January 2025, got %v", got)
	}
	if res.Table.Records[0].YearMonth != "2025-01" {
		t.Fatalf("unexpected year_month %q", res.Table.Records[0].YearMonth)
	}
}

func TestNormalizeForwardFill(t *testing.T) {
	raw := RawTable{
		Columns: sapColumns,
		Rows: [][]any{
			{nil, "01/01/2025", "CC1", "AA", "X", "1"},
			{"  ", "02/01/2025", "CC1", "AA", "X", "1"},
			{"P1", "03/01/2025", "CC1", "AA", "X", "1"},
			{nil, "bad", "CC1", "AA", "X", "1"},
			{nil, "05/01/2025", "CC1", "AA", "X", "1"},
			{"P2", "06/01/2025", "CC1", "AA", "X", "1"},
			{"", "07/01/2025", "CC1", "AA", "X", "1"},
		},
	}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var plants []string
	for _, r := range res.Table.Records {
		plants = append(plants, r.Plant)
	}
	want := []string{"", "", "P1", "P1", "P2", "P2"}
	if !reflect.DeepEqual(plants, want) {
		t.Fatalf("plants = %v, want %v", plants, want)
	}
	// the dropped row still carried P1 forward
	if res.Stats.FilledPlants != 3 {
		t.Fatalf("expected 3 filled plants, got %d", res.Stats.FilledPlants)
	}
}

func TestNormalizeDropsRows(t *testing.T) {
	raw := RawTable{
		Columns: sapColumns,
		Rows: [][]any{
			{"P1", "01/01/2025", "CC1", "AA", "X", "1"},
			{"P1", "", "CC1", "AA", "X", "1"},
			{"P1", "01/01/2025", "   ", "AA", "X", "1"},
			{"P1", "01/01/2025", nil, "AA", "X", "1"},
			{"P1", "32/01/2025", "CC1", "AA", "X", "1"},
			{"P1", "02/01/2025", " CC9 ", " AB ", "X", "N/A"},
			{"P1"},
		},
	}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", res.Table.Len())
	}
	last := res.Table.Records[1]
	if last.CostCenter != "CC9" || last.DocumentType != "AB" {
		t.Fatalf("expected trimmed strings, got %q / %q", last.CostCenter, last.DocumentType)
	}
	for _, r := range res.Table.Records {
		if r.PostingDate.IsZero() || r.CostCenter == "" {
			t.Fatalf("record should have been dropped: %+v", r)
		}
	}
	if res.Stats.DroppedInvalidDate != 3 || res.Stats.DroppedMissingCostCenter != 2 {
		t.Fatalf("unexpected drop stats %+v", res.Stats)
	}
	if res.Stats.Dropped()+res.Stats.OutputRows != res.Stats.InputRows {
		t.Fatalf("drop accounting does not add up: %+v", res.Stats)
	}
}

func TestNormalizeMissingColumn(t *testing.T) {
	raw := RawTable{
		Columns: []string{"Planta", "Data de lançamento", "Centro custo", "Tipo de documento", "Denom.classe custo"},
		Rows:    [][]any{{"P1", "01/01/2025", "CC1", "AA", "X"}},
	}
	_, err := Normalize(raw)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || se.Field != FieldValue || se.Header != "Valor/MR" {
		t.Fatalf("unexpected schema error %#v", err)
	}
}

func TestNormalizeMissingColumnWithoutRows(t *testing.T) {
	_, err := Normalize(RawTable{Columns: []string{"Planta"}})
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for header-only table, got %v", err)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	res, err := Normalize(RawTable{Columns: sapColumns})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Table.IsEmpty() || res.Stats.InputRows != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestNormalizeHeaderMatching(t *testing.T) {
	raw := RawTable{
		Columns: []string{" PLANTA ", "Data de lancamento", "centro  custo", "Tipo de Documento", "DENOM.CLASSE CUSTO", "valor/mr"},
		Rows:    [][]any{{"P1", "01/02/2025", "CC1", "AA", "X", "2,50"}},
	}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.Len() != 1 || res.Table.Records[0].Value != 2.5 {
		t.Fatalf("unexpected records %+v", res.Table.Records)
	}
}

func TestNormalizeExtras(t *testing.T) {
	cols := append(append([]string{}, sapColumns...), "Nome do usuário", "Observação", "")
	raw := RawTable{
		Columns: cols,
		Rows: [][]any{
			{"P1", "01/01/2025", "CC1", "AA", "X", "1", "ana", "urgente", "ignored"},
			{"P1", "02/01/2025", "CC1", "AA", "X", "1", nil},
		},
	}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Table.Extras, []string{"Nome do usuário", "Observação"}) {
		t.Fatalf("unexpected extras %v", res.Table.Extras)
	}
	first := res.Table.Records[0]
	if first.ExtraString("Nome do usuário") != "ana" || first.ExtraString("Observação") != "urgente" {
		t.Fatalf("unexpected extra values %v", first.Extra)
	}
	if v, ok := res.Table.Records[1].Extra["Observação"]; !ok || v != nil {
		t.Fatalf("short row should carry nil extras, got %v", res.Table.Records[1].Extra)
	}
}

func TestNormalizeNumericCells(t *testing.T) {
	raw := RawTable{
		Columns: sapColumns,
		Rows: [][]any{
			{"P1", 45717.0, 1001.0, "AA", "X", -12.75},
		},
	}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.Table.Records[0]
	if r.CostCenter != "1001" || r.Value != -12.75 || r.YearMonth != "2025-03" {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := RawTable{
		Columns: append(append([]string{}, sapColumns...), "Observação"),
		Rows: [][]any{
			{nil, "01/01/2025", "CC0", "AA", "X", "3,00", "a"},
			{"P1", "01/03/2025", "CC1", "AA", "Energia", "1.000,00", "b"},
			{nil, "02/03/2025", " CC1", "AB", "Energia", "abc", nil},
			{"P2", "bad-date", "CC2", "AB", "Frete", "500,00", "c"},
			{"P2", "15/04/2025", "CC2", "AB", "Frete", "-45,00", "d"},
		},
	}
	n := NewNormalizer()
	first, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := n.Normalize(first.Table.Raw(n.Schema))
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if !reflect.DeepEqual(first.Table, second.Table) {
		t.Fatalf("normalize is not idempotent:\nfirst  %+v\nsecond %+v", first.Table, second.Table)
	}
	if second.Stats.Dropped() != 0 {
		t.Fatalf("second pass dropped rows: %+v", second.Stats)
	}
}

func TestYearMonthMatchesPostingDate(t *testing.T) {
	raw := RawTable{Columns: sapColumns, Rows: [][]any{
		{"P1", "31/12/2024", "CC1", "AA", "X", "1"},
		{"P1", "01/01/2025 08:00", "CC1", "AA", "X", "1"},
		{"P1", 45808.0, "CC1", "AA", "X", "1"},
	}}
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range res.Table.Records {
		if r.YearMonth != r.PostingDate.Format("2006-01") {
			t.Fatalf("year_month %q does not match %v", r.YearMonth, r.PostingDate)
		}
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Field: FieldValue, Header: "Valor/MR"}
	if err.Error() != `missing required column "Valor/MR" (Value)` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
