// Package xlsx decodes Excel workbooks into raw tables.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"custos/internal/core"
	"custos/internal/sheets"
)

// ErrSheetNotFound is returned when Options.Sheet names a missing sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Options selects what to read from a workbook.
type Options struct {
	// Sheet to read; empty means the first sheet.
	Sheet string
}

// Decode reads one sheet of the workbook in r. Text cells come back as
// string, numeric cells as float64 (dates therefore arrive as serial
// numbers) and empty cells as nil. An empty reader yields an empty table.
func Decode(r io.Reader, opts Options) (core.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("read workbook: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return core.RawTable{}, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return core.RawTable{}, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.RawTable{}, fmt.Errorf("read rows of %q: %w", sheet, err)
	}

	grid := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, raw := range row {
			cells[j] = typedCell(f, sheet, j+1, i+1, raw)
		}
		grid[i] = cells
	}
	return sheets.FromGrid(grid), nil
}

// SheetNames lists the sheets of the workbook in r.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func pickSheet(f *excelize.File, want string) (string, error) {
	list := f.GetSheetList()
	if len(list) == 0 {
		return "", fmt.Errorf("workbook has no sheets: %w", ErrSheetNotFound)
	}
	if want == "" {
		return list[0], nil
	}
	for _, name := range list {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(want)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%q: %w", want, ErrSheetNotFound)
}

func typedCell(f *excelize.File, sheet string, col, row int, raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return raw
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	default:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
		return raw
	}
}
