package sheets

import (
	"fmt"
	"strings"

	"custos/internal/core"
)

// FromGrid turns a cell grid into a raw table. The first row holding any
// non-blank cell is the header; fully blank rows below it are skipped.
func FromGrid(grid [][]any) core.RawTable {
	start := -1
	for i, row := range grid {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return core.RawTable{}
	}

	header := grid[start]
	cols := make([]string, len(header))
	for i, v := range header {
		if v != nil {
			cols[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}

	rows := make([][]any, 0, len(grid)-start-1)
	for _, row := range grid[start+1:] {
		if blankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return core.RawTable{Columns: cols, Rows: rows}
}

func blankRow(row []any) bool {
	for _, v := range row {
		switch x := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(x) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
