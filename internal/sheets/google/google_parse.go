package google

import (
	"encoding/json"
	"strings"

	"custos/internal/core"
	ports "custos/internal/sheets"
)

// valuesToTable converts a values matrix as returned by the Sheets API
// into a raw table. JSON numbers become float64 and empty strings nil,
// matching what the workbook decoder produces.
func valuesToTable(values [][]interface{}) core.RawTable {
	grid := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = normalizeCell(v)
		}
		grid[i] = cells
	}
	return ports.FromGrid(grid)
}

func normalizeCell(v interface{}) any {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return x
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return v
	}
}
