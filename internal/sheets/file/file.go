package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"custos/internal/core"
	ports "custos/internal/sheets"
	"custos/internal/sheets/xlsx"
)

// Loader reads the cost sheet from a workbook on disk.
type Loader struct {
	path  string
	sheet string
}

var _ ports.Source = (*Loader)(nil)

// New returns a loader for the workbook at path. An empty sheet selects the
// first one.
func New(path, sheet string) *Loader {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Loader{path: path, sheet: sheet}
}

// Load opens and decodes the workbook.
func (l *Loader) Load(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	tbl, err := xlsx.Decode(f, xlsx.Options{Sheet: l.sheet})
	if err != nil {
		return core.RawTable{}, fmt.Errorf("decode %s: %w", l.path, err)
	}
	return tbl, nil
}

// SourceKey identifies the workbook path.
func (l *Loader) SourceKey() string {
	return "file:" + l.path
}
