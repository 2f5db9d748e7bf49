package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/SediValue/internal/model"
)

// Table is a header-indexed, fully materialized input table.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table from a header and rows. Header names are trimmed;
// a leading UTF-8 BOM is dropped.
func NewTable(name string, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header = append(t.Header, h)
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	return t
}

// ReadTable loads a CSV, TSV or XLSX file. For workbooks the first sheet is
// read.
func ReadTable(path string) (*Table, error) {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path, name)
	case ".tsv":
		return readDelimited(path, name, '\t')
	default:
		return readDelimited(path, name, ',')
	}
}

func readDelimited(path, name string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return ParseDelimited(f, name, delim)
}

// ParseDelimited reads a delimited table from r.
func ParseDelimited(r io.Reader, name string, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: no header row", name)
	}
	return NewTable(name, records[0], records[1:]), nil
}

func readWorkbook(path, name string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: sheet %q has no header row", name, sheet)
	}
	return NewTable(name, rows[0], rows[1:]), nil
}

// Has reports whether a column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require returns a SchemaError listing every absent column.
func (t *Table) Require(stage string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if c == "" || !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &model.SchemaError{Stage: stage, Table: t.Name, Missing: missing}
	}
	return nil
}

// Cell returns the trimmed value of col in row i. Short rows read as "".
func (t *Table) Cell(i int, col string) string {
	j, ok := t.index[col]
	if !ok || j >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][j])
}
