package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Writer persists a set of tables and returns the files it wrote.
type Writer interface {
	Write(tables []Table) ([]string, error)
}

// FormatCell renders a cell as text. Missing cells are empty.
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}

// CSVWriter writes one <name>.csv per table into Dir.
type CSVWriter struct {
	Dir string
}

func (w CSVWriter) Write(tables []Table) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	var paths []string
	for _, t := range tables {
		path := filepath.Join(w.Dir, t.Name+".csv")
		if err := writeCSV(path, t); err != nil {
			return paths, fmt.Errorf("writing %s: %w", t.Name, err)
		}
		log.WithFields(log.Fields{"table": t.Name, "rows": len(t.Rows)}).Debug("wrote csv")
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}

// XLSXWriter writes every table as a sheet of one workbook.
type XLSXWriter struct {
	Path string
}

func (w XLSXWriter) Write(tables []Table) ([]string, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, t := range tables {
		if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("adding sheet %s: %w", t.Name, err)
		}
		header := make([]any, len(t.Header))
		for i, h := range t.Header {
			header[i] = h
		}
		if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
			return nil, fmt.Errorf("writing %s header: %w", t.Name, err)
		}
		for i, row := range t.Rows {
			cellRef, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(t.Name, cellRef, &row); err != nil {
				return nil, fmt.Errorf("writing %s row %d: %w", t.Name, i+1, err)
			}
		}
		if err := f.SetPanes(t.Name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("freezing %s header: %w", t.Name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(w.Path); err != nil {
		return nil, fmt.Errorf("saving workbook: %w", err)
	}
	log.WithFields(log.Fields{"path": w.Path, "sheets": len(tables)}).Debug("wrote workbook")
	return []string{w.Path}, nil
}
