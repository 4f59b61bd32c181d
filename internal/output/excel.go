// internal/output/excel.go
package output

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// ExcelWriter writes records to one worksheet of an .xlsx workbook.
// Columns are fixed by the first batch; the workbook is saved on Close.
type ExcelWriter struct {
	file        *excelize.File
	path        string
	sheet       string
	columns     []string
	row         int
	headerStyle int
}

const defaultSheetName = "Records"

// NewExcelWriter prepares a workbook that Close will save to path.
func NewExcelWriter(path, sheet string) (*ExcelWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("Excel output path is required")
	}
	if sheet == "" {
		sheet = defaultSheetName
	}

	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	return &ExcelWriter{
		file:        file,
		path:        path,
		sheet:       sheet,
		row:         1,
		headerStyle: style,
	}, nil
}

func (w *ExcelWriter) Write(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	if w.columns == nil {
		w.columns = Columns(records)
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	for i := range records {
		values := rowValues(&records[i], w.columns)
		for col, value := range values {
			cell := columnName(col+1) + strconv.Itoa(w.row)
			if err := w.file.SetCellValue(w.sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
		w.row++
	}
	return nil
}

func (w *ExcelWriter) writeHeader() error {
	for col, name := range w.columns {
		cell := columnName(col+1) + strconv.Itoa(w.row)
		if err := w.file.SetCellValue(w.sheet, cell, name); err != nil {
			return fmt.Errorf("failed to set header %s: %w", cell, err)
		}
	}
	last := columnName(len(w.columns)) + strconv.Itoa(w.row)
	first := columnName(1) + strconv.Itoa(w.row)
	if err := w.file.SetCellStyle(w.sheet, first, last, w.headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	w.row++
	return nil
}

// Close saves the workbook and releases it.
func (w *ExcelWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.SaveAs(w.path)
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// columnName converts a 1-based column index to its A1 letter form.
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
