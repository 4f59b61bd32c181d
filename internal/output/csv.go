// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// CSVWriter writes records as delimited rows. The header and column
// order are fixed by the first batch; fields that appear only in later
// batches are dropped, which keeps every row the same width.
type CSVWriter struct {
	writer  *csv.Writer
	closer  io.Closer
	columns []string
}

// NewCSVWriter writes to an existing stream. A comma delimiter gives
// CSV, a tab gives TSV.
func NewCSVWriter(w io.Writer, delimiter rune) *CSVWriter {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	return &CSVWriter{writer: cw}
}

// NewCSVFileWriter creates (truncating) the named file.
func NewCSVFileWriter(path string, delimiter rune) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV output: %w", err)
	}
	cw := NewCSVWriter(file, delimiter)
	cw.closer = file
	return cw, nil
}

func (w *CSVWriter) Write(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	if w.columns == nil {
		w.columns = Columns(records)
		if err := w.writer.Write(w.columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range records {
		if err := w.writer.Write(rowValues(&records[i], w.columns)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	w.writer.Flush()
	err := w.writer.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}
