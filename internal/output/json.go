// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// JSONWriter writes records as an indented JSON array, or as JSON
// Lines with one compact object per record.
type JSONWriter struct {
	w      io.Writer
	closer io.Closer
	lines  bool
}

// NewJSONWriter writes to an existing stream. The stream is not closed
// by Close, so os.Stdout is a valid target.
func NewJSONWriter(w io.Writer, lines bool) *JSONWriter {
	return &JSONWriter{w: w, lines: lines}
}

// NewJSONFileWriter creates (truncating) the named file.
func NewJSONFileWriter(path string, lines bool) (*JSONWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON output: %w", err)
	}
	return &JSONWriter{w: file, closer: file, lines: lines}, nil
}

func (w *JSONWriter) Write(records []types.Record) error {
	if w.lines {
		enc := json.NewEncoder(w.w)
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
		}
		return nil
	}

	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

func (w *JSONWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}
