// internal/output/yaml.go
package output

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// YAMLWriter writes records as a YAML sequence of flat field maps.
// Provenance travels in the reserved "_path"/"_depth" keys.
type YAMLWriter struct {
	enc    *yaml.Encoder
	closer io.Closer
	wrote  bool
}

// NewYAMLWriter writes to an existing stream. The stream is not closed
// by Close.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLWriter{enc: enc}
}

// NewYAMLFileWriter creates (truncating) the named file.
func NewYAMLFileWriter(path string) (*YAMLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create YAML output: %w", err)
	}
	w := NewYAMLWriter(file)
	w.closer = file
	return w, nil
}

func (w *YAMLWriter) Write(records []types.Record) error {
	docs := make([]map[string]string, 0, len(records))
	for i := range records {
		record := &records[i]
		doc := make(map[string]string, len(record.Fields)+2)
		for _, name := range record.FieldNames() {
			doc[name] = record.Get(name)
		}
		if record.Path != "" {
			doc[ColumnPath] = record.Path
			doc[ColumnDepth] = fmt.Sprintf("%d", record.Depth)
		}
		docs = append(docs, doc)
	}
	if err := w.enc.Encode(docs); err != nil {
		return fmt.Errorf("failed to encode YAML records: %w", err)
	}
	w.wrote = true
	return nil
}

func (w *YAMLWriter) Close() error {
	// The yaml encoder rejects Close before any Encode.
	var err error
	if w.wrote {
		err = w.enc.Close()
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}
