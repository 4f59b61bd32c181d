// internal/output/manager_test.go
package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

func TestNewWriter_FileFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format string
		file   string
	}{
		{"json", filepath.Join(dir, "out.json")},
		{"jsonl", filepath.Join(dir, "out.jsonl")},
		{"csv", filepath.Join(dir, "out.csv")},
		{"tsv", filepath.Join(dir, "out.tsv")},
		{"xml", filepath.Join(dir, "out.xml")},
		{"yaml", filepath.Join(dir, "out.yaml")},
		{"excel", filepath.Join(dir, "out.xlsx")},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(config.OutputConfig{Format: tt.format, File: tt.file})
			if err != nil {
				t.Fatalf("NewWriter(%s) error: %v", tt.format, err)
			}
			if err := w.Write(sampleRecords()); err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error: %v", err)
			}
			info, err := os.Stat(tt.file)
			if err != nil {
				t.Fatalf("output file missing: %v", err)
			}
			if info.Size() == 0 {
				t.Error("output file is empty")
			}
		})
	}
}

func TestNewWriter_DefaultsToJSONOnStdout(t *testing.T) {
	w, err := NewWriter(config.OutputConfig{})
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	if _, ok := w.(*JSONWriter); !ok {
		t.Fatalf("default writer is %T, want *JSONWriter", w)
	}
	// Closing a stdout-backed writer must not close stdout.
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := os.Stdout.Stat(); err != nil {
		t.Fatalf("stdout was closed: %v", err)
	}
}

func TestNewWriter_SQLiteDefaultsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	w, err := NewWriter(config.OutputConfig{Format: "sqlite", File: path})
	if err != nil {
		t.Fatalf("NewWriter(sqlite) error: %v", err)
	}
	defer w.Close()

	sw, ok := w.(*SQLiteWriter)
	if !ok {
		t.Fatalf("writer is %T, want *SQLiteWriter", w)
	}
	if sw.opts.Table != defaultTable {
		t.Errorf("table = %q, want %q", sw.opts.Table, defaultTable)
	}
}

func TestNewWriter_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.OutputConfig
	}{
		{"unknown format", config.OutputConfig{Format: "parquet"}},
		{"sqlite without file", config.OutputConfig{Format: "sqlite"}},
		{"excel without file", config.OutputConfig{Format: "excel"}},
		{"postgresql without dsn", config.OutputConfig{Format: "postgresql"}},
		{"mysql without dsn", config.OutputConfig{Format: "mysql"}},
		{"mongodb without uri", config.OutputConfig{Format: "mongodb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWriter(tt.cfg); err == nil {
				t.Errorf("NewWriter(%+v) should fail", tt.cfg)
			}
		})
	}
}
