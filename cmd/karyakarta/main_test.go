// cmd/karyakarta/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/errors"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

func TestPrintVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2026-08-25"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	for _, want := range []string{"test-version", "2026-08-25", "abc123"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("version output missing %q: %s", want, buf.String())
		}
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	for _, cmd := range []string{"extract", "validate", "template", "version", "help"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("usage output missing command %q", cmd)
		}
	}
}

func TestParseExtractArgs(t *testing.T) {
	opts, err := parseExtractArgs([]string{
		"page.html",
		"--fields", "name, price,",
		"--limit", "5",
		"--domain", "shop.example.com",
		"--config", "extract.yaml",
		"--output", "out.json",
		"--format", "jsonl",
		"--all",
		"-v",
	})
	if err != nil {
		t.Fatalf("parseExtractArgs failed: %v", err)
	}

	if opts.input != "page.html" {
		t.Errorf("input = %q", opts.input)
	}
	if !reflect.DeepEqual(opts.fields, []string{"name", "price"}) {
		t.Errorf("fields = %v", opts.fields)
	}
	if opts.limit != 5 || !opts.hasLim {
		t.Errorf("limit = %d (set=%v)", opts.limit, opts.hasLim)
	}
	if opts.domain != "shop.example.com" || opts.config != "extract.yaml" {
		t.Errorf("domain/config = %q/%q", opts.domain, opts.config)
	}
	if opts.output != "out.json" || opts.format != "jsonl" {
		t.Errorf("output/format = %q/%q", opts.output, opts.format)
	}
	if !opts.all || !opts.verbose {
		t.Errorf("all/verbose = %v/%v", opts.all, opts.verbose)
	}
}

func TestParseExtractArgs_StdinDash(t *testing.T) {
	opts, err := parseExtractArgs([]string{"-"})
	if err != nil {
		t.Fatalf("parseExtractArgs failed: %v", err)
	}
	if opts.input != "-" {
		t.Errorf("input = %q, want -", opts.input)
	}
}

func TestParseExtractArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"--fields", "name"}},
		{"missing flag value", []string{"page.html", "--limit"}},
		{"bad limit", []string{"page.html", "--limit", "many"}},
		{"unknown flag", []string{"page.html", "--parallel"}},
		{"two inputs", []string{"a.html", "b.html"}},
		{"empty fields", []string{"page.html", "--fields", " , "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseExtractArgs(tt.args); err == nil {
				t.Errorf("parseExtractArgs(%v) succeeded, want error", tt.args)
			}
		})
	}
}

func TestRun_CommandRouting(t *testing.T) {
	if code := run(nil); code != errors.ExitInput {
		t.Errorf("run with no args = %d, want %d", code, errors.ExitInput)
	}
	if code := run([]string{"propagate"}); code != errors.ExitInput {
		t.Errorf("unknown command = %d, want %d", code, errors.ExitInput)
	}
	if code := run([]string{"version"}); code != errors.ExitOK {
		t.Errorf("version = %d, want %d", code, errors.ExitOK)
	}
	if code := run([]string{"help"}); code != errors.ExitOK {
		t.Errorf("help = %d, want %d", code, errors.ExitOK)
	}
}

// writeTestFiles lays out a config tuned for small documents, a table
// page, and returns the paths plus the records destination.
func writeTestFiles(t *testing.T) (configPath, htmlPath, outPath string) {
	t.Helper()
	dir := t.TempDir()

	outPath = filepath.Join(dir, "records.json")
	configPath = filepath.Join(dir, "extract.yaml")
	configDoc := `name: cli_test
fields:
  - product
  - price
discovery:
  max_depth: 8
store:
  driver: memory
output:
  format: json
`
	if err := os.WriteFile(configPath, []byte(configDoc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var b strings.Builder
	b.WriteString(`<html><head></head><body><table>`)
	b.WriteString(`<thead><tr><th>Product</th><th>Price</th><th>Stock</th></tr></thead><tbody>`)
	rows := [][3]string{
		{"Meridian Desk Lamp", "$39", "In stock"},
		{"Nimbus Air Purifier", "$129", "In stock"},
		{"Orchard Bookshelf", "$249", "Sold out"},
		{"Pinnacle Desk Chair", "$399", "In stock"},
		{"Quarry Side Table", "$89", "In stock"},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, row[0], row[1], row[2])
	}
	b.WriteString(`</tbody></table></body></html>`)

	htmlPath = filepath.Join(dir, "page.html")
	if err := os.WriteFile(htmlPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write html: %v", err)
	}
	return configPath, htmlPath, outPath
}

func TestRunExtract_WritesRecords(t *testing.T) {
	configPath, htmlPath, outPath := writeTestFiles(t)

	code := run([]string{
		"extract", htmlPath,
		"--config", configPath,
		"--fields", "product,price",
		"--limit", "3",
		"--output", outPath,
	})
	if code != errors.ExitOK {
		t.Fatalf("extract exited %d, want %d", code, errors.ExitOK)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("output is not a JSON record array: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Table cells carry no field-named keys, so the field resolves to
	// the row's accumulated text.
	if records[0].Get("product") != "Meridian Desk Lamp $39 In stock" {
		t.Errorf("first product = %q", records[0].Get("product"))
	}
}

func TestRunExtract_SweepAll(t *testing.T) {
	configPath, htmlPath, outPath := writeTestFiles(t)

	code := run([]string{
		"extract", htmlPath,
		"--config", configPath,
		"--output", outPath,
		"--format", "jsonl",
		"--all",
	})
	if code != errors.ExitOK {
		t.Fatalf("sweep exited %d, want %d", code, errors.ExitOK)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 5 {
		t.Fatalf("sweep wrote %d lines, want at least the 5 table rows", len(lines))
	}
	var rec types.Record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line 0 is not a record: %v", err)
	}
}

func TestRunExtract_MissingInputFile(t *testing.T) {
	configPath, _, outPath := writeTestFiles(t)

	code := run([]string{
		"extract", filepath.Join(t.TempDir(), "absent.html"),
		"--config", configPath,
		"--output", outPath,
	})
	if code != errors.ExitInput {
		t.Errorf("missing input exited %d, want %d", code, errors.ExitInput)
	}
}

func TestRunExtract_BadFlags(t *testing.T) {
	if code := run([]string{"extract"}); code != errors.ExitInput {
		t.Errorf("extract without input exited %d, want %d", code, errors.ExitInput)
	}
}

func TestRunExtract_UnsupportedFormat(t *testing.T) {
	configPath, htmlPath, outPath := writeTestFiles(t)

	code := run([]string{
		"extract", htmlPath,
		"--config", configPath,
		"--output", outPath,
		"--format", "parquet",
	})
	if code != errors.ExitInput {
		t.Errorf("unsupported format exited %d, want %d", code, errors.ExitInput)
	}
}

func TestRunValidate(t *testing.T) {
	configPath, _, _ := writeTestFiles(t)

	if code := run([]string{"validate", configPath}); code != errors.ExitOK {
		t.Errorf("valid config exited %d, want %d", code, errors.ExitOK)
	}
	if code := run([]string{"validate", configPath, "-v"}); code != errors.ExitOK {
		t.Errorf("verbose validate exited %d, want %d", code, errors.ExitOK)
	}
	if code := run([]string{"validate"}); code != errors.ExitInput {
		t.Errorf("validate without a path exited %d, want %d", code, errors.ExitInput)
	}
}

func TestRunValidate_RejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("name: [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if code := run([]string{"validate", path}); code != errors.ExitConfig {
		t.Errorf("broken config exited %d, want %d", code, errors.ExitConfig)
	}
}

func TestRunTemplate(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		outC <- buf.String()
	}()

	code := run([]string{"template", "--type", "ecommerce"})
	w.Close()
	os.Stdout = old
	out := <-outC

	if code != errors.ExitOK {
		t.Fatalf("template exited %d, want %d", code, errors.ExitOK)
	}
	for _, want := range []string{"ecommerce_extraction", "sqlite", "browser"} {
		if !strings.Contains(out, want) {
			t.Errorf("template output missing %q", want)
		}
	}
}
