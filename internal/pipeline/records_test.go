// internal/pipeline/records_test.go
package pipeline

import (
	"strings"
	"testing"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

func productRecords() []types.Record {
	return []types.Record{
		{
			Fields: map[string]string{
				"name":  "  Aurora Laptop 15 ",
				"price": "$1,299.00",
				"qty":   "3",
				"_raw":  "  untouched  ",
			},
			Path:  "html > body > div > div",
			Depth: 3,
		},
		{
			Fields: map[string]string{
				"name":  "Borealis Phone",
				"price": "$799.00",
			},
		},
	}
}

func TestNewTransformer_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		transforms []config.FieldTransform
	}{
		{
			name:       "missing field",
			transforms: []config.FieldTransform{{Rules: []config.TransformRule{{Type: "trim"}}}},
		},
		{
			name:       "reserved field",
			transforms: []config.FieldTransform{{Field: "_path", Rules: []config.TransformRule{{Type: "trim"}}}},
		},
		{
			name:       "invalid rule",
			transforms: []config.FieldTransform{{Field: "price", Rules: []config.TransformRule{{Type: "regex"}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTransformer(tt.transforms); err == nil {
				t.Error("NewTransformer succeeded, want error")
			}
		})
	}
}

func TestTransformer_FieldChain(t *testing.T) {
	tr, err := NewTransformer([]config.FieldTransform{
		{
			Field: "price",
			Rules: []config.TransformRule{
				{Type: "regex", Pattern: `[$,]`, Replacement: ""},
				{Type: "parse_float"},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}

	out, err := tr.Apply(productRecords())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out[0].Fields["price"]; got != "1299" {
		t.Errorf("record 0 price = %q, want %q", got, "1299")
	}
	if got := out[1].Fields["price"]; got != "799" {
		t.Errorf("record 1 price = %q, want %q", got, "799")
	}
	if got := out[0].Fields["name"]; got != "  Aurora Laptop 15 " {
		t.Errorf("untargeted field changed: %q", got)
	}
	if out[0].Path != "html > body > div > div" || out[0].Depth != 3 {
		t.Errorf("provenance changed: path %q depth %d", out[0].Path, out[0].Depth)
	}
}

func TestTransformer_MissingFieldIsSkipped(t *testing.T) {
	tr, err := NewTransformer([]config.FieldTransform{
		{Field: "qty", Rules: []config.TransformRule{{Type: "parse_int"}}},
	})
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}

	out, err := tr.Apply(productRecords())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out[0].Fields["qty"]; got != "3" {
		t.Errorf("record 0 qty = %q, want %q", got, "3")
	}
	if _, ok := out[1].Fields["qty"]; ok {
		t.Error("record 1 grew a qty field")
	}
}

func TestTransformer_WildcardSkipsBookkeepingFields(t *testing.T) {
	tr, err := NewTransformer([]config.FieldTransform{
		{Field: "*", Rules: []config.TransformRule{{Type: "trim"}, {Type: "normalize_spaces"}}},
	})
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}

	out, err := tr.Apply(productRecords())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out[0].Fields["name"]; got != "Aurora Laptop 15" {
		t.Errorf("name = %q, want %q", got, "Aurora Laptop 15")
	}
	if got := out[0].Fields["_raw"]; got != "  untouched  " {
		t.Errorf("bookkeeping field transformed: %q", got)
	}
}

func TestTransformer_DoesNotMutateInput(t *testing.T) {
	tr, err := NewTransformer([]config.FieldTransform{
		{Field: "*", Rules: []config.TransformRule{{Type: "trim"}}},
	})
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}

	in := productRecords()
	if _, err := tr.Apply(in); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := in[0].Fields["name"]; got != "  Aurora Laptop 15 " {
		t.Errorf("input record mutated: name = %q", got)
	}
}

func TestTransformer_NilPassesThrough(t *testing.T) {
	in := productRecords()

	var tr *Transformer
	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply on nil transformer: %v", err)
	}
	if len(out) != len(in) || out[0].Fields["name"] != in[0].Fields["name"] {
		t.Error("nil transformer altered records")
	}

	empty, err := NewTransformer(nil)
	if err != nil {
		t.Fatalf("NewTransformer(nil): %v", err)
	}
	out, err = empty.Apply(in)
	if err != nil {
		t.Fatalf("Apply on empty transformer: %v", err)
	}
	if len(out) != len(in) {
		t.Error("empty transformer altered records")
	}
}

func TestTransformer_ErrorNamesRecordAndField(t *testing.T) {
	tr, err := NewTransformer([]config.FieldTransform{
		{Field: "price", Rules: []config.TransformRule{{Type: "parse_int"}}},
	})
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}

	_, err = tr.Apply(productRecords())
	if err == nil {
		t.Fatal("Apply succeeded, want error")
	}
	if !strings.Contains(err.Error(), "record 0") || !strings.Contains(err.Error(), "field price") {
		t.Errorf("error %q does not locate the failure", err)
	}
}
