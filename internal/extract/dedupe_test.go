// internal/extract/dedupe_test.go
package extract

import (
	"strings"
	"testing"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

func TestValidator_Valid(t *testing.T) {
	tests := []struct {
		name string
		flat *FlatRecord
		want bool
	}{
		{
			name: "long text is valid",
			flat: &FlatRecord{Fields: map[string]string{
				"text": "this sentence is definitely long enough",
			}},
			want: true,
		},
		{
			name: "short text is not",
			flat: &FlatRecord{Fields: map[string]string{"text": "too short"}},
			want: false,
		},
		{
			name: "padding does not count",
			flat: &FlatRecord{Fields: map[string]string{
				"text": "   short断   ",
			}},
			want: false,
		},
		{
			name: "link rescues short text",
			flat: &FlatRecord{
				Fields: map[string]string{"text": "x"},
				Links:  []types.Link{{Href: "/a"}},
			},
			want: true,
		},
		{
			name: "image rescues empty text",
			flat: &FlatRecord{
				Fields: map[string]string{},
				Images: []types.Image{{Src: "/a.png"}},
			},
			want: true,
		},
		{
			name: "nothing at all",
			flat: &FlatRecord{Fields: map[string]string{}},
			want: false,
		},
		{
			name: "nil record",
			flat: nil,
			want: false,
		},
	}

	v := NewValidator(20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Valid(tt.flat); got != tt.want {
				t.Errorf("Valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func record(fields map[string]string) types.Record {
	return types.Record{Fields: fields}
}

func TestDeduper_KeepsFirstDropsLater(t *testing.T) {
	d := NewDeduper(50)

	first := record(map[string]string{"name": "Widget", "price": "9.99"})
	same := record(map[string]string{"price": "9.99", "name": "Widget"})
	other := record(map[string]string{"name": "Gadget", "price": "9.99"})

	if !d.Add(first) {
		t.Fatal("first record rejected")
	}
	if d.Add(same) {
		t.Error("duplicate record accepted")
	}
	if !d.Add(other) {
		t.Error("distinct record rejected")
	}
	if d.Len() != 2 {
		t.Errorf("deduper holds %d signatures, want 2", d.Len())
	}
}

func TestDeduper_IgnoresBookkeepingKeys(t *testing.T) {
	d := NewDeduper(50)

	a := record(map[string]string{"name": "Widget", "_path": "body > li"})
	b := record(map[string]string{"name": "Widget", "_path": "body > tr"})

	if !d.Add(a) {
		t.Fatal("first record rejected")
	}
	if d.Add(b) {
		t.Error("records differing only in bookkeeping were not deduplicated")
	}
}

func TestDeduper_TruncatedPrefixCollision(t *testing.T) {
	prefix := strings.Repeat("a", 50)
	a := record(map[string]string{"text": prefix + " tail one"})
	b := record(map[string]string{"text": prefix + " tail two"})

	d := NewDeduper(50)
	if d.Signature(a) != d.Signature(b) {
		t.Error("values sharing the truncated prefix must collide")
	}

	long := NewDeduper(100)
	if long.Signature(a) == long.Signature(b) {
		t.Error("a longer truncation window should separate the values")
	}
}

func TestDeduper_NormalizesUnicode(t *testing.T) {
	composed := record(map[string]string{"name": "café"})
	decomposed := record(map[string]string{"name": "café"})

	d := NewDeduper(50)
	if d.Signature(composed) != d.Signature(decomposed) {
		t.Error("NFC-equal values must share a signature")
	}
}
