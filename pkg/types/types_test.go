// pkg/types/types_test.go
package types

import (
	"math"
	"sort"
	"testing"
	"time"
)

func TestRecord_Get(t *testing.T) {
	rec := &Record{Fields: map[string]string{"name": "Aurora Laptop 15"}}

	if got := rec.Get("name"); got != "Aurora Laptop 15" {
		t.Errorf("Get(name) = %q", got)
	}
	if got := rec.Get("rating"); got != "" {
		t.Errorf("Get(rating) = %q, want empty", got)
	}

	var nilRec *Record
	if got := nilRec.Get("name"); got != "" {
		t.Errorf("nil record Get = %q, want empty", got)
	}
	if got := (&Record{}).Get("name"); got != "" {
		t.Errorf("empty record Get = %q, want empty", got)
	}
}

func TestRecord_FieldNamesSkipBookkeeping(t *testing.T) {
	rec := &Record{Fields: map[string]string{
		"name":    "Aurora Laptop 15",
		"price":   "$1,299",
		"_source": "table",
	}}

	names := rec.FieldNames()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "name" || names[1] != "price" {
		t.Errorf("FieldNames = %v, want [name price]", names)
	}

	var nilRec *Record
	if got := nilRec.FieldNames(); got != nil {
		t.Errorf("nil record FieldNames = %v, want nil", got)
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	orig := &Record{
		Fields: map[string]string{"name": "Aurora Laptop 15"},
		Links:  []Link{{Text: "details", Href: "/laptops/aurora-15"}},
		Images: []Image{{Src: "/img/aurora.jpg", Alt: "aurora"}},
		Path:   "html > body > div",
		Depth:  2,
	}

	clone := orig.Clone()
	clone.Fields["name"] = "changed"
	clone.Links[0].Href = "/changed"
	clone.Images[0].Src = "/changed.jpg"

	if orig.Fields["name"] != "Aurora Laptop 15" {
		t.Error("clone shares the fields map")
	}
	if orig.Links[0].Href != "/laptops/aurora-15" {
		t.Error("clone shares the links slice")
	}
	if orig.Images[0].Src != "/img/aurora.jpg" {
		t.Error("clone shares the images slice")
	}
	if clone.Path != orig.Path || clone.Depth != orig.Depth {
		t.Error("clone lost provenance")
	}

	var nilRec *Record
	if nilRec.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestActionPriority(t *testing.T) {
	if !(PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("priority ranks are not ordered high < medium < low")
	}
	if ActionPriority("urgent").Rank() <= PriorityLow.Rank() {
		t.Error("unknown priority should rank after low")
	}

	for _, p := range []ActionPriority{PriorityHigh, PriorityMedium, PriorityLow} {
		if !p.IsValid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if ActionPriority("urgent").IsValid() {
		t.Error("unknown priority should be invalid")
	}
}

func TestSelectorEntry_Stale(t *testing.T) {
	now := time.Now()
	entry := &SelectorEntry{LearnedAt: now.Add(-2 * time.Hour)}

	if entry.Stale(3*time.Hour, now) {
		t.Error("entry inside ttl reported stale")
	}
	if !entry.Stale(time.Hour, now) {
		t.Error("entry beyond ttl reported fresh")
	}

	var nilEntry *SelectorEntry
	if !nilEntry.Stale(time.Hour, now) {
		t.Error("nil entry should always be stale")
	}
}

func TestSelectorEntry_Covers(t *testing.T) {
	entry := &SelectorEntry{Selectors: map[string]string{
		"name":  ".product-name",
		"price": ".price",
	}}

	if !entry.Covers([]string{"name", "price"}) {
		t.Error("entry should cover its own fields")
	}
	if !entry.Covers(nil) {
		t.Error("entry should cover the empty field list")
	}
	if entry.Covers([]string{"name", "rating"}) {
		t.Error("entry should not cover an unlearned field")
	}

	var nilEntry *SelectorEntry
	if nilEntry.Covers([]string{"name"}) {
		t.Error("nil entry covers nothing")
	}
}

func TestToolPerformance_Reliability(t *testing.T) {
	var nilPerf *ToolPerformance
	if got := nilPerf.Reliability(0.3, 0.7); got != 0 {
		t.Errorf("nil performance reliability = %g, want 0", got)
	}
	if got := (&ToolPerformance{}).Reliability(0.3, 0.7); got != 0 {
		t.Errorf("zero-attempt reliability = %g, want 0", got)
	}

	// Without a recent window the lifetime rate stands in for it.
	lifetimeOnly := &ToolPerformance{Total: 10, Successes: 8}
	if got := lifetimeOnly.Reliability(0.3, 0.7); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("lifetime-only reliability = %g, want 0.8", got)
	}

	blended := &ToolPerformance{
		Total:     10,
		Successes: 8,
		Recent:    []bool{true, true, false, true},
	}
	want := 0.3*0.8 + 0.7*0.75
	if got := blended.Reliability(0.3, 0.7); math.Abs(got-want) > 1e-9 {
		t.Errorf("blended reliability = %g, want %g", got, want)
	}
}
