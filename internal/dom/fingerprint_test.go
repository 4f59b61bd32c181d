// internal/dom/fingerprint_test.go
package dom

import "testing"

func newTestCache(t *testing.T) *ExtractionCache {
	t.Helper()
	c, err := NewExtractionCache(64)
	if err != nil {
		t.Fatalf("NewExtractionCache failed: %v", err)
	}
	return c
}

func TestExtractionCache_Fingerprint(t *testing.T) {
	doc := `<html><body>
		<div id="a" class="card"><span>x</span><span>y</span></div>
	</body></html>`

	a, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	c := newTestCache(t)

	div := findByTag(t, a, "div")
	want := "div|2|class,id"
	if got := c.Fingerprint(a, div); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}

	// second call hits the memo and must agree
	if got := c.Fingerprint(a, div); got != want {
		t.Errorf("memoized Fingerprint = %q, want %q", got, want)
	}
}

func TestExtractionCache_FingerprintPerArena(t *testing.T) {
	first, err := ParseString(`<html><body><p>a</p></body></html>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	second, err := ParseString(`<html><body><div><i>b</i></div></body></html>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	c := newTestCache(t)
	// prime the memo with nodes from the first document
	for id := 0; id < first.Len(); id++ {
		c.Fingerprint(first, NodeID(id))
	}

	div := findByTag(t, second, "div")
	if got := c.Fingerprint(second, div); got != "div|1|" {
		t.Errorf("Fingerprint across arenas = %q, want %q", got, "div|1|")
	}
}

func TestExtractionCache_Similarity(t *testing.T) {
	tests := []struct {
		name string
		fps  []string
		want float64
	}{
		{"empty", nil, 0},
		{"single", []string{"li|0|"}, 1.0},
		{"uniform", []string{"li|0|", "li|0|", "li|0|"}, 1.0},
		{"three of four", []string{"li|0|", "li|0|", "li|0|", "div|2|class"}, 0.75},
		{"all different", []string{"a|0|", "b|0|", "c|0|", "d|0|"}, 0.25},
	}

	c := newTestCache(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Similarity(tt.fps); got != tt.want {
				t.Errorf("Similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractionCache_SimilarityOrderIndependent(t *testing.T) {
	c := newTestCache(t)
	first := c.Similarity([]string{"x|0|", "y|0|", "x|0|"})
	second := c.Similarity([]string{"y|0|", "x|0|", "x|0|"})
	if first != second {
		t.Errorf("similarity depends on order: %v vs %v", first, second)
	}
}
