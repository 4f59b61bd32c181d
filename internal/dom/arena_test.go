// internal/dom/arena_test.go
package dom

import (
	"strings"
	"testing"
)

// findByTag returns the first node with the given tag, in document order.
func findByTag(t *testing.T, a *Arena, tag string) NodeID {
	t.Helper()
	for id := 0; id < a.Len(); id++ {
		if a.Tag(NodeID(id)) == tag {
			return NodeID(id)
		}
	}
	t.Fatalf("no <%s> node in arena", tag)
	return InvalidNode
}

func TestParseString_BuildsArena(t *testing.T) {
	doc := `<html><body><div id="main" class="content">
		<ul><li>one</li><li>two</li><li>three</li></ul>
	</div></body></html>`

	a, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	if a.Tag(a.Root()) != "html" {
		t.Errorf("root tag = %q, want html", a.Tag(a.Root()))
	}

	div := findByTag(t, a, "div")
	if got, _ := a.Attr(div, "id"); got != "main" {
		t.Errorf("div id = %q, want main", got)
	}
	if got, _ := a.Attr(div, "class"); got != "content" {
		t.Errorf("div class = %q, want content", got)
	}

	ul := findByTag(t, a, "ul")
	if n := a.Node(ul); len(n.Children) != 3 {
		t.Errorf("ul has %d children, want 3", len(n.Children))
	}
	if a.Node(ul).Parent != div {
		t.Errorf("ul parent = %d, want %d", a.Node(ul).Parent, div)
	}
}

func TestParseString_OwnTextIsNonDeep(t *testing.T) {
	doc := `<html><body><p>  Hello
		<b>bold</b>   World  </p></body></html>`

	a, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	p := findByTag(t, a, "p")
	if got := a.OwnText(p); got != "Hello World" {
		t.Errorf("p own text = %q, want %q", got, "Hello World")
	}

	b := findByTag(t, a, "b")
	if got := a.OwnText(b); got != "bold" {
		t.Errorf("b own text = %q, want %q", got, "bold")
	}
}

func TestArena_Depth(t *testing.T) {
	doc := `<html><body><div><span>deep</span></div></body></html>`

	a, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	tests := []struct {
		tag  string
		want int
	}{
		{"html", 0},
		{"body", 1},
		{"div", 2},
		{"span", 3},
	}

	for _, tt := range tests {
		id := findByTag(t, a, tt.tag)
		if got := a.Depth(id); got != tt.want {
			t.Errorf("Depth(%s) = %d, want %d", tt.tag, got, tt.want)
		}
	}
}

func TestArena_TagPath(t *testing.T) {
	doc := `<html><body><ul><li>item</li></ul></body></html>`

	a, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	li := findByTag(t, a, "li")
	if got := a.TagPath(li); got != "html > body > ul > li" {
		t.Errorf("TagPath(li) = %q", got)
	}
	if got := a.TagPath(a.Root()); got != "html" {
		t.Errorf("TagPath(root) = %q", got)
	}
	if got := a.TagPath(InvalidNode); got != "" {
		t.Errorf("TagPath(invalid) = %q, want empty", got)
	}
}

func TestArena_NodeBounds(t *testing.T) {
	a, err := ParseString(`<html><body></body></html>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	if a.Node(InvalidNode) != nil {
		t.Error("Node(InvalidNode) should be nil")
	}
	if a.Node(NodeID(a.Len())) != nil {
		t.Error("Node past the end should be nil")
	}
	if got := a.Tag(InvalidNode); got != "" {
		t.Errorf("Tag(InvalidNode) = %q, want empty", got)
	}
}

func TestArena_GenerationsDiffer(t *testing.T) {
	first, err := ParseString(`<html><body><p>a</p></body></html>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	second, err := ParseString(`<html><body><p>b</p></body></html>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	if first.Generation() == second.Generation() {
		t.Error("two arenas share a generation")
	}
}

func TestParse_LargeDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < 500; i++ {
		b.WriteString("<li>item</li>")
	}
	b.WriteString("</ul></body></html>")

	a, err := ParseString(b.String())
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	ul := findByTag(t, a, "ul")
	if n := a.Node(ul); len(n.Children) != 500 {
		t.Errorf("ul has %d children, want 500", len(n.Children))
	}
	if len(a.NewVisited()) != a.Len() {
		t.Errorf("visited slice sized %d, want %d", len(a.NewVisited()), a.Len())
	}
}
