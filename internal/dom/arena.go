// internal/dom/arena.go

// Package dom parses HTML into a flat node arena and provides the node
// filter and structural fingerprinting that the discovery pipeline runs
// on. The arena keeps parent/child relations as integer indices, so
// traversals track visits with a plain []bool instead of pointer sets.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
)

// NodeID indexes a node inside an Arena.
type NodeID int

// InvalidNode marks the absence of a node, e.g. the root's parent.
const InvalidNode NodeID = -1

// Node is one element node in the arena. Text holds the node's own
// (non-deep) text with whitespace collapsed and fragments space-joined.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Children []NodeID
	Tag      string
	Attrs    map[string]string
	Text     string
}

// arenaGen hands out a unique generation per parsed arena so per-node
// memo keys from different documents never collide.
var arenaGen atomic.Uint64

// Arena is a flat array representation of one parsed HTML document.
type Arena struct {
	nodes []Node
	gen   uint64
}

// Parse reads an HTML document and builds its arena.
func Parse(r io.Reader) (*Arena, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	a := &Arena{gen: arenaGen.Add(1)}
	root := firstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("document has no element nodes")
	}
	a.add(root, InvalidNode)
	return a, nil
}

// ParseString builds an arena from an HTML string.
func ParseString(s string) (*Arena, error) {
	return Parse(strings.NewReader(s))
}

func firstElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// add appends the element and its element descendants in document order.
func (a *Arena) add(n *html.Node, parent NodeID) NodeID {
	id := NodeID(len(a.nodes))
	node := Node{
		ID:     id,
		Parent: parent,
		Tag:    n.Data,
	}
	if len(n.Attr) > 0 {
		node.Attrs = make(map[string]string, len(n.Attr))
		for _, attr := range n.Attr {
			node.Attrs[attr.Key] = attr.Val
		}
	}
	node.Text = ownText(n)
	a.nodes = append(a.nodes, node)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		child := a.add(c, id)
		a.nodes[id].Children = append(a.nodes[id].Children, child)
	}
	return id
}

// ownText collects the direct text children of n, collapsing whitespace
// inside each fragment and space-joining the fragments.
func ownText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		fields := strings.Fields(c.Data)
		if len(fields) == 0 {
			continue
		}
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, " ")
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Root returns the document's root element.
func (a *Arena) Root() NodeID {
	if len(a.nodes) == 0 {
		return InvalidNode
	}
	return 0
}

// Generation identifies this arena for cross-document memo keys.
func (a *Arena) Generation() uint64 {
	return a.gen
}

// Node returns the node for id, or nil when id is out of range.
func (a *Arena) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return &a.nodes[id]
}

// Tag returns the node's tag name, or "" for an invalid id.
func (a *Arena) Tag(id NodeID) string {
	if n := a.Node(id); n != nil {
		return n.Tag
	}
	return ""
}

// OwnText returns the node's own (non-deep) text.
func (a *Arena) OwnText(id NodeID) string {
	if n := a.Node(id); n != nil {
		return n.Text
	}
	return ""
}

// Attr returns the named attribute and whether it is present.
func (a *Arena) Attr(id NodeID, name string) (string, bool) {
	n := a.Node(id)
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Depth returns the number of parent hops from id to the root.
func (a *Arena) Depth(id NodeID) int {
	depth := 0
	for n := a.Node(id); n != nil && n.Parent != InvalidNode; n = a.Node(n.Parent) {
		depth++
	}
	return depth
}

// TagPath renders the tag chain from the root down to id, in the form
// "body > ul > li".
func (a *Arena) TagPath(id NodeID) string {
	var tags []string
	for n := a.Node(id); n != nil; {
		tags = append(tags, n.Tag)
		if n.Parent == InvalidNode {
			break
		}
		n = a.Node(n.Parent)
	}

	var b strings.Builder
	for i := len(tags) - 1; i >= 0; i-- {
		b.WriteString(tags[i])
		if i > 0 {
			b.WriteString(" > ")
		}
	}
	return b.String()
}

// NewVisited returns a visited slice sized for one traversal of the arena.
func (a *Arena) NewVisited() []bool {
	return make([]bool, len(a.nodes))
}
