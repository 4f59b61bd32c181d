// internal/extract/tree.go

// Package extract turns candidate DOM nodes into flat, field-mapped,
// deduplicated records. The stages mirror the pipeline order: tree
// extraction, flattening, field mapping, then validation and dedup.
package extract

import (
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/dom"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// TreeNode is the self-contained extraction of one candidate: the node's
// own text, attributes, links, and images, and the same recursively for
// its children. It holds no references back into the arena.
type TreeNode struct {
	Depth    int
	Tag      string
	Text     string
	Attrs    map[string]string
	Links    []types.Link
	Images   []types.Image
	Children []*TreeNode
}

// ExtractTree copies the subtree rooted at id out of the arena. The
// filter gates every node on the way down, so hidden or boilerplate
// descendants of a candidate never reach the flattened record; nil
// disables the gate. The visited slice guards against cycles; pass nil
// to allocate a fresh one for this call.
func ExtractTree(a *dom.Arena, id dom.NodeID, filter *dom.Filter, visited []bool) *TreeNode {
	if visited == nil {
		visited = a.NewVisited()
	}
	return extractNode(a, id, 0, filter, visited)
}

func extractNode(a *dom.Arena, id dom.NodeID, depth int, filter *dom.Filter, visited []bool) *TreeNode {
	n := a.Node(id)
	if n == nil || visited[id] {
		return nil
	}
	if filter != nil && filter.Skip(a, id) {
		return nil
	}
	visited[id] = true

	tree := &TreeNode{
		Depth: depth,
		Tag:   n.Tag,
		Text:  n.Text,
	}
	if len(n.Attrs) > 0 {
		tree.Attrs = make(map[string]string, len(n.Attrs))
		for name, val := range n.Attrs {
			tree.Attrs[name] = val
		}
	}

	switch n.Tag {
	case "a":
		if href, ok := n.Attrs["href"]; ok && href != "" {
			tree.Links = append(tree.Links, types.Link{
				Text: deepText(a, id, filter),
				Href: href,
			})
		}
	case "img":
		if src, ok := n.Attrs["src"]; ok && src != "" {
			tree.Images = append(tree.Images, types.Image{
				Src: src,
				Alt: n.Attrs["alt"],
			})
		}
	}

	for _, child := range n.Children {
		if sub := extractNode(a, child, depth+1, filter, visited); sub != nil {
			tree.Children = append(tree.Children, sub)
		}
	}
	return tree
}

// deepText joins a node's own text with all descendant text in document
// order, gated by the same filter as the extraction. Used for link
// labels, whose text usually sits in child spans.
func deepText(a *dom.Arena, id dom.NodeID, filter *dom.Filter) string {
	n := a.Node(id)
	if n == nil {
		return ""
	}
	parts := make([]string, 0, 1+len(n.Children))
	if n.Text != "" {
		parts = append(parts, n.Text)
	}
	for _, child := range n.Children {
		if filter != nil && filter.Skip(a, child) {
			continue
		}
		if sub := deepText(a, child, filter); sub != "" {
			parts = append(parts, sub)
		}
	}
	return strings.Join(parts, " ")
}
