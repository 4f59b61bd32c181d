// internal/extract/flatten.go
package extract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// FlatRecord is one candidate's extraction collapsed to a single map.
// Scalar fields are first-wins and never overwritten; link and image
// lists always append. The "_path" and "_depth" keys are bookkeeping and
// must not be treated as content by later stages.
type FlatRecord struct {
	Fields map[string]string
	Links  []types.Link
	Images []types.Image
	Path   string
	Depth  int
}

// Text returns the record's accumulated text.
func (r *FlatRecord) Text() string {
	return r.Fields["text"]
}

// Flatten collapses a tree using the tree root's tag as the path and
// depth 0.
func Flatten(tree *TreeNode) *FlatRecord {
	if tree == nil {
		return &FlatRecord{Fields: map[string]string{}}
	}
	return FlattenAt(tree, tree.Tag, 0)
}

// FlattenAt collapses a tree into one FlatRecord, recording the caller's
// document context (tag path like "body > ul > li", and depth) as the
// record's provenance.
func FlattenAt(tree *TreeNode, path string, depth int) *FlatRecord {
	rec := &FlatRecord{
		Fields: make(map[string]string),
		Path:   path,
		Depth:  depth,
	}
	if tree == nil {
		return rec
	}

	var texts []string
	mergeNode(tree, rec, &texts)
	if len(texts) > 0 {
		rec.Fields["text"] = strings.Join(texts, " ")
	}
	rec.Fields["_path"] = path
	rec.Fields["_depth"] = strconv.Itoa(depth)
	return rec
}

// mergeNode folds one tree node into the running record, then its
// children in document order. Text is always kept; every other scalar is
// first-wins.
func mergeNode(n *TreeNode, rec *FlatRecord, texts *[]string) {
	if n.Text != "" {
		*texts = append(*texts, n.Text)
	}
	rec.Links = append(rec.Links, n.Links...)
	rec.Images = append(rec.Images, n.Images...)

	if len(n.Attrs) > 0 {
		names := make([]string, 0, len(n.Attrs))
		for name := range n.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			key := attrKey(name)
			if _, taken := rec.Fields[key]; taken {
				continue
			}
			rec.Fields[key] = n.Attrs[name]
		}
	}

	for _, child := range n.Children {
		mergeNode(child, rec, texts)
	}
}

// attrKey prefixes ordinary attributes with "attr_"; data attributes keep
// their own name, which already carries meaning.
func attrKey(name string) string {
	if strings.HasPrefix(name, "data-") {
		return name
	}
	return "attr_" + name
}
