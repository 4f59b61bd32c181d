// internal/dom/filter.go
package dom

import "strings"

// defaultSkipTags are never worth descending into for record content.
var defaultSkipTags = []string{"script", "style", "noscript", "iframe", "svg", "path"}

// defaultDenyClasses mark boilerplate: any class attribute containing one
// of these substrings disqualifies the node.
var defaultDenyClasses = []string{
	"ad", "advertisement", "banner", "cookie",
	"social-share", "newsletter", "popup", "modal", "overlay",
}

// Filter is a pure keep/skip predicate over arena nodes. It has no state
// beyond its deny lists and is safe for concurrent use.
type Filter struct {
	skipTags    map[string]struct{}
	denyClasses []string
}

// NewFilter returns a filter with the default deny lists.
func NewFilter() *Filter {
	return NewFilterWith(defaultSkipTags, defaultDenyClasses)
}

// NewFilterWith builds a filter from explicit deny lists.
func NewFilterWith(skipTags, denyClasses []string) *Filter {
	f := &Filter{
		skipTags:    make(map[string]struct{}, len(skipTags)),
		denyClasses: make([]string, len(denyClasses)),
	}
	for _, tag := range skipTags {
		f.skipTags[strings.ToLower(tag)] = struct{}{}
	}
	for i, class := range denyClasses {
		f.denyClasses[i] = strings.ToLower(class)
	}
	return f
}

// Skip reports whether the node should be excluded from discovery and
// extraction: scripts and frames, ad-like classes, and hidden elements.
func (f *Filter) Skip(a *Arena, id NodeID) bool {
	n := a.Node(id)
	if n == nil {
		return true
	}

	if _, ok := f.skipTags[n.Tag]; ok {
		return true
	}

	if class, ok := n.Attrs["class"]; ok {
		lower := strings.ToLower(class)
		for _, deny := range f.denyClasses {
			if strings.Contains(lower, deny) {
				return true
			}
		}
	}

	if style, ok := n.Attrs["style"]; ok && hiddenByStyle(style) {
		return true
	}

	if _, ok := n.Attrs["hidden"]; ok {
		return true
	}
	if aria, ok := n.Attrs["aria-hidden"]; ok && strings.TrimSpace(strings.ToLower(aria)) == "true" {
		return true
	}

	return false
}

// hiddenByStyle matches display:none / visibility:hidden regardless of
// case and internal whitespace.
func hiddenByStyle(style string) bool {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, strings.ToLower(style))
	return strings.Contains(compact, "display:none") ||
		strings.Contains(compact, "visibility:hidden")
}
