// internal/extract/mapping.go
package extract

import (
	"sort"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// DefaultSentinel fills fields that could not be resolved. Callers see a
// string, never a null.
const DefaultSentinel = "Not available"

var (
	urlHints   = []string{"url", "link", "href"}
	imageHints = []string{"image", "img", "photo"}
	titleHints = []string{"title", "headline", "name"}
)

// Mapper resolves the caller's requested field names against a
// FlatRecord: substring match first, semantic fallback second, raw text
// third, sentinel last.
type Mapper struct {
	sentinel string
}

// NewMapper builds a mapper; an empty sentinel selects DefaultSentinel.
func NewMapper(sentinel string) *Mapper {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Mapper{sentinel: sentinel}
}

// Sentinel returns the value used for unresolved fields.
func (m *Mapper) Sentinel() string {
	return m.sentinel
}

// Map produces a record holding exactly the requested fields, with the
// flat record's links, images, and provenance carried over.
func (m *Mapper) Map(flat *FlatRecord, fields []string) types.Record {
	rec := types.Record{
		Fields: make(map[string]string, len(fields)),
		Links:  flat.Links,
		Images: flat.Images,
		Path:   flat.Path,
		Depth:  flat.Depth,
	}

	// deterministic key order for the substring scan
	keys := make([]string, 0, len(flat.Fields))
	for key := range flat.Fields {
		if strings.HasPrefix(key, "_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, field := range fields {
		rec.Fields[field] = m.resolve(flat, keys, field)
	}
	return rec
}

func (m *Mapper) resolve(flat *FlatRecord, keys []string, field string) string {
	lower := strings.ToLower(field)

	// direct: the field name appears in a flat key
	for _, key := range keys {
		if !strings.Contains(strings.ToLower(key), lower) {
			continue
		}
		if val := flat.Fields[key]; val != "" {
			return val
		}
	}

	// semantic: keyword families with obvious sources
	switch {
	case containsAny(lower, urlHints):
		if len(flat.Links) > 0 && flat.Links[0].Href != "" {
			return flat.Links[0].Href
		}
	case containsAny(lower, imageHints):
		if len(flat.Images) > 0 && flat.Images[0].Src != "" {
			return flat.Images[0].Src
		}
	case containsAny(lower, titleHints):
		if line := firstLine(flat.Text()); line != "" {
			return line
		}
	}

	// raw text beats a sentinel
	if text := strings.TrimSpace(flat.Text()); text != "" {
		return text
	}
	return m.sentinel
}

func containsAny(s string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
