// pkg/types/types.go
package types

import (
	"strings"
	"time"
)

// Link is a hyperlink captured while extracting a candidate node.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Image is an image reference captured while extracting a candidate node.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Record is one extracted record: the caller's requested fields plus the
// links, images, and provenance the extractor saw at the candidate node.
// Every requested field is present in Fields; unresolved fields hold the
// configured sentinel value, never an empty map entry.
type Record struct {
	Fields map[string]string `json:"fields"`
	Links  []Link            `json:"links,omitempty"`
	Images []Image           `json:"images,omitempty"`
	Path   string            `json:"path,omitempty"`
	Depth  int               `json:"depth,omitempty"`
}

// Get returns the value of a field, or "" when the field is absent.
func (r *Record) Get(field string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// FieldNames returns the record's field names. Keys starting with an
// underscore are bookkeeping, not content, and are omitted.
func (r *Record) FieldNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		if strings.HasPrefix(name, "_") {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Fields: make(map[string]string, len(r.Fields)),
		Path:   r.Path,
		Depth:  r.Depth,
	}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	if len(r.Links) > 0 {
		out.Links = append([]Link(nil), r.Links...)
	}
	if len(r.Images) > 0 {
		out.Images = append([]Image(nil), r.Images...)
	}
	return out
}

// ExtractStats summarizes what one extraction run did.
type ExtractStats struct {
	NodesDiscovered  int           `json:"nodes_discovered"`
	LevelsScanned    int           `json:"levels_scanned"`
	PatternsDetected int           `json:"patterns_detected"`
	RecordsDropped   int           `json:"records_dropped"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Result is the outcome of one extraction run. Partial means the run ended
// before exhausting its candidates (timeout or cancellation) and Records
// holds everything produced up to that point.
type Result struct {
	Records  []Record     `json:"records"`
	Partial  bool         `json:"partial"`
	TimedOut bool         `json:"timed_out"`
	Stats    ExtractStats `json:"stats"`
}

// ActionPriority orders suggested follow-up actions.
type ActionPriority string

const (
	PriorityHigh   ActionPriority = "high"
	PriorityMedium ActionPriority = "medium"
	PriorityLow    ActionPriority = "low"
)

// Rank maps a priority to a sortable position, high first.
func (p ActionPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// IsValid checks if the priority is a known value.
func (p ActionPriority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// SuggestedAction is one follow-up step for recovering a missing field.
type SuggestedAction struct {
	Action      string         `json:"action"`
	Field       string         `json:"field"`
	Description string         `json:"description"`
	Priority    ActionPriority `json:"priority"`
}

// ValidationReport scores an extracted record set against the fields the
// caller asked for.
type ValidationReport struct {
	Valid            bool              `json:"valid"`
	Complete         bool              `json:"complete"`
	MissingFields    []string          `json:"missing_fields"`
	PresentFields    []string          `json:"present_fields"`
	Coverage         float64           `json:"coverage"`
	Confidence       float64           `json:"confidence"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}

// SelectorEntry is the persisted per-domain selector memory. Domain keys
// are normalized (lowercase, leading "www." stripped) before storage.
type SelectorEntry struct {
	Domain    string            `json:"domain"`
	Selectors map[string]string `json:"selectors"`
	LearnedAt time.Time         `json:"learned_at"`
	Fields    []string          `json:"fields"`
	UseCount  int               `json:"use_count"`
}

// Stale reports whether the entry is older than ttl at the given instant.
func (e *SelectorEntry) Stale(ttl time.Duration, now time.Time) bool {
	if e == nil {
		return true
	}
	return now.Sub(e.LearnedAt) > ttl
}

// Covers reports whether the entry holds a selector for every field.
func (e *SelectorEntry) Covers(fields []string) bool {
	if e == nil {
		return false
	}
	for _, f := range fields {
		if _, ok := e.Selectors[f]; !ok {
			return false
		}
	}
	return true
}

// ToolPerformance is the persisted per-(site, tool) success history used
// to rank interchangeable extraction strategies.
type ToolPerformance struct {
	Tool        string     `json:"tool_name"`
	Site        string     `json:"site"`
	Total       int        `json:"total_attempts"`
	Successes   int        `json:"successful_attempts"`
	Failures    int        `json:"failed_attempts"`
	Recent      []bool     `json:"recent_successes"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
}

// Reliability blends the lifetime success rate with the mean of the recent
// outcome window using the supplied weights.
func (p *ToolPerformance) Reliability(lifetimeWeight, recentWeight float64) float64 {
	if p == nil || p.Total == 0 {
		return 0
	}
	lifetime := float64(p.Successes) / float64(p.Total)
	recent := lifetime
	if len(p.Recent) > 0 {
		hits := 0
		for _, ok := range p.Recent {
			if ok {
				hits++
			}
		}
		recent = float64(hits) / float64(len(p.Recent))
	}
	return lifetimeWeight*lifetime + recentWeight*recent
}
