// internal/discovery/patterns.go
package discovery

import (
	"sort"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/dom"
)

// Pattern is a group of same-parent siblings judged similar enough to
// represent one repeated structure (table rows, product cards, ...).
type Pattern struct {
	Parent dom.NodeID
	Level  int
	Nodes  []dom.NodeID
	Score  float64
}

// Detector finds repeated sibling structures with no per-site
// configuration: group by parent, score by fingerprint similarity.
type Detector struct {
	cfg   config.PatternConfig
	cache *dom.ExtractionCache
}

// NewDetector builds a detector sharing the engine's extraction cache.
func NewDetector(cfg config.PatternConfig, cache *dom.ExtractionCache) *Detector {
	return &Detector{cfg: cfg, cache: cache}
}

// DetectLevel groups one level's records by parent and scores each group
// of at least MinSiblings members. It returns the qualifying patterns
// sorted by score descending, plus the best score seen across all groups
// of the level whether or not it qualified.
func (d *Detector) DetectLevel(level int, records []NodeRecord) ([]Pattern, float64) {
	if len(records) == 0 {
		return nil, 0
	}

	// group by parent, preserving first-seen parent order for stable output
	parents := make([]dom.NodeID, 0)
	groups := make(map[dom.NodeID][]NodeRecord)
	for _, rec := range records {
		if _, seen := groups[rec.Parent]; !seen {
			parents = append(parents, rec.Parent)
		}
		groups[rec.Parent] = append(groups[rec.Parent], rec)
	}

	var patterns []Pattern
	best := 0.0
	for _, parent := range parents {
		group := groups[parent]
		if len(group) < d.cfg.MinSiblings {
			continue
		}

		fps := make([]string, len(group))
		for i, rec := range group {
			fps[i] = rec.Fingerprint
		}
		score := d.cache.Similarity(fps)
		if score > best {
			best = score
		}
		if score < d.cfg.SimilarityThreshold {
			continue
		}

		nodes := make([]dom.NodeID, len(group))
		for i, rec := range group {
			nodes[i] = rec.ID
		}
		patterns = append(patterns, Pattern{
			Parent: parent,
			Level:  level,
			Nodes:  nodes,
			Score:  score,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Score > patterns[j].Score
	})
	return patterns, best
}

// Detect runs DetectLevel over every level and returns all qualifying
// patterns across levels sorted by score descending.
func (d *Detector) Detect(levels Levels) []Pattern {
	var all []Pattern
	for _, depth := range levels.Depths() {
		patterns, _ := d.DetectLevel(depth, levels[depth])
		all = append(all, patterns...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	return all
}
