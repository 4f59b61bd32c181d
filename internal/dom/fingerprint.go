// internal/dom/fingerprint.go
package dom

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the fingerprint and similarity memo caches.
const DefaultCacheSize = 4096

// ExtractionCache memoizes structural fingerprints and sibling-similarity
// scores. One cache belongs to one engine instance; both internal LRUs are
// safe for concurrent use.
type ExtractionCache struct {
	fingerprints *lru.Cache[uint64, string]
	similarities *lru.Cache[uint64, float64]
}

// NewExtractionCache builds a cache bounding each memo at size entries.
func NewExtractionCache(size int) (*ExtractionCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	fps, err := lru.New[uint64, string](size)
	if err != nil {
		return nil, err
	}
	sims, err := lru.New[uint64, float64](size)
	if err != nil {
		return nil, err
	}
	return &ExtractionCache{fingerprints: fps, similarities: sims}, nil
}

// Fingerprint returns the node's structural signature:
// "tag|childCount|sortedAttrNames". It is a heuristic for sibling
// comparison; collisions are acceptable.
func (c *ExtractionCache) Fingerprint(a *Arena, id NodeID) string {
	key := fingerprintKey(a.Generation(), id)
	if fp, ok := c.fingerprints.Get(key); ok {
		return fp
	}

	n := a.Node(id)
	if n == nil {
		return ""
	}

	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(n.Tag)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(n.Children)))
	b.WriteByte('|')
	b.WriteString(strings.Join(names, ","))

	fp := b.String()
	c.fingerprints.Add(key, fp)
	return fp
}

// Similarity scores how structurally uniform a fingerprint list is: the
// share of the most frequent fingerprint. Returns 0 for an empty list.
func (c *ExtractionCache) Similarity(fps []string) float64 {
	if len(fps) == 0 {
		return 0
	}

	sorted := make([]string, len(fps))
	copy(sorted, fps)
	sort.Strings(sorted)
	key := xxhash.Sum64String(strings.Join(sorted, "\x1f"))

	if score, ok := c.similarities.Get(key); ok {
		return score
	}

	// sorted order puts equal fingerprints next to each other
	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}

	score := float64(best) / float64(len(fps))
	c.similarities.Add(key, score)
	return score
}

// fingerprintKey mixes the arena generation with the node id. Node ids
// stay under 32 bits in practice, so the two halves never overlap.
func fingerprintKey(gen uint64, id NodeID) uint64 {
	return gen<<32 | uint64(uint32(id))
}
