// internal/discovery/bfs.go

// Package discovery walks the DOM arena breadth-first and detects the
// repeated sibling structures worth extracting. It is deliberately biased
// toward shallow trees: speed over exhaustiveness.
package discovery

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/dom"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
)

// NodeRecord is one discovered candidate: where it sits in the tree and
// what it looks like structurally. Level maps own these records; they are
// discarded once pattern detection has run.
type NodeRecord struct {
	ID          dom.NodeID
	Parent      dom.NodeID
	Level       int
	Fingerprint string
}

// Levels maps BFS depth to the records discovered there.
type Levels map[int][]NodeRecord

// Count returns the total number of records across all levels.
func (l Levels) Count() int {
	total := 0
	for _, records := range l {
		total += len(records)
	}
	return total
}

// Depths returns the discovered levels in ascending order.
func (l Levels) Depths() []int {
	depths := make([]int, 0, len(l))
	for depth := range l {
		depths = append(depths, depth)
	}
	sort.Ints(depths)
	return depths
}

// Discoverer runs filtered, depth- and queue-bounded BFS walks.
type Discoverer struct {
	cfg    config.DiscoveryConfig
	filter *dom.Filter
	cache  *dom.ExtractionCache
	logger utils.Logger
	calls  atomic.Int64
}

// NewDiscoverer builds a discoverer. A nil logger disables logging.
func NewDiscoverer(cfg config.DiscoveryConfig, filter *dom.Filter, cache *dom.ExtractionCache, logger utils.Logger) *Discoverer {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Discoverer{cfg: cfg, filter: filter, cache: cache, logger: logger}
}

// Calls returns how many discovery walks have run on this instance. The
// cached-selector fast path is expected to leave this untouched.
func (d *Discoverer) Calls() int64 {
	return d.calls.Load()
}

type frontierItem struct {
	id    dom.NodeID
	level int
}

// Discover walks the arena breadth-first from the root, gating every node
// through the filter before recording it and before enqueueing its
// children. The walk stops early when the frontier exceeds the configured
// ceiling or the context is cancelled; whatever was collected so far is
// returned either way.
func (d *Discoverer) Discover(ctx context.Context, a *dom.Arena) Levels {
	d.calls.Add(1)

	maxDepth := d.cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = d.estimateDepth(a)
	}

	levels := make(Levels)
	root := a.Root()
	if root == dom.InvalidNode {
		return levels
	}

	visited := a.NewVisited()
	queue := []frontierItem{{id: root, level: 0}}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			d.logger.Debugf("discovery cancelled with %d nodes collected", levels.Count())
			return levels
		default:
		}

		if len(queue) > d.cfg.QueueCeiling {
			d.logger.Warnf("discovery frontier exceeded %d, stopping early", d.cfg.QueueCeiling)
			return levels
		}

		item := queue[0]
		queue = queue[1:]

		if visited[item.id] {
			continue
		}
		visited[item.id] = true

		if d.filter.Skip(a, item.id) {
			continue
		}

		node := a.Node(item.id)
		levels[item.level] = append(levels[item.level], NodeRecord{
			ID:          item.id,
			Parent:      node.Parent,
			Level:       item.level,
			Fingerprint: d.cache.Fingerprint(a, item.id),
		})

		if item.level >= maxDepth {
			continue
		}
		for _, child := range node.Children {
			queue = append(queue, frontierItem{id: child, level: item.level + 1})
		}
	}

	d.logger.Debugf("discovery collected %d nodes across %d levels (max depth %d)",
		levels.Count(), len(levels), maxDepth)
	return levels
}

// estimateDepth samples up to SampleSize nodes, walks each parent chain at
// most ParentHops hops, and averages what it saw. The result is capped at
// DepthCap; DefaultDepth covers the degenerate cases.
func (d *Discoverer) estimateDepth(a *dom.Arena) int {
	if a.Len() == 0 || d.cfg.SampleSize <= 0 {
		return d.cfg.DefaultDepth
	}

	stride := a.Len() / d.cfg.SampleSize
	if stride < 1 {
		stride = 1
	}

	total, count := 0, 0
	for id := 0; id < a.Len(); id += stride {
		hops := 0
		for n := a.Node(dom.NodeID(id)); n != nil && n.Parent != dom.InvalidNode && hops < d.cfg.ParentHops; n = a.Node(n.Parent) {
			hops++
		}
		total += hops
		count++
		if count >= d.cfg.SampleSize {
			break
		}
	}

	if count == 0 {
		return d.cfg.DefaultDepth
	}

	estimate := int(math.Round(float64(total) / float64(count)))
	if estimate <= 0 {
		return d.cfg.DefaultDepth
	}
	if estimate > d.cfg.DepthCap {
		estimate = d.cfg.DepthCap
	}
	return estimate
}
