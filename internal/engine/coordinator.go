// internal/engine/coordinator.go
package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/discovery"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/dom"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/extract"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/monitoring"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// State names the coordinator's position in the extraction lifecycle.
type State int32

const (
	StateIdle State = iota
	StateDiscovering
	StatePatternDetecting
	StateExtracting
	StateDraining
	StateDone
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StatePatternDetecting:
		return "pattern_detecting"
	case StateExtracting:
		return "extracting"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Default tuning for direct construction; config normally overrides.
const (
	DefaultBudget              = 45 * time.Second
	DefaultMinTextLength       = 20
	DefaultSimilarityThreshold = 0.7
	DefaultMaxLowScoreLevels   = 3
)

// CoordinatorOptions wires a coordinator's collaborators.
type CoordinatorOptions struct {
	Discoverer *discovery.Discoverer
	Detector   *discovery.Detector
	Filter     *dom.Filter
	Extraction config.ExtractionConfig
	Patterns   config.PatternConfig
	Pool       *WorkerPool
	Metrics    *monitoring.Manager
	Logger     utils.Logger
	Clock      Clock
}

// Coordinator drives one extraction run through its states: discover
// candidate levels, detect sibling patterns, extract pattern members
// best-score-first, and drain. Timeouts are soft: whatever reached the
// sink before expiry is returned with Partial set.
type Coordinator struct {
	discoverer *discovery.Discoverer
	detector   *discovery.Detector
	filter     *dom.Filter
	mapper     *extract.Mapper
	validator  *extract.Validator
	cfg        config.ExtractionConfig
	patterns   config.PatternConfig
	pool       *WorkerPool
	metrics    *monitoring.Manager
	logger     utils.Logger
	clock      Clock

	state atomic.Int32
}

func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}

	minText := opts.Extraction.MinTextLength
	if minText <= 0 {
		minText = DefaultMinTextLength
	}

	// Extraction applies the same node gate as discovery, so filtered
	// content cannot re-enter through a candidate's subtree.
	filter := opts.Filter
	if filter == nil {
		filter = dom.NewFilter()
	}

	return &Coordinator{
		discoverer: opts.Discoverer,
		detector:   opts.Detector,
		filter:     filter,
		mapper:     extract.NewMapper(opts.Extraction.Sentinel),
		validator:  extract.NewValidator(minText),
		cfg:        opts.Extraction,
		patterns:   opts.Patterns,
		pool:       opts.Pool,
		metrics:    opts.Metrics,
		logger:     logger,
		clock:      clock,
	}
}

// State reports the coordinator's position in its most recent run.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debugf("coordinator state: %s", s)
}

// levelPlan is one level's detection outcome, extracted in level order.
type levelPlan struct {
	level    int
	patterns []discovery.Pattern
	best     float64
}

// siblingResult carries one candidate's mapped record or its drop
// reason out of the worker pool.
type siblingResult struct {
	record types.Record
	ok     bool
	reason string
}

// runState is the mutable bookkeeping of one Run call. It lives on the
// stack so concurrent runs never share it.
type runState struct {
	count    int
	lowScore int
	timedOut bool
	limitHit bool
	stats    types.ExtractStats
}

// Run executes the full pipeline over a parsed arena. A non-positive
// limit means unbounded. sink may be nil; records are also accumulated
// into the returned Result either way.
func (c *Coordinator) Run(ctx context.Context, arena *dom.Arena, fields []string, limit int, sink Sink) (*types.Result, error) {
	if arena == nil || arena.Len() == 0 {
		c.setState(StateFailed)
		return nil, utils.NewError(utils.ErrCodeInvalidInput, "no document to extract from")
	}

	start := c.clock.Now()
	budget := c.cfg.Budget.Std()
	if budget <= 0 {
		budget = DefaultBudget
	}
	deadline := start.Add(budget)

	run := &runState{}
	collector := NewCollector()

	c.setState(StateDiscovering)
	levels := c.discoverer.Discover(ctx, arena)
	run.stats.NodesDiscovered = levels.Count()
	c.metrics.RecordDiscovery(run.stats.NodesDiscovered)

	c.setState(StatePatternDetecting)
	plan := make([]levelPlan, 0, len(levels))
	for _, depth := range levels.Depths() {
		patterns, best := c.detector.DetectLevel(depth, levels[depth])
		plan = append(plan, levelPlan{level: depth, patterns: patterns, best: best})
		run.stats.PatternsDetected += len(patterns)
	}
	c.metrics.RecordPatterns(run.stats.PatternsDetected)

	// Best level first. Shallow container levels (html, head/body)
	// score near zero and would otherwise burn the low-score allowance
	// before the walk ever reaches the repeated rows. Stable sort keeps
	// equal-scoring levels in ascending depth order.
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].best > plan[j].best
	})

	c.setState(StateExtracting)
	deduper := extract.NewDeduper(c.cfg.SignatureValueLength)

extracting:
	for _, lp := range plan {
		if c.expired(deadline) || ctx.Err() != nil {
			run.timedOut = true
			c.metrics.RecordTimeout("extract")
			break
		}

		run.stats.LevelsScanned++
		c.metrics.RecordLevelScanned()

		if lp.best < c.threshold() {
			run.lowScore++
			if run.lowScore >= c.maxLowScoreLevels() {
				c.logger.Debugf("hybrid exit: %d consecutive levels below %.2f",
					run.lowScore, c.threshold())
				break
			}
			continue
		}
		run.lowScore = 0

		for _, pattern := range lp.patterns {
			if c.extractPattern(ctx, arena, pattern, fields, limit, deadline, deduper, collector, sink, run) {
				break extracting
			}
		}
	}

	c.setState(StateDraining)
	run.stats.Elapsed = c.clock.Now().Sub(start)

	if run.timedOut {
		c.setState(StateTimedOut)
		c.logger.Warnf("extraction budget expired after %s with %d records",
			utils.FormatDuration(run.stats.Elapsed), run.count)
	} else {
		c.setState(StateDone)
	}

	return &types.Result{
		Records:  collector.Records(),
		Partial:  run.timedOut,
		TimedOut: run.timedOut,
		Stats:    run.stats,
	}, nil
}

// extractPattern runs one sibling group through the pool, then feeds
// the ordered results through dedup and the sink. Returns true when the
// whole run should stop.
func (c *Coordinator) extractPattern(ctx context.Context, arena *dom.Arena, pattern discovery.Pattern, fields []string, limit int, deadline time.Time, deduper *extract.Deduper, collector *Collector, sink Sink, run *runState) bool {
	results := make([]siblingResult, len(pattern.Nodes))

	var wg sync.WaitGroup
	for i, id := range pattern.Nodes {
		i, id := i, id
		wg.Add(1)
		err := c.pool.Submit(ctx, func() {
			defer wg.Done()
			results[i] = c.extractSibling(arena, id, pattern.Level, fields)
		})
		if err != nil {
			wg.Done()
			results[i] = siblingResult{reason: "cancelled"}
		}
	}
	wg.Wait()

	for _, res := range results {
		if c.expired(deadline) || ctx.Err() != nil {
			run.timedOut = true
			c.metrics.RecordTimeout("extract")
			return true
		}
		if !res.ok {
			run.stats.RecordsDropped++
			c.metrics.RecordDrop(res.reason)
			continue
		}
		if !deduper.Add(res.record) {
			run.stats.RecordsDropped++
			c.metrics.RecordDrop("duplicate")
			continue
		}

		collector.Append(res.record)
		if sink != nil {
			sink.Append(res.record)
		}
		run.count++
		if limit > 0 && run.count >= limit {
			run.limitHit = true
			return true
		}
	}
	return false
}

// extractSibling is the per-candidate pipeline: DFS extract, flatten
// with document provenance, validate, map. Nodes that fail any step are
// reported with their drop reason rather than aborting the pattern.
func (c *Coordinator) extractSibling(arena *dom.Arena, id dom.NodeID, level int, fields []string) siblingResult {
	tree := extract.ExtractTree(arena, id, c.filter, nil)
	if tree == nil {
		return siblingResult{reason: "malformed"}
	}

	flat := extract.FlattenAt(tree, arena.TagPath(id), level)
	if !c.validator.Valid(flat) {
		return siblingResult{reason: "invalid"}
	}

	return siblingResult{record: c.mapper.Map(flat, fields), ok: true}
}

func (c *Coordinator) expired(deadline time.Time) bool {
	return c.clock.Now().After(deadline)
}

func (c *Coordinator) threshold() float64 {
	if c.patterns.SimilarityThreshold > 0 {
		return c.patterns.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}

func (c *Coordinator) maxLowScoreLevels() int {
	if c.patterns.MaxLowScoreLevels > 0 {
		return c.patterns.MaxLowScoreLevels
	}
	return DefaultMaxLowScoreLevels
}
