// internal/engine/engine.go

// Package engine assembles the extraction pipeline behind a single
// facade. An Engine owns the parsed-DOM caches, the breadth-first
// discoverer, the pattern detector, the worker pool, and the learned
// intelligence (selector cache, reliability scores), and exposes two
// entry points: Extract for targeted field extraction and ExtractAll
// for the coarse everything sweep.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/browser"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/discovery"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/dom"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/extract"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/intel"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/monitoring"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Tool names under which extraction strategies are scored per site.
const (
	ToolCachedSelectors = "cached-selectors"
	ToolFullDiscovery   = "full-discovery"
)

// Request describes one extraction call.
type Request struct {
	// HTML is the document to extract from.
	HTML string

	// Domain keys the selector cache and reliability scores. Empty
	// disables both; the run still works, it just cannot learn.
	Domain string

	// Fields to extract. Empty falls back to the configured defaults.
	Fields []string

	// Limit caps returned records. Zero falls back to the configured
	// limit; negative means unbounded.
	Limit int

	// Sink receives records progressively as they survive dedup.
	// Optional; the Result accumulates them either way.
	Sink Sink
}

// Engine is the assembled pipeline. Safe for sequential reuse; a single
// Engine shares its caches and learned intelligence across calls.
type Engine struct {
	cfg    *config.Config
	logger utils.Logger
	clock  Clock

	metrics      *monitoring.Manager
	store        intel.Store
	selectors    *intel.SelectorCache
	reliability  *intel.ReliabilityManager
	completeness *intel.CompletenessValidator

	cache      *dom.ExtractionCache
	filter     *dom.Filter
	discoverer *discovery.Discoverer
	detector   *discovery.Detector

	pool        *WorkerPool
	coordinator *Coordinator
	sweeper     *Sweeper

	driver   browser.Driver
	sentinel string

	ownsStore  bool
	ownsDriver bool
}

// Option customizes an Engine during New.
type Option func(*Engine)

// WithLogger replaces the level-filtered default logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore injects a pre-built intelligence store. The caller keeps
// ownership; Close will not close an injected store.
func WithStore(store intel.Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithDriver injects a live-DOM driver, typically a shared browser
// pool entry. The caller keeps ownership.
func WithDriver(driver browser.Driver) Option {
	return func(e *Engine) { e.driver = driver }
}

// WithMetrics injects a metrics manager, letting several engines share
// one registry.
func WithMetrics(m *monitoring.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock injects a time source for tests.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// New assembles an engine from cfg. A nil cfg selects the shipped
// defaults.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "engine configuration rejected")
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	}
	if e.clock == nil {
		e.clock = SystemClock()
	}
	if e.metrics == nil && cfg.Metrics.Enabled {
		e.metrics = monitoring.NewManager()
	}

	if e.store == nil {
		store, err := intel.NewStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		e.store = store
		e.ownsStore = true
	}

	e.sentinel = cfg.Extraction.Sentinel
	if e.sentinel == "" {
		e.sentinel = extract.DefaultSentinel
	}

	e.selectors = intel.NewSelectorCache(e.store, cfg.SelectorCache, e.logger)
	e.reliability = intel.NewReliabilityManager(e.store, cfg.Reliability, e.logger)
	e.completeness = intel.NewCompletenessValidator(e.sentinel)

	cache, err := dom.NewExtractionCache(cfg.Extraction.CacheSize)
	if err != nil {
		return nil, err
	}
	e.cache = cache
	e.filter = dom.NewFilter()
	e.discoverer = discovery.NewDiscoverer(cfg.Discovery, e.filter, e.cache, e.logger)
	e.detector = discovery.NewDetector(cfg.Patterns, e.cache)

	e.pool = NewWorkerPool(cfg.Extraction.Workers, cfg.Extraction.Workers*4)
	e.coordinator = NewCoordinator(CoordinatorOptions{
		Discoverer: e.discoverer,
		Detector:   e.detector,
		Filter:     e.filter,
		Extraction: cfg.Extraction,
		Patterns:   cfg.Patterns,
		Pool:       e.pool,
		Metrics:    e.metrics,
		Logger:     e.logger,
		Clock:      e.clock,
	})
	e.sweeper = NewSweeper(SweeperOptions{
		Sweep:      cfg.Sweep,
		Extraction: cfg.Extraction,
		Metrics:    e.metrics,
		Logger:     e.logger,
		Clock:      e.clock,
	})

	if e.driver == nil && cfg.Browser != nil && cfg.Browser.Enabled {
		driver, err := browser.NewChromeDriver(cfg.Browser)
		if err != nil {
			return nil, err
		}
		e.driver = driver
		e.ownsDriver = true
	}

	return e, nil
}

// Extract pulls the requested fields out of req.HTML. When the domain
// has fresh learned selectors covering the fields, the cheap selector
// path answers without any tree walk; otherwise the full
// discover-detect-extract pipeline runs, and its records feed the
// selector learner when a live driver is available.
//
// Finding nothing is not an error: a valid document with no repeating
// records returns an empty Result. A budget expiry returns whatever
// was extracted with Partial set.
func (e *Engine) Extract(ctx context.Context, req Request) (*types.Result, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidInput, "no HTML to extract from")
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = e.cfg.Fields
	}
	limit := req.Limit
	if limit == 0 {
		limit = e.cfg.Limit
	}
	domain := utils.NormalizeDomain(req.Domain)
	start := e.clock.Now()

	if domain != "" {
		if result := e.tryFastPath(ctx, domain, req.HTML, fields, limit, req.Sink, start); result != nil {
			return result, nil
		}
	}

	arena, err := dom.ParseString(req.HTML)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeParsingError, "failed to parse document")
	}

	result, err := e.coordinator.Run(ctx, arena, fields, limit, req.Sink)
	if err != nil {
		e.metrics.RecordExtraction("error", 0, e.clock.Now().Sub(start))
		return nil, err
	}
	elapsed := e.clock.Now().Sub(start)

	if domain != "" {
		e.recordOutcome(ctx, domain, ToolFullDiscovery, len(result.Records) > 0, elapsed)
		e.learn(ctx, domain, fields, result.Records)
	}

	outcome := "done"
	if result.TimedOut {
		outcome = "timeout"
	}
	e.metrics.RecordExtraction(outcome, len(result.Records), elapsed)
	return result, nil
}

// tryFastPath answers from learned selectors, or returns nil when the
// cache cannot serve this request and the full pipeline must run.
func (e *Engine) tryFastPath(ctx context.Context, domain, html string, fields []string, limit int, sink Sink, start time.Time) *types.Result {
	selectors := e.selectors.Lookup(ctx, domain, fields)
	if selectors == nil {
		e.metrics.RecordFastPath(false)
		return nil
	}

	records := e.selectors.FastPath(html, selectors, fields, limit, e.sentinel)
	if len(records) == 0 {
		// Selectors are known but match nothing in this document, so
		// the page layout likely changed. Fall through to rediscovery.
		e.metrics.RecordFastPath(false)
		e.recordOutcome(ctx, domain, ToolCachedSelectors, false, e.clock.Now().Sub(start))
		return nil
	}

	if sink != nil {
		for _, rec := range records {
			sink.Append(rec)
		}
	}

	elapsed := e.clock.Now().Sub(start)
	e.metrics.RecordFastPath(true)
	e.recordOutcome(ctx, domain, ToolCachedSelectors, true, elapsed)
	e.metrics.RecordExtraction("fastpath", len(records), elapsed)
	e.logger.Infof("fast path served %d records for %s", len(records), domain)

	return &types.Result{
		Records: records,
		Stats:   types.ExtractStats{Elapsed: elapsed},
	}
}

// learn feeds successful extractions to the selector learner. Learning
// is best effort: a failure is logged, never surfaced to the caller.
func (e *Engine) learn(ctx context.Context, domain string, fields []string, records []types.Record) {
	if e.driver == nil || len(records) == 0 {
		return
	}
	if err := e.selectors.Learn(ctx, e.driver, domain, fields, records); err != nil {
		e.logger.Warnf("selector learning failed for %s: %v", domain, err)
		return
	}
	e.metrics.RecordSelectorsLearned(len(fields))
}

// recordOutcome updates the per-site tool score. Best effort.
func (e *Engine) recordOutcome(ctx context.Context, site, tool string, success bool, latency time.Duration) {
	if err := e.reliability.Record(ctx, site, tool, success, latency); err != nil {
		e.logger.Warnf("failed to record %s outcome for %s: %v", tool, site, err)
		return
	}
	e.metrics.RecordReliabilityUpdate()
}

// ExtractAll sweeps every structural category of req.HTML without a
// field list. Unlike Extract, a sweep that finds nothing is a hard
// failure: the caller asked for everything and got nothing, which
// means the document itself carries no extractable structure.
func (e *Engine) ExtractAll(ctx context.Context, req Request) (*types.Result, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidInput, "no HTML to sweep")
	}

	limit := req.Limit
	if limit == 0 {
		limit = e.cfg.Limit
	}

	result, err := e.sweeper.Run(ctx, req.HTML, limit, req.Sink)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 && !result.TimedOut {
		return nil, utils.NewError(utils.ErrCodeNoDataFound, "sweep found no extractable content")
	}
	return result, nil
}

// CachedSelectors reports the learned selectors for a domain, or nil
// when the cache has nothing fresh covering the fields.
func (e *Engine) CachedSelectors(ctx context.Context, domain string, fields []string) map[string]string {
	return e.selectors.Lookup(ctx, utils.NormalizeDomain(domain), fields)
}

// RecordToolOutcome feeds an externally observed tool outcome into the
// per-site reliability scores.
func (e *Engine) RecordToolOutcome(ctx context.Context, site, tool string, success bool, latency time.Duration) error {
	if err := e.reliability.Record(ctx, site, tool, success, latency); err != nil {
		return err
	}
	e.metrics.RecordReliabilityUpdate()
	return nil
}

// FallbackChain orders candidate tools for a site, best first.
func (e *Engine) FallbackChain(ctx context.Context, site string, candidates []string) ([]string, error) {
	return e.reliability.FallbackChain(ctx, site, candidates)
}

// BestTool picks the highest-scoring candidate for a site.
func (e *Engine) BestTool(ctx context.Context, site string, candidates []string) (string, float64, error) {
	return e.reliability.BestTool(ctx, site, candidates)
}

// ValidateCompleteness reports how completely records cover the
// required fields, with suggested follow-up actions for gaps.
func (e *Engine) ValidateCompleteness(records []types.Record, required []string) *types.ValidationReport {
	return e.completeness.Validate(records, required)
}

// State reports the coordinator's position in its most recent run.
func (e *Engine) State() State {
	return e.coordinator.State()
}

// DiscoveryCalls reports how many breadth-first walks this engine has
// run. The fast path answers without one.
func (e *Engine) DiscoveryCalls() int64 {
	return e.discoverer.Calls()
}

// Metrics exposes the engine's metrics manager, nil when disabled.
func (e *Engine) Metrics() *monitoring.Manager {
	return e.metrics
}

// Close flushes learned state and releases owned resources. Injected
// stores and drivers stay open for their owners.
func (e *Engine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var first error
	if err := e.reliability.Flush(ctx); err != nil {
		first = err
	}
	if e.ownsDriver && e.driver != nil {
		if err := e.driver.Close(); err != nil && first == nil {
			first = err
		}
	}
	if e.ownsStore {
		if err := e.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.pool.Close()
	return first
}
