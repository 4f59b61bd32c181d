// internal/intel/reliability.go
package intel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// ReliabilityManager tracks per-site success rates of extraction tools
// and ranks tools for the next attempt. Updates accumulate in memory
// and flush to the store every PersistEvery records, so a crash loses
// at most a handful of outcomes.
type ReliabilityManager struct {
	store  Store
	cfg    config.ReliabilityConfig
	logger utils.Logger
	clock  func() time.Time

	mu    sync.Mutex
	perf  map[string]*types.ToolPerformance
	dirty map[string]int
}

func NewReliabilityManager(store Store, cfg config.ReliabilityConfig, logger utils.Logger) *ReliabilityManager {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &ReliabilityManager{
		store:  store,
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
		perf:   make(map[string]*types.ToolPerformance),
		dirty:  make(map[string]int),
	}
}

// Record logs one attempt outcome for (site, tool). Latency is reported
// for observability but does not influence ranking.
func (m *ReliabilityManager) Record(ctx context.Context, site, tool string, success bool, latency time.Duration) error {
	site = utils.NormalizeDomain(site)
	if site == "" || tool == "" {
		return utils.NewError(utils.ErrCodeInvalidInput, "reliability record requires a site and a tool")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	perf, err := m.loadLocked(ctx, site, tool)
	if err != nil {
		return err
	}

	now := m.clock()
	perf.Total++
	if success {
		perf.Successes++
		perf.LastSuccess = &now
	} else {
		perf.Failures++
		perf.LastFailure = &now
	}

	perf.Recent = append(perf.Recent, success)
	if size := m.historySize(); len(perf.Recent) > size {
		perf.Recent = perf.Recent[len(perf.Recent)-size:]
	}

	m.logger.Debugf("tool %s on %s: success=%v latency=%s reliability=%.2f",
		tool, site, success, utils.FormatDuration(latency), m.score(perf))

	key := site + "\x00" + tool
	m.dirty[key]++
	if every := m.persistEvery(); m.dirty[key]%every == 0 {
		if err := m.store.PutToolPerformance(ctx, perf); err != nil {
			return err
		}
		delete(m.dirty, key)
	}
	return nil
}

// Reliability returns the blended score for a history.
func (m *ReliabilityManager) Reliability(perf *types.ToolPerformance) float64 {
	return m.score(perf)
}

// FallbackChain orders candidate tools by reliability for a site. Tools
// with no recorded history keep their original relative order after the
// scored ones.
func (m *ReliabilityManager) FallbackChain(ctx context.Context, site string, candidates []string) ([]string, error) {
	site = utils.NormalizeDomain(site)

	type scored struct {
		tool  string
		score float64
	}
	var known []scored
	var unknown []string

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tool := range candidates {
		perf, err := m.peekLocked(ctx, site, tool)
		if err != nil {
			return nil, err
		}
		if perf == nil || perf.Total == 0 {
			unknown = append(unknown, tool)
			continue
		}
		known = append(known, scored{tool: tool, score: m.score(perf)})
	}

	sort.SliceStable(known, func(i, j int) bool { return known[i].score > known[j].score })

	out := make([]string, 0, len(candidates))
	for _, s := range known {
		out = append(out, s.tool)
	}
	return append(out, unknown...), nil
}

// BestTool picks the highest-scoring candidate, discounting tools with
// fewer than MinAttempts recorded attempts.
func (m *ReliabilityManager) BestTool(ctx context.Context, site string, candidates []string) (string, float64, error) {
	site = utils.NormalizeDomain(site)

	m.mu.Lock()
	defer m.mu.Unlock()

	best := ""
	bestScore := -1.0
	for _, tool := range candidates {
		perf, err := m.peekLocked(ctx, site, tool)
		if err != nil {
			return "", 0, err
		}

		score := 0.0
		if perf != nil && perf.Total > 0 {
			score = m.score(perf)
			if min := m.cfg.MinAttempts; min > 0 && perf.Total < min {
				score *= float64(perf.Total) / float64(min)
			}
		}
		if score > bestScore {
			best = tool
			bestScore = score
		}
	}
	if best == "" {
		return "", 0, utils.NewError(utils.ErrCodeInvalidInput, "no candidate tools given")
	}
	return best, bestScore, nil
}

// Flush persists every history with unsaved updates.
func (m *ReliabilityManager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.dirty {
		if perf, ok := m.perf[key]; ok {
			if err := m.store.PutToolPerformance(ctx, perf); err != nil {
				return err
			}
		}
		delete(m.dirty, key)
	}
	return nil
}

// loadLocked returns the in-memory history for (site, tool), pulling it
// from the store on first touch.
func (m *ReliabilityManager) loadLocked(ctx context.Context, site, tool string) (*types.ToolPerformance, error) {
	key := site + "\x00" + tool
	if perf, ok := m.perf[key]; ok {
		return perf, nil
	}

	perf, err := m.store.GetToolPerformance(ctx, site, tool)
	if err != nil {
		return nil, err
	}
	if perf == nil {
		perf = &types.ToolPerformance{Site: site, Tool: tool}
	}
	m.perf[key] = perf
	return perf, nil
}

// peekLocked is loadLocked without creating an empty history.
func (m *ReliabilityManager) peekLocked(ctx context.Context, site, tool string) (*types.ToolPerformance, error) {
	key := site + "\x00" + tool
	if perf, ok := m.perf[key]; ok {
		return perf, nil
	}

	perf, err := m.store.GetToolPerformance(ctx, site, tool)
	if err != nil {
		return nil, err
	}
	if perf != nil {
		m.perf[key] = perf
	}
	return perf, nil
}

func (m *ReliabilityManager) score(perf *types.ToolPerformance) float64 {
	lifetime, recent := m.cfg.LifetimeWeight, m.cfg.RecentWeight
	if lifetime <= 0 && recent <= 0 {
		lifetime, recent = 0.3, 0.7
	}
	return perf.Reliability(lifetime, recent)
}

func (m *ReliabilityManager) historySize() int {
	if m.cfg.HistorySize > 0 {
		return m.cfg.HistorySize
	}
	return 10
}

func (m *ReliabilityManager) persistEvery() int {
	if m.cfg.PersistEvery > 0 {
		return m.cfg.PersistEvery
	}
	return 5
}
