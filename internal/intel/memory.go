// internal/intel/memory.go
package intel

import (
	"context"
	"sync"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// MemoryStore keeps intelligence in process memory. It backs tests and
// one-shot CLI runs where persistence is not wanted.
type MemoryStore struct {
	mu        sync.RWMutex
	selectors map[string]*types.SelectorEntry
	tools     map[string]map[string]*types.ToolPerformance
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		selectors: make(map[string]*types.SelectorEntry),
		tools:     make(map[string]map[string]*types.ToolPerformance),
	}
}

func (s *MemoryStore) GetSelectors(_ context.Context, domain string) (*types.SelectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.selectors[domain]
	if !ok {
		return nil, nil
	}
	return cloneSelectorEntry(entry), nil
}

func (s *MemoryStore) PutSelectors(_ context.Context, entry *types.SelectorEntry) error {
	if entry == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectors[entry.Domain] = cloneSelectorEntry(entry)
	return nil
}

func (s *MemoryStore) GetToolPerformance(_ context.Context, site, tool string) (*types.ToolPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perf, ok := s.tools[site][tool]
	if !ok {
		return nil, nil
	}
	return cloneToolPerformance(perf), nil
}

func (s *MemoryStore) PutToolPerformance(_ context.Context, perf *types.ToolPerformance) error {
	if perf == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.tools[perf.Site]
	if !ok {
		site = make(map[string]*types.ToolPerformance)
		s.tools[perf.Site] = site
	}
	site[perf.Tool] = cloneToolPerformance(perf)
	return nil
}

func (s *MemoryStore) ListToolPerformance(_ context.Context, site string) ([]*types.ToolPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.ToolPerformance
	for _, perf := range s.tools[site] {
		out = append(out, cloneToolPerformance(perf))
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Clones keep callers from mutating the store's copy through the
// returned maps and slices.

func cloneSelectorEntry(e *types.SelectorEntry) *types.SelectorEntry {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Selectors = make(map[string]string, len(e.Selectors))
	for k, v := range e.Selectors {
		clone.Selectors[k] = v
	}
	clone.Fields = append([]string(nil), e.Fields...)
	return &clone
}

func cloneToolPerformance(p *types.ToolPerformance) *types.ToolPerformance {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Recent = append([]bool(nil), p.Recent...)
	if p.LastSuccess != nil {
		t := *p.LastSuccess
		clone.LastSuccess = &t
	}
	if p.LastFailure != nil {
		t := *p.LastFailure
		clone.LastFailure = &t
	}
	return &clone
}
