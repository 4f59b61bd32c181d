// internal/intel/store.go

// Package intel holds the learned knowledge that makes repeat
// extractions cheaper: selector caches keyed by domain, per-site tool
// reliability history, and completeness scoring over extracted records.
// Knowledge is persisted through the Store interface so a single run's
// learning survives process restarts.
package intel

import (
	"context"
	"fmt"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Store persists learned selectors and tool performance across runs.
// Lookup misses return (nil, nil) so callers can tell "unknown" from
// "broken" without sentinel errors.
type Store interface {
	// GetSelectors returns the cached entry for a normalized domain,
	// or nil when the domain has never been learned.
	GetSelectors(ctx context.Context, domain string) (*types.SelectorEntry, error)

	// PutSelectors inserts or replaces the entry for its domain.
	PutSelectors(ctx context.Context, entry *types.SelectorEntry) error

	// GetToolPerformance returns the history for (site, tool), or nil
	// when the pair has never been recorded.
	GetToolPerformance(ctx context.Context, site, tool string) (*types.ToolPerformance, error)

	// PutToolPerformance inserts or replaces the history for its
	// (site, tool) pair.
	PutToolPerformance(ctx context.Context, perf *types.ToolPerformance) error

	// ListToolPerformance returns all histories recorded for a site.
	ListToolPerformance(ctx context.Context, site string) ([]*types.ToolPerformance, error)

	Close() error
}

// NewStore builds a Store from configuration. Unknown drivers are
// rejected rather than silently falling back to memory, so a typo in a
// config file cannot quietly discard persistence.
func NewStore(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, utils.NewError(utils.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported intelligence store driver: %s", cfg.Driver))
	}
}
