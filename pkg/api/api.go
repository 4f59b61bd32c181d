// pkg/api/api.go

// Package api is the embeddable client for the extraction engine. It
// re-exports the configuration and result types and wraps the engine
// behind a small surface, so programs can depend on this package alone.
package api

import (
	"context"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/engine"
)

// Client runs extractions and accumulates per-domain intelligence. A
// single Client shares its selector cache and reliability scores across
// calls; create one and reuse it.
type Client struct {
	engine *engine.Engine
}

// New builds a client from cfg. A nil cfg selects the shipped defaults.
func New(cfg *Config) (*Client, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{engine: eng}, nil
}

// NewFromFile builds a client from a YAML configuration file.
func NewFromFile(path string) (*Client, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Extract pulls structured records out of req.HTML. Results may be
// partial when the run's time budget expires; Result.Partial and
// Result.TimedOut say so.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	return c.engine.Extract(ctx, engineRequest(req))
}

// ExtractAll sweeps the whole document for every repeating structure it
// can find, ignoring req.Fields. Finding nothing is an error.
func (c *Client) ExtractAll(ctx context.Context, req ExtractRequest) (*Result, error) {
	return c.engine.ExtractAll(ctx, engineRequest(req))
}

// Selectors returns the cached selector map learned for a domain, or
// nil when the cache holds nothing fresh covering the fields.
func (c *Client) Selectors(ctx context.Context, domain string, fields []string) map[string]string {
	return c.engine.CachedSelectors(ctx, domain, fields)
}

// RecordOutcome feeds one success or failure into the per-site
// reliability scores for a tool.
func (c *Client) RecordOutcome(ctx context.Context, site, tool string, success bool, latency time.Duration) error {
	return c.engine.RecordToolOutcome(ctx, site, tool, success, latency)
}

// FallbackChain orders candidate tools for a site, most reliable first.
// Unscored tools keep their given order after the scored ones.
func (c *Client) FallbackChain(ctx context.Context, site string, candidates []string) ([]string, error) {
	return c.engine.FallbackChain(ctx, site, candidates)
}

// BestTool returns the most reliable candidate for a site and its
// blended score.
func (c *Client) BestTool(ctx context.Context, site string, candidates []string) (string, float64, error) {
	return c.engine.BestTool(ctx, site, candidates)
}

// ValidateCompleteness scores records against the required fields and
// suggests follow-up actions for whatever is missing.
func (c *Client) ValidateCompleteness(records []Record, required []string) *ValidationReport {
	return c.engine.ValidateCompleteness(records, required)
}

// Close flushes learned intelligence and releases owned resources.
func (c *Client) Close() error {
	return c.engine.Close()
}

func engineRequest(req ExtractRequest) engine.Request {
	out := engine.Request{
		HTML:   req.HTML,
		Domain: req.Domain,
		Fields: req.Fields,
		Limit:  req.Limit,
	}
	if req.OnRecord != nil {
		out.Sink = engine.SinkFunc(req.OnRecord)
	}
	return out
}
