// pkg/api/types.go
package api

import (
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/engine"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Config aliases the full configuration surface so embedders can build
// or load one without importing internal packages.
type Config = config.Config

// Commonly adjusted configuration sections.
type (
	OutputConfig   = config.OutputConfig
	FieldTransform = config.FieldTransform
	TransformRule  = config.TransformRule
	BrowserConfig  = config.BrowserConfig
	StoreConfig    = config.StoreConfig
)

// Result types produced by extraction calls.
type (
	Record           = types.Record
	Result           = types.Result
	ValidationReport = types.ValidationReport
)

// Tool names under which the client scores extraction strategies. Pass
// them to FallbackChain or BestTool alongside caller-defined tools.
const (
	ToolCachedSelectors = engine.ToolCachedSelectors
	ToolFullDiscovery   = engine.ToolFullDiscovery
)

// DefaultConfig returns the shipped defaults, ready to adjust.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFromFile(path)
}

// ExtractRequest describes one extraction call.
type ExtractRequest struct {
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

	// OnRecord, when set, receives each record as it survives
	// deduplication, before the run finishes. The Result accumulates
	// them either way.
	OnRecord func(Record)
}
