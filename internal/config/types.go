// internal/config/types.go

// Package config provides configuration types and structures for the
// extraction engine. Every tuned constant in the pipeline lives here so
// deployments can override the defaults without touching code.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use values like "45s".
// Plain integers are interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the main configuration for an extraction run.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name" json:"name"`

	// Fields lists the default field names to request when the caller
	// provides none
	Fields []string `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Limit caps the number of records an extraction returns
	Limit int `yaml:"limit" json:"limit"`

	// Discovery tunes the breadth-first DOM walk
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Patterns tunes repeating-structure detection
	Patterns PatternConfig `yaml:"patterns" json:"patterns"`

	// Extraction tunes record building, validation, and deduplication
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Sweep tunes the coarse extract-everything mode
	Sweep SweepConfig `yaml:"sweep" json:"sweep"`

	// SelectorCache tunes the learned-selector fast path
	SelectorCache SelectorCacheConfig `yaml:"selector_cache" json:"selector_cache"`

	// Reliability tunes per-site tool scoring
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Store configures the persistent intelligence store
	Store StoreConfig `yaml:"store" json:"store"`

	// Browser configures the live-DOM driver, when enabled
	Browser *BrowserConfig `yaml:"browser,omitempty" json:"browser,omitempty"`

	// Output configures where extracted records go
	Output OutputConfig `yaml:"output" json:"output"`

	// Server configures the HTTP API
	Server ServerConfig `yaml:"server" json:"server"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// LogLevel sets the minimum log severity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DiscoveryConfig tunes the breadth-first DOM walk.
type DiscoveryConfig struct {
	// MaxDepth forces a fixed walk depth; 0 selects adaptive depth
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// DefaultDepth is used when adaptive depth estimation fails
	DefaultDepth int `yaml:"default_depth" json:"default_depth"`

	// DepthCap bounds the adaptive depth estimate
	DepthCap int `yaml:"depth_cap" json:"depth_cap"`

	// SampleSize is how many nodes the depth estimator samples
	SampleSize int `yaml:"sample_size" json:"sample_size"`

	// ParentHops bounds each sampled node's walk toward the root
	ParentHops int `yaml:"parent_hops" json:"parent_hops"`

	// QueueCeiling stops the walk early when the frontier explodes
	QueueCeiling int `yaml:"queue_ceiling" json:"queue_ceiling"`
}

// PatternConfig tunes repeating-structure detection.
type PatternConfig struct {
	// SimilarityThreshold is the minimum sibling-group score to extract
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`

	// MinSiblings is the smallest group treated as a pattern
	MinSiblings int `yaml:"min_siblings" json:"min_siblings"`

	// MaxLowScoreLevels ends the scan after this many consecutive
	// levels whose best group scores under the threshold
	MaxLowScoreLevels int `yaml:"max_low_score_levels" json:"max_low_score_levels"`
}

// ExtractionConfig tunes record building, validation, and deduplication.
type ExtractionConfig struct {
	// Budget is the soft wall-clock budget for one extraction
	Budget Duration `yaml:"budget" json:"budget"`

	// MinTextLength is the shortest trimmed text that counts as content
	MinTextLength int `yaml:"min_text_length" json:"min_text_length"`

	// SignatureValueLength truncates values inside dedup signatures
	SignatureValueLength int `yaml:"signature_value_length" json:"signature_value_length"`

	// Sentinel fills fields that could not be resolved
	Sentinel string `yaml:"sentinel" json:"sentinel"`

	// Workers sizes the pool for CPU-bound subtree work
	Workers int `yaml:"workers" json:"workers"`

	// CacheSize bounds the fingerprint and similarity caches
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SweepConfig tunes the coarse extract-everything mode.
type SweepConfig struct {
	// Budget is the wall-clock budget for a full sweep
	Budget Duration `yaml:"budget" json:"budget"`

	// PollInterval is how often the consumer checks stop conditions
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// BatchSize is how many records producers emit per batch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// SelectorCacheConfig tunes the learned-selector fast path.
type SelectorCacheConfig struct {
	// TTL is how long learned selectors stay fresh
	TTL Duration `yaml:"ttl" json:"ttl"`

	// SampleCount is how many values per field the learner samples
	SampleCount int `yaml:"sample_count" json:"sample_count"`

	// MaxLengthRatio rejects live elements whose text is much longer
	// than the sampled value
	MaxLengthRatio float64 `yaml:"max_length_ratio" json:"max_length_ratio"`

	// QueryRate limits live-DOM queries per second
	QueryRate float64 `yaml:"query_rate" json:"query_rate"`

	// QueryBurst allows short bursts of live-DOM queries
	QueryBurst int `yaml:"query_burst" json:"query_burst"`
}

// ReliabilityConfig tunes per-site tool scoring.
type ReliabilityConfig struct {
	// HistorySize caps the recent-outcome window per tool
	HistorySize int `yaml:"history_size" json:"history_size"`

	// PersistEvery flushes a tool's record on every Nth update
	PersistEvery int `yaml:"persist_every" json:"persist_every"`

	// MinAttempts discounts scores for tools with few attempts
	MinAttempts int `yaml:"min_attempts" json:"min_attempts"`

	// LifetimeWeight weights the lifetime success rate
	LifetimeWeight float64 `yaml:"lifetime_weight" json:"lifetime_weight"`

	// RecentWeight weights the recent-outcome mean
	RecentWeight float64 `yaml:"recent_weight" json:"recent_weight"`
}

// StoreConfig configures the persistent intelligence store.
type StoreConfig struct {
	// Driver selects the backend (sqlite or memory)
	Driver string `yaml:"driver" json:"driver"`

	// Path is the SQLite database file
	Path string `yaml:"path" json:"path"`
}

// BrowserConfig configures the live-DOM driver.
type BrowserConfig struct {
	// Enabled turns on browser-backed fetching and live-DOM queries
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Headless mode
	Headless bool `yaml:"headless" json:"headless"`

	// UserAgent to present
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Timeout for a single page fetch
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// ViewportWidth of the browser window
	ViewportWidth int `yaml:"viewport_width" json:"viewport_width"`

	// ViewportHeight of the browser window
	ViewportHeight int `yaml:"viewport_height" json:"viewport_height"`

	// DisableImages to speed up loading
	DisableImages bool `yaml:"disable_images" json:"disable_images"`
}

// OutputConfig defines output settings.
type OutputConfig struct {
	// Format of the output (json, jsonl, csv, tsv, xml, yaml, excel,
	// sqlite, postgresql, mysql, mongodb)
	Format string `yaml:"format" json:"format"`

	// File receives file-based formats
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// DSN is the connection string for postgresql and mysql outputs
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// URI is the connection string for mongodb output
	URI string `yaml:"uri,omitempty" json:"uri,omitempty"`

	// Database selects the mongodb database
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Table names the relational table or mongodb collection
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Transforms post-process extracted field values
	Transforms []FieldTransform `yaml:"transforms,omitempty" json:"transforms,omitempty"`
}

// FieldTransform applies a chain of rules to one extracted field.
type FieldTransform struct {
	// Field names the record field to transform; "*" applies to all
	Field string `yaml:"field" json:"field"`

	// Rules run in order
	Rules []TransformRule `yaml:"rules" json:"rules"`
}

// TransformRule is one transformation step.
type TransformRule struct {
	// Type of transformation (trim, normalize_spaces, lowercase,
	// uppercase, title, remove_html, extract_number, parse_float,
	// parse_int, parse_date, regex, replace, prefix, suffix)
	Type string `yaml:"type" json:"type"`

	// Pattern for regex transforms; the literal needle for replace
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Replacement for regex and replace transforms
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`

	// Value for prefix and suffix transforms; the output layout for
	// parse_date when the parsed date should be reformatted
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// Format is the source date layout for parse_date
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Listen address, e.g. ":8080"
	Listen string `yaml:"listen" json:"listen"`

	// APIToken enables bearer-token auth when non-empty
	APIToken string `yaml:"api_token,omitempty" json:"api_token,omitempty"`

	// RateLimit is requests per second per server
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`

	// Burst allows temporary exceeding of the rate
	Burst int `yaml:"burst" json:"burst"`

	// ReadTimeout for incoming requests
	ReadTimeout Duration `yaml:"read_timeout" json:"read_timeout"`

	// WriteTimeout for responses
	WriteTimeout Duration `yaml:"write_timeout" json:"write_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes metrics when true
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path of the metrics endpoint
	Path string `yaml:"path" json:"path"`
}
