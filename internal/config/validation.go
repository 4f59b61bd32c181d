// internal/config/validation.go - Enhanced validation with detailed error messages
package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

var validOutputFormats = map[string]bool{
	"json":       true,
	"jsonl":      true,
	"csv":        true,
	"tsv":        true,
	"excel":      true,
	"sqlite":     true,
	"postgresql": true,
	"mysql":      true,
	"mongodb":    true,
	"yaml":       true,
	"xml":        true,
}

var validStoreDrivers = map[string]bool{
	"sqlite": true,
	"memory": true,
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateDiscovery(result)
	c.validatePatterns(result)
	c.validateExtraction(result)
	c.validateSweep(result)
	c.validateSelectorCache(result)
	c.validateReliability(result)
	c.validateStore(result)
	c.validateOutput(result)
	c.validateServer(result)

	if len(result.Errors) > 0 {
		return c.formatValidationError(result)
	}

	return nil
}

// validateDiscovery checks the breadth-first walk settings
func (c *Config) validateDiscovery(result *ValidationResult) {
	if c.Discovery.MaxDepth < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.max_depth",
			Value:   fmt.Sprintf("%d", c.Discovery.MaxDepth),
			Message: "max depth cannot be negative",
		})
	}
	if c.Discovery.DefaultDepth < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.default_depth",
			Value:   fmt.Sprintf("%d", c.Discovery.DefaultDepth),
			Message: "default depth must be at least 1",
		})
	}
	if c.Discovery.DepthCap < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.depth_cap",
			Value:   fmt.Sprintf("%d", c.Discovery.DepthCap),
			Message: "depth cap must be at least 1",
		})
	}
	if c.Discovery.SampleSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.sample_size",
			Value:   fmt.Sprintf("%d", c.Discovery.SampleSize),
			Message: "sample size must be at least 1",
		})
	}
	if c.Discovery.ParentHops < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.parent_hops",
			Value:   fmt.Sprintf("%d", c.Discovery.ParentHops),
			Message: "parent hops must be at least 1",
		})
	}
	if c.Discovery.QueueCeiling < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "discovery.queue_ceiling",
			Value:   fmt.Sprintf("%d", c.Discovery.QueueCeiling),
			Message: "queue ceiling must be at least 1",
		})
	}
}

// validatePatterns checks the pattern detection settings
func (c *Config) validatePatterns(result *ValidationResult) {
	if c.Patterns.SimilarityThreshold <= 0 || c.Patterns.SimilarityThreshold > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "patterns.similarity_threshold",
			Value:   fmt.Sprintf("%g", c.Patterns.SimilarityThreshold),
			Message: "similarity threshold must be in (0, 1]",
		})
	}
	if c.Patterns.MinSiblings < 2 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "patterns.min_siblings",
			Value:   fmt.Sprintf("%d", c.Patterns.MinSiblings),
			Message: "a pattern needs at least 2 siblings",
		})
	}
	if c.Patterns.MaxLowScoreLevels < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "patterns.max_low_score_levels",
			Value:   fmt.Sprintf("%d", c.Patterns.MaxLowScoreLevels),
			Message: "max low-score levels must be at least 1",
		})
	}
}

// validateExtraction checks the record building settings
func (c *Config) validateExtraction(result *ValidationResult) {
	if c.Extraction.Budget <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "extraction.budget",
			Value:   c.Extraction.Budget.Std().String(),
			Message: "budget must be positive",
		})
	}
	if c.Extraction.MinTextLength < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "extraction.min_text_length",
			Value:   fmt.Sprintf("%d", c.Extraction.MinTextLength),
			Message: "minimum text length must be at least 1",
		})
	}
	if c.Extraction.SignatureValueLength < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "extraction.signature_value_length",
			Value:   fmt.Sprintf("%d", c.Extraction.SignatureValueLength),
			Message: "signature value length must be at least 1",
		})
	}
	if c.Extraction.Workers < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "extraction.workers",
			Value:   fmt.Sprintf("%d", c.Extraction.Workers),
			Message: "worker count must be at least 1",
		})
	}
	if c.Extraction.CacheSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "extraction.cache_size",
			Value:   fmt.Sprintf("%d", c.Extraction.CacheSize),
			Message: "cache size must be at least 1",
		})
	}
}

// validateSweep checks the coarse sweep settings
func (c *Config) validateSweep(result *ValidationResult) {
	if c.Sweep.Budget <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "sweep.budget",
			Value:   c.Sweep.Budget.Std().String(),
			Message: "budget must be positive",
		})
	}
	if c.Sweep.PollInterval <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "sweep.poll_interval",
			Value:   c.Sweep.PollInterval.Std().String(),
			Message: "poll interval must be positive",
		})
	}
	if c.Sweep.BatchSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "sweep.batch_size",
			Value:   fmt.Sprintf("%d", c.Sweep.BatchSize),
			Message: "batch size must be at least 1",
		})
	}
}

// validateSelectorCache checks the fast path settings
func (c *Config) validateSelectorCache(result *ValidationResult) {
	if c.SelectorCache.TTL <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "selector_cache.ttl",
			Value:   c.SelectorCache.TTL.Std().String(),
			Message: "ttl must be positive",
		})
	}
	if c.SelectorCache.SampleCount < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "selector_cache.sample_count",
			Value:   fmt.Sprintf("%d", c.SelectorCache.SampleCount),
			Message: "sample count must be at least 1",
		})
	}
	if c.SelectorCache.MaxLengthRatio <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "selector_cache.max_length_ratio",
			Value:   fmt.Sprintf("%g", c.SelectorCache.MaxLengthRatio),
			Message: "max length ratio must be positive",
		})
	}
	if c.SelectorCache.QueryRate <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "selector_cache.query_rate",
			Value:   fmt.Sprintf("%g", c.SelectorCache.QueryRate),
			Message: "query rate must be positive",
		})
	}
}

// validateReliability checks the tool scoring settings
func (c *Config) validateReliability(result *ValidationResult) {
	if c.Reliability.HistorySize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "reliability.history_size",
			Value:   fmt.Sprintf("%d", c.Reliability.HistorySize),
			Message: "history size must be at least 1",
		})
	}
	if c.Reliability.PersistEvery < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "reliability.persist_every",
			Value:   fmt.Sprintf("%d", c.Reliability.PersistEvery),
			Message: "persist interval must be at least 1",
		})
	}
	if c.Reliability.MinAttempts < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "reliability.min_attempts",
			Value:   fmt.Sprintf("%d", c.Reliability.MinAttempts),
			Message: "min attempts must be at least 1",
		})
	}

	sum := c.Reliability.LifetimeWeight + c.Reliability.RecentWeight
	if sum < 0.999 || sum > 1.001 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "reliability.lifetime_weight",
			Value:   fmt.Sprintf("%g+%g", c.Reliability.LifetimeWeight, c.Reliability.RecentWeight),
			Message: "lifetime and recent weights must sum to 1",
		})
	}
}

// validateStore checks the persistence settings
func (c *Config) validateStore(result *ValidationResult) {
	if !validStoreDrivers[strings.ToLower(c.Store.Driver)] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "store.driver",
			Value:   c.Store.Driver,
			Message: "store driver must be sqlite or memory",
		})
	}
	if strings.ToLower(c.Store.Driver) == "sqlite" && c.Store.Path == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "store.path",
			Value:   "",
			Message: "sqlite store requires a path",
		})
	}
}

// validateOutput checks the output settings
func (c *Config) validateOutput(result *ValidationResult) {
	format := strings.ToLower(c.Output.Format)
	if !validOutputFormats[format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: "unsupported output format",
		})
		return
	}

	switch format {
	case "postgresql", "mysql":
		if c.Output.DSN == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "output.dsn",
				Value:   "",
				Message: fmt.Sprintf("%s output requires a dsn", format),
			})
		}
	case "mongodb":
		if c.Output.URI == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "output.uri",
				Value:   "",
				Message: "mongodb output requires a uri",
			})
		}
		if c.Output.Database == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "output.database",
				Value:   "",
				Message: "mongodb output requires a database",
			})
		}
	}

	for i, ft := range c.Output.Transforms {
		if ft.Field == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("output.transforms[%d].field", i),
				Value:   "",
				Message: "transform field is required",
			})
		}
		for j, rule := range ft.Rules {
			if rule.Type == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   fmt.Sprintf("output.transforms[%d].rules[%d].type", i, j),
					Value:   "",
					Message: "transform rule type is required",
				})
			}
			if rule.Type == "regex" && rule.Pattern == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   fmt.Sprintf("output.transforms[%d].rules[%d].pattern", i, j),
					Value:   "",
					Message: "regex transform requires a pattern",
				})
			}
		}
	}
}

// validateServer checks the HTTP API settings
func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.RateLimit <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.rate_limit",
			Value:   fmt.Sprintf("%g", c.Server.RateLimit),
			Message: "rate limit must be positive",
		})
	}
	if c.Server.Burst < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.burst",
			Value:   fmt.Sprintf("%d", c.Server.Burst),
			Message: "burst must be at least 1",
		})
	}
}

// formatValidationError renders collected errors as one error value
func (c *Config) formatValidationError(result *ValidationResult) error {
	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Error())
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(messages, "; "))
}
