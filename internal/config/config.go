// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the zero-configuration defaults the engine ships with.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables
	expandedData := expandEnvironmentVariables(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %v", err)
	}

	return nil
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %v", err)
	}

	return nil
}

// GenerateTemplate generates a template configuration for the specified type
func GenerateTemplate(templateType string) Config {
	switch strings.ToLower(templateType) {
	case "ecommerce":
		return generateEcommerceTemplate()
	case "news":
		return generateNewsTemplate()
	case "server":
		return generateServerTemplate()
	case "basic":
		return generateBasicTemplate()
	default:
		return generateBasicTemplate()
	}
}

// Helper functions

// expandEnvironmentVariables substitutes environment variables in the configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Name == "" {
		config.Name = "extraction"
	}

	if config.Limit == 0 {
		config.Limit = 10
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Discovery defaults
	if config.Discovery.DefaultDepth == 0 {
		config.Discovery.DefaultDepth = 5
	}
	if config.Discovery.DepthCap == 0 {
		config.Discovery.DepthCap = 6
	}
	if config.Discovery.SampleSize == 0 {
		config.Discovery.SampleSize = 50
	}
	if config.Discovery.ParentHops == 0 {
		config.Discovery.ParentHops = 12
	}
	if config.Discovery.QueueCeiling == 0 {
		config.Discovery.QueueCeiling = 1000
	}

	// Pattern detection defaults
	if config.Patterns.SimilarityThreshold == 0 {
		config.Patterns.SimilarityThreshold = 0.7
	}
	if config.Patterns.MinSiblings == 0 {
		config.Patterns.MinSiblings = 2
	}
	if config.Patterns.MaxLowScoreLevels == 0 {
		config.Patterns.MaxLowScoreLevels = 3
	}

	// Extraction defaults
	if config.Extraction.Budget == 0 {
		config.Extraction.Budget = Duration(45 * time.Second)
	}
	if config.Extraction.MinTextLength == 0 {
		config.Extraction.MinTextLength = 20
	}
	if config.Extraction.SignatureValueLength == 0 {
		config.Extraction.SignatureValueLength = 50
	}
	if config.Extraction.Sentinel == "" {
		config.Extraction.Sentinel = "Not available"
	}
	if config.Extraction.Workers == 0 {
		config.Extraction.Workers = 4
	}
	if config.Extraction.CacheSize == 0 {
		config.Extraction.CacheSize = 4096
	}

	// Sweep defaults
	if config.Sweep.Budget == 0 {
		config.Sweep.Budget = Duration(60 * time.Second)
	}
	if config.Sweep.PollInterval == 0 {
		config.Sweep.PollInterval = Duration(time.Second)
	}
	if config.Sweep.BatchSize == 0 {
		config.Sweep.BatchSize = 5
	}

	// Selector cache defaults
	if config.SelectorCache.TTL == 0 {
		config.SelectorCache.TTL = Duration(30 * 24 * time.Hour)
	}
	if config.SelectorCache.SampleCount == 0 {
		config.SelectorCache.SampleCount = 3
	}
	if config.SelectorCache.MaxLengthRatio == 0 {
		config.SelectorCache.MaxLengthRatio = 3.0
	}
	if config.SelectorCache.QueryRate == 0 {
		config.SelectorCache.QueryRate = 2.0
	}
	if config.SelectorCache.QueryBurst == 0 {
		config.SelectorCache.QueryBurst = 1
	}

	// Reliability defaults
	if config.Reliability.HistorySize == 0 {
		config.Reliability.HistorySize = 10
	}
	if config.Reliability.PersistEvery == 0 {
		config.Reliability.PersistEvery = 5
	}
	if config.Reliability.MinAttempts == 0 {
		config.Reliability.MinAttempts = 3
	}
	if config.Reliability.LifetimeWeight == 0 {
		config.Reliability.LifetimeWeight = 0.3
	}
	if config.Reliability.RecentWeight == 0 {
		config.Reliability.RecentWeight = 0.7
	}

	// Store defaults
	if config.Store.Driver == "" {
		config.Store.Driver = "sqlite"
	}
	if config.Store.Path == "" {
		config.Store.Path = "intelligence.db"
	}

	// Browser defaults, when the section is present
	if config.Browser != nil {
		if config.Browser.Timeout == 0 {
			config.Browser.Timeout = Duration(30 * time.Second)
		}
		if config.Browser.ViewportWidth == 0 {
			config.Browser.ViewportWidth = 1920
		}
		if config.Browser.ViewportHeight == 0 {
			config.Browser.ViewportHeight = 1080
		}
	}

	// Output defaults
	if config.Output.Format == "" {
		config.Output.Format = "json"
	}
	if config.Output.Table == "" {
		config.Output.Table = "records"
	}

	// Server defaults
	if config.Server.Listen == "" {
		config.Server.Listen = ":8080"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 10
	}
	if config.Server.Burst == 0 {
		config.Server.Burst = 20
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = Duration(120 * time.Second)
	}

	// Metrics defaults
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
}

// Template generation functions

func generateBasicTemplate() Config {
	cfg := Config{
		Name:   "basic_extraction",
		Fields: []string{"title", "description", "url"},
		Limit:  10,
		Output: OutputConfig{
			Format: "json",
			File:   "output.json",
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func generateEcommerceTemplate() Config {
	cfg := Config{
		Name:   "ecommerce_extraction",
		Fields: []string{"product_name", "price", "rating", "image", "url"},
		Limit:  50,
		Browser: &BrowserConfig{
			Enabled:       true,
			Headless:      true,
			DisableImages: true,
		},
		Output: OutputConfig{
			Format: "sqlite",
			File:   "products.db",
			Table:  "products",
			Transforms: []FieldTransform{
				{
					Field: "price",
					Rules: []TransformRule{
						{Type: "trim"},
						{
							Type:        "regex",
							Pattern:     `\$?([0-9,]+\.?[0-9]*)`,
							Replacement: "$1",
						},
					},
				},
			},
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func generateNewsTemplate() Config {
	cfg := Config{
		Name:   "news_extraction",
		Fields: []string{"headline", "author", "date", "summary", "link"},
		Limit:  20,
		Output: OutputConfig{
			Format: "csv",
			File:   "articles.csv",
			Transforms: []FieldTransform{
				{
					Field: "*",
					Rules: []TransformRule{
						{Type: "trim"},
						{Type: "normalize_spaces"},
					},
				},
			},
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func generateServerTemplate() Config {
	cfg := Config{
		Name:   "extraction_server",
		Fields: []string{"title", "price", "url"},
		Limit:  50,
		Server: ServerConfig{
			Listen:    ":8080",
			APIToken:  "${EXTRACT_API_TOKEN}",
			RateLimit: 10,
			Burst:     20,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "intelligence.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	applyDefaults(&cfg)
	return cfg
}
