package model

import (
	"fmt"
	"time"
)

// Config is the complete pipeline configuration. Every stage receives its
// parameters from here explicitly; nothing reads ambient state.
type Config struct {
	EventTypes  []EventType       `yaml:"event_types"`
	Association AssociationConfig `yaml:"association"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Confidence  ConfidenceConfig  `yaml:"confidence"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Logging     LoggingConfig     `yaml:"logging"`
	Output      OutputConfig      `yaml:"output"`
}

// AssociationConfig tunes the association engine
type AssociationConfig struct {
	// WindowTokens is the maximum token gap for an explicit association
	WindowTokens int `yaml:"window_tokens"`
	// EpsilonTokens is the distance difference below which two candidates
	// count as tied
	EpsilonTokens int `yaml:"epsilon_tokens"`
	// HeaderChars bounds the region scanned for the document-level date
	HeaderChars int `yaml:"header_chars"`
}

// AggregationConfig tunes timeline aggregation
type AggregationConfig struct {
	// DedupJaccard is the token-set similarity at or above which two
	// same-type same-date entries count as duplicates
	DedupJaccard float64 `yaml:"dedup_jaccard"`
}

// ConfidenceConfig holds the flagging thresholds
type ConfidenceConfig struct {
	High float64 `yaml:"high"`
	Low  float64 `yaml:"low"`
}

// ExtractorConfig configures the external event-span classifier
type ExtractorConfig struct {
	Provider  string `yaml:"provider"` // "rules", "openai", "ollama"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"` // env only, never persisted
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout_seconds"`
	MaxTokens int    `yaml:"max_tokens"`
}

// CacheConfig configures the classifier response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig sizes the document worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// RateLimitConfig throttles remote classifier calls
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// IngestConfig tunes corpus loading
type IngestConfig struct {
	// MaxFileBytes caps how much of a single document is read
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// LoggingConfig selects the structured log level
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose"`
	IncludeFooter bool `yaml:"include_footer"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() *Config {
	return &Config{
		EventTypes: AllEventTypes(),
		Association: AssociationConfig{
			WindowTokens:  10,
			EpsilonTokens: 0,
			HeaderChars:   400,
		},
		Aggregation: AggregationConfig{
			DedupJaccard: 0.8,
		},
		Confidence: ConfidenceConfig{
			High: 0.7,
			Low:  0.4,
		},
		Extractor: ExtractorConfig{
			Provider:  "rules",
			Timeout:   30,
			MaxTokens: 2000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "", // resolved by the CLI to ~/.chronotrace/cache
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			Burst:             4,
		},
		Ingest: IngestConfig{
			MaxFileBytes: 10_000_000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate is the fatal startup gate: a broken configuration fails the run
// before any document is processed.
func (c *Config) Validate() error {
	if c.Association.WindowTokens <= 0 {
		return fmt.Errorf("%w: association window must be positive, got %d",
			ErrConfiguration, c.Association.WindowTokens)
	}
	if c.Association.EpsilonTokens < 0 {
		return fmt.Errorf("%w: association epsilon must be >= 0, got %d",
			ErrConfiguration, c.Association.EpsilonTokens)
	}
	if c.Aggregation.DedupJaccard < 0 || c.Aggregation.DedupJaccard > 1 {
		return fmt.Errorf("%w: dedup jaccard threshold must be in [0,1], got %v",
			ErrConfiguration, c.Aggregation.DedupJaccard)
	}
	for _, v := range []float64{c.Confidence.High, c.Confidence.Low} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: confidence thresholds must be in [0,1], got %v",
				ErrConfiguration, v)
		}
	}
	if c.Confidence.Low > c.Confidence.High {
		return fmt.Errorf("%w: low threshold %v exceeds high threshold %v",
			ErrConfiguration, c.Confidence.Low, c.Confidence.High)
	}
	if len(c.EventTypes) == 0 {
		return fmt.Errorf("%w: at least one event type is required", ErrConfiguration)
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d",
			ErrConfiguration, c.Concurrency.Workers)
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("%w: extractor timeout must be positive, got %d",
			ErrConfiguration, c.Extractor.Timeout)
	}
	return nil
}
