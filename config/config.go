// Package config provides configuration loading and management for the
// derivation pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/reqderive/quality"
)

// Config is the complete pipeline configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Derivation DerivationConfig `yaml:"derivation"`
	Quality    QualityConfig    `yaml:"quality"`
	Gap        GapConfig        `yaml:"gap"`
	Batch      BatchConfig      `yaml:"batch"`
	Health     HealthConfig     `yaml:"health"`
}

// ServiceConfig configures the text-generation service.
type ServiceConfig struct {
	// Endpoint is the OpenAI-compatible API endpoint
	// (default: http://localhost:11434/v1).
	Endpoint string `yaml:"endpoint"`
	// Model is the model name to request.
	Model string `yaml:"model"`
	// APIKey is an optional bearer token.
	APIKey string `yaml:"api_key"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for one generation.
	Timeout time.Duration `yaml:"timeout"`
}

// DerivationConfig configures per-requirement derivation.
type DerivationConfig struct {
	// MaxCapabilities caps the derived set size per requirement.
	MaxCapabilities int `yaml:"max_capabilities"`
	// QualityScoring enables deterministic quality scoring of results.
	QualityScoring bool `yaml:"quality_scoring"`
}

// QualityConfig configures quality scoring.
type QualityConfig struct {
	// Weights control the overall-score combination; they must sum to 1.
	Weights quality.Weights `yaml:"weights"`
}

// GapConfig configures coverage analysis.
type GapConfig struct {
	// SimilarityThreshold is the minimum token-overlap score for a
	// fallback capability-to-requirement match.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// CategoryBonus is added when a requirement mentions the capability's
	// taxonomy label.
	CategoryBonus float64 `yaml:"category_bonus"`
}

// BatchConfig configures batch analysis.
type BatchConfig struct {
	// MaxConcurrency bounds concurrent in-flight analyses.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// HealthConfig configures gateway health probing.
type HealthConfig struct {
	// ProbeTimeout bounds a single health probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// DegradedAfter is the response time above which the service is
	// classified degraded.
	DegradedAfter time.Duration `yaml:"degraded_after"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Endpoint:    "http://localhost:11434/v1",
			Model:       "qwen2.5:32b",
			Temperature: 0.2,
			Timeout:     3 * time.Minute,
		},
		Derivation: DerivationConfig{
			MaxCapabilities: 25,
			QualityScoring:  true,
		},
		Quality: QualityConfig{
			Weights: quality.DefaultWeights(),
		},
		Gap: GapConfig{
			SimilarityThreshold: 0.30,
			CategoryBonus:       0.10,
		},
		Batch: BatchConfig{
			MaxConcurrency: 4,
		},
		Health: HealthConfig{
			ProbeTimeout:  10 * time.Second,
			DegradedAfter: 2 * time.Second,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Service.Endpoint == "" {
		return fmt.Errorf("service.endpoint is required")
	}
	if c.Service.Model == "" {
		return fmt.Errorf("service.model is required")
	}
	if c.Service.Temperature < 0 || c.Service.Temperature > 1 {
		return fmt.Errorf("service.temperature must be between 0 and 1")
	}
	if c.Derivation.MaxCapabilities < 1 {
		return fmt.Errorf("derivation.max_capabilities must be at least 1")
	}
	if err := c.Quality.Weights.Validate(); err != nil {
		return fmt.Errorf("quality.weights: %w", err)
	}
	if c.Gap.SimilarityThreshold < 0 || c.Gap.SimilarityThreshold > 1 {
		return fmt.Errorf("gap.similarity_threshold must be between 0 and 1")
	}
	if c.Batch.MaxConcurrency < 1 {
		return fmt.Errorf("batch.max_concurrency must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, applied over
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Service.Endpoint != "" {
		c.Service.Endpoint = other.Service.Endpoint
	}
	if other.Service.Model != "" {
		c.Service.Model = other.Service.Model
	}
	if other.Service.APIKey != "" {
		c.Service.APIKey = other.Service.APIKey
	}
	if other.Service.Temperature != 0 {
		c.Service.Temperature = other.Service.Temperature
	}
	if other.Service.Timeout != 0 {
		c.Service.Timeout = other.Service.Timeout
	}

	if other.Derivation.MaxCapabilities != 0 {
		c.Derivation.MaxCapabilities = other.Derivation.MaxCapabilities
	}

	zero := quality.Weights{}
	if other.Quality.Weights != zero {
		c.Quality.Weights = other.Quality.Weights
	}

	if other.Gap.SimilarityThreshold != 0 {
		c.Gap.SimilarityThreshold = other.Gap.SimilarityThreshold
	}
	if other.Gap.CategoryBonus != 0 {
		c.Gap.CategoryBonus = other.Gap.CategoryBonus
	}

	if other.Batch.MaxConcurrency != 0 {
		c.Batch.MaxConcurrency = other.Batch.MaxConcurrency
	}

	if other.Health.ProbeTimeout != 0 {
		c.Health.ProbeTimeout = other.Health.ProbeTimeout
	}
	if other.Health.DegradedAfter != 0 {
		c.Health.DegradedAfter = other.Health.DegradedAfter
	}
}
