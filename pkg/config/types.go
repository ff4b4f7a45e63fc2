package config

import (
	"time"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Config represents the full service configuration
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	HTTPAddr  string          `yaml:"http_addr"`
	Bounds    models.Bounds   `yaml:"bounds"`
	Campaign  CampaignConfig  `yaml:"campaign"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Storage   StorageConfig   `yaml:"storage"`
}

// CampaignConfig controls the optimization loop
type CampaignConfig struct {
	// InitialSamples is the size of the Latin hypercube seed set
	InitialSamples int `yaml:"initial_samples"`
	// IterationBudget is the number of optimization iterations after seeding
	IterationBudget int `yaml:"iteration_budget"`
	// ExplorationPeriod forces a uniform random draw whenever the dataset
	// length is a multiple of this value
	ExplorationPeriod int `yaml:"exploration_period"`
	// MinFitPoints is the minimum number of successful observations required
	// before a surrogate fit is attempted
	MinFitPoints int `yaml:"min_fit_points"`
	// FailureWarnThreshold is the number of consecutive evaluator failures
	// after which the loop surfaces a warning (it never aborts)
	FailureWarnThreshold int `yaml:"failure_warn_threshold"`
	// Seed drives all pseudo-random draws; zero picks a clock-derived seed
	Seed int64 `yaml:"seed"`
}

// EvaluatorConfig describes the external geometry/mesh/solve pipeline boundary
type EvaluatorConfig struct {
	// Type selects the evaluator implementation: "http" or "synthetic"
	Type string `yaml:"type"`
	// URL is the base URL of the pipeline service (http type only)
	URL string `yaml:"url"`
	// Timeout is the per-evaluation deadline, e.g. "45m"; a timed-out
	// evaluation is recorded as a failed observation
	Timeout string `yaml:"timeout"`
	// MaxRetries is the number of transport-level retries per evaluation
	MaxRetries int `yaml:"max_retries"`
	// Backoff selects the retry backoff: constant, linear or exponential
	Backoff string `yaml:"backoff"`
	// BackoffBaseMs is the base delay for the retry backoff
	BackoffBaseMs int `yaml:"backoff_base_ms"`
}

// StorageConfig describes the durable observation log
type StorageConfig struct {
	// Path is the SQLite database file; empty selects "lattice.db"
	Path string `yaml:"path"`
}

// GetTimeout parses the evaluator timeout to a time.Duration
func (e *EvaluatorConfig) GetTimeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 45 * time.Minute, nil
	}
	return time.ParseDuration(e.Timeout)
}

// Default returns a configuration with stock values for every field
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTPAddr: ":8080",
		Bounds:   models.DefaultBounds(),
		Campaign: CampaignConfig{
			InitialSamples:       20,
			IterationBudget:      30,
			ExplorationPeriod:    5,
			MinFitPoints:         2,
			FailureWarnThreshold: 3,
		},
		Evaluator: EvaluatorConfig{
			Type:          "synthetic",
			Timeout:       "45m",
			MaxRetries:    2,
			Backoff:       "exponential",
			BackoffBaseMs: 500,
		},
		Storage: StorageConfig{
			Path: "lattice.db",
		},
	}
}
