package config

import (
	"fmt"
	"os"
)

// Load loads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	// Bounds validation is fatal before any loop starts.
	if err := cfg.Bounds.Validate(); err != nil {
		return err
	}

	if cfg.Campaign.InitialSamples <= 0 {
		return fmt.Errorf("campaign.initial_samples must be positive, got %d", cfg.Campaign.InitialSamples)
	}
	if cfg.Campaign.IterationBudget < 0 {
		return fmt.Errorf("campaign.iteration_budget cannot be negative, got %d", cfg.Campaign.IterationBudget)
	}
	if cfg.Campaign.ExplorationPeriod <= 0 {
		return fmt.Errorf("campaign.exploration_period must be positive, got %d", cfg.Campaign.ExplorationPeriod)
	}
	if cfg.Campaign.MinFitPoints < 2 {
		return fmt.Errorf("campaign.min_fit_points must be at least 2, got %d", cfg.Campaign.MinFitPoints)
	}
	if cfg.Campaign.FailureWarnThreshold <= 0 {
		return fmt.Errorf("campaign.failure_warn_threshold must be positive, got %d", cfg.Campaign.FailureWarnThreshold)
	}

	switch cfg.Evaluator.Type {
	case "http":
		if cfg.Evaluator.URL == "" {
			return fmt.Errorf("evaluator.url is required for the http evaluator")
		}
	case "synthetic":
	default:
		return fmt.Errorf("invalid evaluator.type: %s (must be http or synthetic)", cfg.Evaluator.Type)
	}
	if _, err := cfg.Evaluator.GetTimeout(); err != nil {
		return fmt.Errorf("invalid evaluator.timeout: %w", err)
	}
	if cfg.Evaluator.MaxRetries < 0 {
		return fmt.Errorf("evaluator.max_retries cannot be negative, got %d", cfg.Evaluator.MaxRetries)
	}

	return nil
}
