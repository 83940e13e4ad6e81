// pkg/config/model.go
package config

import (
	"errors"
	"time"
)

// ModelConfig holds parameters for the local generation endpoint
type ModelConfig struct {
	BaseURL     string
	Name        string
	Temperature float64

	// Per-pass token budgets
	DetectionMaxTokens  int
	CorrectionMaxTokens int

	// Per-call timeouts
	DetectionTimeout  time.Duration
	CorrectionTimeout time.Duration

	// Retry settings for transient endpoint failures
	RetryAttempts int
	RetryBackoff  time.Duration
}

// LoadModelConfig loads model endpoint configuration from environment variables
func LoadModelConfig() (*ModelConfig, error) {
	cfg := &ModelConfig{
		BaseURL:     getEnv("MODEL_BASE_URL", "http://localhost:11434"),
		Name:        getEnv("MODEL_NAME", "neural-chat"),
		Temperature: getEnvAsFloat("MODEL_TEMPERATURE", 0.1),

		DetectionMaxTokens:  getEnvAsInt("MODEL_DETECTION_MAX_TOKENS", 500),
		CorrectionMaxTokens: getEnvAsInt("MODEL_CORRECTION_MAX_TOKENS", 1000),

		DetectionTimeout:  time.Duration(getEnvAsInt("MODEL_DETECTION_TIMEOUT_SECONDS", 20)) * time.Second,
		CorrectionTimeout: time.Duration(getEnvAsInt("MODEL_CORRECTION_TIMEOUT_SECONDS", 30)) * time.Second,

		RetryAttempts: getEnvAsInt("MODEL_RETRY_ATTEMPTS", 3),
		RetryBackoff:  time.Duration(getEnvAsInt("MODEL_RETRY_BACKOFF_MS", 1000)) * time.Millisecond,
	}

	return cfg, nil
}

// Validate ensures the model configuration is usable
func (c *ModelConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("model base URL is required")
	}

	if c.Name == "" {
		return errors.New("model name is required")
	}

	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}

	if c.DetectionTimeout <= 0 || c.CorrectionTimeout <= 0 {
		return errors.New("model timeouts must be positive")
	}

	return nil
}
