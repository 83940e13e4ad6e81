// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Model endpoint
	Model *ModelConfig

	// Detection settings
	MaxRows      int           // 0 means all rows
	RequestDelay time.Duration // fixed delay between detection requests

	// Correction settings
	WorkerPoolSize int // 0 means min(4, available parallelism)

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		MaxRows:        getEnvAsInt("MAX_ROWS", 0),
		RequestDelay:   time.Duration(getEnvAsInt("REQUEST_DELAY_MS", 500)) * time.Millisecond,
		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 0),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	modelConfig, err := LoadModelConfig()
	if err != nil {
		return nil, errors.New("failed to load model configuration: " + err.Error())
	}
	cfg.Model = modelConfig

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Model == nil {
		return errors.New("model configuration is required")
	}

	if c.MaxRows < 0 {
		return errors.New("max rows cannot be negative")
	}

	if c.RequestDelay < 0 {
		return errors.New("request delay cannot be negative")
	}

	if c.WorkerPoolSize < 0 {
		return errors.New("worker pool size cannot be negative")
	}

	return c.Model.Validate()
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
