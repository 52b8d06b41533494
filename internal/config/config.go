package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath    string
	HIVQEServiceURL string
	HIVQEAPIToken   string
	Backend         string
	UseSession      bool
	PollIntervalSec int
	LogLevel        string
	Port            int
	DevMode         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/workbench.db"),
		HIVQEServiceURL: getEnv("HIVQE_SERVICE_URL", "http://localhost:9100"),
		HIVQEAPIToken:   getEnv("HIVQE_API_TOKEN", ""),
		Backend:         getEnv("HIVQE_BACKEND", "simulator"),
		UseSession:      getEnvAsBool("HIVQE_USE_SESSION", true),
		PollIntervalSec: getEnvAsInt("POLL_INTERVAL_SEC", 15),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.HIVQEServiceURL == "" {
		return fmt.Errorf("HIVQE_SERVICE_URL is required")
	}
	if c.PollIntervalSec < 1 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be at least 1")
	}

	// Note: API token optional against a local simulator backend
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
