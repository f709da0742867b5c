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
	// Data stores
	Warehouse    *WarehouseConfig
	ProfileStore *ProfileStoreConfig

	// Adobe IMS / Privacy Service credentials
	Adobe *AdobeConfig

	// Pipeline settings
	ChunkSize        int           // profile IDs per privacy API call
	AutoRunThreshold int           // pending-record count that blocks unattended runs
	PageSize         int           // rows fetched per page when reading query results
	TablePrefix      string        // fully-qualified <catalog>.<schema> for result tables
	LeaseTTL         time.Duration // per-date run lease lifetime

	// HTTP operator surface
	HTTPAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ChunkSize:        getEnvAsInt("CHUNK_SIZE", 800),
		AutoRunThreshold: getEnvAsInt("AUTO_RUN_THRESHOLD", 1000),
		PageSize:         getEnvAsInt("QUERY_PAGE_SIZE", 1000),
		TablePrefix:      getEnv("TABLE_PREFIX", "custanwo.customer_transformation"),
		LeaseTTL:         time.Duration(getEnvAsInt("LEASE_TTL_SECONDS", 3600)) * time.Second,
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	whConfig, err := LoadWarehouseConfig()
	if err != nil {
		return nil, errors.New("failed to load warehouse configuration: " + err.Error())
	}
	cfg.Warehouse = whConfig

	psConfig, err := LoadProfileStoreConfig()
	if err != nil {
		return nil, errors.New("failed to load profile store configuration: " + err.Error())
	}
	cfg.ProfileStore = psConfig

	cfg.Adobe = LoadAdobeConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Warehouse == nil {
		return errors.New("warehouse configuration is required")
	}

	if c.ProfileStore == nil {
		return errors.New("profile store configuration is required")
	}

	if c.Adobe == nil {
		return errors.New("Adobe IMS configuration is required")
	}

	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.AutoRunThreshold <= 0 {
		return errors.New("auto run threshold must be positive")
	}

	if c.PageSize <= 0 {
		return errors.New("query page size must be positive")
	}

	if c.TablePrefix == "" {
		return errors.New("table prefix is required")
	}

	return nil
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
