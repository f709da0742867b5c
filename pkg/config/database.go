// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// WarehouseConfig holds connection parameters for the analytical warehouse
type WarehouseConfig struct {
	User      string
	Password  string
	Account   string
	Warehouse string
	Database  string
	Schema    string
	Role      string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// ProfileStoreConfig holds connection parameters for the operational profile
// store. The store authenticates with the IMS org as user and a short-lived
// bearer token as password, so no static password is loaded here.
type ProfileStoreConfig struct {
	Host     string
	Port     int
	User     string // IMS org identifier
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// LoadWarehouseConfig loads warehouse configuration from environment variables
func LoadWarehouseConfig() (*WarehouseConfig, error) {
	user := os.Getenv("WAREHOUSE_USER")
	if user == "" {
		return nil, errors.New("WAREHOUSE_USER environment variable is required")
	}

	password := os.Getenv("WAREHOUSE_PASSWORD")
	if password == "" {
		return nil, errors.New("WAREHOUSE_PASSWORD environment variable is required")
	}

	account := os.Getenv("WAREHOUSE_ACCOUNT")
	if account == "" {
		return nil, errors.New("WAREHOUSE_ACCOUNT environment variable is required")
	}

	warehouse := os.Getenv("WAREHOUSE_COMPUTE")
	if warehouse == "" {
		return nil, errors.New("WAREHOUSE_COMPUTE environment variable is required")
	}

	cfg := &WarehouseConfig{
		User:      user,
		Password:  password,
		Account:   account,
		Warehouse: warehouse,
		Database:  getEnv("WAREHOUSE_DATABASE", "CUSTANWO"),
		Schema:    getEnv("WAREHOUSE_SCHEMA", "CUSTOMER_TRANSFORMATION"),
		Role:      getEnv("WAREHOUSE_ROLE", ""),

		MaxOpenConns:    getEnvAsInt("WAREHOUSE_MAX_OPEN_CONNS", 5),
		MaxIdleConns:    getEnvAsInt("WAREHOUSE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("WAREHOUSE_CONN_MAX_LIFETIME_SECONDS", 600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("WAREHOUSE_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
		QueryTimeout:    time.Duration(getEnvAsInt("WAREHOUSE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// LoadProfileStoreConfig loads profile store configuration from environment variables
func LoadProfileStoreConfig() (*ProfileStoreConfig, error) {
	user := os.Getenv("IMS_ORG")
	if user == "" {
		return nil, errors.New("IMS_ORG environment variable is required")
	}

	database := os.Getenv("PRODDB")
	if database == "" {
		return nil, errors.New("PRODDB environment variable is required")
	}

	host := getEnv("PROFILE_STORE_HOST", "localhost")
	port := getEnvAsInt("PROFILE_STORE_PORT", 5432)

	cfg := &ProfileStoreConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Database: database,
		SSLMode:  getEnv("PROFILE_STORE_SSLMODE", "require"),

		MaxOpenConns:     getEnvAsInt("PROFILE_STORE_MAX_OPEN_CONNS", 5),
		MaxIdleConns:     getEnvAsInt("PROFILE_STORE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  time.Duration(getEnvAsInt("PROFILE_STORE_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt("PROFILE_STORE_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt("PROFILE_STORE_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// ConnectionString returns a formatted profile store connection string.
// The password is a short-lived bearer token supplied per connection.
func (c *ProfileStoreConfig) ConnectionString(password string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		password,
		c.Database,
		c.SSLMode,
	)
}
