// pkg/connector/profilestore.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/config"
)

// ProfileStoreConnector implements the DatabaseConnector interface for the
// operational profile store. Authentication uses the IMS org as user and a
// short-lived bearer token as password, so connections are opened per run
// rather than held for the process lifetime.
type ProfileStoreConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.ProfileStoreConfig
}

// NewProfileStoreConnector creates a profile store connection authenticated
// with the given bearer token.
func NewProfileStoreConnector(ctx context.Context, cfg *config.ProfileStoreConfig, token string) (*ProfileStoreConnector, error) {
	logger := zap.L().Named("profile-store-connector")

	logger.Info("Connecting to profile store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sql.Open("pgx", cfg.ConnectionString(token))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile store connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to profile store: %w", err)
	}

	return &ProfileStoreConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// DB returns the underlying database connection
func (c *ProfileStoreConnector) DB() *sql.DB {
	return c.db
}

// Validate verifies the profile store connection
func (c *ProfileStoreConnector) Validate() error {
	var version string
	err := c.db.QueryRow("SELECT version()").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to query profile store version: %w", err)
	}
	c.logger.Info("Connected to profile store", zap.String("version", version))
	return nil
}

// Close closes the database connection
func (c *ProfileStoreConnector) Close() error {
	c.logger.Info("Closing profile store connection")
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout; a non-positive
// timeout runs under the caller's context alone.
func (c *ProfileStoreConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.db.ExecContext(execCtx, query, args...)
}
