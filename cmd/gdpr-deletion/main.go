// cmd/gdpr-deletion/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/faraiwande/gdpr-deletion/pkg/cohort"
	"github.com/faraiwande/gdpr-deletion/pkg/config"
	"github.com/faraiwande/gdpr-deletion/pkg/connector"
	"github.com/faraiwande/gdpr-deletion/pkg/deletion"
	"github.com/faraiwande/gdpr-deletion/pkg/pipeline"
	"github.com/faraiwande/gdpr-deletion/pkg/scheduler"
	"github.com/faraiwande/gdpr-deletion/pkg/server"
	"github.com/faraiwande/gdpr-deletion/pkg/token"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; environment wins in deployment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	whConn, err := connector.NewWarehouseConnector(ctx, cfg.Warehouse)
	if err != nil {
		return err
	}
	defer whConn.Close()

	if err := whConn.Validate(); err != nil {
		return err
	}

	whClient := warehouse.NewClient(whConn, cfg.PageSize, cfg.Warehouse.QueryTimeout)
	writer := warehouse.NewWriter(whConn, cfg.TablePrefix, cfg.Warehouse.QueryTimeout)

	tokens := token.NewProvider(cfg.Adobe)
	profiles := cohort.NewProfileStore(cfg.ProfileStore, tokens, cfg.PageSize, cfg.ProfileStore.StatementTimeout)
	resolver := cohort.NewResolver(whClient, profiles, writer, cfg.TablePrefix, cfg.Adobe.SnapshotDataset)
	submitter := deletion.NewSubmitter(cfg.Adobe, tokens, writer)
	leases := pipeline.NewStoreLease(cfg.ProfileStore, tokens, cfg.LeaseTTL)

	gate := pipeline.NewGate(
		whClient,
		resolver,
		submitter,
		leases,
		cfg.TablePrefix,
		cfg.ChunkSize,
		cfg.AutoRunThreshold,
	)

	sched, err := scheduler.New(func() {
		logger.Info("Starting scheduled GDPR deletions run")
		result := gate.RunScheduled(context.Background(), time.Now())
		logger.Info("Scheduled GDPR deletions run finished",
			zap.String("state", result.State.String()),
			zap.Int("pending", result.Pending),
			zap.Int("submitted_chunks", result.SubmittedChunks),
			zap.Int("failed_chunks", result.FailedChunks),
			zap.Duration("duration", result.Duration))
	})
	if err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	srv := server.NewServer(cfg.HTTPAddr, server.NewRouter(gate, whClient, cfg.TablePrefix, logger), logger)
	srv.Start()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildLogger constructs the process logger from LOG_LEVEL / LOG_FORMAT
func buildLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
