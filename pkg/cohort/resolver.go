// pkg/cohort/resolver.go
package cohort

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/queries"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

const dateLayout = "2006-01-02"

// Result tables under the configured prefix.
const (
	ExportSnapshotTable = "gdpr_profile_export_snapshot"
	UserDeletionsTable  = "gdpr_user_deletions"
)

// QueryRunner runs read queries against the analytical warehouse.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) (*warehouse.ResultSet, error)
}

// TableWriter persists row batches into warehouse tables.
type TableWriter interface {
	Append(ctx context.Context, table string, rows []warehouse.Row) error
}

// Resolver computes the set of profile IDs eligible for deletion today by
// intersecting the daily change feed with the profile store snapshot, then
// stages the export snapshot and pending deletion rows.
type Resolver struct {
	warehouse QueryRunner
	profiles  SnapshotSource
	writer    TableWriter
	prefix    string
	dataset   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewResolver creates a cohort resolver
func NewResolver(wh QueryRunner, profiles SnapshotSource, writer TableWriter, prefix, dataset string) *Resolver {
	return &Resolver{
		warehouse: wh,
		profiles:  profiles,
		writer:    writer,
		prefix:    prefix,
		dataset:   dataset,
		logger:    zap.L().Named("cohort-resolver"),
		now:       time.Now,
	}
}

// ResolveDaily refreshes today's deletion cohort. Only profile IDs present in
// BOTH the change feed and the profile store snapshot are staged; a profile
// absent from the snapshot is never queued for deletion. Failures abort the
// remaining work and are returned; the function never panics past this
// boundary.
func (r *Resolver) ResolveDaily(ctx context.Context) error {
	start := r.now()

	feed, err := r.warehouse.RunQuery(ctx, queries.DailyChangeFeed(r.prefix))
	if err != nil {
		r.logger.Error("Daily change feed query failed", zap.Error(err))
		return fmt.Errorf("daily change feed query failed: %w", err)
	}

	accounts := make(map[string]LoyaltyAccountRecord, feed.Len())
	ids := make([]string, 0, feed.Len())
	for _, row := range feed.Rows {
		rec := LoyaltyAccountRecord{
			ProfileID:          row.String("singl_profl_id"),
			WalletID:           row.String("wallet_id"),
			QueryExecutionDate: row.String("query_execution_date"),
		}
		if rec.ProfileID == "" {
			continue
		}
		if _, seen := accounts[rec.ProfileID]; !seen {
			ids = append(ids, rec.ProfileID)
		}
		accounts[rec.ProfileID] = rec
	}

	idList := QuotedIDList(ids)
	if idList == "" {
		// An empty list must never reach the snapshot query.
		r.logger.Info("No deletion candidates in today's change feed")
		return nil
	}

	r.logger.Info("Resolved change feed candidates", zap.Int("candidates", len(ids)))

	snapshot, err := r.profiles.Query(ctx, queries.ProfileStoreSnapshot(r.dataset, idList))
	if err != nil {
		r.logger.Error("Profile store snapshot query failed", zap.Error(err))
		return fmt.Errorf("profile store snapshot query failed: %w", err)
	}

	if snapshot.Empty() {
		r.logger.Info("No change feed candidates exist in the profile store")
		return nil
	}

	today := r.now().Format(dateLayout)

	exportRows := make([]warehouse.Row, 0, snapshot.Len())
	cohortRows := make([]warehouse.Row, 0, snapshot.Len())
	for _, row := range snapshot.Rows {
		rec := ProfileSnapshotRecord{ProfileID: row.String("singl_profl_id")}
		if rec.ProfileID == "" {
			continue
		}

		exportRows = append(exportRows, warehouse.Row{
			"singl_profl_id": rec.ProfileID,
			"execution_date": today,
		})

		// Inner join: only profiles present in both row sets enter the cohort.
		account, ok := accounts[rec.ProfileID]
		if !ok {
			continue
		}
		cohortRows = append(cohortRows, warehouse.Row{
			"singl_profl_id": rec.ProfileID,
			"wallet_id":      nullable(account.WalletID),
			"gdprdate":       today,
			"deletion_date":  today,
			"deletion_flag":  false,
		})
	}

	if err := r.writer.Append(ctx, ExportSnapshotTable, exportRows); err != nil {
		r.logger.Error("Failed to write export snapshot", zap.Error(err))
		return fmt.Errorf("failed to write export snapshot: %w", err)
	}

	if err := r.writer.Append(ctx, UserDeletionsTable, cohortRows); err != nil {
		r.logger.Error("Failed to write pending deletions", zap.Error(err))
		return fmt.Errorf("failed to write pending deletions: %w", err)
	}

	r.logger.Info("Daily cohort resolved",
		zap.Int("snapshot_rows", len(exportRows)),
		zap.Int("cohort_rows", len(cohortRows)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// nullable maps an empty string to SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
