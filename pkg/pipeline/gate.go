// pkg/pipeline/gate.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/deletion"
	"github.com/faraiwande/gdpr-deletion/pkg/queries"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

// QueryRunner runs read queries against the analytical warehouse.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) (*warehouse.ResultSet, error)
}

// CohortResolver refreshes the daily deletion candidate set.
type CohortResolver interface {
	ResolveDaily(ctx context.Context) error
}

// ChunkSubmitter submits one chunk of profile IDs for deletion.
type ChunkSubmitter interface {
	SubmitChunk(ctx context.Context, keys []string) deletion.SubmitResult
}

// Gate orchestrates deletion runs for a date. Chunks are submitted strictly
// in sequence so failure attribution stays per-chunk and the external API's
// rate tolerance is respected. Whether a failure stops the run is decided by
// its category and the run mode, not by the call site.
type Gate struct {
	warehouse QueryRunner
	resolver  CohortResolver
	submitter ChunkSubmitter
	leases    LeaseManager
	prefix    string
	chunkSize int
	threshold int
	logger    *zap.Logger
}

// NewGate creates an execution gate
func NewGate(
	wh QueryRunner,
	resolver CohortResolver,
	submitter ChunkSubmitter,
	leases LeaseManager,
	prefix string,
	chunkSize int,
	threshold int,
) *Gate {
	return &Gate{
		warehouse: wh,
		resolver:  resolver,
		submitter: submitter,
		leases:    leases,
		prefix:    prefix,
		chunkSize: chunkSize,
		threshold: threshold,
		logger:    zap.L().Named("execution-gate"),
	}
}

// RunManual executes deletions for a date unconditionally, regardless of
// cohort size. The operator sees the overall outcome in the result notices.
func (g *Gate) RunManual(ctx context.Context, date time.Time) *RunResult {
	result := NewRunResult(ModeManual, date)
	day := date.Format("2006-01-02")

	release, err := g.leases.Acquire(ctx, date)
	if err != nil {
		return g.abortOnLease(result, day, err)
	}
	defer release()

	keys, failure := g.fetchPending(ctx, date)
	if failure != nil {
		result.Failure = failure
		result.AddNotice(NoticeError, "Failed to fetch pending deletions for %s: %v", day, failure.Err)
		return result.Complete(StateAborted)
	}

	result.Pending = len(keys)
	if len(keys) == 0 {
		g.logger.Info("No user deletions to process", zap.String("date", day))
		result.AddNotice(NoticeInfo, "No user deletions to process for %s.", day)
		return result.Complete(StateEmpty)
	}

	return g.submitChunks(ctx, result, keys, day)
}

// RunScheduled executes an unattended daily run. It first refreshes today's
// candidate set, then applies the record-count safety gate: at or above the
// threshold nothing is submitted and an operator must intervene.
func (g *Gate) RunScheduled(ctx context.Context, date time.Time) *RunResult {
	result := NewRunResult(ModeScheduled, date)
	day := date.Format("2006-01-02")

	// Refresh today's cohort regardless of the target date. A resolver
	// failure leaves previously staged deletions processable.
	if err := g.resolver.ResolveDaily(ctx); err != nil {
		g.logger.Error("Cohort resolution failed", zap.Error(err))
		result.AddNotice(NoticeWarning, "Cohort resolution failed: %v", err)
	}

	release, err := g.leases.Acquire(ctx, date)
	if err != nil {
		return g.abortOnLease(result, day, err)
	}
	defer release()

	keys, failure := g.fetchPending(ctx, date)
	if failure != nil {
		result.Failure = failure
		result.AddNotice(NoticeError, "Failed to fetch pending deletions for %s: %v", day, failure.Err)
		return result.Complete(StateAborted)
	}

	result.Pending = len(keys)

	if len(keys) >= g.threshold {
		g.logger.Warn("Pending count at or above threshold, manual intervention required",
			zap.String("date", day),
			zap.Int("pending", len(keys)),
			zap.Int("threshold", g.threshold))
		result.AddNotice(NoticeWarning,
			"%d records found for %s. Manual intervention required.", len(keys), day)
		return result.Complete(StateThresholdExceeded)
	}

	if len(keys) == 0 {
		g.logger.Info("No user deletions to process", zap.String("date", day))
		result.AddNotice(NoticeInfo, "No user deletions to process for %s.", day)
		return result.Complete(StateEmpty)
	}

	g.logger.Info("Proceeding with automatic deletion",
		zap.String("date", day),
		zap.Int("pending", len(keys)))

	return g.submitChunks(ctx, result, keys, day)
}

// submitChunks partitions the pending set and submits each chunk in order.
// A failed chunk halts the run when its category demands it for the run's
// mode; otherwise the failure is reported and the remaining chunks proceed.
func (g *Gate) submitChunks(ctx context.Context, result *RunResult, keys []string, day string) *RunResult {
	chunks := deletion.Chunks(keys, g.chunkSize)
	result.State = StateChunking
	result.Chunks = len(chunks)

	for i, chunk := range chunks {
		result.State = StateSubmitting
		res := g.submitter.SubmitChunk(ctx, chunk)
		if res.OK() {
			result.SubmittedChunks++
			continue
		}

		result.FailedChunks++
		failure := chunkFailure(res)
		g.logChunkFailure(day, i, len(chunks), res)

		if !failure.Category.Halts(result.Mode) {
			result.AddNotice(NoticeWarning, "Chunk %d of %d failed for %s.", i+1, len(chunks), day)
			continue
		}

		result.Failure = failure
		result.AddNotice(NoticeError,
			"Chunk %d of %d failed for %s; halting run.", i+1, len(chunks), day)
		return result.Complete(StateAborted)
	}

	if result.FailedChunks == 0 {
		g.logger.Info("Processed GDPR deletions",
			zap.String("date", day),
			zap.Int("chunks", result.Chunks))
		result.AddNotice(NoticeSuccess, "Successfully processed GDPR deletions for %s.", day)
	} else {
		result.AddNotice(NoticeWarning,
			"Processed GDPR deletions for %s with %d of %d chunks failed.",
			day, result.FailedChunks, result.Chunks)
	}

	return result.Complete(StateDone)
}

// fetchPending loads the profile IDs still flagged for deletion on a date
func (g *Gate) fetchPending(ctx context.Context, date time.Time) ([]string, *Failure) {
	rs, err := g.warehouse.RunQuery(ctx, queries.PendingDeletionsByDate(g.prefix, date))
	if err != nil {
		return nil, NewFailure(CategoryQuery, err)
	}
	return rs.Strings("singl_profl_id"), nil
}

// chunkFailure classifies a failed chunk submission. A persistence error
// means the deletion happened but its bookkeeping did not; anything else is
// a submission that failed or was rejected.
func chunkFailure(res deletion.SubmitResult) *Failure {
	switch {
	case res.PersistErr != nil:
		return NewFailure(CategoryPersistence, res.PersistErr)
	case res.Err != nil:
		return NewFailure(CategorySubmission, res.Err)
	default:
		return NewFailure(CategorySubmission,
			fmt.Errorf("deletion request returned status %d", res.StatusCode))
	}
}

// abortOnLease records a lease acquisition failure and finishes the run
func (g *Gate) abortOnLease(result *RunResult, day string, err error) *RunResult {
	result.Failure = NewFailure(CategoryLease, err)
	if errors.Is(err, ErrLeaseHeld) {
		result.AddNotice(NoticeWarning,
			"Another deletion run is in progress for %s; not starting.", day)
	} else {
		result.AddNotice(NoticeError, "Failed to acquire run lease for %s: %v", day, err)
	}
	return result.Complete(StateAborted)
}

// logChunkFailure logs one failed chunk submission with its cause
func (g *Gate) logChunkFailure(day string, index, total int, res deletion.SubmitResult) {
	fields := []zap.Field{
		zap.String("date", day),
		zap.Int("chunk", index+1),
		zap.Int("chunks", total),
		zap.Int("status", res.StatusCode),
	}
	if res.Err != nil {
		fields = append(fields, zap.NamedError("submit_error", res.Err))
	}
	if res.PersistErr != nil {
		fields = append(fields, zap.NamedError("persist_error", res.PersistErr))
	}
	g.logger.Error(fmt.Sprintf("Failed to process chunk %d of %d", index+1, total), fields...)
}
