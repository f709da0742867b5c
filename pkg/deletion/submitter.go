// pkg/deletion/submitter.go
package deletion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/config"
	"github.com/faraiwande/gdpr-deletion/pkg/token"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

const dateLayout = "2006-01-02"

// Result tables under the configured prefix.
const (
	DeletionJobsTable  = "gdpr_deletion_jobs"
	UserDeletionsTable = "gdpr_user_deletions"
)

// TokenSource obtains bearer tokens for external API scopes.
type TokenSource interface {
	Token(ctx context.Context, scope token.Scope) (string, error)
}

// TableWriter persists and merges result rows into warehouse tables.
type TableWriter interface {
	Append(ctx context.Context, table string, rows []warehouse.Row) error
	Merge(ctx context.Context, table, matchColumn string, rows []warehouse.Row) error
}

// SubmitResult reports the outcome of one chunk submission. Accepted reflects
// only the external API's answer; PersistErr carries any failure recording
// that answer, so callers can tell "deletion never happened" from "deletion
// happened but bookkeeping failed".
type SubmitResult struct {
	ChunkSize    int
	RequestID    string
	TotalRecords int
	JobsRecorded int
	StatusCode   int
	Accepted     bool
	PersistErr   error
	Err          error
}

// OK reports whether the chunk was accepted and fully recorded
func (r SubmitResult) OK() bool {
	return r.Accepted && r.PersistErr == nil && r.Err == nil
}

// Submitter builds privacy API deletion requests for chunks of profile IDs,
// submits them, and records accepted jobs and deletion flags. A chunk is
// submitted exactly once per run; there is no retry at this layer.
type Submitter struct {
	cfg        *config.AdobeConfig
	tokens     TokenSource
	writer     TableWriter
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewSubmitter creates a deletion submitter
func NewSubmitter(cfg *config.AdobeConfig, tokens TokenSource, writer TableWriter) *Submitter {
	return &Submitter{
		cfg:        cfg,
		tokens:     tokens,
		writer:     writer,
		httpClient: &http.Client{},
		logger:     zap.L().Named("deletion-submitter"),
		now:        time.Now,
	}
}

// SubmitChunk submits one chunk of profile IDs for deletion. The deletion
// flag is flipped only from the API's accepted response, never from local
// intent. All failures are captured in the result; this method never panics
// past its boundary.
func (s *Submitter) SubmitChunk(ctx context.Context, keys []string) SubmitResult {
	result := SubmitResult{ChunkSize: len(keys)}

	users := BuildUsers(keys)
	if len(users) == 0 {
		result.Err = fmt.Errorf("chunk contains no usable profile IDs")
		return result
	}

	payload, err := json.Marshal(NewRequest(s.cfg.IMSOrg, users))
	if err != nil {
		result.Err = fmt.Errorf("failed to encode deletion request: %w", err)
		return result
	}

	bearer, err := s.tokens.Token(ctx, token.ScopeDeletionExecution)
	if err != nil {
		s.logger.Error("Failed to obtain deletion token", zap.Error(err))
		result.Err = err
		return result
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.cfg.PrivacyEndpoint, bytes.NewReader(payload))
	if err != nil {
		result.Err = fmt.Errorf("failed to build deletion request: %w", err)
		return result
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("x-api-key", s.cfg.GDPRAPIKey)
	req.Header.Set("x-gw-ims-org-id", s.cfg.IMSOrg)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Deletion request failed", zap.Error(err))
		result.Err = fmt.Errorf("deletion request failed: %w", err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("Deletion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)))
		return result
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		s.logger.Error("Failed to decode deletion response", zap.Error(err))
		result.Err = fmt.Errorf("failed to decode deletion response: %w", err)
		return result
	}

	result.Accepted = true
	result.RequestID = apiResp.RequestID
	result.TotalRecords = apiResp.TotalRecords
	result.JobsRecorded = len(apiResp.Jobs)

	s.logger.Info("Deletion request accepted",
		zap.String("request_id", apiResp.RequestID),
		zap.Int("total_records", apiResp.TotalRecords),
		zap.Int("jobs", len(apiResp.Jobs)))

	result.PersistErr = s.recordOutcome(ctx, users, apiResp)
	return result
}

// recordOutcome appends the accepted jobs as an audit trail and merges the
// confirmed deletion flags into the user deletions table.
func (s *Submitter) recordOutcome(ctx context.Context, users []User, apiResp Response) error {
	today := s.now().Format(dateLayout)

	jobRows := make([]warehouse.Row, 0, len(apiResp.Jobs))
	for _, job := range apiResp.Jobs {
		jobRows = append(jobRows, warehouse.Row{
			"id":             uuid.New().String(),
			"job_id":         job.JobID,
			"user_key":       job.Customer.User.Key,
			"request_id":     apiResp.RequestID,
			"execution_date": today,
		})
	}

	if err := s.writer.Append(ctx, DeletionJobsTable, jobRows); err != nil {
		s.logger.Error("Failed to record deletion jobs", zap.Error(err))
		return fmt.Errorf("failed to record deletion jobs: %w", err)
	}

	flagRows := make([]warehouse.Row, 0, len(users))
	for _, user := range users {
		flagRows = append(flagRows, warehouse.Row{
			"singl_profl_id": user.Key,
			"deletion_flag":  true,
			"deletion_date":  today,
		})
	}

	if err := s.writer.Merge(ctx, UserDeletionsTable, "singl_profl_id", flagRows); err != nil {
		s.logger.Error("Failed to merge deletion flags", zap.Error(err))
		return fmt.Errorf("failed to merge deletion flags: %w", err)
	}

	return nil
}
