// pkg/pipeline/lease.go
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/config"
	"github.com/faraiwande/gdpr-deletion/pkg/connector"
	"github.com/faraiwande/gdpr-deletion/pkg/token"
)

// leaseTable holds one row per run date. A row with an unexpired TTL means a
// run owns that date; concurrent manual and scheduled runs for the same date
// contend on it instead of double-submitting deletions.
const leaseTable = "deletion_run_leases"

// ErrLeaseHeld is returned when another run holds the date's lease
var ErrLeaseHeld = errors.New("deletion run lease is held by another run")

// LeaseManager acquires per-date run leases
type LeaseManager interface {
	// Acquire takes the lease for a date, returning a release function.
	Acquire(ctx context.Context, date time.Time) (func(), error)
}

// TokenSource obtains bearer tokens for external API scopes.
type TokenSource interface {
	Token(ctx context.Context, scope token.Scope) (string, error)
}

// StoreLease implements LeaseManager against the operational profile store.
type StoreLease struct {
	cfg    *config.ProfileStoreConfig
	tokens TokenSource
	ttl    time.Duration
	owner  string
	logger *zap.Logger
}

// NewStoreLease creates a lease manager with a process-unique owner ID
func NewStoreLease(cfg *config.ProfileStoreConfig, tokens TokenSource, ttl time.Duration) *StoreLease {
	return &StoreLease{
		cfg:    cfg,
		tokens: tokens,
		ttl:    ttl,
		owner:  uuid.New().String(),
		logger: zap.L().Named("run-lease"),
	}
}

// Acquire inserts the date's lease row, taking over an expired lease if one
// exists. Returns ErrLeaseHeld when another live run owns the date.
func (l *StoreLease) Acquire(ctx context.Context, date time.Time) (func(), error) {
	tok, err := l.tokens.Token(ctx, token.ScopeProfileQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token for lease: %w", err)
	}

	conn, err := connector.NewProfileStoreConnector(ctx, l.cfg, tok)
	if err != nil {
		return nil, err
	}

	day := date.Format("2006-01-02")

	stmt := fmt.Sprintf(`
		INSERT INTO %s (run_date, owner, acquired_at, expires_at)
		VALUES ($1, $2, now(), now() + make_interval(secs => $3))
		ON CONFLICT (run_date) DO UPDATE
		SET owner = EXCLUDED.owner,
		    acquired_at = now(),
		    expires_at = now() + make_interval(secs => $3)
		WHERE %s.expires_at < now()
		RETURNING owner`, leaseTable, leaseTable)

	var owner string
	err = conn.DB().QueryRowContext(ctx, stmt, day, l.owner, l.ttl.Seconds()).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		conn.Close()
		l.logger.Warn("Run lease held by another run", zap.String("date", day))
		return nil, ErrLeaseHeld
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire run lease: %w", err)
	}

	l.logger.Info("Acquired run lease",
		zap.String("date", day),
		zap.String("owner", l.owner))

	release := func() {
		defer conn.Close()
		_, err := conn.DB().ExecContext(context.Background(),
			fmt.Sprintf("DELETE FROM %s WHERE run_date = $1 AND owner = $2", leaseTable),
			day, l.owner)
		if err != nil {
			// The TTL reclaims an unreleased lease.
			l.logger.Warn("Failed to release run lease",
				zap.String("date", day),
				zap.Error(err))
			return
		}
		l.logger.Info("Released run lease", zap.String("date", day))
	}

	return release, nil
}
