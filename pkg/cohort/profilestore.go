// pkg/cohort/profilestore.go
package cohort

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/config"
	"github.com/faraiwande/gdpr-deletion/pkg/connector"
	"github.com/faraiwande/gdpr-deletion/pkg/token"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

// TokenSource obtains bearer tokens for external API scopes.
type TokenSource interface {
	Token(ctx context.Context, scope token.Scope) (string, error)
}

// SnapshotSource runs read queries against the operational profile store.
type SnapshotSource interface {
	Query(ctx context.Context, query string) (*warehouse.ResultSet, error)
}

// ProfileStore opens a token-authenticated connection per query. The store
// authenticates with a short-lived bearer token as password, so connections
// cannot outlive the token and are scoped to a single call.
type ProfileStore struct {
	cfg      *config.ProfileStoreConfig
	tokens   TokenSource
	pageSize int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProfileStore creates a per-call profile store query source
func NewProfileStore(cfg *config.ProfileStoreConfig, tokens TokenSource, pageSize int, timeout time.Duration) *ProfileStore {
	return &ProfileStore{
		cfg:      cfg,
		tokens:   tokens,
		pageSize: pageSize,
		timeout:  timeout,
		logger:   zap.L().Named("profile-store"),
	}
}

// Query obtains a profile-query token, connects, runs the query, and closes
// the connection on every exit path. The connection is validated before use
// because the token may authenticate without granting store access.
func (s *ProfileStore) Query(ctx context.Context, query string) (*warehouse.ResultSet, error) {
	tok, err := s.tokens.Token(ctx, token.ScopeProfileQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain profile query token: %w", err)
	}

	conn, err := connector.NewProfileStoreConnector(ctx, s.cfg, tok)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Validate(); err != nil {
		return nil, err
	}

	client := warehouse.NewClient(conn, s.pageSize, s.timeout)
	return client.RunQuery(ctx, query)
}
