// pkg/token/provider.go
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/config"
)

// Scope selects which client-credential pair is exchanged for a token.
type Scope int

const (
	// ScopeProfileQuery authorizes reads against the profile store
	ScopeProfileQuery Scope = iota
	// ScopeDeletionExecution authorizes privacy API deletion submissions
	ScopeDeletionExecution
)

// String returns a string representation of the scope
func (s Scope) String() string {
	switch s {
	case ScopeProfileQuery:
		return "profile-query"
	case ScopeDeletionExecution:
		return "deletion-execution"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Provider exchanges IMS client credentials for short-lived bearer tokens.
// An invalid token must halt the pipeline, so exchange failures propagate to
// the caller once the bounded retry is exhausted.
type Provider struct {
	cfg    *config.AdobeConfig
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewProvider creates a token provider. The HTTP client retries up to 3
// times with exponential backoff starting at 1s, and only on 500/502/503/504.
func NewProvider(cfg *config.AdobeConfig) *Provider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 8 * time.Second
	client.Logger = nil
	client.CheckRetry = retryOnServerError

	return &Provider{
		cfg:    cfg,
		client: client,
		logger: zap.L().Named("token-provider"),
	}
}

// retryOnServerError retries connection failures and the retryable 5xx
// statuses; everything else is terminal.
func retryOnServerError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// Token obtains a bearer token for the given scope. All required credential
// variables are validated before any network call; a missing credential fails
// fast with every absent variable named.
func (p *Provider) Token(ctx context.Context, scope Scope) (string, error) {
	if err := p.cfg.ValidateCredentials(); err != nil {
		return "", err
	}

	clientID := p.cfg.APIKey
	clientSecret := p.cfg.ClientSecret
	if scope == ScopeDeletionExecution {
		clientID = p.cfg.GDPRAPIKey
		clientSecret = p.cfg.GDPRClientSecret
	}

	form := url.Values{
		"client_id":     {clientID},
		"scope":         {p.cfg.Scopes},
		"client_secret": {clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("Token exchange failed",
			zap.String("scope", scope.String()),
			zap.Error(err))
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		p.logger.Error("Token endpoint returned error",
			zap.String("scope", scope.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}

	return payload.AccessToken, nil
}
