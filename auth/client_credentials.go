// Package auth implements the client-credentials token source used by
// providers that require a bearer exchange. Tokens are cached per
// source instance and refreshed lazily once their validity window has
// passed; concurrent callers during a refresh may each trigger their
// own exchange, which is tolerable because the exchange is idempotent.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-payments/core"
)

const (
	defaultTokenTTL   = 8 * time.Hour
	defaultExpirySkew = 5 * time.Minute
)

type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	// TokenTTL caps how long an issued token is trusted locally,
	// regardless of the provider's reported expires_in.
	TokenTTL time.Duration
	// ExpirySkew is subtracted from the provider TTL so a token is
	// never used at the edge of its expiry.
	ExpirySkew time.Duration
	Provider   string
	Now        func() time.Time
}

type ClientCredentialsSource struct {
	config    ClientCredentialsConfig
	transport core.TransportAdapter
	reporter  core.ErrorReporter

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClientCredentialsSource(
	cfg ClientCredentialsConfig,
	transport core.TransportAdapter,
	reporter core.ErrorReporter,
) (*ClientCredentialsSource, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, core.ValidationError("auth: client id is required", nil)
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, core.ValidationError("auth: client secret is required", nil)
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, core.ValidationError("auth: token url is required", nil)
	}
	if transport == nil {
		return nil, core.InternalError("auth: transport adapter is required", nil)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.ExpirySkew <= 0 {
		cfg.ExpirySkew = defaultExpirySkew
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &ClientCredentialsSource{
		config:    cfg,
		transport: transport,
		reporter:  reporter,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns the cached token while it is still inside its validity
// window, otherwise performs a blocking credential exchange.
func (s *ClientCredentialsSource) Token(ctx context.Context) (string, error) {
	if s == nil {
		return "", core.InternalError("auth: token source is nil", nil)
	}

	now := s.config.Now().UTC()
	s.mu.Lock()
	if s.token != "" && now.Before(s.expiresAt) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	token, expiresAt, err := s.exchange(ctx)
	if err != nil {
		if s.reporter != nil {
			s.reporter.ReportError(ctx, core.OperationAuth, s.config.Provider, err, nil)
		}
		return "", err
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()
	return token, nil
}

func (s *ClientCredentialsSource) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

func (s *ClientCredentialsSource) exchange(ctx context.Context) (string, time.Time, error) {
	basic := base64.StdEncoding.EncodeToString(
		[]byte(strings.TrimSpace(s.config.ClientID) + ":" + strings.TrimSpace(s.config.ClientSecret)),
	)
	res, err := s.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    s.config.TokenURL,
		Headers: map[string]string{
			"Authorization": "Basic " + basic,
			"Content-Type":  "application/x-www-form-urlencoded",
			"Accept":        "application/json",
		},
		Body: []byte("grant_type=client_credentials"),
	})
	if err != nil {
		return "", time.Time{}, core.AuthError("auth: credential exchange failed", err, map[string]any{
			"provider": s.config.Provider,
		})
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", time.Time{}, core.AuthError(
			fmt.Sprintf("auth: credential exchange returned status %d", res.StatusCode),
			nil,
			map[string]any{
				"provider":        s.config.Provider,
				"provider_status": res.StatusCode,
				"provider_body":   string(res.Body),
			},
		)
	}

	var payload tokenResponse
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return "", time.Time{}, core.AuthError("auth: decode credential exchange response", err, map[string]any{
			"provider": s.config.Provider,
		})
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", time.Time{}, core.AuthError("auth: credential exchange returned no access token", nil, map[string]any{
			"provider": s.config.Provider,
		})
	}

	validity := s.config.TokenTTL
	if payload.ExpiresIn > 0 {
		reported := time.Duration(payload.ExpiresIn)*time.Second - s.config.ExpirySkew
		if reported > 0 && reported < validity {
			validity = reported
		}
	}
	return payload.AccessToken, s.config.Now().UTC().Add(validity), nil
}

var _ core.TokenSource = (*ClientCredentialsSource)(nil)
