package zohoauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// SafetyMargin is subtracted from the token expiry before it is reused.
	SafetyMargin = 30 * time.Second
	// defaultLifetime applies when the token response has no expires_in.
	defaultLifetime = time.Hour
	tokenPath       = "/oauth/v2/token"
)

// ErrNoCredentials is returned when no usable access token can be produced.
var ErrNoCredentials = errors.New("no access token available")

// TokenProvider is what SalesIQ callers depend on.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// CredentialStore obtains and caches the SalesIQ bearer token.
// Concurrent refreshes are not coalesced: the refresh grant is idempotent and
// the last writer wins.
type CredentialStore struct {
	cfg        config.ZohoConfig
	oauth      oauth2.Config
	httpClient *http.Client
	now        func() time.Time

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func NewCredentialStore(cfg config.ZohoConfig, timeout time.Duration) *CredentialStore {
	return &CredentialStore{
		cfg:        cfg,
		oauth:      newOAuthConfig(cfg),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func newOAuthConfig(cfg config.ZohoConfig) oauth2.Config {
	return oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL: cfg.AccountsURL + tokenPath,
			// Zoho expects client credentials as query/form params
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AccessToken returns the static token when configured, the cached token
// while it is still fresh, and otherwise exchanges the refresh token.
func (s *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	if s.cfg.AccessToken != "" {
		logrus.Debug("[AUTH] using static ZOHO_ACCESS_TOKEN")
		return s.cfg.AccessToken, nil
	}

	if tok, ok := s.cached(); ok {
		return tok, nil
	}

	if !s.cfg.CanRefresh() {
		logrus.Error("[AUTH] no ZOHO_ACCESS_TOKEN and missing refresh/client credentials")
		return "", ErrNoCredentials
	}

	tok, err := s.refresh(ctx)
	if err != nil {
		logrus.WithError(err).Error("[AUTH] refresh token exchange failed")
		return "", ErrNoCredentials
	}
	return tok, nil
}

func (s *CredentialStore) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.now().Before(s.expiry.Add(-SafetyMargin)) {
		return "", false
	}
	return s.token, true
}

func (s *CredentialStore) refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	src := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.cfg.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return "", fmt.Errorf("token endpoint returned %d: %s", rerr.Response.StatusCode, string(rerr.Body))
		}
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	now := s.now()
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultLifetime)
	}

	s.mu.Lock()
	s.token = tok.AccessToken
	s.expiry = expiry
	s.mu.Unlock()

	logrus.WithField("token", Preview(tok.AccessToken)).
		Infof("[AUTH] access token refreshed, expires %s", humanize.RelTime(expiry, now, "ago", "from now"))
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (s *CredentialStore) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

// Exchange trades a one-time authorization code for tokens. It is only used
// by the manual /oauth2callback flow that issues the initial refresh token.
func (s *CredentialStore) Exchange(ctx context.Context, code, redirectURI string) (map[string]any, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, ErrMissingClient
	}

	oc := s.oauth
	if redirectURI != "" {
		oc.RedirectURL = redirectURI
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return nil, fmt.Errorf("code exchange returned %d: %s", rerr.Response.StatusCode, string(rerr.Body))
		}
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	out := map[string]any{
		"access_token":  tok.AccessToken,
		"refresh_token": tok.RefreshToken,
		"token_type":    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		out["expires_in"] = int64(tok.Expiry.Sub(s.now()).Round(time.Second).Seconds())
	}
	if v := tok.Extra("api_domain"); v != nil {
		out["api_domain"] = v
	}
	logrus.WithField("token", Preview(tok.AccessToken)).Info("[AUTH] authorization code exchanged")
	return out, nil
}

// ErrMissingClient is returned by Exchange without client id/secret.
var ErrMissingClient = errors.New("ZOHO_CLIENT_ID or ZOHO_CLIENT_SECRET not configured")

// Preview returns the first 20 characters of a token, safe for logs.
func Preview(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 20 {
		return token[:len(token)/2] + "..."
	}
	return token[:20] + "..."
}
