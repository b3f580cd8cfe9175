// Package lcapi implements the Trados Language Cloud API client: token
// lifecycle, device authorization, the authenticated request gateway, and
// skip/top pagination.
package lcapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// TokenURL is the Auth0 token-exchange endpoint.
	TokenURL = "https://sdl-prod.eu.auth0.com/oauth/token"

	// DeviceCodeURL is the Auth0 device-authorization endpoint.
	DeviceCodeURL = "https://sdl-prod.eu.auth0.com/oauth/device/code"

	// APIAudience is the audience parameter sent on every grant.
	APIAudience = "https://api.sdl.com"

	// TokenSkew is the safety margin subtracted from a token's expiry so it
	// is treated as invalid slightly before the server does.
	TokenSkew = 5 * time.Minute

	// tokenTimeout bounds calls to the authorization server.
	tokenTimeout = 30 * time.Second

	// defaultTokenTTL is assumed when the server omits expires_in.
	defaultTokenTTL = 86400 * time.Second
)

// deviceScopes is the scope set requested during device authorization.
// offline_access is what yields a refresh token.
var deviceScopes = []string{"openid", "profile", "email", "offline_access"}

// TokenManager owns the OAuth2 credential for one client/tenant pair. All
// token mutation goes through it; a refresh either commits a complete new
// token pair or leaves the stored credential untouched.
type TokenManager struct {
	clientID     string
	clientSecret string

	tokenURL      string
	deviceAuthURL string
	audience      string

	// clientCredentials enables the client_credentials grant as a fallback
	// when no refresh token is stored (service-account deployments).
	clientCredentials bool

	hc      *http.Client
	persist func(*oauth2.Token) error
	log     *zap.Logger

	mu     sync.Mutex
	tok    *oauth2.Token
	failed bool
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenHTTPClient sets the HTTP client used for token-endpoint calls.
func WithTokenHTTPClient(hc *http.Client) TokenOption {
	return func(m *TokenManager) { m.hc = hc }
}

// WithEndpoints overrides the authorization-server endpoints.
func WithEndpoints(tokenURL, deviceAuthURL string) TokenOption {
	return func(m *TokenManager) {
		m.tokenURL = tokenURL
		m.deviceAuthURL = deviceAuthURL
	}
}

// WithAudience overrides the audience parameter.
func WithAudience(audience string) TokenOption {
	return func(m *TokenManager) { m.audience = audience }
}

// WithPersist registers a callback invoked with every committed token pair.
// Persistence failures are logged, not fatal; the in-memory token stays
// usable for the rest of the process lifetime.
func WithPersist(fn func(*oauth2.Token) error) TokenOption {
	return func(m *TokenManager) { m.persist = fn }
}

// WithClientCredentials enables the client_credentials grant fallback.
func WithClientCredentials() TokenOption {
	return func(m *TokenManager) { m.clientCredentials = true }
}

// WithTokenLogger sets the logger.
func WithTokenLogger(log *zap.Logger) TokenOption {
	return func(m *TokenManager) { m.log = log }
}

// NewTokenManager creates a token manager seeded with a stored token, which
// may be nil when the client has never authorized.
func NewTokenManager(clientID, clientSecret string, tok *oauth2.Token, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		clientID:      clientID,
		clientSecret:  clientSecret,
		tokenURL:      TokenURL,
		deviceAuthURL: DeviceCodeURL,
		audience:      APIAudience,
		hc:            http.DefaultClient,
		log:           zap.NewNop(),
		tok:           tok,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a usable access token, refreshing if necessary. A cached
// token whose expiry is more than TokenSkew away is returned without I/O.
// Concurrent callers during a refresh wait for and reuse its result.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usableLocked() {
		return m.tok.AccessToken, nil
	}

	if m.failed {
		return "", &AuthError{Reason: "re-authorization required"}
	}

	if m.tok != nil && m.tok.RefreshToken != "" {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
		return m.tok.AccessToken, nil
	}

	if m.clientCredentials && m.clientSecret != "" {
		if err := m.clientCredentialsLocked(ctx); err != nil {
			return "", err
		}
		return m.tok.AccessToken, nil
	}

	return "", &AuthError{Reason: "no access token and no refresh token"}
}

// Invalidate discards the cached access token while keeping the refresh
// token, forcing the next Token call to refresh. Called by the gateway on
// a 401 response.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return
	}
	m.tok.AccessToken = ""
	m.tok.Expiry = time.Time{}
}

// SetToken commits a token pair obtained out of band (device authorization)
// and clears any failed state.
func (m *TokenManager) SetToken(tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked(tok)
}

func (m *TokenManager) usableLocked() bool {
	if m.tok == nil || m.tok.AccessToken == "" {
		return false
	}
	if m.tok.Expiry.IsZero() {
		return true
	}
	return time.Now().Before(m.tok.Expiry.Add(-TokenSkew))
}

// refreshLocked exchanges the refresh token for a new pair. The server
// rejecting the refresh token is terminal until re-authorization; transport
// failures leave the stored credential untouched.
func (m *TokenManager) refreshLocked(ctx context.Context) error {
	m.log.Debug("refreshing access token", zap.String("client_id", m.clientID))

	ctx, cancel := context.WithTimeout(m.withHTTPClient(ctx), tokenTimeout)
	defer cancel()

	conf := m.oauthConfig()
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.tok.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			m.failed = true
			m.log.Warn("refresh token rejected", zap.Error(err))
			return &AuthError{Reason: "refresh token rejected", Err: err}
		}
		return &NetworkError{Op: "token refresh", Err: err}
	}

	// The server may rotate the refresh token; keep the old one otherwise.
	if tok.RefreshToken == "" {
		tok.RefreshToken = m.tok.RefreshToken
	}
	m.commitLocked(tok)
	m.log.Debug("access token refreshed", zap.Time("expiry", tok.Expiry))
	return nil
}

func (m *TokenManager) clientCredentialsLocked(ctx context.Context) error {
	m.log.Debug("requesting token via client_credentials", zap.String("client_id", m.clientID))

	ctx, cancel := context.WithTimeout(m.withHTTPClient(ctx), tokenTimeout)
	defer cancel()

	cc := &clientcredentials.Config{
		ClientID:       m.clientID,
		ClientSecret:   m.clientSecret,
		TokenURL:       m.tokenURL,
		EndpointParams: url.Values{"audience": {m.audience}},
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return &AuthError{Reason: "client credentials rejected", Err: err}
		}
		return &NetworkError{Op: "client credentials grant", Err: err}
	}
	m.commitLocked(tok)
	return nil
}

// commitLocked atomically installs a new token pair and persists it.
func (m *TokenManager) commitLocked(tok *oauth2.Token) {
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(defaultTokenTTL)
	}
	m.tok = tok
	m.failed = false
	if m.persist != nil {
		if err := m.persist(tok); err != nil {
			m.log.Warn("failed to persist token", zap.Error(err))
		}
	}
}

func (m *TokenManager) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Scopes:       deviceScopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:      m.tokenURL,
			DeviceAuthURL: m.deviceAuthURL,
		},
	}
}

func (m *TokenManager) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.hc)
}
