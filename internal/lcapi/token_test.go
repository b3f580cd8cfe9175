package lcapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// panicTransport fails the test if any request goes out.
type panicTransport struct{ t *testing.T }

func (p panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	p.t.Fatal("unexpected HTTP request")
	return nil, nil
}

func tokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenCachedWithoutIO(t *testing.T) {
	tok := &oauth2.Token{
		AccessToken: "cached",
		Expiry:      time.Now().Add(time.Hour),
	}
	m := NewTokenManager("id", "secret", tok,
		WithTokenHTTPClient(&http.Client{Transport: panicTransport{t}}))

	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached", got)
}

func TestTokenNearExpiryTriggersRefresh(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		require.Equal(t, "r1", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "r2",
			"expires_in":    3600,
			"token_type":    "Bearer",
		})
	})

	// Inside the skew window, so the cached token must not be used.
	tok := &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Minute),
	}
	var persisted *oauth2.Token
	m := NewTokenManager("id", "secret", tok,
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()),
		WithPersist(func(t *oauth2.Token) error {
			persisted = t
			return nil
		}))

	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", got)
	require.NotNil(t, persisted)
	require.Equal(t, "r2", persisted.RefreshToken)
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	var persisted *oauth2.Token
	m := NewTokenManager("id", "secret",
		&oauth2.Token{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)},
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()),
		WithPersist(func(t *oauth2.Token) error {
			persisted = t
			return nil
		}))

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "r1", persisted.RefreshToken)
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	// The server is slow on purpose so every caller arrives while the first
	// refresh is still in flight.
	var requests int32
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	m := NewTokenManager("id", "secret",
		&oauth2.Token{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)},
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()))

	const callers = 8
	got := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = m.Token(context.Background())
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&requests))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "fresh", got[i])
	}
}

func TestRefreshRejectionIsTerminal(t *testing.T) {
	requests := 0
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	})

	m := NewTokenManager("id", "secret",
		&oauth2.Token{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)},
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()))

	_, err := m.Token(context.Background())
	require.True(t, IsAuth(err))
	require.Equal(t, 1, requests)

	// Terminal: no further I/O until re-authorization.
	_, err = m.Token(context.Background())
	require.True(t, IsAuth(err))
	require.Equal(t, 1, requests)

	// SetToken clears the failed state.
	m.SetToken(&oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)})
	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new", got)
}

func TestRefreshTransportErrorIsNotTerminal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	hc := srv.Client()
	url := srv.URL
	srv.Close() // connection refused from here on

	m := NewTokenManager("id", "secret",
		&oauth2.Token{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)},
		WithEndpoints(url, url),
		WithTokenHTTPClient(hc))

	_, err := m.Token(context.Background())
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)

	// The stored credential survives; the next call tries again.
	_, err = m.Token(context.Background())
	require.ErrorAs(t, err, &ne)
}

func TestTokenWithoutCredentialFails(t *testing.T) {
	m := NewTokenManager("id", "secret", nil,
		WithTokenHTTPClient(&http.Client{Transport: panicTransport{t}}))

	_, err := m.Token(context.Background())
	require.True(t, IsAuth(err))
}

func TestClientCredentialsGrant(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "https://api.example.test", r.Form.Get("audience"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "svc",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	m := NewTokenManager("id", "secret", nil,
		WithEndpoints(srv.URL, srv.URL),
		WithAudience("https://api.example.test"),
		WithTokenHTTPClient(srv.Client()),
		WithClientCredentials())

	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "svc", got)
}

func TestInvalidateKeepsRefreshToken(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "r1", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	m := NewTokenManager("id", "secret",
		&oauth2.Token{AccessToken: "live", RefreshToken: "r1", Expiry: time.Now().Add(time.Hour)},
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()))

	m.Invalidate()
	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", got)
}

func TestPersistFailureIsNotFatal(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	m := NewTokenManager("id", "secret",
		&oauth2.Token{RefreshToken: "r1"},
		WithEndpoints(srv.URL, srv.URL),
		WithTokenHTTPClient(srv.Client()),
		WithPersist(func(*oauth2.Token) error {
			return context.DeadlineExceeded
		}))

	got, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", got)
}
