package lcapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DeviceMaxAttempts caps the total number of polls per device flow.
	DeviceMaxAttempts = 60

	// DeviceSlowDownStep is added to the poll interval on a slow_down
	// response.
	DeviceSlowDownStep = 5 * time.Second

	deviceGrantType       = "urn:ietf:params:oauth:grant-type:device_code"
	defaultDeviceInterval = 5 * time.Second
	defaultDeviceExpiry   = 30 * time.Minute
)

// DeviceOutcome is the result of a single device-authorization poll.
type DeviceOutcome string

const (
	DevicePending    DeviceOutcome = "pending"
	DeviceSlowDown   DeviceOutcome = "slow_down"
	DeviceAuthorized DeviceOutcome = "authorized"
	DeviceExpired    DeviceOutcome = "expired"
	DeviceDenied     DeviceOutcome = "denied"
	DeviceUnknown    DeviceOutcome = "unknown-error"
)

// DeviceFlowSession is the state of one device-authorization flow. The
// caller owns the wait between polls and the attempt budget; Poll advances
// Attempt, Interval, and NextPollAt.
type DeviceFlowSession struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresAt       time.Time
	Attempt         int
	NextPollAt      time.Time
}

// StartDeviceAuthorization requests a device code from the authorization
// server and returns a session ready for polling.
func (m *TokenManager) StartDeviceAuthorization(ctx context.Context) (*DeviceFlowSession, error) {
	ctx, cancel := context.WithTimeout(m.withHTTPClient(ctx), tokenTimeout)
	defer cancel()

	da, err := m.oauthConfig().DeviceAuth(ctx, oauth2.SetAuthURLParam("audience", m.audience))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &AuthError{Reason: "device authorization rejected", Err: err}
		}
		return nil, &NetworkError{Op: "device authorization", Err: err}
	}

	uri := da.VerificationURIComplete
	if uri == "" {
		uri = da.VerificationURI
	}
	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = defaultDeviceInterval
	}
	expiresAt := da.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultDeviceExpiry)
	}

	m.log.Info("device authorization started",
		zap.String("user_code", da.UserCode),
		zap.Duration("interval", interval))

	return &DeviceFlowSession{
		DeviceCode:      da.DeviceCode,
		UserCode:        da.UserCode,
		VerificationURI: uri,
		Interval:        interval,
		ExpiresAt:       expiresAt,
		NextPollAt:      time.Now().Add(interval),
	}, nil
}

// PollDeviceAuthorization issues exactly one poll. On DeviceAuthorized the
// returned token pair is committed to the manager. On DeviceSlowDown the
// session's interval has been increased; the caller must wait until
// NextPollAt before the next poll. DeviceExpired and DeviceDenied are
// terminal.
func (m *TokenManager) PollDeviceAuthorization(ctx context.Context, s *DeviceFlowSession) (DeviceOutcome, error) {
	if time.Now().After(s.ExpiresAt) {
		return DeviceExpired, nil
	}
	s.Attempt++

	form := url.Values{
		"grant_type":    {deviceGrantType},
		"device_code":   {s.DeviceCode},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}

	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return DeviceUnknown, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.hc.Do(req)
	if err != nil {
		return DeviceUnknown, &NetworkError{Op: "device token poll", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return DeviceUnknown, &NetworkError{Op: "device token poll", Err: err}
	}

	if resp.StatusCode == http.StatusOK {
		var tr struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int64  `json:"expires_in"`
			TokenType    string `json:"token_type"`
		}
		if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
			return DeviceUnknown, &AuthError{Reason: "malformed token response", Err: err}
		}
		tok := &oauth2.Token{
			AccessToken:  tr.AccessToken,
			RefreshToken: tr.RefreshToken,
			TokenType:    tr.TokenType,
		}
		if tr.ExpiresIn > 0 {
			tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
		}
		m.SetToken(tok)
		m.log.Info("device authorization completed", zap.Int("attempts", s.Attempt))
		return DeviceAuthorized, nil
	}

	var er struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &er)

	switch er.Error {
	case "authorization_pending":
		s.NextPollAt = time.Now().Add(s.Interval)
		return DevicePending, nil
	case "slow_down":
		s.Interval += DeviceSlowDownStep
		s.NextPollAt = time.Now().Add(s.Interval)
		m.log.Debug("server requested slow down", zap.Duration("interval", s.Interval))
		return DeviceSlowDown, nil
	case "expired_token", "invalid_grant":
		return DeviceExpired, nil
	case "access_denied":
		return DeviceDenied, nil
	default:
		m.log.Error("device flow error",
			zap.Int("status", resp.StatusCode),
			zap.String("error", er.Error))
		return DeviceUnknown, &AuthError{Reason: "device flow error: " + er.Error}
	}
}
