package lcapi

import (
	"errors"
	"fmt"
)

// AuthError indicates that no usable token could be established: the token
// is missing, the refresh token was rejected, or the API returned 401.
type AuthError struct {
	// Reason is a short human-readable cause.
	Reason string

	// Retryable is true when the error came from a 401 that invalidated a
	// cached token. The caller may retry the request exactly once after the
	// token manager re-establishes a token. A second 401 is fatal for the
	// cycle.
	Retryable bool

	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError indicates a non-2xx, non-401 response from the resource API.
type APIError struct {
	Status int
	Method string
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s %s returned status %d", e.Method, e.Path, e.Status)
}

// NetworkError indicates a transport-level failure (timeout, connection
// reset, DNS). Never retried inside the gateway; the next scheduled poll
// cycle retries the whole fetch.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// isRetryableAuth reports whether err is an AuthError caused by a 401 that
// invalidated the cached token.
func isRetryableAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Retryable
}
