package session

import (
	"fmt"
	"net/http"
)

// AuthReason classifies a token verification failure.
type AuthReason string

// Verification failure reasons.
const (
	// AuthExpired means the token was issued but is past its expiry.
	AuthExpired AuthReason = "expired"
	// AuthUnknown means the token was never issued or has been revoked.
	AuthUnknown AuthReason = "unknown"
)

// AuthError is returned when a bearer token cannot be mapped back to
// an account. It is recoverable: the client is expected to
// re-authenticate.
type AuthError struct {
	Reason AuthReason
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token verification failed: %s token", e.Reason)
}

// StatusCode returns the HTTP status code for this error.
func (e *AuthError) StatusCode() int {
	return http.StatusUnauthorized
}

// NotFoundError is returned for a malformed or stale client reference:
// an unknown ticket, account, or profile type.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// StatusCodeError is implemented by errors carrying an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}
