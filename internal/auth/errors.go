package auth

import (
	"fmt"
	"time"
)

// ServerError is returned when GitHub rejects the device code request itself.
// This indicates a misconfigured client ID or scope, so there is no point retrying.
type ServerError struct {
	Code        string
	Description string
}

func (e *ServerError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("device code request rejected: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("device code request rejected: %s", e.Code)
}

// AuthorizationError is returned when polling ends in a terminal provider error:
// the user denied access, the device code expired, or GitHub returned an error
// code we do not recognize.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// TimeoutError is returned when the device code expired before the user
// completed authorization. Err holds the last transport failure seen while
// polling, if any.
type TimeoutError struct {
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for authorization", e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// TransportError wraps a network or decode failure during a request to GitHub.
// It is distinct from the provider's own error vocabulary: a connection reset
// or a non-JSON body must never be mistaken for authorization_pending.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
