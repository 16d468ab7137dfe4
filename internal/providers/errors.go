// Package providers holds the error taxonomy shared by the WHOOP and
// FatSecret integrations.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"telegram-health-assistant/internal/models"
)

var (
	// ErrNotConnected means the user has no stored credential for the provider.
	ErrNotConnected = errors.New("provider not connected")
	// ErrTransient marks connect/timeout failures that survived all retries.
	ErrTransient = errors.New("transient network error")
)

// CredentialExpiredError signals that the stored credential was invalidated
// and the user has to authorize again. The credential is already cleared when
// this error is returned.
type CredentialExpiredError struct {
	Provider models.Provider
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("%s token expired, re-authorization required", e.Provider)
}

// Expired builds a CredentialExpiredError for p.
func Expired(p models.Provider) error {
	return &CredentialExpiredError{Provider: p}
}

// IsCredentialExpired reports whether err carries a CredentialExpiredError.
func IsCredentialExpired(err error) bool {
	var ce *CredentialExpiredError
	return errors.As(err, &ce)
}

// ProviderError is a non-auth failure: bad status, malformed body, or an
// embedded API error code outside the auth-fatal set.
type ProviderError struct {
	Provider   models.Provider
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(": code %d", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsNetworkFailure reports whether err is a connect or timeout failure worth retrying.
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
