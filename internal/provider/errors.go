package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds shared by the analysis and pricing providers
var (
	ErrAuth              = errors.New("missing or invalid credentials")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrQuotaExhausted    = errors.New("insufficient credits")
	ErrTransport         = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is a provider failure classified into one of the kinds above
type Error struct {
	Provider   string
	Kind       error
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match an Error against its kind
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified provider error
func NewError(provider string, kind, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: cause}
}

// FromStatus classifies a non-2xx HTTP status
func FromStatus(provider string, status int, body string) *Error {
	kind := ErrTransport
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusPaymentRequired:
		kind = ErrQuotaExhausted
	}

	var cause error
	if body != "" {
		cause = errors.New(body)
	}
	return &Error{Provider: provider, Kind: kind, StatusCode: status, Err: cause}
}

// KindLabel returns a short metric label for err
func KindLabel(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	default:
		return "other"
	}
}
