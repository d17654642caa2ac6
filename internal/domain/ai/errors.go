package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredential is returned before any network activity when no API key is configured.
	ErrMissingCredential = errors.New("ai gateway api key is not configured")

	// ErrTransport wraps failures that produced no provider status: dial errors,
	// timeouts, caller cancellation.
	ErrTransport = errors.New("ai gateway request failed")

	// ErrRateLimited indicates the provider answered HTTP 429.
	ErrRateLimited = errors.New("ai rate limit exceeded")

	// ErrQuotaExceeded indicates the provider answered HTTP 402 (credits exhausted).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)

// ProviderError is a non-success status returned by the inference provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai gateway error: %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrRateLimited) / errors.Is(err, ErrQuotaExceeded) match on status.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusPaymentRequired
	}
	return false
}

// StatusOf returns the provider status code carried by err, or 0.
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}
