package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNoCredentials means no usable API key is configured. Callers treat it
	// as "use the offline fallback", never as a transient failure.
	ErrNoCredentials = errors.New("no usable LLM API key configured")

	// ErrEmptyResponse means the provider answered successfully but with no content.
	ErrEmptyResponse = errors.New("empty response from AI provider")
)

// ProviderError is returned when the upstream endpoint answers with a non-success status.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("AI API Error %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether err is worth retrying: rate limiting, upstream
// 5xx responses, and network timeouts. Credential problems and caller
// cancellation are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNoCredentials) || errors.Is(err, context.Canceled) {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode == http.StatusTooManyRequests ||
			perr.StatusCode == http.StatusRequestTimeout ||
			perr.StatusCode >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// Kind classifies err into a short label suitable for metrics and logs.
func Kind(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.As(err, &perr):
		return "provider"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
