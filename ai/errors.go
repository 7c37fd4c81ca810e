package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	AuthFailure     ErrorKind = "auth_failure"
	RateLimited     ErrorKind = "rate_limited"
	Timeout         ErrorKind = "timeout"
	Unavailable     ErrorKind = "unavailable"
	InvalidResponse ErrorKind = "invalid_response"
)

// ProviderError is the single error type every provider returns.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	// RetryAfter is the server's requested wait, zero when absent.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		b.WriteString(" (HTTP ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether a retry might succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind == RateLimited || e.Kind == Timeout
}

// IsRetryable reports whether err is a retryable *ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable()
}

// KindOf returns the kind of a *ProviderError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func invalidResponse(provider, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Kind: InvalidResponse, Message: fmt.Sprintf(format, args...)}
}

// statusError maps a non-2xx HTTP response.
func statusError(provider string, resp *http.Response, body []byte) *ProviderError {
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    apiErrorMessage(body),
	}
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		pe.Kind = AuthFailure
	case code == http.StatusTooManyRequests:
		pe.Kind = RateLimited
		pe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		pe.Kind = Timeout
	case code >= 500:
		pe.Kind = Unavailable
	default:
		// Remaining 4xx: the provider rejected what we sent.
		pe.Kind = InvalidResponse
	}
	return pe
}

// transportError maps a failure to reach the provider. Caller
// cancellation passes through unclassified.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &ProviderError{Provider: provider, Kind: Timeout, Err: err}
	}
	return &ProviderError{Provider: provider, Kind: Unavailable, Err: err}
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if json.Unmarshal(payload.Error, &flat) == nil && flat != "" {
			return flat
		}
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
