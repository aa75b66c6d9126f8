package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request is a single chat-style completion request sent to a provider.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Provider is one LLM backend able to answer a classification request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrorKind tells the classifier how to treat a provider failure.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"
	KindQuotaExhausted  ErrorKind = "quota_exhausted"
	KindMisconfigured   ErrorKind = "misconfigured"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnavailable     ErrorKind = "unavailable"
)

type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind. Errors that are not a *ProviderError
// count as KindUnavailable.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// Policy bounds how often a single provider is retried on rate limiting.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles each retry.
	BaseDelay time.Duration
}

// Backend pairs a provider with its retry policy.
type Backend struct {
	Provider Provider
	Policy   Policy
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backoff(retry int) time.Duration {
	return p.BaseDelay << retry
}
