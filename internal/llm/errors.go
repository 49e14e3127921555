package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindStatus    ErrorKind = "status"
	KindMalformed ErrorKind = "malformed"
)

// ErrEmptyResponse is wrapped when the provider answers without content.
var ErrEmptyResponse = errors.New("empty response from provider")

// ProviderError is returned for every failed completion.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf returns the kind of a wrapped *ProviderError, or "" for other errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func classify(ctx context.Context, status int, err error) *ProviderError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{Kind: KindTimeout, StatusCode: status, Err: err}
	case status == 401 || status == 403:
		return &ProviderError{Kind: KindAuth, StatusCode: status, Err: err}
	case status == 429:
		return &ProviderError{Kind: KindRateLimit, StatusCode: status, Err: err}
	case status >= 300:
		return &ProviderError{Kind: KindStatus, StatusCode: status, Err: err}
	case status >= 200:
		// request succeeded but the body could not be used
		return &ProviderError{Kind: KindMalformed, StatusCode: status, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	return &ProviderError{Kind: KindNetwork, Err: err}
}
