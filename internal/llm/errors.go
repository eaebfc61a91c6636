package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Failure kinds. Every error returned by a Provider in this package matches
// exactly one of them through errors.Is.
var (
	ErrAuth              = errors.New("authentication failed")
	ErrRateLimit         = errors.New("rate limited")
	ErrTimeout           = errors.New("request timed out")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnavailable       = errors.New("service unavailable")
)

// ProviderError is a classified provider failure. Kind is one of the
// package sentinels; Err keeps the underlying cause for logs.
type ProviderError struct {
	Kind     error
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Is(target error) bool { return target == e.Kind }

func (e *ProviderError) Unwrap() error { return e.Err }

// StatusError is a non-200 reply from an HTTP JSON provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Classify converts any provider failure into a *ProviderError. Errors that
// are already classified are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	kind, status := kindOf(err)
	return &ProviderError{Kind: kind, Provider: provider, Status: status, Err: err}
}

// KindOf returns the sentinel err was classified as, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrAuth, ErrRateLimit, ErrTimeout, ErrMalformedResponse, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func kindOf(err error) (error, int) {
	if k := KindOf(err); k != nil {
		return k, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout, 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusKind(statusErr.Code), statusErr.Code
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusKind(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode != 0 {
			return statusKind(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout, 0
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ErrMalformedResponse, 0
	}
	return ErrUnavailable, 0
}

func statusKind(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}
