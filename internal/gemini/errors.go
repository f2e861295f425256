package gemini

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure. Auth failures are configuration
// problems, invalid-request failures are bad payloads, and neither can
// succeed on a second attempt; rate-limit failures are surfaced to the
// caller. Only upstream failures (5xx, network, malformed body) are
// transient and worth retrying.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindInvalid   Kind = "invalid"
	KindUpstream  Kind = "upstream"
)

// APIError is returned for every failed call to the generative-language API.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gemini %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini %s error: %s", e.Kind, e.Message)
}

func IsAuth(err error) bool      { return hasKind(err, KindAuth) }
func IsRateLimit(err error) bool { return hasKind(err, KindRateLimit) }
func IsInvalid(err error) bool   { return hasKind(err, KindInvalid) }
func IsUpstream(err error) bool  { return hasKind(err, KindUpstream) }

func hasKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// classify maps an HTTP status code to an error kind. 4xx other than 429 is
// a permanent failure; only 5xx counts as transient upstream trouble.
func classify(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimit
	case status >= 400 && status < 500:
		return KindInvalid
	default:
		return KindUpstream
	}
}
