package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind int

const (
	KindUnavailable     ErrorKind = iota // Network failure or 5xx
	KindRateLimited                      // 429
	KindInvalidResponse                  // Output failed to parse or validate
	KindTruncated                        // Output hit MaxTokens
	KindRejected                         // 4xx other than 429; retrying will not help
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	case KindRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

// Error is returned by providers for every failed call.
type Error struct {
	Kind       ErrorKind
	RetryAfter time.Duration   // rate limits only
	Content    json.RawMessage // invalid or truncated output, when any
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "llm: " + e.Kind.String()
	}
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, and false when err is not an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// errorForStatus maps an HTTP status from a provider SDK error.
func errorForStatus(status int, err error) *Error {
	switch {
	case status == 429:
		return &Error{Kind: KindRateLimited, Err: err}
	case status >= 400 && status < 500:
		return &Error{Kind: KindRejected, Err: err}
	default:
		return &Error{Kind: KindUnavailable, Err: err}
	}
}
