package chart

import (
	"errors"
	"fmt"
)

// Kind classifies adapter failures so callers can map them to responses.
type Kind string

const (
	KindNone              Kind = ""
	KindInvalidInput      Kind = "InvalidInput"
	KindUpstream          Kind = "UpstreamError"
	KindMalformedResponse Kind = "MalformedResponse"
	KindUnclassified      Kind = "UnclassifiedError"
)

// InvalidInputError reports a caller-supplied field that failed validation.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// UpstreamError reports a completion call that did not succeed at the
// transport or HTTP level. StatusCode is 0 when no response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request failed: %s", e.Body)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError reports a successful upstream reply whose content
// is not JSON after sanitization.
type MalformedResponseError struct {
	RawContent string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("upstream content is not valid JSON: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

type UnclassifiedError struct {
	Err error
}

func (e *UnclassifiedError) Error() string {
	return e.Err.Error()
}

func (e *UnclassifiedError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err. Errors not produced by the
// adapter are reported as KindUnclassified.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var invalid *InvalidInputError
	var upstream *UpstreamError
	var malformed *MalformedResponseError

	switch {
	case errors.As(err, &invalid):
		return KindInvalidInput
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.As(err, &malformed):
		return KindMalformedResponse
	default:
		return KindUnclassified
	}
}
