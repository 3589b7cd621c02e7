package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a bad or missing argument detected before
// any external call is made.
var ErrInvalidInput = errors.New("invalid input")

// ErrAborted marks a stage that never ran because a prior stage failed.
var ErrAborted = errors.New("aborted: prior stage failed")

// UpstreamError wraps a network, HTTP, or parse error from an
// external service, tagged with the service that produced it.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an UpstreamError for the named service.
func Upstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
