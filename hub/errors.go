// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"context"
	"fmt"
	"net/http"

	"github.com/juju/errors"
)

// ErrUnreachable is matched by errors returned when the model hub could not
// be contacted at all.
const ErrUnreachable = errors.ConstError("model hub unreachable")

// unreachableError records a transport failure against a URL.
type unreachableError struct {
	url string
	err error
}

func (e *unreachableError) Error() string {
	return fmt.Sprintf("cannot reach %q: %v", e.url, e.err)
}

func (e *unreachableError) Unwrap() error {
	return e.err
}

// Is reports ErrUnreachable as one of this error's kinds.
func (e *unreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// statusError is returned for an unexpected HTTP status code.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	status := e.status
	if status == "" {
		status = http.StatusText(e.code)
	}
	return fmt.Sprintf("model hub responded with status: %s", status)
}

// isRetryable reports whether a request that failed with err is worth
// repeating.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	return false
}
