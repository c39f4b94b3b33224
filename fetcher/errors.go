// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package fetcher

import (
	"fmt"
	"io/fs"

	"github.com/juju/errors"

	"github.com/juju/modelfetch/hub"
)

const (
	// ErrDirectoryUnwritable means the cache directory could not be
	// created or written to.
	ErrDirectoryUnwritable = errors.ConstError("directory unwritable")

	// ErrNetworkUnreachable means the model hub could not be contacted.
	ErrNetworkUnreachable = errors.ConstError("network unreachable")

	// ErrArtifactNotFound means the repository, ref or model does not
	// exist on the hub.
	ErrArtifactNotFound = errors.ConstError("remote artifact not found")

	// ErrFetchFailed covers every other failure.
	ErrFetchFailed = errors.ConstError("fetch failed")
)

// FetchError is returned by Fetch. Both errors.Is(err, Kind) and
// errors.Is(err, <cause>) hold.
type FetchError struct {
	Kind errors.ConstError
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Recoverable reports whether retrying the fetch later may succeed.
func (e *FetchError) Recoverable() bool {
	return e.Kind == ErrNetworkUnreachable
}

func newFetchError(err error) *FetchError {
	return &FetchError{Kind: kindOf(err), Err: err}
}

func kindOf(err error) errors.ConstError {
	switch {
	case errors.Is(err, hub.ErrUnreachable):
		return ErrNetworkUnreachable
	case errors.Is(err, errors.NotFound):
		return ErrArtifactNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrDirectoryUnwritable
	}
	return ErrFetchFailed
}
