// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// FileSystem defines a file system for modifying files on a users system.
type FileSystem interface {
	// Create creates or truncates the named file. If the file already exists,
	// it is truncated.
	Create(string) (*os.File, error)
}

// DefaultFileSystem is the file system used for most download requests.
func DefaultFileSystem() FileSystem {
	return fileSystem{}
}

type fileSystem struct{}

// Create creates or truncates the named file. If the file already exists,
// it is truncated.
func (fileSystem) Create(name string) (*os.File, error) {
	f, err := os.Create(name)
	return f, errors.Trace(err)
}

// ProgressBar defines a progress bar type for giving feedback to the user
// about the state of the download.
type ProgressBar interface {
	io.Writer

	// Start progress with max "total" steps.
	Start(label string, total float64)
	// Finished the progress display
	Finished()
}

// Digest holds the digests of a downloaded archive.
type Digest struct {
	SHA256 string
	SHA384 string
	Size   int64
}

// DownloadOption to be passed to Download to customize the resulting
// request.
type DownloadOption func(*downloadOptions)

type downloadOptions struct {
	progressBar ProgressBar
}

// WithProgressBar sets the channel on the option.
func WithProgressBar(pb ProgressBar) DownloadOption {
	return func(options *downloadOptions) {
		options.progressBar = pb
	}
}

// Create a downloadOptions instance with default values.
func newDownloadOptions() *downloadOptions {
	return &downloadOptions{}
}

// DownloadClient fetches archives over a Transport onto a FileSystem,
// retrying transient failures.
type DownloadClient struct {
	transport  Transport
	fileSystem FileSystem
	clock      clock.Clock
	logger     Logger
	retry      retryPolicy
}

// NewDownloadClient creates a DownloadClient for requesting archives.
func NewDownloadClient(transport Transport, fileSystem FileSystem, clock clock.Clock, logger Logger) *DownloadClient {
	return &DownloadClient{
		transport:  transport,
		fileSystem: fileSystem,
		clock:      clock,
		logger:     logger,
		retry:      defaultRetryPolicy(clock),
	}
}

// Download requests the archive at resourceURL and writes it to
// archivePath, returning its digest. Transport failures, 5xx and 429
// responses are retried with a doubling delay.
func (c *DownloadClient) Download(ctx context.Context, resourceURL *url.URL, archivePath string, options ...DownloadOption) (*Digest, error) {
	opts := newDownloadOptions()
	for _, option := range options {
		option(opts)
	}

	var digest *Digest
	err := c.retry.call(ctx, func(err error, attempt int) {
		c.logger.Warningf("download attempt %d of %q failed: %v", attempt, resourceURL.String(), err)
	}, func() error {
		var err error
		digest, err = c.download(ctx, resourceURL, archivePath, opts)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(err)
		}
		return nil, errors.Annotatef(err, "cannot retrieve %q", resourceURL.String())
	}
	return digest, nil
}

func (c *DownloadClient) download(ctx context.Context, resourceURL *url.URL, archivePath string, opts *downloadOptions) (_ *Digest, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", resourceURL.String(), nil)
	if err != nil {
		return nil, errors.Annotate(err, "can not make new request")
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(ctx.Err())
		}
		return nil, &unreachableError{url: resourceURL.String(), err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFoundf("archive")
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	f, err := c.fileSystem.Create(archivePath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Trace(closeErr)
		}
	}()

	hash256 := sha256.New()
	hash384 := sha512.New384()
	writer := io.MultiWriter(f, hash256, hash384)

	if pb := opts.progressBar; pb != nil {
		pb.Start(filepath.Base(archivePath), float64(resp.ContentLength))
		defer pb.Finished()
		writer = io.MultiWriter(writer, pb)
	}

	start := c.clock.Now()
	size, err := io.Copy(writer, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(ctx.Err())
		}
		return nil, &unreachableError{url: resourceURL.String(), err: err}
	}
	if resp.ContentLength >= 0 && size != resp.ContentLength {
		return nil, &unreachableError{
			url: resourceURL.String(),
			err: errors.Errorf("short read: got %d of %d bytes", size, resp.ContentLength),
		}
	}
	if err := f.Sync(); err != nil {
		return nil, errors.Trace(err)
	}

	c.logger.Debugf("downloaded %s from %s in %v", humanize.Bytes(uint64(size)), resourceURL.String(), c.clock.Now().Sub(start))

	return &Digest{
		SHA256: hex.EncodeToString(hash256.Sum(nil)),
		SHA384: hex.EncodeToString(hash384.Sum(nil)),
		Size:   size,
	}, nil
}
