// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"gopkg.in/httprequest.v1"
)

// MIME represents a MIME type for identifying requests and response bodies.
type MIME = string

const (
	// JSON represents the MIME type for JSON request and response types.
	JSON MIME = "application/json"
)

// Transport defines a type for making the actual request.
type Transport interface {
	// Do performs the *http.Request and returns a *http.Response or an error
	// if it fails to construct the transport.
	Do(*http.Request) (*http.Response, error)
}

// DefaultHTTPTransport returns the transport used when none is configured.
func DefaultHTTPTransport() Transport {
	return http.DefaultClient
}

// repositoryResponse is the subset of the repository metadata we read.
type repositoryResponse struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
}

// apiClient queries repository metadata from the hub's JSON API.
type apiClient struct {
	transport Transport
	baseURL   *url.URL
	logger    Logger
	retry     retryPolicy
}

func newAPIClient(transport Transport, baseURL *url.URL, clock clock.Clock, logger Logger) *apiClient {
	return &apiClient{
		transport: transport,
		baseURL:   baseURL,
		logger:    logger,
		retry:     defaultRetryPolicy(clock),
	}
}

// DefaultBranch returns the branch used when a repository is requested
// without a ref.
func (c *apiClient) DefaultBranch(ctx context.Context, repo Repo) (string, error) {
	u := c.baseURL.JoinPath("repos", repo.Owner, repo.Name)

	var resp repositoryResponse
	err := c.retry.call(ctx, func(err error, attempt int) {
		c.logger.Warningf("metadata request %d for %s failed: %v", attempt, repo, err)
	}, func() error {
		return c.get(ctx, u, &resp)
	})
	if err != nil {
		return "", errors.Annotatef(err, "resolving default branch of %q", repo.String())
	}
	if resp.DefaultBranch == "" {
		return "", errors.NotValidf("repository %q metadata without default branch", repo.String())
	}
	c.logger.Debugf("default branch of %s is %q", repo, resp.DefaultBranch)
	return resp.DefaultBranch, nil
}

func (c *apiClient) get(ctx context.Context, u *url.URL, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return errors.Annotate(err, "can not make new request")
	}
	req.Header.Set("Accept", JSON)

	resp, err := c.transport.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Trace(ctx.Err())
		}
		return &unreachableError{url: u.String(), err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFoundf("repository")
	case resp.StatusCode != http.StatusOK:
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	// Some mirrors answer with an HTML error page and a 200. Report that
	// rather than a confusing decode failure.
	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, JSON) {
		return errors.Errorf("unexpected content-type from server %q", contentType)
	}
	if err := httprequest.UnmarshalJSONResponse(resp, result); err != nil {
		return errors.Annotate(err, "model hub api get")
	}
	return nil
}
