// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fetcher downloads a named pretrained model from a model hub into
// a local cache directory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/modelfetch/hub"
	"github.com/juju/modelfetch/osenv"
)

var logger = loggo.GetLogger("modelfetch.fetcher")

const (
	// DefaultRepositoryID is the repository the Silero VAD model is
	// published in.
	DefaultRepositoryID = "snakers4/silero-vad"

	// DefaultModelName is the Silero VAD model.
	DefaultModelName = "silero_vad"

	// DefaultDisplayName names the model in status output.
	DefaultDisplayName = "Silero VAD"
)

// HubClient loads a model by repository and name. The storage root is
// fixed when the client is created.
type HubClient interface {
	Load(ctx context.Context, repositoryID, modelName string) (hub.Model, error)
}

// NewHubClientFunc returns a HubClient storing beneath root.
type NewHubClientFunc func(root string) (HubClient, error)

// Config holds the dependencies of a Fetcher.
type Config struct {
	NewHubClient NewHubClientFunc
	// Stdout receives the two status lines.
	Stdout io.Writer
	// DisplayName defaults to DefaultDisplayName.
	DisplayName string
}

// Validate returns an error if the config cannot be used.
func (config Config) Validate() error {
	if config.NewHubClient == nil {
		return errors.NotValidf("nil NewHubClient")
	}
	if config.Stdout == nil {
		return errors.NotValidf("nil Stdout")
	}
	return nil
}

// FetchArgs identifies the model to fetch and where to put it.
type FetchArgs struct {
	RepositoryID string
	ModelName    string
	CacheDir     string
}

// DefaultFetchArgs returns the arguments that fetch the Silero VAD model
// into ./models/torch.
func DefaultFetchArgs() FetchArgs {
	return FetchArgs{
		RepositoryID: DefaultRepositoryID,
		ModelName:    DefaultModelName,
		CacheDir:     osenv.DefaultCacheDir,
	}
}

// Result describes a fetched model.
type Result struct {
	// Path is the local artifact.
	Path   string
	SHA256 string
	Size   int64
}

// Fetcher fetches models into a cache directory.
type Fetcher struct {
	config Config
}

// New returns a Fetcher.
func New(config Config) (*Fetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.DisplayName == "" {
		config.DisplayName = DefaultDisplayName
	}
	return &Fetcher{config: config}, nil
}

// Fetch creates args.CacheDir if needed, points a hub client at it and
// loads the model. A start line is written before the load and a
// completion line only after it succeeds. Any failure is returned as a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, args FetchArgs) (Result, error) {
	if args.CacheDir == "" {
		return Result{}, newFetchError(errors.NotValidf("empty cache directory"))
	}
	if err := os.MkdirAll(args.CacheDir, 0755); err != nil {
		return Result{}, &FetchError{
			Kind: ErrDirectoryUnwritable,
			Err:  errors.Annotatef(err, "creating cache directory %q", args.CacheDir),
		}
	}

	client, err := f.config.NewHubClient(args.CacheDir)
	if err != nil {
		return Result{}, newFetchError(errors.Annotate(err, "creating hub client"))
	}

	if _, err := fmt.Fprintf(f.config.Stdout, "Downloading %s model...\n", f.config.DisplayName); err != nil {
		return Result{}, newFetchError(errors.Trace(err))
	}

	logger.Debugf("loading %s from %s into %s", args.ModelName, args.RepositoryID, args.CacheDir)
	model, err := client.Load(ctx, args.RepositoryID, args.ModelName)
	if err != nil {
		return Result{}, newFetchError(errors.Trace(err))
	}

	if _, err := fmt.Fprintln(f.config.Stdout, "Model downloaded successfully!"); err != nil {
		return Result{}, newFetchError(errors.Trace(err))
	}
	logger.Infof("model %s available at %s", args.ModelName, model.Path)

	return Result{
		Path:   model.Path,
		SHA256: model.SHA256,
		Size:   model.Size,
	}, nil
}
