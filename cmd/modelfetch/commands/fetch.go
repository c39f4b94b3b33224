// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"context"
	"os"

	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/modelfetch/fetcher"
	"github.com/juju/modelfetch/hub"
	"github.com/juju/modelfetch/osenv"
)

const (
	fetchSummary = "Downloads a pretrained model into a local cache directory."
	fetchDoc     = `
Download a pretrained model from a model hub repository and cache it
locally. Run without options, the Silero VAD model is fetched from
snakers4/silero-vad into ./models/torch.

Repositories are given as owner/name, optionally followed by :ref to pin
a branch or tag. Without a ref the repository's default branch is used.

A repository that has already been extracted into the cache directory is
reused unless --force-reload is given.

Examples:
    modelfetch
    modelfetch --cache-dir /var/cache/models
    modelfetch --repo snakers4/silero-vad:v5.1 --model silero_vad_onnx
    modelfetch --trust check --metrics-file /var/lib/node-exporter/modelfetch.prom
`
)

// NewFetchCommand returns the command that fetches a model.
func NewFetchCommand() cmd.Command {
	return &fetchCommand{
		newHubClient: newHubClient,
		clock:        clock.WallClock,
		isTerminal:   stderrIsTerminal,
	}
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

func newHubClient(config hub.Config) (fetcher.HubClient, error) {
	return hub.NewClient(config)
}

type fetchCommand struct {
	cmd.CommandBase

	newHubClient func(hub.Config) (fetcher.HubClient, error)
	clock        clock.Clock
	isTerminal   func() bool

	cacheDir      string
	repo          string
	model         string
	forceReload   bool
	trustFlag     string
	hubURL        string
	apiURL        string
	progress      bool
	metricsFile   string
	loggingConfig string

	trust hub.TrustPolicy
}

// Info implements cmd.Command.
func (c *fetchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "modelfetch",
		Args:    "[options]",
		Purpose: fetchSummary,
		Doc:     fetchDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *fetchCommand) SetFlags(f *gnuflag.FlagSet) {
	c.CommandBase.SetFlags(f)
	f.StringVar(&c.cacheDir, "cache-dir", osenv.CacheDir(), "directory models are cached in")
	f.StringVar(&c.repo, "repo", fetcher.DefaultRepositoryID, "repository to load the model from, as owner/name[:ref]")
	f.StringVar(&c.model, "model", fetcher.DefaultModelName, "name of the model to load")
	f.BoolVar(&c.forceReload, "force-reload", false, "download the repository even if it is already cached")
	f.StringVar(&c.trustFlag, "trust", string(hub.TrustWarn), "policy for repositories not yet trusted: warn, check or always")
	f.StringVar(&c.hubURL, "hub-url", osenv.HubURL(), "base URL repository archives are downloaded from")
	f.StringVar(&c.apiURL, "api-url", osenv.APIURL(), "base URL of the repository metadata API")
	f.BoolVar(&c.progress, "progress", c.isTerminal(), "show download progress on stderr (default when stderr is a terminal)")
	f.StringVar(&c.metricsFile, "metrics-file", "", "write prometheus metrics to this file after the run")
	f.StringVar(&c.loggingConfig, "logging-config", osenv.LoggingConfig(), "loggo configuration, e.g. <root>=INFO;modelfetch.hub=DEBUG")
}

// Init implements cmd.Command.
func (c *fetchCommand) Init(args []string) error {
	trust, err := hub.ParseTrustPolicy(c.trustFlag)
	if err != nil {
		return errors.Trace(err)
	}
	c.trust = trust
	if c.cacheDir == "" {
		return errors.New("empty --cache-dir")
	}
	if _, err := hub.ParseRepo(c.repo); err != nil {
		return errors.Trace(err)
	}
	if c.model == "" {
		return errors.New("empty --model")
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *fetchCommand) Run(ctx *cmd.Context) error {
	if c.loggingConfig != "" {
		if err := loggo.ConfigureLoggers(c.loggingConfig); err != nil {
			return errors.Annotate(err, "configuring loggers")
		}
	}

	collector := hub.NewCollector()
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return errors.Trace(err)
	}

	var progressBar hub.ProgressBar
	if c.progress {
		progressBar = newProgressBar(ctx.Stderr, c.clock)
	}

	f, err := fetcher.New(fetcher.Config{
		NewHubClient: func(root string) (fetcher.HubClient, error) {
			return c.newHubClient(hub.Config{
				Root:        root,
				BaseURL:     c.hubURL,
				APIURL:      c.apiURL,
				Clock:       c.clock,
				Metrics:     collector,
				ProgressBar: progressBar,
				Trust:       c.trust,
				ForceReload: c.forceReload,
			})
		},
		Stdout:      ctx.Stdout,
		DisplayName: c.displayName(),
	})
	if err != nil {
		return errors.Trace(err)
	}

	stdCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C abandons the download in flight.
	interrupted := make(chan os.Signal, 1)
	defer close(interrupted)
	ctx.InterruptNotify(interrupted)
	defer ctx.StopInterruptNotify(interrupted)
	go func() {
		for range interrupted {
			ctx.Infof("Interrupt signalled: cancelling download")
			cancel()
		}
	}()

	result, fetchErr := f.Fetch(stdCtx, fetcher.FetchArgs{
		RepositoryID: c.repo,
		ModelName:    c.model,
		CacheDir:     ctx.AbsPath(c.cacheDir),
	})
	if fetchErr == nil {
		ctx.Verbosef("%s (%s, sha256 %s)", result.Path, humanizeSize(result.Size), result.SHA256)
	}

	// Metrics are written for failed runs too.
	if c.metricsFile != "" {
		if err := prometheus.WriteToTextfile(c.metricsFile, registry); err != nil {
			if fetchErr != nil {
				logger.Errorf("writing metrics to %q: %v", c.metricsFile, err)
			} else {
				return errors.Annotatef(err, "writing metrics to %q", c.metricsFile)
			}
		}
	}

	if fetchErr != nil {
		var fe *fetcher.FetchError
		if errors.As(fetchErr, &fe) && fe.Recoverable() {
			ctx.Infof("The model hub could not be reached, try again later.")
		}
		return errors.Trace(fetchErr)
	}
	return nil
}

// displayName names the model in the status lines. Only the default
// model has a friendlier name than its catalogue entry.
func (c *fetchCommand) displayName() string {
	if c.repo == fetcher.DefaultRepositoryID && c.model == fetcher.DefaultModelName {
		return fetcher.DefaultDisplayName
	}
	return c.model
}
