// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hub is a client for model hubs that publish pretrained models
// inside source repositories. A repository archive is downloaded once,
// extracted beneath a local root and then individual models are resolved
// to files inside it.
//
// The on-disk layout beneath the root is:
//
//	<root>/trusted_list
//	<root>/<owner>_<name>_<ref>/...
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/mutex/v2"
	"github.com/kr/pretty"
	"golang.org/x/sync/singleflight"

	"github.com/juju/modelfetch/osenv"
)

var logger = loggo.GetLogger("modelfetch.hub")

const defaultLockTimeout = 5 * time.Minute

// extractPrefix names the temporary directories archives are extracted
// into before being renamed into place.
const extractPrefix = ".extract-"

// Logger is the logging interface used by the client. loggo.Logger
// satisfies it.
type Logger interface {
	Errorf(string, ...interface{})
	Warningf(string, ...interface{})
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Tracef(string, ...interface{})
	IsTraceEnabled() bool
}

// Config holds the dependencies and settings of a Client.
type Config struct {
	// Root is the directory repositories are cached under. It is
	// required; there is no process-wide default.
	Root string

	// BaseURL is where repository archives are downloaded from.
	BaseURL string
	// APIURL is where repository metadata is looked up.
	APIURL string

	Transport  Transport
	FileSystem FileSystem
	Clock      clock.Clock
	Logger     Logger
	// Metrics is optional.
	Metrics *Collector
	// ProgressBar is optional.
	ProgressBar ProgressBar

	// Catalogue resolves model names for repositories without a
	// hubconf.yaml. Defaults to BuiltinCatalogue.
	Catalogue Catalogue

	Trust TrustPolicy
	// ForceReload discards an already extracted repository.
	ForceReload bool

	RetryAttempts int
	RetryDelay    time.Duration
	LockTimeout   time.Duration
}

// Validate returns an error if the config cannot be used to build a
// Client.
func (config Config) Validate() error {
	if config.Root == "" {
		return errors.NotValidf("empty Root")
	}
	for name, raw := range map[string]string{"BaseURL": config.BaseURL, "APIURL": config.APIURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return errors.NotValidf("%s %q", name, raw)
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.NotValidf("%s %q without scheme or host", name, raw)
		}
	}
	if _, err := ParseTrustPolicy(string(config.Trust)); err != nil {
		return errors.Trace(err)
	}
	if config.RetryAttempts < 0 {
		return errors.NotValidf("negative RetryAttempts")
	}
	if config.RetryDelay < 0 {
		return errors.NotValidf("negative RetryDelay")
	}
	if config.LockTimeout < 0 {
		return errors.NotValidf("negative LockTimeout")
	}
	return nil
}

// Model is a model resolved to a file on disk.
type Model struct {
	Repo        Repo
	Name        string
	Description string
	// Path is the model artifact.
	Path string
	// Dir is the extracted repository holding the artifact.
	Dir    string
	Size   int64
	SHA256 string
}

// Client loads models from a hub into a local root.
type Client struct {
	root        string
	baseURL     *url.URL
	api         *apiClient
	downloader  *DownloadClient
	clock       clock.Clock
	logger      Logger
	metrics     *Collector
	progressBar ProgressBar
	catalogue   Catalogue
	trust       TrustPolicy
	forceReload bool
	lockTimeout time.Duration

	acquireMutex func(mutex.Spec) (func(), error)

	group singleflight.Group
}

// NewClient returns a Client storing repositories beneath config.Root.
// The root is not created here.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.BaseURL == "" {
		config.BaseURL = osenv.DefaultHubURL
	}
	if config.APIURL == "" {
		config.APIURL = osenv.DefaultAPIURL
	}
	if config.Transport == nil {
		config.Transport = DefaultHTTPTransport()
	}
	if config.FileSystem == nil {
		config.FileSystem = DefaultFileSystem()
	}
	if config.Clock == nil {
		config.Clock = clock.WallClock
	}
	if config.Logger == nil {
		config.Logger = logger
	}
	if config.Catalogue == nil {
		config.Catalogue = BuiltinCatalogue()
	}
	if config.Trust == "" {
		config.Trust = TrustWarn
	}
	if config.LockTimeout == 0 {
		config.LockTimeout = defaultLockTimeout
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, errors.Trace(err)
	}
	apiURL, err := url.Parse(config.APIURL)
	if err != nil {
		return nil, errors.Trace(err)
	}

	retry := defaultRetryPolicy(config.Clock)
	if config.RetryAttempts > 0 {
		retry.attempts = config.RetryAttempts
	}
	if config.RetryDelay > 0 {
		retry.delay = config.RetryDelay
	}
	api := newAPIClient(config.Transport, apiURL, config.Clock, config.Logger)
	api.retry = retry
	downloader := NewDownloadClient(config.Transport, config.FileSystem, config.Clock, config.Logger)
	downloader.retry = retry

	return &Client{
		root:         config.Root,
		baseURL:      baseURL,
		api:          api,
		downloader:   downloader,
		clock:        config.Clock,
		logger:       config.Logger,
		metrics:      config.Metrics,
		progressBar:  config.ProgressBar,
		catalogue:    config.Catalogue,
		trust:        config.Trust,
		forceReload:  config.ForceReload,
		lockTimeout:  config.LockTimeout,
		acquireMutex: acquireMutex,
	}, nil
}

// Dir returns the root repositories are cached under.
func (c *Client) Dir() string {
	return c.root
}

// Load makes sure the repository identified by repositoryID is extracted
// beneath the root, downloading it if needed, and resolves modelName to
// a file inside it.
//
// Without a ref the repository's default branch is looked up. When the
// hub cannot be reached, an already extracted main or master checkout is
// used instead.
//
// Concurrent loads of the same repository share one download. Loads
// from other processes using the same root are serialised by a machine
// lock.
func (c *Client) Load(ctx context.Context, repositoryID, modelName string) (Model, error) {
	repo, err := ParseRepo(repositoryID)
	if err != nil {
		return Model{}, errors.Trace(err)
	}
	if modelName == "" {
		return Model{}, errors.NotValidf("empty model name")
	}
	if repo.Ref == "" {
		branch, err := c.api.DefaultBranch(ctx, repo)
		if errors.Is(err, ErrUnreachable) {
			cached, ok := c.cachedDefaultBranch(repo)
			if !ok {
				return Model{}, errors.Trace(err)
			}
			c.logger.Warningf("%v; using cached %s", err, repo.WithRef(cached))
			branch = cached
		} else if err != nil {
			return Model{}, errors.Trace(err)
		}
		repo = repo.WithRef(branch)
	}

	dir := filepath.Join(c.root, repo.cacheName())
	_, err, shared := c.group.Do(dir, func() (interface{}, error) {
		return nil, c.ensureRepo(ctx, repo, dir)
	})
	if err != nil {
		return Model{}, errors.Trace(err)
	}
	if shared {
		c.logger.Debugf("shared load of %s", repo)
	}

	entry, err := c.resolve(repo, dir, modelName)
	if err != nil {
		return Model{}, errors.Trace(err)
	}
	artifact := filepath.Join(dir, filepath.FromSlash(entry.Path))
	info, err := os.Stat(artifact)
	if os.IsNotExist(err) {
		return Model{}, errors.NotFoundf("artifact %q of model %q in %q", entry.Path, modelName, repo.String())
	} else if err != nil {
		return Model{}, errors.Trace(err)
	}
	if !info.Mode().IsRegular() {
		return Model{}, errors.NotValidf("artifact %q of model %q is not a regular file", entry.Path, modelName)
	}

	sum, err := fileSHA256(artifact)
	if err != nil {
		return Model{}, errors.Trace(err)
	}
	if entry.SHA256 != "" && entry.SHA256 != sum {
		return Model{}, errors.NotValidf("artifact %q sha256 %s, expected %s", entry.Path, sum, entry.SHA256)
	}

	model := Model{
		Repo:        repo,
		Name:        modelName,
		Description: entry.Description,
		Path:        artifact,
		Dir:         dir,
		Size:        info.Size(),
		SHA256:      sum,
	}
	if c.logger.IsTraceEnabled() {
		c.logger.Tracef("Load(%s, %s) resolved: %s", repositoryID, modelName, pretty.Sprint(model))
	}
	return model, nil
}

// ensureRepo makes sure repo is extracted at dir.
func (c *Client) ensureRepo(ctx context.Context, repo Repo, dir string) error {
	release, err := c.lock(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer release()

	c.removeStaleExtracts()

	if err := c.checkTrust(repo, dir); err != nil {
		return errors.Trace(err)
	}

	if !c.forceReload {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			c.logger.Infof("using cache found in %s", dir)
			c.metrics.observeCacheHit()
			return nil
		}
	}

	start := c.clock.Now()
	size, err := c.fetchRepo(ctx, repo, dir)
	c.metrics.observeDownload(err, size, c.clock.Now().Sub(start))
	return errors.Trace(err)
}

// fetchRepo downloads the repository archive into the root and extracts
// it to dir, replacing anything already there. Nothing is written
// outside the root.
func (c *Client) fetchRepo(ctx context.Context, repo Repo, dir string) (int64, error) {
	archiveURL := c.baseURL.JoinPath(repo.Owner, repo.Name, "zipball", repo.Ref)
	archivePath := filepath.Join(c.root, repo.cacheName()+".zip")
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			c.logger.Warningf("cannot remove archive %q: %v", archivePath, err)
		}
	}()

	c.logger.Infof("downloading %s to %s", archiveURL, dir)

	var options []DownloadOption
	if c.progressBar != nil {
		options = append(options, WithProgressBar(c.progressBar))
	}
	digest, err := c.downloader.Download(ctx, archiveURL, archivePath, options...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if c.logger.IsTraceEnabled() {
		c.logger.Tracef("archive %s digest: %s", archivePath, pretty.Sprint(digest))
	}

	tmp, err := os.MkdirTemp(c.root, extractPrefix)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := extractArchive(archivePath, tmp, c.logger); err != nil {
		return 0, errors.Trace(err)
	}
	if err := os.Chmod(tmp, 0755); err != nil {
		return 0, errors.Trace(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, errors.Annotatef(err, "removing stale %q", dir)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return 0, errors.Trace(err)
	}
	return digest.Size, nil
}

// fallbackBranches are tried, in order, when the default branch of a
// repository cannot be looked up.
var fallbackBranches = []string{"main", "master"}

// cachedDefaultBranch returns the first fallback branch of repo that is
// already extracted beneath the root. A forced reload never uses the
// cache.
func (c *Client) cachedDefaultBranch(repo Repo) (string, bool) {
	if c.forceReload {
		return "", false
	}
	for _, branch := range fallbackBranches {
		dir := filepath.Join(c.root, repo.WithRef(branch).cacheName())
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return branch, true
		}
	}
	return "", false
}

// removeStaleExtracts deletes extraction directories left behind by a
// process that died mid-fetch. It must be called with the hub lock held.
func (c *Client) removeStaleExtracts() {
	stale, err := filepath.Glob(filepath.Join(c.root, extractPrefix+"*"))
	if err != nil {
		c.logger.Warningf("listing stale extractions: %v", err)
		return
	}
	for _, path := range stale {
		c.logger.Debugf("removing stale extraction %s", path)
		if err := os.RemoveAll(path); err != nil {
			c.logger.Warningf("cannot remove stale extraction %q: %v", path, err)
		}
	}
}

// resolve finds the catalogue entry for model, preferring the
// repository's own hubconf.yaml.
func (c *Client) resolve(repo Repo, dir, model string) (Entry, error) {
	entries, found, err := readHubConf(dir)
	if err != nil {
		return Entry{}, errors.Trace(err)
	}
	if found {
		return lookupEntry(entries, repo, model)
	}
	return c.catalogue.Lookup(repo, model)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer func() { _ = f.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", errors.Trace(err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
