// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package osenv

import (
	"os"
	"strings"
)

const (
	// CacheDirEnvKey overrides the directory models are cached under.
	CacheDirEnvKey = "MODELFETCH_CACHE_DIR"

	// HubURLEnvKey overrides the base URL repository archives are
	// downloaded from.
	HubURLEnvKey = "MODELFETCH_HUB_URL"

	// APIURLEnvKey overrides the base URL of the repository metadata API.
	APIURLEnvKey = "MODELFETCH_API_URL"

	// LoggingConfigEnvKey holds a loggo configuration string.
	LoggingConfigEnvKey = "MODELFETCH_LOGGING_CONFIG"
)

const (
	// DefaultCacheDir is the cache directory used when nothing else is
	// configured. It is relative to the working directory.
	DefaultCacheDir = "./models/torch"

	// DefaultHubURL is where repository archives live.
	DefaultHubURL = "https://github.com"

	// DefaultAPIURL is where repository metadata is looked up.
	DefaultAPIURL = "https://api.github.com"
)

// Value returns the trimmed value of the environment variable key, or
// fallback if the variable is unset or blank.
func Value(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// CacheDir returns the cache directory from the environment, falling back
// to DefaultCacheDir.
func CacheDir() string {
	return Value(CacheDirEnvKey, DefaultCacheDir)
}

// HubURL returns the archive base URL from the environment, falling back
// to DefaultHubURL.
func HubURL() string {
	return Value(HubURLEnvKey, DefaultHubURL)
}

// APIURL returns the metadata API base URL from the environment, falling
// back to DefaultAPIURL.
func APIURL() string {
	return Value(APIURLEnvKey, DefaultAPIURL)
}

// LoggingConfig returns the loggo configuration from the environment.
func LoggingConfig() string {
	return Value(LoggingConfigEnvKey, "")
}
