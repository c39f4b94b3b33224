// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"regexp"
	"strings"

	"github.com/juju/errors"
)

var (
	validRepoPart = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	validRef      = regexp.MustCompile(`^[A-Za-z0-9_./-]+$`)
)

// Repo identifies a repository on the model hub, optionally pinned to a
// branch, tag or commit.
type Repo struct {
	Owner string
	Name  string
	// Ref is empty when the repository's default branch should be used.
	Ref string
}

// ParseRepo parses a repository identifier of the form "owner/name" or
// "owner/name:ref".
func ParseRepo(id string) (Repo, error) {
	spec, ref, hasRef := strings.Cut(id, ":")
	if hasRef && ref == "" {
		return Repo{}, errors.NotValidf("repository %q with empty ref", id)
	}
	owner, name, ok := strings.Cut(spec, "/")
	if !ok {
		return Repo{}, errors.NotValidf("repository %q, expected owner/name[:ref]", id)
	}
	for _, part := range []string{owner, name} {
		if !validRepoPart.MatchString(part) || part == "." || part == ".." {
			return Repo{}, errors.NotValidf("repository %q", id)
		}
	}
	if ref != "" && (!validRef.MatchString(ref) || strings.Contains(ref, "..")) {
		return Repo{}, errors.NotValidf("ref %q", ref)
	}
	return Repo{
		Owner: owner,
		Name:  name,
		Ref:   ref,
	}, nil
}

// String returns the identifier the repo was parsed from.
func (r Repo) String() string {
	if r.Ref == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + ":" + r.Ref
}

// WithRef returns a copy of the repo pinned to ref.
func (r Repo) WithRef(ref string) Repo {
	r.Ref = ref
	return r
}

// Key is the case-insensitive owner/name pair used for catalogue lookups.
func (r Repo) Key() string {
	return strings.ToLower(r.Owner + "/" + r.Name)
}

// trustName is the entry written to the trusted list.
func (r Repo) trustName() string {
	return r.Owner + "_" + r.Name
}

// cacheName is the directory name the repo is extracted to beneath the
// hub root.
func (r Repo) cacheName() string {
	return r.Owner + "_" + r.Name + "_" + normalizeRef(r.Ref)
}

func normalizeRef(ref string) string {
	return strings.ReplaceAll(ref, "/", "_")
}
