// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/utils/v4"
)

// TrustedListFile is the name of the file beneath the hub root that lists
// trusted repositories, one "owner_name" per line.
const TrustedListFile = "trusted_list"

// TrustPolicy decides what happens when a repository that has not been
// trusted before is loaded.
type TrustPolicy string

const (
	// TrustWarn loads the repository and logs a warning.
	TrustWarn TrustPolicy = "warn"
	// TrustCheck refuses to load the repository.
	TrustCheck TrustPolicy = "check"
	// TrustAlways loads the repository and records it as trusted.
	TrustAlways TrustPolicy = "always"
)

// ParseTrustPolicy validates s as a TrustPolicy. The empty string is
// TrustWarn.
func ParseTrustPolicy(s string) (TrustPolicy, error) {
	switch p := TrustPolicy(s); p {
	case "":
		return TrustWarn, nil
	case TrustWarn, TrustCheck, TrustAlways:
		return p, nil
	}
	return "", errors.NotValidf("trust policy %q", s)
}

// trustedOwners never need an entry in the trusted list. The first four
// are the owners every torch hub client trusts.
var trustedOwners = set.NewStrings(
	"facebookresearch", "facebookincubator", "pytorch", "fairinternal",
	"snakers4", "nvidia",
)

type trustedList struct {
	path string
}

func newTrustedList(root string) trustedList {
	return trustedList{path: filepath.Join(root, TrustedListFile)}
}

func (t trustedList) contains(name string) (bool, error) {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == name {
			return true, nil
		}
	}
	return false, errors.Trace(scanner.Err())
}

func (t trustedList) add(name string) error {
	data, err := os.ReadFile(t.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	data = append(data, name+"\n"...)
	return errors.Trace(utils.AtomicWriteFile(t.path, data, 0644))
}

// checkTrust applies the client's trust policy to repo, which is cached
// at dir. A repository that is already cached counts as trusted. It must
// be called with the hub lock held, as it may append to the trusted list.
func (c *Client) checkTrust(repo Repo, dir string) error {
	if trustedOwners.Contains(strings.ToLower(repo.Owner)) {
		return nil
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil
	}
	list := newTrustedList(c.root)
	trusted, err := list.contains(repo.trustName())
	if err != nil {
		return errors.Annotate(err, "reading trusted list")
	}
	if trusted {
		return nil
	}

	switch c.trust {
	case TrustCheck:
		return errors.Forbiddenf("repository %q is not trusted, add %q to %s", repo.String(), repo.trustName(), list.path)
	case TrustAlways:
		c.logger.Infof("adding %s to the trusted list", repo.trustName())
		return errors.Annotate(list.add(repo.trustName()), "updating trusted list")
	default:
		c.logger.Warningf("repository %s is not in the trusted list; it will be loaded anyway", repo.String())
		return nil
	}
}
