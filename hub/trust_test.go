// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"os"
	"path/filepath"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type TrustSuite struct {
	baseSuite
}

var _ = gc.Suite(&TrustSuite{})

func (s *TrustSuite) TestParseTrustPolicy(c *gc.C) {
	for in, expected := range map[string]TrustPolicy{
		"":       TrustWarn,
		"warn":   TrustWarn,
		"check":  TrustCheck,
		"always": TrustAlways,
	} {
		p, err := ParseTrustPolicy(in)
		c.Check(err, jc.ErrorIsNil)
		c.Check(p, gc.Equals, expected)
	}
	_, err := ParseTrustPolicy("yes")
	c.Check(err, gc.ErrorMatches, `trust policy "yes" not valid`)
}

func (s *TrustSuite) TestTrustedList(c *gc.C) {
	root := c.MkDir()
	list := newTrustedList(root)

	found, err := list.contains("acme_models")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(found, jc.IsFalse)

	c.Assert(list.add("acme_models"), jc.ErrorIsNil)
	c.Assert(list.add("other_repo"), jc.ErrorIsNil)

	found, err = list.contains("other_repo")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(found, jc.IsTrue)

	content, err := os.ReadFile(filepath.Join(root, TrustedListFile))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(content), gc.Equals, "acme_models\nother_repo\n")
}

func (s *TrustSuite) TestCheckTrustKnownOwners(c *gc.C) {
	client := &Client{root: c.MkDir(), trust: TrustCheck, logger: s.logger}
	for _, owner := range []string{"facebookresearch", "facebookincubator", "pytorch", "fairinternal", "snakers4", "NVIDIA"} {
		repo := Repo{Owner: owner, Name: "models", Ref: "main"}
		c.Check(client.checkTrust(repo, filepath.Join(client.root, repo.cacheName())), jc.ErrorIsNil, gc.Commentf("owner %s", owner))
	}

	repo := Repo{Owner: "acme", Name: "models", Ref: "main"}
	dir := filepath.Join(client.root, repo.cacheName())
	c.Check(client.checkTrust(repo, dir), gc.ErrorMatches, `repository "acme/models:main" is not trusted, .*`)

	c.Assert(os.Mkdir(dir, 0755), jc.ErrorIsNil)
	c.Check(client.checkTrust(repo, dir), jc.ErrorIsNil)
}
