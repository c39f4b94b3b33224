// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type RepoSuite struct {
	baseSuite
}

var _ = gc.Suite(&RepoSuite{})

func (s *RepoSuite) TestParseRepo(c *gc.C) {
	tests := []struct {
		id       string
		expected Repo
	}{{
		id:       "snakers4/silero-vad",
		expected: Repo{Owner: "snakers4", Name: "silero-vad"},
	}, {
		id:       "snakers4/silero-vad:v5.1",
		expected: Repo{Owner: "snakers4", Name: "silero-vad", Ref: "v5.1"},
	}, {
		id:       "pytorch/vision:release/0.17",
		expected: Repo{Owner: "pytorch", Name: "vision", Ref: "release/0.17"},
	}}
	for i, test := range tests {
		c.Logf("test %d: %q", i, test.id)
		repo, err := ParseRepo(test.id)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(repo, gc.Equals, test.expected)
		c.Check(repo.String(), gc.Equals, test.id)
	}
}

func (s *RepoSuite) TestParseRepoInvalid(c *gc.C) {
	for i, id := range []string{
		"",
		"silero-vad",
		"snakers4/",
		"/silero-vad",
		"snakers4/silero-vad:",
		"snakers4/../etc",
		"snakers4/silero vad",
		"snakers4/silero-vad:../../master",
		"a/b/c",
	} {
		c.Logf("test %d: %q", i, id)
		_, err := ParseRepo(id)
		c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	}
}

func (s *RepoSuite) TestNames(c *gc.C) {
	repo := Repo{Owner: "Snakers4", Name: "silero-vad", Ref: "feature/x"}
	c.Check(repo.Key(), gc.Equals, "snakers4/silero-vad")
	c.Check(repo.trustName(), gc.Equals, "Snakers4_silero-vad")
	c.Check(repo.cacheName(), gc.Equals, "Snakers4_silero-vad_feature_x")
	c.Check(repo.WithRef("master").cacheName(), gc.Equals, "Snakers4_silero-vad_master")
}
