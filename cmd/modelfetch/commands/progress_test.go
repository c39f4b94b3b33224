// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"bytes"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/modelfetch/hub"
)

type progressSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&progressSuite{})

var _ hub.ProgressBar = (*progressBar)(nil)

func (s *progressSuite) TestThrottledByClock(c *gc.C) {
	var out bytes.Buffer
	clock := testclock.NewClock(time.Now())
	bar := newProgressBar(&out, clock)

	bar.Start("silero.zip", 100)
	c.Check(out.String(), gc.Equals, "\rsilero.zip: 0 B / 100 B (0%)")

	out.Reset()
	n, err := bar.Write(make([]byte, 25))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(n, gc.Equals, 25)
	c.Check(out.String(), gc.Equals, "\rsilero.zip: 25 B / 100 B (25%)")

	// Within the interval nothing is drawn.
	out.Reset()
	_, _ = bar.Write(make([]byte, 25))
	c.Check(out.String(), gc.Equals, "")

	clock.Advance(time.Second)
	_, _ = bar.Write(make([]byte, 25))
	c.Check(out.String(), gc.Equals, "\rsilero.zip: 75 B / 100 B (75%)")

	out.Reset()
	_, _ = bar.Write(make([]byte, 25))
	bar.Finished()
	c.Check(out.String(), gc.Equals, "\rsilero.zip: 100 B / 100 B (100%)\n")
}

func (s *progressSuite) TestUnknownTotal(c *gc.C) {
	var out bytes.Buffer
	bar := newProgressBar(&out, testclock.NewClock(time.Now()))

	bar.Start("silero.zip", -1)
	_, _ = bar.Write(make([]byte, 2000))
	bar.Finished()
	c.Check(out.String(), gc.Equals, "\rsilero.zip: 0 B\rsilero.zip: 2.0 kB\rsilero.zip: 2.0 kB\n")
}
