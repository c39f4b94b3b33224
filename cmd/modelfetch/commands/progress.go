// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
)

const progressInterval = 200 * time.Millisecond

// progressBar renders download progress on a single terminal line.
type progressBar struct {
	out   io.Writer
	clock clock.Clock

	mu      sync.Mutex
	label   string
	total   float64
	current float64
	last    time.Time
}

func newProgressBar(out io.Writer, clock clock.Clock) *progressBar {
	return &progressBar{out: out, clock: clock}
}

// Start implements hub.ProgressBar.
func (p *progressBar) Start(label string, total float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
	p.total = total
	p.current = 0
	p.last = time.Time{}
	p.render()
}

// Write implements hub.ProgressBar.
func (p *progressBar) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += float64(len(b))
	if now := p.clock.Now(); now.Sub(p.last) >= progressInterval {
		p.last = now
		p.render()
	}
	return len(b), nil
}

// Finished implements hub.ProgressBar.
func (p *progressBar) Finished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.out)
}

func (p *progressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r%s: %s", p.label, humanizeSize(int64(p.current)))
		return
	}
	fmt.Fprintf(p.out, "\r%s: %s / %s (%.0f%%)",
		p.label,
		humanizeSize(int64(p.current)),
		humanizeSize(int64(p.total)),
		100*p.current/p.total,
	)
}

func humanizeSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
