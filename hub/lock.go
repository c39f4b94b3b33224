// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/juju/mutex/v2"
)

const lockDelay = 250 * time.Millisecond

// lockName returns the machine lock name guarding root. Names must match
// ^[a-z]+[a-z0-9.-]*$, so the root is hashed.
func lockName(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	sum := sha256.Sum256([]byte(root))
	return "modelfetch-" + hex.EncodeToString(sum[:8])
}

func acquireMutex(spec mutex.Spec) (func(), error) {
	releaser, err := mutex.Acquire(spec)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return releaser.Release, nil
}

// lock takes the cross-process lock on the hub root, so two processes
// sharing a cache never extract into it at once.
func (c *Client) lock(ctx context.Context) (func(), error) {
	release, err := c.acquireMutex(mutex.Spec{
		Name:    lockName(c.root),
		Clock:   c.clock,
		Delay:   lockDelay,
		Timeout: c.lockTimeout,
		Cancel:  ctx.Done(),
	})
	if errors.Is(err, mutex.ErrTimeout) {
		return nil, errors.Annotatef(err, "waiting for another process using %q", c.root)
	} else if errors.Is(err, mutex.ErrCancelled) {
		return nil, errors.Trace(ctx.Err())
	} else if err != nil {
		return nil, errors.Annotate(err, "acquiring hub lock")
	}
	return release, nil
}
