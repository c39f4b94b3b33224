// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"github.com/juju/clock"
	"github.com/juju/cmd/v3"

	"github.com/juju/modelfetch/fetcher"
	"github.com/juju/modelfetch/hub"
)

// NewFetchCommandForTest returns a fetch command that builds its hub
// clients with newHubClient.
func NewFetchCommandForTest(newHubClient func(hub.Config) (fetcher.HubClient, error), clock clock.Clock) cmd.Command {
	return &fetchCommand{
		newHubClient: newHubClient,
		clock:        clock,
		isTerminal:   func() bool { return false },
	}
}
