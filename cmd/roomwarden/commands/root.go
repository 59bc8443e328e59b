// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the roomwarden CLI command tree.
package commands

import (
	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
)

// Root returns the root of the roomwarden command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "roomwarden",
		Summary: "Matrix frozen-room admission engine",
		Description: "Roomwarden guards Matrix rooms against the loss of their last\n" +
			"administrator: it can freeze a room (locking it down until an\n" +
			"operator intervenes) or promote the next tier of moderators, and\n" +
			"it polices every event sent to a frozen room.",
		Subcommands: []*cli.Command{
			serveCommand(),
			checkCommand(),
			policyCommand(),
			journalCommand(),
			versionCommand(),
		},
	}
}
