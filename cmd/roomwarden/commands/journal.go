// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
	"github.com/roomwarden/roomwarden/warden"
)

func journalCommand() *cli.Command {
	var tail int

	return &cli.Command{
		Name:    "journal",
		Summary: "print the decision journal",
		Description: "Decodes the on-disk decision journal and prints its records as\n" +
			"JSON. The journal holds denials and compensated allows; plain\n" +
			"allows are not recorded.",
		Usage: "roomwarden journal [flags] <path>",
		Examples: []cli.Example{
			{Command: "roomwarden journal /var/lib/roomwarden/journal.cbor"},
			{
				Description: "only the most recent 20 decisions",
				Command:     "roomwarden journal --tail 20 /var/lib/roomwarden/journal.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("journal", pflag.ContinueOnError)
			flagSet.IntVar(&tail, "tail", 0, "print only the last N records (0 = all)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("journal requires exactly one path argument")
			}

			records, err := warden.ReadJournal(args[0])
			if err != nil {
				return err
			}
			if tail > 0 && len(records) > tail {
				records = records[len(records)-tail:]
			}
			if records == nil {
				records = []warden.Record{}
			}
			return cli.WriteJSON(records)
		},
	}
}
