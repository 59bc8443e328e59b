// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
	"github.com/roomwarden/roomwarden/lib/policydef"
)

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:    "policy",
		Summary: "inspect policy definitions",
		Subcommands: []*cli.Command{
			policyValidateCommand(),
			policyShowCommand(),
		},
	}
}

func policyValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Summary: "check a policy definition file for issues",
		Usage:   "roomwarden policy validate <file>",
		Examples: []cli.Example{
			{Command: "roomwarden policy validate /etc/roomwarden/policy.jsonc"},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("validate requires exactly one file argument")
			}

			definition, err := policydef.ReadFile(args[0])
			if err != nil {
				return err
			}

			issues := policydef.Validate(definition)
			if len(issues) == 0 {
				fmt.Printf("%s: ok\n", args[0])
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "%s: %s\n", args[0], issue)
			}
			return &cli.ExitError{Code: 1}
		},
	}
}

func policyShowCommand() *cli.Command {
	return &cli.Command{
		Name:    "show",
		Summary: "print the effective policy as JSON",
		Usage:   "roomwarden policy show <file>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show requires exactly one file argument")
			}

			definition, err := policydef.ReadFile(args[0])
			if err != nil {
				return err
			}
			return cli.WriteJSON(definition)
		},
	}
}
