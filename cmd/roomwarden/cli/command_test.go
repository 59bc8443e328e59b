// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "roomwarden",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "serve",
				Run: func(args []string) error {
					called = "serve"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"serve"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "serve" {
		t.Errorf("dispatched to %q, want %q", called, "serve")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "roomwarden",
		Subcommands: []*Command{
			{
				Name: "policy",
				Subcommands: []*Command{
					{
						Name: "validate",
						Run: func(args []string) error {
							called = "policy validate"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"policy", "validate", "policy.jsonc"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "policy validate" {
		t.Errorf("dispatched to %q, want %q", called, "policy validate")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "policy.jsonc" {
		t.Errorf("args = %v, want [policy.jsonc]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var configPath string
	var target string

	command := &Command{
		Name: "serve",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "/default.yaml", "config path")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--config", "/custom.yaml", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if configPath != "/custom.yaml" {
		t.Errorf("configPath = %q, want %q", configPath, "/custom.yaml")
	}
	if target != "extra" {
		t.Errorf("target = %q, want %q", target, "extra")
	}
}

func TestCommand_Execute_UnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "roomwarden",
		Subcommands: []*Command{
			{Name: "serve", Run: func(args []string) error { return nil }},
			{Name: "check", Run: func(args []string) error { return nil }},
		},
	}

	err := root.Execute([]string{"chekc"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "check"`) {
		t.Errorf("expected suggestion for check, got: %v", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "serve",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.String("config", "", "config path")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--confg", "x.yaml"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--config") {
		t.Errorf("expected suggestion for --config, got: %v", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name: "roomwarden",
		Subcommands: []*Command{
			{Name: "serve", Run: func(args []string) error { return nil }},
		},
	}

	if err := root.Execute(nil); err == nil {
		t.Fatal("expected error when no subcommand given")
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:    "roomwarden",
		Summary: "Matrix room admission engine",
		Subcommands: []*Command{
			{Name: "serve", Summary: "run the admission service"},
			{Name: "check", Summary: "evaluate an event offline"},
		},
		Examples: []Example{
			{Description: "start the service", Command: "roomwarden serve --config roomwarden.yaml"},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	help := buffer.String()

	for _, want := range []string{"serve", "check", "run the admission service", "roomwarden serve --config"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}
