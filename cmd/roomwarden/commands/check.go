// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/policy"
	"github.com/roomwarden/roomwarden/warden"
)

func checkCommand() *cli.Command {
	var policyFile string
	var serverName string

	return &cli.Command{
		Name:    "check",
		Summary: "evaluate a candidate event offline",
		Description: "Evaluates a candidate event against a captured room state without\n" +
			"touching a homeserver. The request file holds the same JSON payload\n" +
			"the admission endpoint accepts: {\"event\": ..., \"state_events\": [...]}.\n" +
			"Compensating state events the policy would author are reported but\n" +
			"not sent. Exits 1 when the event would be denied.",
		Usage: "roomwarden check --server-name <name> [flags] <request-file>",
		Examples: []cli.Example{
			{
				Description: "dry-run a captured admission request",
				Command:     "roomwarden check --server-name example.com request.json",
			},
			{
				Description: "read the request from stdin with a policy file",
				Command:     "roomwarden check --server-name example.com --policy policy.jsonc -",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flagSet.StringVar(&policyFile, "policy", "", "policy definition file (JSONC)")
			flagSet.StringVar(&serverName, "server-name", "", "homeserver server name (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("check requires exactly one request file argument (use - for stdin)")
			}
			if serverName == "" {
				return fmt.Errorf("--server-name is required")
			}
			return runCheck(policyFile, serverName, args[0])
		},
	}
}

// plannedEvent is a compensating state event the policy would have
// sent.
type plannedEvent struct {
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	Content  any    `json:"content"`
}

// checkOutcome is the JSON verdict printed by the check command.
type checkOutcome struct {
	Allowed     bool           `json:"allowed"`
	Reason      string         `json:"reason,omitempty"`
	Replacement map[string]any `json:"replacement,omitempty"`
	WouldSend   []plannedEvent `json:"would_send,omitempty"`
}

// dryRunSender satisfies the policy's event sender without a
// homeserver: it records what would have been sent.
type dryRunSender struct {
	planned []plannedEvent
}

func (s *dryRunSender) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	s.planned = append(s.planned, plannedEvent{
		Type:     eventType.String(),
		StateKey: stateKey,
		Content:  content,
	})
	return ref.EventID{}, nil
}

func runCheck(policyFile, serverName, requestPath string) error {
	name, err := ref.ParseServerName(serverName)
	if err != nil {
		return fmt.Errorf("--server-name: %w", err)
	}

	definition, err := loadDefinition(policyFile)
	if err != nil {
		return err
	}

	data, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	var request warden.CheckRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}
	event, err := request.Event.Event()
	if err != nil {
		return err
	}
	state, err := policy.BuildStateMap(request.StateEvents)
	if err != nil {
		return err
	}

	sender := &dryRunSender{}
	checker, err := policy.NewChecker(policy.CheckerConfig{
		ServerName:        name,
		UnfreezeBlacklist: definition.UnfreezeBlacklist,
		PromoteModerators: definition.PromoteModerators,
		Sender:            sender,
		Logger:            cli.NewCommandLogger().With("command", "check"),
	})
	if err != nil {
		return err
	}

	decision, err := checker.CheckEventAllowed(context.Background(), event, state)
	if err != nil {
		return err
	}

	outcome := checkOutcome{
		Allowed:     decision.Allowed,
		Replacement: decision.Replacement,
		WouldSend:   sender.planned,
	}
	if !decision.Allowed {
		outcome.Reason = decision.Reason.String()
	}
	if err := cli.WriteJSON(outcome); err != nil {
		return err
	}

	if !decision.Allowed {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

func readRequest(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
