// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
)

func writeRequestFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "request.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing request file: %v", err)
	}
	return path
}

const allowedRequest = `{
	"event": {
		"type": "m.room.message",
		"sender": "@bob:example.com",
		"room_id": "!room:example.com",
		"content": {"body": "hi"}
	},
	"state_events": [
		{
			"type": "m.room.power_levels",
			"sender": "@alice:example.com",
			"room_id": "!room:example.com",
			"state_key": "",
			"content": {"users": {"@alice:example.com": 100}, "users_default": 0}
		}
	]
}`

const deniedRequest = `{
	"event": {
		"type": "m.room.message",
		"sender": "@bob:example.com",
		"room_id": "!room:example.com",
		"content": {"body": "hi"}
	},
	"state_events": [
		{
			"type": "org.matrix.room.frozen",
			"sender": "@alice:example.com",
			"room_id": "!room:example.com",
			"state_key": "",
			"content": {"frozen": true}
		}
	]
}`

func TestRunCheck_Allowed(t *testing.T) {
	path := writeRequestFile(t, allowedRequest)

	if err := runCheck("", "example.com", path); err != nil {
		t.Fatalf("runCheck() failed: %v", err)
	}
}

func TestRunCheck_DeniedExitsNonZero(t *testing.T) {
	path := writeRequestFile(t, deniedRequest)

	err := runCheck("", "example.com", path)
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("expected exit code 1, got %d", exitErr.Code)
	}
}

func TestRunCheck_MalformedRequest(t *testing.T) {
	path := writeRequestFile(t, "{")

	err := runCheck("", "example.com", path)
	if err == nil {
		t.Fatal("expected error for malformed request")
	}
	if !strings.Contains(err.Error(), "parsing request") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCheck_BadServerName(t *testing.T) {
	path := writeRequestFile(t, allowedRequest)

	if err := runCheck("", "@not-a-server", path); err == nil {
		t.Fatal("expected error for invalid server name")
	}
}

func TestLoadDefinition(t *testing.T) {
	t.Run("empty path yields default", func(t *testing.T) {
		definition, err := loadDefinition("")
		if err != nil {
			t.Fatalf("loadDefinition() failed: %v", err)
		}
		if definition.PromoteModerators || len(definition.UnfreezeBlacklist) != 0 {
			t.Errorf("expected empty definition, got %+v", definition)
		}
	})

	t.Run("invalid definition reported", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.jsonc")
		content := `{"unfreeze_blacklist": ["@user:evil.example"]}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing definition: %v", err)
		}

		_, err := loadDefinition(path)
		if err == nil {
			t.Fatal("expected error for invalid definition")
		}
		if !strings.Contains(err.Error(), "unfreeze_blacklist[0]") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestRootCommandTree(t *testing.T) {
	root := Root()

	want := []string{"serve", "check", "policy", "journal", "version"}
	if len(root.Subcommands) != len(want) {
		t.Fatalf("expected %d subcommands, got %d", len(want), len(root.Subcommands))
	}
	for index, name := range want {
		if root.Subcommands[index].Name != name {
			t.Errorf("subcommand %d = %q, want %q", index, root.Subcommands[index].Name, name)
		}
	}
}
