// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policydef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roomwarden/roomwarden/lib/ref"
)

func TestParse(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	// Servers caught mass-unfreezing rooms during the spam wave.
	"unfreeze_blacklist": [
		"evil.example",
		"also-evil.example", // added 2026-07-14
	],
	"promote_moderators": true,
	"ignored_rooms": [
		"!sandbox:example.com",
	],
}`)

	def, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if len(def.UnfreezeBlacklist) != 2 {
		t.Fatalf("expected 2 blacklist entries, got %d", len(def.UnfreezeBlacklist))
	}
	if def.UnfreezeBlacklist[0] != "evil.example" {
		t.Errorf("unexpected first blacklist entry: %s", def.UnfreezeBlacklist[0])
	}
	if !def.PromoteModerators {
		t.Error("expected promote_moderators=true")
	}
	if len(def.IgnoredRooms) != 1 {
		t.Fatalf("expected 1 ignored room, got %d", len(def.IgnoredRooms))
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"unfreeze_blacklist": "not-a-list"}`))
	if err == nil {
		t.Fatal("expected error for malformed definition, got nil")
	}
	if !strings.Contains(err.Error(), "parsing policy definition") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.jsonc")
	content := `{
	"description": "staging policy",
	"promote_moderators": false,
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write definition: %v", err)
	}

	def, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if def.Description != "staging policy" {
		t.Errorf("unexpected description: %s", def.Description)
	}
	if def.PromoteModerators {
		t.Error("expected promote_moderators=false")
	}
}

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.jsonc"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		def            *Definition
		expectedIssues int
		wantSubstrings []string
	}{
		{
			name:           "empty definition",
			def:            &Definition{},
			expectedIssues: 0,
		},
		{
			name: "valid definition",
			def: &Definition{
				UnfreezeBlacklist: []string{"evil.example", "other.example:8448"},
				IgnoredRooms:      []string{"!sandbox:example.com"},
			},
			expectedIssues: 0,
		},
		{
			name: "invalid server name",
			def: &Definition{
				UnfreezeBlacklist: []string{"@user:evil.example"},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"unfreeze_blacklist[0]", "not a valid server name"},
		},
		{
			name: "duplicate blacklist entry",
			def: &Definition{
				UnfreezeBlacklist: []string{"evil.example", "evil.example"},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"duplicate entry", "unfreeze_blacklist[0]"},
		},
		{
			name: "invalid room ID",
			def: &Definition{
				IgnoredRooms: []string{"sandbox:example.com"},
			},
			expectedIssues: 1,
			wantSubstrings: []string{"ignored_rooms[0]", "not a valid room ID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issues := Validate(tt.def)
			if len(issues) != tt.expectedIssues {
				t.Fatalf("expected %d issues, got %d: %v", tt.expectedIssues, len(issues), issues)
			}
			joined := strings.Join(issues, "\n")
			for _, want := range tt.wantSubstrings {
				if !strings.Contains(joined, want) {
					t.Errorf("expected issues to mention %q, got: %s", want, joined)
				}
			}
		})
	}
}

func TestIgnoresRoom(t *testing.T) {
	t.Parallel()

	def := &Definition{IgnoredRooms: []string{"!sandbox:example.com"}}

	if !def.IgnoresRoom(ref.MustParseRoomID("!sandbox:example.com")) {
		t.Error("expected sandbox room to be ignored")
	}
	if def.IgnoresRoom(ref.MustParseRoomID("!prod:example.com")) {
		t.Error("expected prod room to be checked")
	}
}
