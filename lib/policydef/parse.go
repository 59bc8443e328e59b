// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package policydef provides parsing and validation for roomwarden
// policy definitions. A policy definition carries the operator-tunable
// parts of the admission policy: the unfreeze blacklist, the
// moderator-promotion switch, and the list of rooms exempt from
// admission checks.
//
// Definitions are authored on disk as JSONC files (JSON extended with
// comments and trailing commas), so operators can annotate blacklist
// entries with the incident that earned them.
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Definition
//  2. Validate: structural checks (parseable server names and room IDs)
package policydef

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/roomwarden/roomwarden/lib/ref"
)

// Definition is the operator-authored admission policy.
type Definition struct {
	// Description is free-form operator documentation.
	Description string `json:"description,omitempty"`

	// UnfreezeBlacklist lists server names whose users may not
	// unfreeze rooms. Freezing is never blacklisted.
	UnfreezeBlacklist []string `json:"unfreeze_blacklist,omitempty"`

	// PromoteModerators selects the succession behavior when the last
	// admin leaves a room: promote the next fully-present power tier
	// instead of freezing immediately.
	PromoteModerators bool `json:"promote_moderators,omitempty"`

	// IgnoredRooms lists room IDs exempt from all admission checks.
	// Events in these rooms are always allowed unchanged.
	IgnoredRooms []string `json:"ignored_rooms,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Definition.
func Parse(data []byte) (*Definition, error) {
	stripped := jsonc.ToJSON(data)

	var def Definition
	if err := json.Unmarshal(stripped, &def); err != nil {
		return nil, fmt.Errorf("parsing policy definition: %w", err)
	}

	return &def, nil
}

// ReadFile reads a JSONC policy definition from disk and parses it.
// Returns a descriptive error if the file cannot be read or the JSON
// is malformed.
func ReadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

// Validate checks a Definition for structural issues. Returns a list
// of human-readable issue descriptions. An empty list means the
// definition is valid.
func Validate(def *Definition) []string {
	var issues []string

	seen := make(map[string]int, len(def.UnfreezeBlacklist))
	for index, name := range def.UnfreezeBlacklist {
		prefix := fmt.Sprintf("unfreeze_blacklist[%d]", index)
		if _, err := ref.ParseServerName(name); err != nil {
			issues = append(issues, fmt.Sprintf("%s %q: not a valid server name: %v", prefix, name, err))
			continue
		}
		if firstIndex, exists := seen[name]; exists {
			issues = append(issues, fmt.Sprintf(
				"%s %q: duplicate entry (first listed at unfreeze_blacklist[%d])",
				prefix, name, firstIndex,
			))
		} else {
			seen[name] = index
		}
	}

	for index, room := range def.IgnoredRooms {
		prefix := fmt.Sprintf("ignored_rooms[%d]", index)
		if _, err := ref.ParseRoomID(room); err != nil {
			issues = append(issues, fmt.Sprintf("%s %q: not a valid room ID: %v", prefix, room, err))
		}
	}

	return issues
}

// IgnoresRoom reports whether roomID is exempt from admission checks.
func (d *Definition) IgnoresRoom(roomID ref.RoomID) bool {
	for _, room := range d.IgnoredRooms {
		if room == roomID.String() {
			return true
		}
	}
	return false
}
