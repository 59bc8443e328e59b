// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
)

// PowerLevels is a partial typed representation of m.room.power_levels
// content. The users map and users_default are the only fields the
// policy engine interprets; everything else (event type thresholds,
// ban/kick/redact levels, notifications) passes through Extra
// untouched so that re-emitting the content preserves it byte-for-byte
// at the field level.
//
// UsersDefault is a pointer to distinguish "not set" (nil, omitted
// from JSON, defaults to 0 per the Matrix spec) from "explicitly set
// to 0".
type PowerLevels struct {
	Users        map[string]int
	UsersDefault *int

	// Extra holds every content field other than "users" and
	// "users_default", in raw form.
	Extra map[string]json.RawMessage
}

// UserLevel returns the resolved power level for a Matrix user ID: the
// explicit entry in Users if present, otherwise UsersDefault, otherwise
// 0 per the Matrix spec default.
func (powerLevels *PowerLevels) UserLevel(userID string) int {
	if powerLevels.Users != nil {
		if level, ok := powerLevels.Users[userID]; ok {
			return level
		}
	}
	if powerLevels.UsersDefault != nil {
		return *powerLevels.UsersDefault
	}
	return 0
}

// SetUserLevel sets the power level for a Matrix user ID. Initializes
// the Users map if nil.
func (powerLevels *PowerLevels) SetUserLevel(userID string, level int) {
	if powerLevels.Users == nil {
		powerLevels.Users = make(map[string]int)
	}
	powerLevels.Users[userID] = level
}

// SetUsersDefault sets the users_default field.
func (powerLevels *PowerLevels) SetUsersDefault(level int) {
	powerLevels.UsersDefault = &level
}

// Clone returns a deep copy. The engine derives new power levels
// content by cloning the snapshot's content and mutating the copy —
// the snapshot itself is never modified.
func (powerLevels *PowerLevels) Clone() *PowerLevels {
	clone := &PowerLevels{}
	if powerLevels.Users != nil {
		clone.Users = make(map[string]int, len(powerLevels.Users))
		for userID, level := range powerLevels.Users {
			clone.Users[userID] = level
		}
	}
	if powerLevels.UsersDefault != nil {
		value := *powerLevels.UsersDefault
		clone.UsersDefault = &value
	}
	if powerLevels.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(powerLevels.Extra))
		for field, raw := range powerLevels.Extra {
			copied := make(json.RawMessage, len(raw))
			copy(copied, raw)
			clone.Extra[field] = copied
		}
	}
	return clone
}

// UnmarshalJSON splits the content into the typed fields and the
// opaque remainder.
func (powerLevels *PowerLevels) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("schema: parsing power levels content: %w", err)
	}

	*powerLevels = PowerLevels{}

	if raw, ok := fields["users"]; ok {
		if err := json.Unmarshal(raw, &powerLevels.Users); err != nil {
			return fmt.Errorf("schema: parsing power levels users: %w", err)
		}
		delete(fields, "users")
	}
	if raw, ok := fields["users_default"]; ok {
		var level int
		if err := json.Unmarshal(raw, &level); err != nil {
			return fmt.Errorf("schema: parsing power levels users_default: %w", err)
		}
		powerLevels.UsersDefault = &level
		delete(fields, "users_default")
	}
	if len(fields) > 0 {
		powerLevels.Extra = fields
	}
	return nil
}

// MarshalJSON reassembles the content: opaque fields first, then the
// typed fields layered on top. A non-nil Users map is always emitted,
// even when empty — the freeze transition prunes users to an empty map
// and that empty map must survive serialization.
func (powerLevels PowerLevels) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(powerLevels.Extra)+2)
	for field, raw := range powerLevels.Extra {
		fields[field] = raw
	}

	if powerLevels.Users != nil {
		raw, err := json.Marshal(powerLevels.Users)
		if err != nil {
			return nil, fmt.Errorf("schema: encoding power levels users: %w", err)
		}
		fields["users"] = raw
	}
	if powerLevels.UsersDefault != nil {
		raw, err := json.Marshal(*powerLevels.UsersDefault)
		if err != nil {
			return nil, fmt.Errorf("schema: encoding power levels users_default: %w", err)
		}
		fields["users_default"] = raw
	}

	return json.Marshal(fields)
}
