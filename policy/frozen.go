// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"reflect"

	"github.com/roomwarden/roomwarden/lib/schema"
)

// onEventWhenFrozen gatekeeps a frozen room. Only two kinds of event
// get through: occupants leaving of their own accord, and the power
// levels event that precedes an unfreeze (the unfreezer promotes
// itself before clearing the marker, so that event arrives while the
// room is still frozen).
func (c *Checker) onEventWhenFrozen(event *Event, state StateMap) Decision {
	if event.Type == schema.EventTypeMember &&
		event.IsState() &&
		event.Membership() == schema.MembershipLeave &&
		event.Sender.String() == *event.StateKey {
		return allow()
	}

	if event.Type == schema.EventTypePowerLevels && event.IsState() {
		current := state.Get(schema.EventTypePowerLevels, "")
		if current != nil && isUnfreezePowerLevels(event, current) {
			return allow()
		}
	}

	return deny(ReasonRoomFrozen)
}

// isUnfreezePowerLevels reports whether the candidate power levels
// event looks like the promotion step of an unfreeze: the sender makes
// itself administrator, the default drops back to 0, and nothing else
// about the power levels changes. User assignments are excluded from
// the comparison since the promotion rewrites them; the candidate's
// users_default is compared as-is, so a document that keeps the frozen
// default of 100 is not mistaken for a thaw.
func isUnfreezePowerLevels(event, current *Event) bool {
	oldContent, ok := normalizeContent(current.Content)
	if !ok {
		return false
	}
	newContent, ok := normalizeContent(event.Content)
	if !ok {
		return false
	}

	senderLevel := 0.0
	if users, ok := newContent["users"].(map[string]any); ok {
		senderLevel, _ = users[event.Sender.String()].(float64)
	}

	oldContent["users_default"] = 0.0
	delete(oldContent, "users")
	delete(newContent, "users")

	return senderLevel == float64(schema.AdminPowerLevel) &&
		reflect.DeepEqual(oldContent, newContent)
}

// normalizeContent round-trips a content document through JSON so that
// numeric values compare consistently regardless of how the document
// was built.
func normalizeContent(content map[string]any) (map[string]any, bool) {
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, false
	}
	var normalized map[string]any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, false
	}
	return normalized, true
}
