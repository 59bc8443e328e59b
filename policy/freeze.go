// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"fmt"

	"github.com/roomwarden/roomwarden/lib/schema"
)

// onFrozenStateChange handles a candidate that sets or clears the
// frozen marker. Compensating events (join rules, power levels) are
// derived and sent for local senders; the marker itself is then
// admitted with a replacement dict so the caller rebuilds it against
// the new room state.
func (c *Checker) onFrozenStateChange(ctx context.Context, event *Event, state StateMap) (Decision, error) {
	frozen, ok := event.Content["frozen"].(bool)
	if !ok {
		return deny(ReasonMalformedFrozen), nil
	}

	// Freezing is always legitimate; only unfreezing is subject to
	// the domain blacklist.
	if !frozen && c.unfreezeBlacklist[event.Sender.Server()] {
		c.logger.Info("denying unfreeze from blacklisted domain",
			"room_id", event.RoomID, "sender", event.Sender)
		return deny(ReasonBlacklistedUnfreeze), nil
	}

	// No transition, nothing to compensate for.
	if current := state.Get(schema.EventTypeFrozen, ""); current != nil {
		if currentFrozen, ok := current.Content["frozen"].(bool); ok && currentFrozen == frozen {
			return allow(), nil
		}
	}

	// Remote senders get a pass-through: their own homeserver derives
	// the compensating events, and sending them here on a remote
	// user's behalf is impossible anyway.
	if !c.isLocalUser(event.Sender) {
		return allow(), nil
	}

	powerLevels, err := state.powerLevels()
	if err != nil {
		return Decision{}, err
	}
	if powerLevels == nil {
		return Decision{}, fmt.Errorf("policy: room %s has no power levels state", event.RoomID)
	}

	if frozen {
		return c.freezeRoom(ctx, event, state, powerLevels)
	}
	return c.unfreezeRoom(ctx, event, powerLevels)
}

// freezeRoom derives the compensating events for a freeze: the room is
// closed off to new joiners if it was open, and the power levels are
// rewritten so every occupant below administrator level shares a
// default of 100 — nobody outranks anybody in a frozen room.
func (c *Checker) freezeRoom(ctx context.Context, event *Event, state StateMap, powerLevels *schema.PowerLevels) (Decision, error) {
	joinRules := state.Get(schema.EventTypeJoinRules, "")
	if joinRules == nil || joinRules.Content["join_rule"] == schema.JoinRulePublic {
		content := schema.JoinRulesContent{JoinRule: schema.JoinRuleInvite}
		if _, err := c.sender.SendStateEvent(ctx, event.RoomID, schema.EventTypeJoinRules, "", content); err != nil {
			return Decision{}, fmt.Errorf("policy: closing room %s for freeze: %w", event.RoomID, err)
		}
	}

	newLevels := powerLevels.Clone()
	newLevels.SetUsersDefault(schema.AdminPowerLevel)

	// Only explicit administrator entries survive the freeze; every
	// other assignment collapses into the new default.
	pruned := make(map[string]int)
	for userID, level := range newLevels.Users {
		if level == schema.AdminPowerLevel {
			pruned[userID] = level
		}
	}
	newLevels.Users = pruned

	if _, err := c.sender.SendStateEvent(ctx, event.RoomID, schema.EventTypePowerLevels, "", newLevels); err != nil {
		return Decision{}, fmt.Errorf("policy: levelling room %s for freeze: %w", event.RoomID, err)
	}

	c.logger.Info("froze room", "room_id", event.RoomID, "sender", event.Sender)
	return allowRebuilt(event), nil
}

// unfreezeRoom derives the compensating power levels for an unfreeze:
// the sender becomes an administrator and the default drops back to 0,
// restoring a normal hierarchy with the unfreezer at the top.
func (c *Checker) unfreezeRoom(ctx context.Context, event *Event, powerLevels *schema.PowerLevels) (Decision, error) {
	newLevels := powerLevels.Clone()
	newLevels.SetUserLevel(event.Sender.String(), schema.AdminPowerLevel)
	newLevels.SetUsersDefault(0)

	if _, err := c.sender.SendStateEvent(ctx, event.RoomID, schema.EventTypePowerLevels, "", newLevels); err != nil {
		return Decision{}, fmt.Errorf("policy: levelling room %s for unfreeze: %w", event.RoomID, err)
	}

	c.logger.Info("unfroze room", "room_id", event.RoomID, "sender", event.Sender)
	return allowRebuilt(event), nil
}
