// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"fmt"

	"github.com/roomwarden/roomwarden/lib/schema"
)

// freezeOrPromoteOnLastAdminLeave inspects a voluntary leave. If the
// leaver is the room's last administrator, the room would be left
// without anyone able to moderate it, so either the next tier of
// occupants is promoted (when enabled) or the room is frozen.
//
// The leave itself is always admitted; this only derives side effects.
func (c *Checker) freezeOrPromoteOnLastAdminLeave(ctx context.Context, event *Event, state StateMap) error {
	// Kicks and bans don't abandon the room: the acting admin stays.
	if event.Sender.String() != *event.StateKey {
		return nil
	}

	// Compensating events can only be authored on behalf of local
	// users; a remote admin's homeserver handles its own departures.
	if !c.isLocalUser(event.Sender) {
		return nil
	}

	// Unusable power levels mean the admin set can't be determined, so
	// there is nothing to protect. Unlike a freeze transition, the
	// leave itself must still go through, so this never turns into an
	// admission failure.
	powerLevels, err := state.powerLevels()
	if err != nil {
		c.logger.Debug("skipping succession check for unreadable power levels",
			"room_id", event.RoomID, "error", err)
		return nil
	}
	if powerLevels == nil || powerLevels.Users == nil {
		return nil
	}

	leaverLevel := powerLevels.UserLevel(event.Sender.String())
	if leaverLevel < schema.AdminPowerLevel {
		return nil
	}

	if otherAdminPresent(powerLevels, state, event.Sender.String()) {
		return nil
	}

	if c.promoteModerators {
		successors := highestOccupiedTier(powerLevels, state, event.Sender.String())
		if len(successors) > 0 {
			newLevels := powerLevels.Clone()
			for _, userID := range successors {
				newLevels.SetUserLevel(userID, leaverLevel)
			}
			if _, err := c.sender.SendStateEvent(ctx, event.RoomID, schema.EventTypePowerLevels, "", newLevels); err != nil {
				return fmt.Errorf("policy: promoting successors in room %s: %w", event.RoomID, err)
			}
			c.logger.Info("promoted successors of departing admin",
				"room_id", event.RoomID, "admin", event.Sender, "successors", successors)
			return nil
		}
	}

	content := schema.FrozenContent{Frozen: true}
	if _, err := c.sender.SendStateEvent(ctx, event.RoomID, schema.EventTypeFrozen, "", content); err != nil {
		return fmt.Errorf("policy: freezing abandoned room %s: %w", event.RoomID, err)
	}
	c.logger.Info("froze room abandoned by last admin",
		"room_id", event.RoomID, "admin", event.Sender)
	return nil
}

// otherAdminPresent reports whether an administrator other than
// leaver is joined to, or invited to, the room.
func otherAdminPresent(powerLevels *schema.PowerLevels, state StateMap, leaver string) bool {
	for userID, level := range powerLevels.Users {
		if userID == leaver || level < schema.AdminPowerLevel {
			continue
		}
		if isOccupant(state, userID) {
			return true
		}
	}
	return false
}

// highestOccupiedTier finds the successors to a departing admin: the
// joined or invited users sharing the highest power level above the
// default, excluding the leaver. A tier whose members have all left is
// dropped entirely and the search moves down to the next level.
func highestOccupiedTier(powerLevels *schema.PowerLevels, state StateMap, leaver string) []string {
	defaultLevel := 0
	if powerLevels.UsersDefault != nil {
		defaultLevel = *powerLevels.UsersDefault
	}

	skipped := map[string]bool{leaver: true}
	for {
		tierLevel := defaultLevel
		var tier []string
		for userID, level := range powerLevels.Users {
			if skipped[userID] || level <= defaultLevel {
				continue
			}
			switch {
			case level > tierLevel:
				tierLevel = level
				tier = []string{userID}
			case level == tierLevel:
				tier = append(tier, userID)
			}
		}
		if len(tier) == 0 {
			return nil
		}

		var present []string
		for _, userID := range tier {
			if isOccupant(state, userID) {
				present = append(present, userID)
			}
			skipped[userID] = true
		}
		if len(present) > 0 {
			return present
		}
	}
}

// isOccupant reports whether the user is joined or invited according
// to the room state.
func isOccupant(state StateMap, userID string) bool {
	member := state.Get(schema.EventTypeMember, userID)
	if member == nil {
		return false
	}
	membership := member.Membership()
	return membership == schema.MembershipJoin || membership == schema.MembershipInvite
}
