// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy implements the frozen-room admission engine.
//
// A room is frozen by the singular org.matrix.room.frozen state event
// carrying {"frozen": true}. While frozen, almost nothing may change:
// members can leave of their own accord, and the room can be unfrozen,
// but every other state change and every message is rejected. Freezing
// a room raises users_default to 100 so that any remaining member has
// the power to unfreeze it later; unfreezing restores users_default
// to 0 and makes the unfreezing sender an administrator.
//
// The engine also watches membership: when the last administrator
// leaves a room voluntarily, it either promotes the most powerful
// remaining occupants to administrator (when promotion is enabled) or
// freezes the room so it cannot decay into an unmanageable state.
//
// [Checker.CheckEventAllowed] is the single entry point. It receives
// one candidate event plus a [StateMap] snapshot of the room's current
// state and returns a [Decision]: allow, deny, or allow with a
// replacement (the candidate's own dict form, returned when room state
// was changed underneath the candidate and the caller must rebuild
// it). Compensating state events (power level resets, join rule
// resets, freeze markers, promotions) are authored through the
// [EventSender] collaborator as a side effect of some decisions.
//
// The engine holds no cross-call state and performs no locking; the
// caller must serialize evaluation per room so that no two candidates
// for the same room race against overlapping snapshots.
package policy
