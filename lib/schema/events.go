// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/roomwarden/roomwarden/lib/ref"

// Matrix event type constants for the state events the policy engine
// reads or authors. All of these are state events with an empty state
// key, except m.room.member whose state key is the target user ID.
const (
	// EventTypeFrozen is the frozen-marker state event. Its content
	// carries a single boolean "frozen" field; absence of the event
	// means the room is not frozen.
	//
	// State key: "" (singular per room)
	EventTypeFrozen ref.EventType = "org.matrix.room.frozen"

	// EventTypeMember is the standard Matrix membership event.
	//
	// State key: the affected user's Matrix ID
	EventTypeMember ref.EventType = "m.room.member"

	// EventTypePowerLevels is the standard Matrix power levels event.
	//
	// State key: "" (singular per room)
	EventTypePowerLevels ref.EventType = "m.room.power_levels"

	// EventTypeJoinRules is the standard Matrix join rules event.
	//
	// State key: "" (singular per room)
	EventTypeJoinRules ref.EventType = "m.room.join_rules"

	// EventTypeAudit is Roomwarden's decision audit event, posted as a
	// timeline event to the configured moderation room on denials and
	// compensating state changes.
	EventTypeAudit ref.EventType = "m.roomwarden.audit"

	// EventTypeServiceReady is the timeline event Roomwarden posts to
	// the moderation room on startup, once the admission endpoint is
	// bound and accepting requests.
	EventTypeServiceReady ref.EventType = "m.roomwarden.service_ready"
)

// Membership states from m.room.member content.
const (
	MembershipInvite = "invite"
	MembershipJoin   = "join"
	MembershipKnock  = "knock"
	MembershipLeave  = "leave"
	MembershipBan    = "ban"
)

// Join rules from m.room.join_rules content.
const (
	JoinRulePublic = "public"
	JoinRuleInvite = "invite"
)

// AdminPowerLevel is the power level at or above which a user counts
// as a room administrator, and the level granted to promoted
// successors and unfreezing senders.
const AdminPowerLevel = 100

// MemberContent is the content of an m.room.member state event,
// reduced to the field the policy engine reads.
type MemberContent struct {
	Membership string `json:"membership"`
}

// JoinRulesContent is the content of an m.room.join_rules state event,
// reduced to the field the policy engine reads and writes.
type JoinRulesContent struct {
	JoinRule string `json:"join_rule"`
}

// FrozenContent is the content of an org.matrix.room.frozen state
// event as authored by the engine. Inbound frozen-marker events are
// validated field-by-field instead (the "frozen" value may be missing
// or non-boolean in a malformed candidate), so this type is only used
// for events Roomwarden itself sends.
type FrozenContent struct {
	Frozen bool `json:"frozen"`
}
