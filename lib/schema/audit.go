// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/roomwarden/roomwarden/lib/ref"

// AuditDecision is the outcome recorded in an audit event.
type AuditDecision string

const (
	// AuditAllow records an allowed event that triggered compensating
	// state changes (plain allows are not audited — they are the
	// overwhelming steady state).
	AuditAllow AuditDecision = "allow"

	// AuditDeny records a rejected event.
	AuditDeny AuditDecision = "deny"
)

// AuditEventContent is the content of an m.roomwarden.audit timeline
// event. Posted to the configured moderation room so that operators
// have a durable record of every denial and every compensating event
// the engine authored, without trawling service logs.
type AuditEventContent struct {
	// Decision is allow or deny.
	Decision AuditDecision `json:"decision"`

	// RoomID is the room the candidate event targeted.
	RoomID ref.RoomID `json:"room_id"`

	// Sender is the candidate event's sender.
	Sender ref.UserID `json:"sender"`

	// EventType is the candidate event's type.
	EventType ref.EventType `json:"event_type"`

	// Reason is a short human-readable explanation. Only meaningful
	// for denials.
	Reason string `json:"reason,omitempty"`

	// Emitted lists the types of compensating state events the engine
	// authored while processing the candidate, in emission order.
	Emitted []ref.EventType `json:"emitted,omitempty"`
}
