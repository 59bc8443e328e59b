// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/lib/schema"
)

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the candidate event may enter the room.
	Allowed bool

	// Reason describes why the event was denied. Only meaningful when
	// Allowed is false.
	Reason DenyReason

	// Replacement, when non-nil, is the full dict form of the
	// candidate event. Its presence signals that room state changed
	// while the candidate was being processed, so the caller must
	// rebuild the event even though its own content is unmodified.
	Replacement map[string]any
}

// allow is the plain admit decision.
func allow() Decision {
	return Decision{Allowed: true}
}

// allowRebuilt admits the event but returns its dict form so the
// caller rebuilds it against the changed room state.
func allowRebuilt(event *Event) Decision {
	return Decision{Allowed: true, Replacement: event.Dict()}
}

// deny rejects the event.
func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// DenyReason describes why an admission check rejected the candidate.
type DenyReason int

const (
	// ReasonNone is the zero value, present on allowed decisions.
	ReasonNone DenyReason = iota

	// ReasonMalformedFrozen means the frozen-marker candidate had a
	// missing or non-boolean "frozen" value.
	ReasonMalformedFrozen

	// ReasonBlacklistedUnfreeze means the unfreeze came from a domain
	// on the unfreeze blacklist.
	ReasonBlacklistedUnfreeze

	// ReasonRoomFrozen means the room is frozen and the candidate is
	// not one of the narrow set of permitted events.
	ReasonRoomFrozen
)

// String returns a short human-readable reason, used in logs and
// audit events.
func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformedFrozen:
		return "malformed frozen value"
	case ReasonBlacklistedUnfreeze:
		return "unfreeze from blacklisted domain"
	case ReasonRoomFrozen:
		return "room is frozen"
	default:
		return "unknown"
	}
}

// EventSender authors a new state event into a room. Implemented by
// messaging sessions; the engine uses it fire-and-forget — the event
// ID is returned for logging but never consulted.
//
// Sending resolves into a state change visible in future snapshots,
// not the current one. A send failure is fatal for the admission
// attempt in progress and propagates uninterpreted.
type EventSender interface {
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
}

// CheckerConfig configures a Checker.
type CheckerConfig struct {
	// ServerName is the local homeserver's name. Senders whose user
	// ID qualifies against this server are local; compensating events
	// are only derived for local senders.
	ServerName ref.ServerName

	// UnfreezeBlacklist lists domains whose users may not unfreeze
	// rooms. Freezing is never blacklisted.
	UnfreezeBlacklist []string

	// PromoteModerators enables successor promotion: when the last
	// administrator leaves, the highest-powered remaining occupants
	// are promoted instead of freezing the room outright.
	PromoteModerators bool

	// Sender authors compensating state events. Required.
	Sender EventSender

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Checker is the admission engine. It is stateless across calls and
// safe for concurrent use on distinct rooms; the caller must serialize
// checks within a room.
type Checker struct {
	serverName        ref.ServerName
	unfreezeBlacklist map[string]bool
	promoteModerators bool
	sender            EventSender
	logger            *slog.Logger
}

// NewChecker creates an admission engine.
func NewChecker(config CheckerConfig) (*Checker, error) {
	if config.ServerName.IsZero() {
		return nil, fmt.Errorf("policy: ServerName is required")
	}
	if config.Sender == nil {
		return nil, fmt.Errorf("policy: Sender is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	blacklist := make(map[string]bool, len(config.UnfreezeBlacklist))
	for _, domain := range config.UnfreezeBlacklist {
		blacklist[domain] = true
	}

	return &Checker{
		serverName:        config.ServerName,
		unfreezeBlacklist: blacklist,
		promoteModerators: config.PromoteModerators,
		sender:            config.Sender,
		logger:            logger,
	}, nil
}

// CheckEventAllowed decides whether the candidate event may enter the
// room whose current state is given by state. Routing, in priority
// order: frozen-marker changes, events into an already-frozen room,
// membership leaves (which may trigger succession side effects), and
// everything else (allowed untouched).
//
// An error means the check could not complete — a compensating event
// failed to send, or a structurally required piece of room state was
// missing — and the admission attempt must fail upstream.
func (c *Checker) CheckEventAllowed(ctx context.Context, event *Event, state StateMap) (Decision, error) {
	if event.Type == schema.EventTypeFrozen && event.IsState() {
		return c.onFrozenStateChange(ctx, event, state)
	}

	// If the room is frozen, only a very small number of events go
	// through (unfreezing, leaving).
	if frozenState := state.Get(schema.EventTypeFrozen, ""); frozenState != nil {
		if frozen, ok := frozenState.Content["frozen"].(bool); ok && frozen {
			return c.onEventWhenFrozen(event, state), nil
		}
	}

	// A leave may be the last administrator abandoning the room.
	if event.Type == schema.EventTypeMember && event.IsState() && event.Membership() == schema.MembershipLeave {
		if err := c.freezeOrPromoteOnLastAdminLeave(ctx, event, state); err != nil {
			return Decision{}, err
		}
		return allow(), nil
	}

	return allow(), nil
}

// isLocalUser reports whether the user ID belongs to the local
// homeserver: qualifying its localpart against the local server name
// must reproduce the original ID.
func (c *Checker) isLocalUser(userID ref.UserID) bool {
	return ref.MatrixUserID(userID.Localpart(), c.serverName).String() == userID.String()
}
