// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package warden

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roomwarden/roomwarden/lib/policydef"
	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/lib/schema"
	"github.com/roomwarden/roomwarden/messaging"
	"github.com/roomwarden/roomwarden/policy"
)

// Config configures a Warden.
type Config struct {
	// ServerName is the homeserver's server name. Determines which
	// event senders the engine treats as local. Required.
	ServerName ref.ServerName

	// Definition is the operator policy: unfreeze blacklist,
	// promotion switch, ignored rooms. Required (use an empty
	// Definition for defaults).
	Definition *policydef.Definition

	// Session authors compensating state events and audit events on
	// the homeserver. Required.
	Session messaging.Session

	// AuditRoom receives m.roomwarden.audit events for every denial
	// and every compensated allow. Zero disables Matrix-side
	// auditing.
	AuditRoom ref.RoomID

	// Journal records decisions on disk. Nil disables the journal.
	Journal *Journal

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Warden evaluates candidate events against room state and authors
// the compensating state changes the policy calls for. It serializes
// admission per room: the policy reads a state snapshot and then
// sends events derived from it, so two concurrent checks against the
// same room could act on stale snapshots.
type Warden struct {
	definition *policydef.Definition
	checker    *policy.Checker
	sender     *recordingSender
	session    messaging.Session
	auditRoom  ref.RoomID
	journal    *Journal
	logger     *slog.Logger

	mu    sync.Mutex
	rooms map[string]*sync.Mutex
}

// New creates a Warden from the given configuration.
func New(config Config) (*Warden, error) {
	if config.Definition == nil {
		return nil, fmt.Errorf("warden: Definition is required")
	}
	if config.Session == nil {
		return nil, fmt.Errorf("warden: Session is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("warden: Logger is required")
	}

	sender := &recordingSender{
		session: config.Session,
		emitted: make(map[string][]ref.EventType),
	}

	checker, err := policy.NewChecker(policy.CheckerConfig{
		ServerName:        config.ServerName,
		UnfreezeBlacklist: config.Definition.UnfreezeBlacklist,
		PromoteModerators: config.Definition.PromoteModerators,
		Sender:            sender,
		Logger:            config.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Warden{
		definition: config.Definition,
		checker:    checker,
		sender:     sender,
		session:    config.Session,
		auditRoom:  config.AuditRoom,
		journal:    config.Journal,
		logger:     config.Logger,
		rooms:      make(map[string]*sync.Mutex),
	}, nil
}

// Check evaluates one candidate event against the supplied room state
// snapshot. Checks for the same room are serialized; checks for
// different rooms run concurrently.
func (w *Warden) Check(ctx context.Context, event *policy.Event, state policy.StateMap) (policy.Decision, error) {
	if w.definition.IgnoresRoom(event.RoomID) {
		return policy.Decision{Allowed: true}, nil
	}

	lock := w.roomLock(event.RoomID)
	lock.Lock()
	defer lock.Unlock()

	decision, err := w.checker.CheckEventAllowed(ctx, event, state)
	emitted := w.sender.take(event.RoomID)
	if err != nil {
		return decision, err
	}

	w.record(ctx, event, decision, emitted)
	return decision, nil
}

// roomLock returns the admission mutex for roomID, creating it on
// first use. Locks are never released; the map grows with the number
// of distinct rooms the warden has seen.
func (w *Warden) roomLock(roomID ref.RoomID) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	lock, ok := w.rooms[roomID.String()]
	if !ok {
		lock = &sync.Mutex{}
		w.rooms[roomID.String()] = lock
	}
	return lock
}

// record logs, journals, and audits a decision. Plain allows (no
// denial, no compensating events) are the steady state and are not
// recorded.
func (w *Warden) record(ctx context.Context, event *policy.Event, decision policy.Decision, emitted []ref.EventType) {
	if decision.Allowed && len(emitted) == 0 {
		return
	}

	outcome := schema.AuditAllow
	reason := ""
	if !decision.Allowed {
		outcome = schema.AuditDeny
		reason = decision.Reason.String()
		w.logger.Info("event denied",
			"room_id", event.RoomID,
			"sender", event.Sender,
			"event_type", event.Type,
			"reason", reason)
	} else {
		w.logger.Info("event allowed with compensating state",
			"room_id", event.RoomID,
			"sender", event.Sender,
			"event_type", event.Type,
			"emitted", emitted)
	}

	if w.journal != nil {
		if err := w.journal.Append(Record{
			Decision:  string(outcome),
			RoomID:    event.RoomID.String(),
			Sender:    event.Sender.String(),
			EventType: event.Type.String(),
			Reason:    reason,
			Emitted:   eventTypeStrings(emitted),
		}); err != nil {
			w.logger.Error("journal append failed", "error", err)
		}
	}

	if !w.auditRoom.IsZero() {
		content := schema.AuditEventContent{
			Decision:  outcome,
			RoomID:    event.RoomID,
			Sender:    event.Sender,
			EventType: event.Type,
			Reason:    reason,
			Emitted:   emitted,
		}
		if _, err := w.session.SendEvent(ctx, w.auditRoom, schema.EventTypeAudit, content); err != nil {
			// Auditing is best-effort: a moderation-room outage must
			// not block admission.
			w.logger.Warn("audit event send failed",
				"audit_room", w.auditRoom, "error", err)
		}
	}
}

func eventTypeStrings(types []ref.EventType) []string {
	if len(types) == 0 {
		return nil
	}
	names := make([]string, len(types))
	for index, eventType := range types {
		names[index] = eventType.String()
	}
	return names
}

// recordingSender forwards state events to the homeserver session and
// records the emitted event types per room, so that Check can report
// which compensating events a decision produced. Per-room admission
// serialization guarantees at most one in-flight check per room.
type recordingSender struct {
	session messaging.Session

	mu      sync.Mutex
	emitted map[string][]ref.EventType
}

func (s *recordingSender) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	eventID, err := s.session.SendStateEvent(ctx, roomID, eventType, stateKey, content)
	if err != nil {
		return ref.EventID{}, err
	}

	s.mu.Lock()
	s.emitted[roomID.String()] = append(s.emitted[roomID.String()], eventType)
	s.mu.Unlock()
	return eventID, nil
}

// take returns and clears the event types emitted for roomID during
// the current check.
func (s *recordingSender) take(roomID ref.RoomID) []ref.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	emitted := s.emitted[roomID.String()]
	delete(s.emitted, roomID.String())
	return emitted
}
