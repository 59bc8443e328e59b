// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"fmt"

	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/lib/schema"
)

// Event is the engine's read-only view of a Matrix event: the candidate
// under evaluation, or a current state event from the room snapshot.
//
// Content is the decoded JSON content document. The engine never
// mutates it — derived content is always built from a copy.
type Event struct {
	Type     ref.EventType
	Sender   ref.UserID
	RoomID   ref.RoomID
	Content  map[string]any

	// StateKey is nil for timeline events. A non-nil state key (even
	// the empty string) marks this as a state event.
	StateKey *string

	// raw is the full wire form of the event, kept for Dict. May be
	// nil for events constructed in tests; Dict synthesizes a dict
	// from the typed fields in that case.
	raw map[string]any
}

// EventInput is the wire form of an event as it arrives in an
// admission request or a room state response.
type EventInput struct {
	Type     ref.EventType  `json:"type"`
	Sender   ref.UserID     `json:"sender"`
	RoomID   ref.RoomID     `json:"room_id"`
	StateKey *string        `json:"state_key,omitempty"`
	Content  map[string]any `json:"content"`

	// Extra captures event-level fields the engine does not interpret
	// (event_id, origin_server_ts, unsigned, ...) so that Dict
	// round-trips the complete event.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed event fields and retains the
// remainder for round-tripping.
func (input *EventInput) UnmarshalJSON(data []byte) error {
	type plain EventInput
	var typed plain
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	delete(fields, "sender")
	delete(fields, "room_id")
	delete(fields, "state_key")
	delete(fields, "content")

	*input = EventInput(typed)
	if len(fields) > 0 {
		input.Extra = fields
	}
	return nil
}

// Event validates the input and converts it to the engine's event
// representation.
func (input *EventInput) Event() (*Event, error) {
	if input.Type == "" {
		return nil, fmt.Errorf("policy: event has no type")
	}
	if input.Sender.IsZero() {
		return nil, fmt.Errorf("policy: event has no sender")
	}

	raw := map[string]any{
		"type":    input.Type.String(),
		"sender":  input.Sender.String(),
		"content": input.Content,
	}
	if !input.RoomID.IsZero() {
		raw["room_id"] = input.RoomID.String()
	}
	if input.StateKey != nil {
		raw["state_key"] = *input.StateKey
	}
	for field, rawValue := range input.Extra {
		var value any
		if err := json.Unmarshal(rawValue, &value); err != nil {
			return nil, fmt.Errorf("policy: event field %q: %w", field, err)
		}
		raw[field] = value
	}

	return &Event{
		Type:     input.Type,
		Sender:   input.Sender,
		RoomID:   input.RoomID,
		Content:  input.Content,
		StateKey: input.StateKey,
		raw:      raw,
	}, nil
}

// IsState reports whether the event is a state event (has a state key,
// possibly empty).
func (e *Event) IsState() bool {
	return e.StateKey != nil
}

// Membership returns the membership value from the event's content, or
// "" when absent or not a string.
func (e *Event) Membership() string {
	membership, _ := e.Content["membership"].(string)
	return membership
}

// Dict returns the full dict form of the event, suitable for returning
// as a replacement (which forces the caller to rebuild the event
// against the room's new state).
func (e *Event) Dict() map[string]any {
	if e.raw != nil {
		return e.raw
	}
	dict := map[string]any{
		"type":    e.Type.String(),
		"sender":  e.Sender.String(),
		"content": e.Content,
	}
	if !e.RoomID.IsZero() {
		dict["room_id"] = e.RoomID.String()
	}
	if e.StateKey != nil {
		dict["state_key"] = *e.StateKey
	}
	return dict
}

// StateTuple identifies one entry in a room state snapshot: the event
// type plus the scoping state key.
type StateTuple struct {
	Type     ref.EventType
	StateKey string
}

// StateMap is the room's authoritative state as of just before the
// candidate event: one current event per (type, state key) pair.
// Supplied fresh per admission check; the engine only reads it.
type StateMap map[StateTuple]*Event

// Get returns the current state event of the given type and state key,
// or nil when no such state exists yet.
func (s StateMap) Get(eventType ref.EventType, stateKey string) *Event {
	return s[StateTuple{Type: eventType, StateKey: stateKey}]
}

// powerLevels decodes the snapshot's current power levels content into
// its typed form. Returns nil when the room has no power levels event.
func (s StateMap) powerLevels() (*schema.PowerLevels, error) {
	current := s.Get(schema.EventTypePowerLevels, "")
	if current == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(current.Content)
	if err != nil {
		return nil, fmt.Errorf("policy: encoding power levels content: %w", err)
	}
	var powerLevels schema.PowerLevels
	if err := json.Unmarshal(encoded, &powerLevels); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return &powerLevels, nil
}

// BuildStateMap converts wire-form state events into a state snapshot.
// Every input must be a state event; duplicate (type, state key) pairs
// keep the last entry, matching homeserver state resolution output.
func BuildStateMap(inputs []EventInput) (StateMap, error) {
	state := make(StateMap, len(inputs))
	for index := range inputs {
		event, err := inputs[index].Event()
		if err != nil {
			return nil, fmt.Errorf("state event %d: %w", index, err)
		}
		if event.StateKey == nil {
			return nil, fmt.Errorf("policy: state event %d (%s) has no state key", index, event.Type)
		}
		state[StateTuple{Type: event.Type, StateKey: *event.StateKey}] = event
	}
	return state, nil
}
