// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type.
// Roomwarden references standard Matrix event types (m.room.*) plus
// the frozen-marker type (org.matrix.room.frozen). Constants live in
// lib/schema.
//
// EventType is a named string type, not a struct wrapper: event types
// are opaque identifiers that need no parsing or validation. The type
// exists purely for compile-time safety — preventing accidental use of
// a state key where an event type is expected (or vice versa).
type EventType string

// String returns the event type string (e.g., "m.room.power_levels").
func (t EventType) String() string { return string(t) }
