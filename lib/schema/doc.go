// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix event types and content structures
// that Roomwarden's policy engine operates on. Event type constants
// (EventType*) are Matrix event type strings; Go structs define the
// JSON content shapes.
//
// [PowerLevels] is a partial view of m.room.power_levels content: the
// users map and users_default are typed, and every other field is
// carried opaquely in Extra so that a read-modify-write cycle
// preserves fields the engine does not interpret (event type
// thresholds, notification levels, future spec additions).
//
// [AuditEventContent] is Roomwarden's own event type
// (m.roomwarden.audit), posted to a moderation room when the engine
// denies an event or authors a compensating state change.
//
// This package depends only on lib/ref.
package schema
