// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package warden hosts the admission policy engine as a service: it
// wires the policy checker to a Matrix session, serializes admission
// per room, and records decisions.
//
// [Warden.Check] is the single entry point: candidate event plus room
// state snapshot in, verdict out, with any compensating state events
// already sent through the session. Denials and compensated allows
// are logged, appended to the on-disk CBOR [Journal], and posted as
// m.roomwarden.audit events to the configured moderation room.
//
// [Handler] exposes Check over HTTP (POST /_roomwarden/v1/check) for
// the homeserver-side callout module, with optional HMAC-SHA256 body
// signatures.
package warden
