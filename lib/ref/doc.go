// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references
// for Matrix identifiers: user IDs, room IDs, event IDs, event types,
// and server names.
//
// All constructors validate their inputs and return errors for invalid
// identifiers. Once constructed, a ref is immutable — accessor methods
// return the validated string forms. Identifiers arriving from the
// wire (admission requests, homeserver responses, config files) are
// parsed into these types at the boundary; the policy core never
// handles raw identifier strings.
//
// JSON marshaling uses the canonical Matrix string form via
// encoding.TextMarshaler.
package ref
