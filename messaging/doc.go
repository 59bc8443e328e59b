// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for roomwarden's
// room state and event authoring needs.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client that handles login, returning authenticated [Session]
// values. Client holds the homeserver URL and HTTP transport, shared
// across all Sessions derived from it.
//
// [Session] wraps a Client with an access token for authenticated
// operations: reading room state (individual state events, full room
// state), authoring events (state events for compensations, timeline
// events for audit records), room membership (join, leave, joined room
// listing), and identity verification (WhoAmI).
//
// Sessions are lightweight (a pointer to the parent Client plus an
// access token in mmap-backed secret.Buffer memory). The access token
// is locked against swap and excluded from core dumps; callers must
// call Session.Close to release the protected memory.
//
// All API errors are returned as [*MatrixError] with the standard Matrix
// error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status code.
// [IsMatrixError] tests for a specific error code. Request URLs are built
// by string concatenation rather than url.URL to avoid double-encoding of
// path segments that contain URL-encoded characters.
package messaging
