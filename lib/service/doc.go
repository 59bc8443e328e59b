// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides shared serving infrastructure for
// roomwarden binaries.
//
//   - HTTP server: TCP listener lifecycle with a ready channel,
//     OS-assigned port support, and graceful shutdown on context
//     cancellation. The caller provides the http.Handler.
//   - Request authentication: HMAC-SHA256 signature verification for
//     the admission endpoint (VerifyRequestHMAC).
//   - Readiness announcement: a timeline event posted to the
//     moderation room on startup (AnnounceReady).
//
// Binaries compose these utilities in their own main() function
// rather than subclassing a framework. The package provides building
// blocks, not a runtime.
package service
