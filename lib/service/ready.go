// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/lib/schema"
	"github.com/roomwarden/roomwarden/messaging"
)

// ServiceReadyContent is the content of an m.roomwarden.service_ready
// timeline event, sent to the moderation room once the admission
// endpoint is bound and accepting requests. The body field is
// human-readable; the structured fields are for machine consumers.
type ServiceReadyContent struct {
	Body         string   `json:"body"`
	ServiceType  string   `json:"service_type"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// AnnounceReady sends an m.roomwarden.service_ready event to a room.
// The event is a timeline message (not a state event) so it cannot be
// overwritten by other senders — the homeserver-authenticated sender
// field identifies the source.
//
// Best-effort: logs a warning on failure but does not return an error.
// A failed ready announcement only degrades operator visibility; the
// admission endpoint is serving either way.
func AnnounceReady(ctx context.Context, session messaging.Session, roomID ref.RoomID, serviceType string, capabilities []string, logger *slog.Logger) {
	content := ServiceReadyContent{
		Body:         fmt.Sprintf("%s service ready", serviceType),
		ServiceType:  serviceType,
		Capabilities: capabilities,
	}
	if _, err := session.SendEvent(ctx, roomID, schema.EventTypeServiceReady, content); err != nil {
		logger.Warn("failed to announce service readiness",
			"room_id", roomID,
			"service_type", serviceType,
			"error", err,
		)
	}
}
