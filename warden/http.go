// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package warden

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/roomwarden/roomwarden/lib/service"
	"github.com/roomwarden/roomwarden/policy"
)

// maxRequestSize bounds admission request bodies. Room state for
// large rooms dominates the payload; 32 MiB covers rooms with tens of
// thousands of members.
const maxRequestSize = 32 << 20

// SignatureHeader carries the hex HMAC-SHA256 of the request body,
// keyed with the shared admission secret.
const SignatureHeader = "X-Roomwarden-Signature"

// CheckRequest is the admission request payload: the candidate event
// and the room's current state.
type CheckRequest struct {
	Event       policy.EventInput   `json:"event"`
	StateEvents []policy.EventInput `json:"state_events"`
}

// CheckResponse is the admission verdict.
type CheckResponse struct {
	Allowed bool `json:"allowed"`

	// Replacement, when set, is the event dict the caller must
	// rebuild against the room's updated state before admitting.
	Replacement map[string]any `json:"replacement,omitempty"`

	// Reason explains a denial.
	Reason string `json:"reason,omitempty"`
}

// Handler serves the admission HTTP API:
//
//	POST /_roomwarden/v1/check   — evaluate a candidate event
//	GET  /_roomwarden/v1/healthz — liveness probe
//
// When a secret is configured, check requests must carry a valid
// HMAC-SHA256 body signature in the X-Roomwarden-Signature header.
type Handler struct {
	warden *Warden
	secret []byte
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates the admission API handler. A nil or empty secret
// disables signature verification.
func NewHandler(warden *Warden, secret []byte, logger *slog.Logger) *Handler {
	h := &Handler{
		warden: warden,
		secret: secret,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /_roomwarden/v1/check", h.handleCheck)
	h.mux.HandleFunc("GET /_roomwarden/v1/healthz", h.handleHealthz)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	if len(h.secret) > 0 {
		signature := r.Header.Get(SignatureHeader)
		if err := service.VerifyRequestHMAC(h.secret, body, signature); err != nil {
			h.logger.Warn("rejected unsigned admission request",
				"remote", r.RemoteAddr, "error", err)
			writeError(w, http.StatusForbidden, "invalid request signature")
			return
		}
	}

	var request CheckRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request: %v", err))
		return
	}

	event, err := request.Event.Event()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := policy.BuildStateMap(request.StateEvents)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.warden.Check(r.Context(), event, state)
	if err != nil {
		h.logger.Error("admission check failed",
			"room_id", event.RoomID, "event_type", event.Type, "error", err)
		writeError(w, http.StatusBadGateway, "admission check failed")
		return
	}

	response := CheckResponse{
		Allowed:     decision.Allowed,
		Replacement: decision.Replacement,
	}
	if !decision.Allowed {
		response.Reason = decision.Reason.String()
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
