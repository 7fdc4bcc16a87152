// Package api exposes the session lifecycle over HTTP: create, status,
// approve, regenerate, and the per-session websocket channel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/interpret"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/machine"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/notify"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// Server routes session lifecycle requests to the state machine and
// upgrades websocket connections onto the notification hub.
type Server struct {
	machine *machine.Machine
	hub     *notify.Hub
}

// NewServer creates the API server.
func NewServer(m *machine.Machine, hub *notify.Hub) *Server {
	return &Server{machine: m, hub: hub}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/sessions", s.handleCreate)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/sessions/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /v1/sessions/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /v1/sessions/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("GET /v1/sessions/{id}/ws", s.handleWS)
	return mux
}

// --- Request / response shapes ---

type createRequest struct {
	OwnerID            string `json:"owner_id"`
	Prompt             string `json:"prompt"`
	TargetDurationSecs int    `json:"target_duration_secs"`
}

type sessionDescriptor struct {
	SessionID string        `json:"session_id"`
	OwnerID   string        `json:"owner_id"`
	Stage     session.Stage `json:"stage"`
	CreatedAt string        `json:"created_at"`
}

type statusResponse struct {
	Stage     session.Stage `json:"stage"`
	HasOutput bool          `json:"has_output"`
}

type approveRequest struct {
	Stage           string `json:"stage"`
	Notes           string `json:"notes,omitempty"`
	SelectedIndices []int  `json:"selected_indices,omitempty"`
}

type approveResponse struct {
	NextStage session.Stage `json:"next_stage"`
}

type regenerateRequest struct {
	Stage        string                  `json:"stage"`
	Feedback     string                  `json:"feedback"`
	Modification *interpret.Modification `json:"modification,omitempty"`
}

type errorResponse struct {
	Code        string          `json:"code"`
	Message     string          `json:"message"`
	Recoverable bool            `json:"recoverable"`
	Status      *statusResponse `json:"status,omitempty"`
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !readJSON(w, r, &req) {
		return
	}

	sess, err := s.machine.Start(r.Context(), req.OwnerID, req.Prompt, req.TargetDurationSecs)
	if err != nil {
		s.writeError(w, r, "", err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionDescriptor{
		SessionID: sess.ID,
		OwnerID:   sess.OwnerID,
		Stage:     sess.CurrentStage,
		CreatedAt: sess.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.machine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.machine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, statusOf(sess))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req approveRequest
	if !readJSON(w, r, &req) {
		return
	}

	stage, err := session.ParseStage(req.Stage)
	if err != nil {
		s.writeError(w, r, id, err)
		return
	}

	next, err := s.machine.Approve(r.Context(), id, stage, req.SelectedIndices, req.Notes)
	if err != nil {
		s.writeError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, approveResponse{NextStage: next})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req regenerateRequest
	if !readJSON(w, r, &req) {
		return
	}

	stage, err := session.ParseStage(req.Stage)
	if err != nil {
		s.writeError(w, r, id, err)
		return
	}

	if err := s.machine.Regenerate(r.Context(), id, stage, req.Feedback, req.Modification); err != nil {
		s.writeError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.machine.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "", err)
		return
	}

	_ = s.hub.ServeWS(w, r, sess.ID, sess.CurrentStage, s.onFeedback)
}

// onFeedback routes feedback received on the websocket into the same
// regenerate path as the HTTP API.
func (s *Server) onFeedback(ctx context.Context, sessionID string, stage session.Stage, text string) error {
	return s.machine.Regenerate(ctx, sessionID, stage, text, nil)
}

// writeError maps a domain error onto HTTP. Protocol misuse (stage
// mismatch, missing output) resends the session's current status so an
// out-of-sync client can converge.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	code, recoverable := session.ErrorCode(err)
	resp := errorResponse{Code: code, Message: err.Error(), Recoverable: recoverable}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrStageMismatch), errors.Is(err, session.ErrNoOutput):
		status = http.StatusConflict
		if sessionID != "" {
			if sess, getErr := s.machine.Get(r.Context(), sessionID); getErr == nil {
				st := statusOf(sess)
				resp.Status = &st
			}
		}
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, session.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func statusOf(sess *session.Session) statusResponse {
	_, hasOutput := sess.Output(sess.CurrentStage)
	return statusResponse{Stage: sess.CurrentStage, HasOutput: hasOutput}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into v, answering 400 on malformed
// input. Returns false if decoding failed and a response was written.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:        "validation_error",
			Message:     "malformed JSON body: " + err.Error(),
			Recoverable: true,
		})
		return false
	}
	return true
}
