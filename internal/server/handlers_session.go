package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/pkg/types"
)

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	WorkspaceID string  `json:"workspaceId"`
	DocID       *string `json:"docId,omitempty"`
	PromptName  string  `json:"promptName"`
}

// CreateMessageRequest is the request body for appending a user message.
type CreateMessageRequest struct {
	Content     string            `json:"content"`
	Attachments []string          `json:"attachments,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// IDResponse is returned by the create endpoints.
type IDResponse struct {
	ID string `json:"id"`
}

// createSession handles POST /api/copilot/sessions.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.WorkspaceID == "" || req.PromptName == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "workspaceId and promptName are required")
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), session.CreateSessionInput{
		UserID:      getUser(r.Context()),
		WorkspaceID: req.WorkspaceID,
		DocID:       req.DocID,
		PromptName:  req.PromptName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IDResponse{ID: sess.ID})
}

// createMessage handles POST /api/copilot/sessions/{sessionID}/messages.
func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	msg, err := s.sessions.AppendMessage(r.Context(), session.AppendInput{
		SessionID:   chi.URLParam(r, "sessionID"),
		UserID:      getUser(r.Context()),
		Role:        types.RoleUser,
		Content:     req.Content,
		Attachments: req.Attachments,
		Params:      req.Params,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IDResponse{ID: msg.ID})
}
