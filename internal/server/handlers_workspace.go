package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/copilot/internal/permission"
)

// InviteRequest is the request body for inviting a user to a workspace.
type InviteRequest struct {
	UserID string `json:"userId"`
	Level  string `json:"level"`
}

// InviteResponse is returned for a created invite.
type InviteResponse struct {
	InviteID string `json:"inviteId"`
}

// AcceptResponse names the member an accepted invite was for.
type AcceptResponse struct {
	UserID string `json:"userId"`
}

// WorkspaceList is returned by GET /api/workspaces.
type WorkspaceList struct {
	Workspaces []string `json:"workspaces"`
}

// createWorkspace handles POST /api/workspaces. The caller becomes owner.
func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	id := s.directory.CreateWorkspace(r.Context(), getUser(r.Context()))
	writeJSON(w, http.StatusOK, IDResponse{ID: id})
}

// listWorkspaces handles GET /api/workspaces.
func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	ids := s.directory.Workspaces(getUser(r.Context()))
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, WorkspaceList{Workspaces: ids})
}

// inviteMember handles POST /api/workspaces/{workspaceID}/invites.
func (s *Server) inviteMember(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "userId is required")
		return
	}
	level, err := permission.ParseLevel(req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	inviteID, err := s.directory.Invite(r.Context(), chi.URLParam(r, "workspaceID"), getUser(r.Context()), req.UserID, level)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{InviteID: inviteID})
}

// acceptInvite handles POST /api/workspaces/{workspaceID}/invites/{inviteID}/accept.
// The invite ID is the credential, as with an emailed invite link.
func (s *Server) acceptInvite(w http.ResponseWriter, r *http.Request) {
	userID, err := s.directory.AcceptInvite(r.Context(), chi.URLParam(r, "workspaceID"), chi.URLParam(r, "inviteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AcceptResponse{UserID: userID})
}
