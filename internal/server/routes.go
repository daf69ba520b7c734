package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/api/copilot", func(r chi.Router) {
			r.Get("/prompts", s.listPrompts)
			r.Get("/providers", s.listProviders)
			r.Get("/histories", s.listHistories)

			r.Post("/sessions", s.createSession)
			r.Post("/sessions/{sessionID}/messages", s.createMessage)

			r.Route("/chat/{sessionID}", func(r chi.Router) {
				r.Get("/", s.chatText)
				r.Get("/stream", s.chatStream)
				r.Get("/images", s.chatImages)
				r.Post("/abort", s.abortChat)
			})
		})

		// Development directory only; production membership lives elsewhere.
		if s.directory != nil {
			r.Route("/api/workspaces", func(r chi.Router) {
				r.Get("/", s.listWorkspaces)
				r.Post("/", s.createWorkspace)
				r.Post("/{workspaceID}/invites", s.inviteMember)
				r.Post("/{workspaceID}/invites/{inviteID}/accept", s.acceptInvite)
			})
		}

		// Event streaming (SSE)
		if s.bus != nil {
			r.Get("/event", s.events)
		}
	})
}
