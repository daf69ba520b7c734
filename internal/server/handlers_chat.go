package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/pkg/types"
)

// generateInput reads the chat parameters shared by the chat endpoints.
func generateInput(r *http.Request, mode types.Mode) (session.GenerateInput, error) {
	in := session.GenerateInput{
		SessionID:  chi.URLParam(r, "sessionID"),
		UserID:     getUser(r.Context()),
		MessageID:  r.URL.Query().Get("messageId"),
		ProviderID: r.URL.Query().Get("provider"),
		Mode:       mode,
	}
	if in.MessageID == "" {
		return in, fmt.Errorf("messageId is required")
	}
	return in, nil
}

// chatText handles GET /api/copilot/chat/{sessionID}.
func (s *Server) chatText(w http.ResponseWriter, r *http.Request) {
	in, err := generateInput(r, types.ModeText)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	res, err := s.processor.Generate(r.Context(), in)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.Text))
}

// chatStream handles GET /api/copilot/chat/{sessionID}/stream.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	s.chatEvents(w, r, types.ModeTextStream)
}

// chatImages handles GET /api/copilot/chat/{sessionID}/images.
func (s *Server) chatImages(w http.ResponseWriter, r *http.Request) {
	s.chatEvents(w, r, types.ModeAttachment)
}

// chatEvents runs a generation and relays its events as SSE frames keyed by
// the triggering message. Errors before the first frame are plain JSON
// errors; later ones arrive as an error event.
func (s *Server) chatEvents(w http.ResponseWriter, r *http.Request, mode types.Mode) {
	in, err := generateInput(r, mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	// cancelling ctx stops the generation and discards the partial message
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	res, err := s.processor.Generate(ctx, in)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeServiceError(w, err)
		return
	}

	sse, err := startSSE(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	for ev := range res.Events {
		var werr error
		switch e := ev.(type) {
		case session.ChunkEvent:
			werr = sse.writeEvent(sseEventMessage, in.MessageID, e.Text)
		case session.AttachmentEvent:
			for _, ref := range e.Attachments {
				if werr = sse.writeEvent(sseEventAttachment, in.MessageID, ref); werr != nil {
					break
				}
			}
		case session.ErrorEvent:
			_, code := classify(e.Err)
			s.log.Warn().Err(e.Err).Str("code", code).Str("sessionID", in.SessionID).Msg("stream failed")
			werr = sse.writeEvent(sseEventError, in.MessageID, e.Err.Error())
		case session.DoneEvent:
		}
		if werr != nil {
			// client went away; drain so the generation can finish discarding
			cancel()
			for range res.Events {
			}
			return
		}
	}
}

// abortChat handles POST /api/copilot/chat/{sessionID}/abort.
func (s *Server) abortChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := getUser(r.Context())

	sess, err := s.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sess.OwnerID != userID {
		writeServiceError(w, &session.ForbiddenError{UserID: userID, SessionID: sessionID, Reason: session.ReasonDifferentUser})
		return
	}

	if err := s.processor.Abort(sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w)
}
