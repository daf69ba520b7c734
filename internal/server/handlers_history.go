package server

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/pkg/types"
)

// listHistories handles GET /api/copilot/histories.
func (s *Server) listHistories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := session.HistoryQuery{
		WorkspaceID:   query.Get("workspaceId"),
		SessionID:     query.Get("sessionId"),
		IncludePrompt: query.Get("withPrompt") == "true",
	}
	if q.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "workspaceId is required")
		return
	}
	if query.Has("docId") {
		docID := query.Get("docId")
		q.DocID = &docID
	}

	var err error
	if q.Skip, err = intParam(query.Get("skip")); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid skip")
		return
	}
	if q.Limit, err = intParam(query.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid limit")
		return
	}

	histories, err := s.sessions.ListHistories(r.Context(), getUser(r.Context()), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, histories)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

// listPrompts handles GET /api/copilot/prompts.
func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prompts.List())
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID    string       `json:"id"`
	Modes []types.Mode `json:"modes"`
}

// listProviders handles GET /api/copilot/providers.
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.providers.List()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		info := ProviderInfo{ID: p.ID(), Modes: []types.Mode{}}
		for _, mode := range []types.Mode{types.ModeText, types.ModeTextStream, types.ModeAttachment} {
			if p.Supports(mode) {
				info.Modes = append(info.Modes, mode)
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}
