package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/internal/storage"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodePromptNotFound   = "PROMPT_NOT_FOUND"
	ErrCodeProviderNotFound = "PROVIDER_NOT_FOUND"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeNotGenerating    = "NOT_GENERATING"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response with details.
func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, permission.ErrPermissionDenied):
		return http.StatusForbidden, ErrCodePermissionDenied
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, permission.ErrWorkspaceNotFound),
		errors.Is(err, permission.ErrInviteNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, prompt.ErrPromptNotFound):
		return http.StatusBadRequest, ErrCodePromptNotFound
	case errors.Is(err, session.ErrInvalidMessage):
		return http.StatusBadRequest, ErrCodeInvalidRequest
	case errors.Is(err, session.ErrNotGenerating):
		return http.StatusConflict, ErrCodeNotGenerating
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, session.ErrGenerationFailed):
		if errors.Is(err, provider.ErrProviderNotFound) {
			return http.StatusBadGateway, ErrCodeProviderNotFound
		}
		return http.StatusBadGateway, ErrCodeGenerationFailed
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// writeServiceError writes err with the status its kind maps to. Typed
// errors contribute their context as details.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	var details map[string]any
	var denied *permission.DeniedError
	var forbidden *session.ForbiddenError
	var failed *session.GenerationError
	switch {
	case errors.As(err, &denied):
		details = map[string]any{"workspaceId": denied.WorkspaceID, "required": denied.Required.String()}
	case errors.As(err, &forbidden):
		details = map[string]any{"sessionId": forbidden.SessionID, "reason": forbidden.Reason}
		if forbidden.MessageID != "" {
			details["messageId"] = forbidden.MessageID
		}
	case errors.As(err, &failed):
		details = map[string]any{"sessionId": failed.SessionID, "mode": string(failed.Mode)}
		if failed.ProviderID != "" {
			details["provider"] = failed.ProviderID
		}
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorWithDetails(w, status, code, message, details)
}
