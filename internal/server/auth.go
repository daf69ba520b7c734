package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/opencode-ai/copilot/internal/logging"
)

// DefaultUserHeader carries the authenticated user ID when no other header is configured.
const DefaultUserHeader = "X-User-ID"

// ErrUnauthenticated is returned when a request carries no user identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator extracts the caller's user ID from a request. Identity is
// issued elsewhere; the server only reads it.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts a header set by an upstream gateway.
type HeaderAuthenticator struct {
	Header string
}

// Authenticate implements Authenticator.
func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := a.Header
	if header == "" {
		header = DefaultUserHeader
	}
	userID := strings.TrimSpace(r.Header.Get(header))
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

type contextKey string

const contextKeyUser contextKey = "user"

// requireUser rejects requests without an identity and stores the user ID
// in the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.Authenticate(r)
		if err != nil {
			logging.Refused(&s.log, logging.KindUnauthenticated, "").
				Str("path", r.URL.Path).
				Msg(err.Error())
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUser, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getUser returns the user ID stored by requireUser.
func getUser(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyUser).(string); ok {
		return id
	}
	return ""
}
