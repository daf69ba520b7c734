package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/storage"
	"github.com/opencode-ai/copilot/pkg/types"
)

// Service manages sessions and their messages.
type Service struct {
	store   storage.Store
	prompts *prompt.Registry
	gateway *permission.Gateway
	bus     *event.Bus
	log     zerolog.Logger
}

// Options holds the collaborators of a Service. Bus may be nil.
type Options struct {
	Store   storage.Store
	Prompts *prompt.Registry
	Gateway *permission.Gateway
	Bus     *event.Bus
}

// NewService creates a new session service.
func NewService(opts Options) *Service {
	return &Service{
		store:   opts.Store,
		prompts: opts.Prompts,
		gateway: opts.Gateway,
		bus:     opts.Bus,
		log:     logging.Component("session"),
	}
}

// CreateSessionInput describes a new session.
type CreateSessionInput struct {
	UserID      string
	WorkspaceID string
	DocID       *string
	PromptName  string
}

// CreateSession checks the prompt and the caller's read access to the
// workspace, then persists a new session. Every call creates a distinct session.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*types.Session, error) {
	p, err := s.prompts.Get(in.PromptName)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.Require(ctx, in.UserID, in.WorkspaceID, permission.LevelRead); err != nil {
		return nil, err
	}

	session := &types.Session{
		ID:          generateID(),
		WorkspaceID: in.WorkspaceID,
		DocID:       in.DocID,
		OwnerID:     in.UserID,
		PromptName:  p.Name,
		Model:       p.Model,
		Time:        types.SessionTime{Created: time.Now().UnixMilli()},
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.log.Debug().Str("sessionID", session.ID).Str("workspaceID", session.WorkspaceID).Msg("session created")
	s.publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Info: session}})
	return session, nil
}

// GetSession retrieves a session by ID. It performs no access check.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
		}
		return nil, err
	}
	return session, nil
}

// Prompts returns the prompt registry sessions are created against.
func (s *Service) Prompts() *prompt.Registry {
	return s.prompts
}

func (s *Service) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// forbidden logs a refused request distinctly from a missing entity and
// returns the error.
func (s *Service) forbidden(err *ForbiddenError) error {
	logging.Refused(&s.log, logging.KindForbidden, err.UserID).
		Str("sessionID", err.SessionID).
		Str("messageID", err.MessageID).
		Msg(err.Reason)
	return err
}

// generateID creates a new ULID; IDs created by this process sort in creation order.
func generateID() string {
	return ulid.Make().String()
}
