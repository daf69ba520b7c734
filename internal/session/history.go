package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/storage"
	"github.com/opencode-ai/copilot/pkg/types"
)

// historyLoaders bounds concurrent message loads per ListHistories call.
const historyLoaders = 8

// HistoryQuery scopes a history read.
type HistoryQuery struct {
	WorkspaceID string
	DocID       *string
	SessionID   string

	// Skip and Limit page over sessions; Limit <= 0 means no limit.
	Skip  int
	Limit int

	// IncludePrompt prepends each session's prompt turns, rendered without
	// variables, as system messages.
	IncludePrompt bool
}

// ListHistories returns the caller's own sessions in the workspace, oldest
// first, each with its sealed messages. Sessions of other users are never
// returned, whatever the caller's role.
func (s *Service) ListHistories(ctx context.Context, userID string, q HistoryQuery) ([]types.History, error) {
	if err := s.gateway.Require(ctx, userID, q.WorkspaceID, permission.LevelRead); err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, storage.SessionFilter{
		WorkspaceID: q.WorkspaceID,
		DocID:       q.DocID,
		OwnerID:     userID,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions = page(filterSession(sessions, q.SessionID), q.Skip, q.Limit)

	histories := make([]types.History, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyLoaders)
	for i, session := range sessions {
		g.Go(func() error {
			h, err := s.history(gctx, session, q.IncludePrompt)
			if err != nil {
				return err
			}
			histories[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return histories, nil
}

func (s *Service) history(ctx context.Context, session *types.Session, includePrompt bool) (types.History, error) {
	h := types.History{
		SessionID:   session.ID,
		WorkspaceID: session.WorkspaceID,
		DocID:       session.DocID,
		PromptName:  session.PromptName,
		CreatedAt:   session.Time.Created,
		Messages:    []types.Message{},
	}

	if includePrompt {
		turns, err := s.prompts.Resolve(ctx, session.PromptName, nil)
		if err != nil {
			s.log.Warn().Err(err).Str("sessionID", session.ID).Msg("prompt unavailable for history")
		}
		for _, turn := range turns {
			h.Messages = append(h.Messages, types.Message{
				SessionID: session.ID,
				OwnerID:   session.OwnerID,
				Role:      types.RoleSystem,
				Content:   turn.Content,
				Time:      types.MessageTime{Created: session.Time.Created},
			})
		}
	}

	messages, err := s.store.ListMessages(ctx, session.ID)
	if err != nil {
		return h, fmt.Errorf("load messages of %s: %w", session.ID, err)
	}
	for _, m := range messages {
		h.Messages = append(h.Messages, *m)
	}
	return h, nil
}

func filterSession(sessions []*types.Session, sessionID string) []*types.Session {
	if sessionID == "" {
		return sessions
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			return []*types.Session{s}
		}
	}
	return nil
}

func page(sessions []*types.Session, skip, limit int) []*types.Session {
	if skip > 0 {
		if skip >= len(sessions) {
			return nil
		}
		sessions = sessions[skip:]
	}
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	return sessions
}
