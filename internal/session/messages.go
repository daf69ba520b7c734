package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/pkg/types"
)

// AppendInput describes a message to append.
type AppendInput struct {
	SessionID   string
	UserID      string
	Role        types.Role
	Content     string
	Attachments []string
	Params      map[string]string
}

// AppendMessage appends a message after the session's current last message.
// A user message may only be written by the session owner.
func (s *Service) AppendMessage(ctx context.Context, in AppendInput) (*types.Message, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, in.Role)
	}
	session, err := s.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if in.Role == types.RoleUser && in.UserID != session.OwnerID {
		return nil, s.forbidden(&ForbiddenError{
			UserID:    in.UserID,
			SessionID: session.ID,
			Reason:    ReasonDifferentUser,
		})
	}

	msg := &types.Message{
		ID:          generateID(),
		SessionID:   session.ID,
		OwnerID:     session.OwnerID,
		Role:        in.Role,
		Content:     in.Content,
		Attachments: append([]string(nil), in.Attachments...),
		Params:      copyParams(in.Params),
		Time:        types.MessageTime{Created: time.Now().UnixMilli()},
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	s.publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Info: msg}})
	return msg, nil
}

// Messages returns the sealed messages of a session in creation order.
func (s *Service) Messages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	return s.store.ListMessages(ctx, sessionID)
}

// PendingMessage is a message whose content is still arriving. Its ID, and so
// its position in the session, is fixed when it is opened. Nothing is stored
// until Seal.
type PendingMessage struct {
	svc  *Service
	mode types.Mode

	mu      sync.Mutex
	msg     types.Message
	content strings.Builder
	closed  bool
}

// OpenPending reserves a message in session for incremental writes.
func (s *Service) OpenPending(session *types.Session, role types.Role, mode types.Mode) *PendingMessage {
	return &PendingMessage{
		svc:  s,
		mode: mode,
		msg: types.Message{
			ID:        generateID(),
			SessionID: session.ID,
			OwnerID:   session.OwnerID,
			Role:      role,
			Time:      types.MessageTime{Created: time.Now().UnixMilli()},
		},
	}
}

// ID returns the reserved message ID.
func (p *PendingMessage) ID() string {
	return p.msg.ID
}

// Append adds a content chunk.
func (p *PendingMessage) Append(chunk string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPendingClosed
	}
	p.content.WriteString(chunk)
	return nil
}

// SetAttachments replaces the attachment references.
func (p *PendingMessage) SetAttachments(refs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPendingClosed
	}
	p.msg.Attachments = append([]string(nil), refs...)
	return nil
}

// Content returns the text accumulated so far.
func (p *PendingMessage) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content.String()
}

// Seal persists the message. A pending message can be sealed once; after a
// failed Seal it is closed and nothing was stored.
func (p *PendingMessage) Seal(ctx context.Context) (*types.Message, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPendingClosed
	}
	p.closed = true
	msg := p.msg
	msg.Content = p.content.String()
	p.mu.Unlock()

	if err := p.svc.store.AppendMessage(ctx, &msg); err != nil {
		return nil, fmt.Errorf("failed to seal message: %w", err)
	}
	p.svc.publish(event.Event{Type: event.MessageSealed, Data: event.MessageSealedData{Info: &msg, Mode: p.mode}})
	return &msg, nil
}

// Discard drops the message. It is a no-op once the message is closed.
func (p *PendingMessage) Discard() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.svc.publish(event.Event{Type: event.MessageDiscarded, Data: event.MessageDiscardedData{
		SessionID: p.msg.SessionID,
		MessageID: p.msg.ID,
		OwnerID:   p.msg.OwnerID,
	}})
}

func copyParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
