package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opencode-ai/copilot/pkg/types"
)

// FileStore implements Store on the JSON key/value layout:
//
//	session/{id}.json
//	message/{sessionID}/{id}.json
//	message-index/{id}.json   (message ID -> session ID)
type FileStore struct {
	kv *KV
}

// NewFileStore creates a file store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{kv: NewKV(basePath)}
}

type messageIndex struct {
	SessionID string `json:"sessionId"`
}

// CreateSession implements Store.
func (f *FileStore) CreateSession(ctx context.Context, s *types.Session) error {
	return f.kv.Create(ctx, []string{"session", s.ID}, s)
}

// GetSession implements Store.
func (f *FileStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var s types.Session
	if err := f.kv.Get(ctx, []string{"session", id}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions implements Store.
func (f *FileStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*types.Session, error) {
	sessions := []*types.Session{}
	err := f.kv.Scan(ctx, []string{"session"}, func(key string, data json.RawMessage) error {
		var s types.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode session %s: %w", key, err)
		}
		if filter.Match(&s) {
			sessions = append(sessions, &s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

// AppendMessage implements Store. The index entry is written first so a
// duplicate ID is rejected before the message file is touched.
func (f *FileStore) AppendMessage(ctx context.Context, m *types.Message) error {
	if err := f.kv.Create(ctx, []string{"message-index", m.ID}, messageIndex{SessionID: m.SessionID}); err != nil {
		return err
	}
	if err := f.kv.Create(ctx, []string{"message", m.SessionID, m.ID}, m); err != nil {
		_ = f.kv.Delete(ctx, []string{"message-index", m.ID})
		return err
	}
	return nil
}

// GetMessage implements Store.
func (f *FileStore) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	var idx messageIndex
	if err := f.kv.Get(ctx, []string{"message-index", id}, &idx); err != nil {
		return nil, err
	}
	var m types.Message
	if err := f.kv.Get(ctx, []string{"message", idx.SessionID, id}, &m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("message %s indexed but missing: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

// ListMessages implements Store.
func (f *FileStore) ListMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	messages := []*types.Message{}
	err := f.kv.Scan(ctx, []string{"message", sessionID}, func(key string, data json.RawMessage) error {
		var m types.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode message %s: %w", key, err)
		}
		messages = append(messages, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMessages(messages)
	return messages, nil
}

// Close implements Store.
func (f *FileStore) Close() error { return nil }
