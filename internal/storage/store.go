// Package storage persists sessions and messages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/opencode-ai/copilot/pkg/types"
)

var (
	// ErrNotFound is returned when a session or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating a record whose ID already exists.
	ErrConflict = errors.New("already exists")
)

// Storage drivers accepted by Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SessionFilter selects sessions. Empty fields match everything; a nil DocID
// matches sessions with or without a document.
type SessionFilter struct {
	WorkspaceID string
	DocID       *string
	OwnerID     string
}

// Match reports whether s passes the filter.
func (f SessionFilter) Match(s *types.Session) bool {
	if f.WorkspaceID != "" && s.WorkspaceID != f.WorkspaceID {
		return false
	}
	if f.OwnerID != "" && s.OwnerID != f.OwnerID {
		return false
	}
	return s.InDoc(f.DocID)
}

// Store is the persistence contract for sessions and messages. Messages are
// append-only and listed in ID order, which is creation order.
type Store interface {
	CreateSession(ctx context.Context, s *types.Session) error
	GetSession(ctx context.Context, id string) (*types.Session, error)
	// ListSessions returns matching sessions ordered by creation time.
	ListSessions(ctx context.Context, filter SessionFilter) ([]*types.Session, error)

	// AppendMessage persists a message; an existing ID yields ErrConflict.
	AppendMessage(ctx context.Context, m *types.Message) error
	GetMessage(ctx context.Context, id string) (*types.Message, error)
	// ListMessages returns a session's messages in ID order.
	ListMessages(ctx context.Context, sessionID string) ([]*types.Message, error)

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the directory for the file driver or the database file for sqlite.
	Path string
	// URL is the Postgres connection string.
	URL string
}

// Open creates the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.Path), nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func sortSessions(sessions []*types.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Time.Created != sessions[j].Time.Created {
			return sessions[i].Time.Created < sessions[j].Time.Created
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func sortMessages(messages []*types.Message) {
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ID < messages[j].ID
	})
}
