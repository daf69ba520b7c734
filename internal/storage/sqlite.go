package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	doc_id       TEXT,
	owner_id     TEXT NOT NULL,
	prompt_name  TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_owner_workspace ON sessions (owner_id, workspace_id);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions (id),
	owner_id    TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	attachments TEXT NOT NULL DEFAULT 'null',
	params      TEXT NOT NULL DEFAULT 'null',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_session ON messages (session_id, id);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log := logging.Component("storage")
	log.Debug().Str("driver", DriverSQLite).Str("path", path).Msg("database opened")
	return &SQLiteStore{db: db}, nil
}

// CreateSession implements Store.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *types.Session) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING",
		sessionArgs(session)...)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return conflictIfUnchanged(res)
}

// GetSession implements Store.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions implements Store.
func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*types.Session, error) {
	query, args := sessionQuery(filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	sessions := []*types.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return sessions, nil
}

// AppendMessage implements Store.
func (s *SQLiteStore) AppendMessage(ctx context.Context, m *types.Message) error {
	args, err := messageArgs(m)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING",
		args...)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return conflictIfUnchanged(res)
}

// GetMessage implements Store.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListMessages implements Store.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	messages := []*types.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return messages, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func conflictIfUnchanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// sessionQuery builds the filtered session listing; placeholder renders the
// driver's n-th bind parameter.
func sessionQuery(filter SessionFilter, placeholder func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, column+" = "+placeholder(len(args)))
	}
	if filter.WorkspaceID != "" {
		add("workspace_id", filter.WorkspaceID)
	}
	if filter.OwnerID != "" {
		add("owner_id", filter.OwnerID)
	}
	if filter.DocID != nil {
		add("doc_id", *filter.DocID)
	}

	query := "SELECT " + sessionColumns + " FROM sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY created_at, id", args
}
