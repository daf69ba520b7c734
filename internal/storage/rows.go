package storage

import (
	"encoding/json"
	"fmt"

	"github.com/opencode-ai/copilot/pkg/types"
)

// scanner is satisfied by *sql.Row, *sql.Rows and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const (
	sessionColumns = "id, workspace_id, doc_id, owner_id, prompt_name, model, created_at"
	messageColumns = "id, session_id, owner_id, role, content, attachments, params, created_at"
)

func scanSession(row scanner) (*types.Session, error) {
	var (
		s     types.Session
		docID *string
	)
	if err := row.Scan(&s.ID, &s.WorkspaceID, &docID, &s.OwnerID, &s.PromptName, &s.Model, &s.Time.Created); err != nil {
		return nil, err
	}
	s.DocID = docID
	return &s, nil
}

func scanMessage(row scanner) (*types.Message, error) {
	var (
		m           types.Message
		role        string
		attachments string
		params      string
	)
	if err := row.Scan(&m.ID, &m.SessionID, &m.OwnerID, &role, &m.Content, &attachments, &params, &m.Time.Created); err != nil {
		return nil, err
	}
	m.Role = types.Role(role)
	if err := decodeColumn(attachments, &m.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments of %s: %w", m.ID, err)
	}
	if err := decodeColumn(params, &m.Params); err != nil {
		return nil, fmt.Errorf("decode params of %s: %w", m.ID, err)
	}
	return &m, nil
}

// messageArgs returns the insert arguments in messageColumns order.
func messageArgs(m *types.Message) ([]any, error) {
	attachments, err := encodeColumn(m.Attachments)
	if err != nil {
		return nil, err
	}
	params, err := encodeColumn(m.Params)
	if err != nil {
		return nil, err
	}
	return []any{m.ID, m.SessionID, m.OwnerID, string(m.Role), m.Content, attachments, params, m.Time.Created}, nil
}

func sessionArgs(s *types.Session) []any {
	return []any{s.ID, s.WorkspaceID, s.DocID, s.OwnerID, s.PromptName, s.Model, s.Time.Created}
}

func encodeColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeColumn(data string, v any) error {
	if data == "" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
