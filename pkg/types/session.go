// Package types provides the core data types for the copilot engine.
package types

// Session is a single-owner conversation bound to a workspace, an optional
// document and the prompt that seeds every generation in it.
type Session struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspaceId"`
	DocID       *string     `json:"docId,omitempty"`
	OwnerID     string      `json:"ownerId"`
	PromptName  string      `json:"promptName"`
	Model       string      `json:"model,omitempty"`
	Time        SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
}

// InDoc reports whether the session is scoped to docID. A nil docID matches
// every session of the workspace.
func (s *Session) InDoc(docID *string) bool {
	if docID == nil {
		return true
	}
	return s.DocID != nil && *s.DocID == *docID
}

// History is a session together with its sealed messages in creation order.
type History struct {
	SessionID   string    `json:"sessionId"`
	WorkspaceID string    `json:"workspaceId"`
	DocID       *string   `json:"docId,omitempty"`
	PromptName  string    `json:"promptName"`
	CreatedAt   int64     `json:"createdAt"`
	Messages    []Message `json:"messages"`
}

// Turn is one role/content entry of a prompt template.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}
