package types

import "fmt"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ContentKind tags what a message carries.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentAttachment ContentKind = "attachment"
)

// Mode selects how a generation delivers its output.
type Mode string

const (
	ModeText       Mode = "text"
	ModeTextStream Mode = "text-stream"
	ModeAttachment Mode = "attachment"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeText, ModeTextStream, ModeAttachment:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q", s)
}

// Message is one turn of a session. Messages are append-only; once
// persisted they are never edited.
type Message struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	OwnerID     string            `json:"ownerId"` // denormalized from the session
	Role        Role              `json:"role"`
	Content     string            `json:"content"`
	Attachments []string          `json:"attachments,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Time        MessageTime       `json:"time"`
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created int64 `json:"created"`
}

// Kind reports whether the message is inline text or an attachment list.
func (m *Message) Kind() ContentKind {
	if len(m.Attachments) > 0 {
		return ContentAttachment
	}
	return ContentText
}
