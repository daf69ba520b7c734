package event

import "github.com/opencode-ai/copilot/pkg/types"

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

func (d SessionCreatedData) Audience() []string { return []string{d.Info.OwnerID} }

// MessageCreatedData is the data for message.created events.
type MessageCreatedData struct {
	Info *types.Message `json:"info"`
}

func (d MessageCreatedData) Audience() []string { return []string{d.Info.OwnerID} }

// MessageSealedData is the data for message.sealed events, emitted when a
// generated assistant message is persisted.
type MessageSealedData struct {
	Info *types.Message `json:"info"`
	Mode types.Mode     `json:"mode"`
}

func (d MessageSealedData) Audience() []string { return []string{d.Info.OwnerID} }

// MessageDiscardedData is the data for message.discarded events.
type MessageDiscardedData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	OwnerID   string `json:"ownerID"`
}

func (d MessageDiscardedData) Audience() []string { return []string{d.OwnerID} }

// GenerationFailedData is the data for generation.failed events.
type GenerationFailedData struct {
	SessionID  string     `json:"sessionID"`
	MessageID  string     `json:"messageID"`
	OwnerID    string     `json:"ownerID"`
	ProviderID string     `json:"providerID,omitempty"`
	Mode       types.Mode `json:"mode"`
	Error      string     `json:"error"`
}

func (d GenerationFailedData) Audience() []string { return []string{d.OwnerID} }

// WorkspaceMemberUpdatedData is the data for workspace.member.updated events.
// An empty Level means the membership was revoked.
type WorkspaceMemberUpdatedData struct {
	WorkspaceID string `json:"workspaceID"`
	UserID      string `json:"userID"`
	Level       string `json:"level,omitempty"`
	ActorID     string `json:"actorID,omitempty"`
}

func (d WorkspaceMemberUpdatedData) Audience() []string {
	if d.ActorID != "" && d.ActorID != d.UserID {
		return []string{d.UserID, d.ActorID}
	}
	return []string{d.UserID}
}

// PromptsReloadedData is the data for prompts.reloaded events.
type PromptsReloadedData struct {
	Path  string   `json:"path"`
	Names []string `json:"names"`
}
