package permission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/copilot/internal/event"
)

var (
	// ErrWorkspaceNotFound is returned for operations on an unknown workspace.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrInviteNotFound is returned when accepting an unknown or used invite.
	ErrInviteNotFound = errors.New("invite not found")
)

type invite struct {
	userID string
	level  Level
}

type workspace struct {
	members map[string]Level
	invites map[string]invite
}

// MemoryDirectory is an in-process Directory with an invite/accept flow.
type MemoryDirectory struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace
	bus        *event.Bus
}

// NewMemoryDirectory creates an empty directory. bus may be nil.
func NewMemoryDirectory(bus *event.Bus) *MemoryDirectory {
	return &MemoryDirectory{
		workspaces: make(map[string]*workspace),
		bus:        bus,
	}
}

// Seed loads workspaces from a workspaceID -> userID -> level-name table.
func (d *MemoryDirectory) Seed(table map[string]map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for wsID, members := range table {
		ws := d.workspaces[wsID]
		if ws == nil {
			ws = &workspace{members: make(map[string]Level), invites: make(map[string]invite)}
			d.workspaces[wsID] = ws
		}
		for userID, name := range members {
			level, err := ParseLevel(name)
			if err != nil {
				return fmt.Errorf("workspace %s, user %s: %w", wsID, userID, err)
			}
			ws.members[userID] = level
		}
	}
	return nil
}

// Workspace implements Directory.
func (d *MemoryDirectory) Workspace(ctx context.Context, workspaceID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.workspaces[workspaceID]
	return ok, nil
}

// Role implements Directory.
func (d *MemoryDirectory) Role(ctx context.Context, workspaceID, userID string) (Level, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ws, ok := d.workspaces[workspaceID]
	if !ok {
		return LevelNone, false, nil
	}
	level, ok := ws.members[userID]
	return level, ok, nil
}

// Workspaces lists the workspace IDs the user belongs to, sorted.
func (d *MemoryDirectory) Workspaces(userID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for id, ws := range d.workspaces {
		if _, ok := ws.members[userID]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CreateWorkspace creates a cloud workspace owned by ownerID.
func (d *MemoryDirectory) CreateWorkspace(ctx context.Context, ownerID string) string {
	id := uuid.NewString()

	d.mu.Lock()
	d.workspaces[id] = &workspace{
		members: map[string]Level{ownerID: LevelOwner},
		invites: make(map[string]invite),
	}
	d.mu.Unlock()

	d.publish(id, ownerID, LevelOwner, ownerID)
	return id
}

// Invite creates a pending invite. The inviter must be at least admin and
// cannot hand out a level above their own.
func (d *MemoryDirectory) Invite(ctx context.Context, workspaceID, inviterID, inviteeID string, level Level) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ws, ok := d.workspaces[workspaceID]
	if !ok {
		return "", ErrWorkspaceNotFound
	}
	inviterLevel := ws.members[inviterID]
	if !inviterLevel.Satisfies(LevelAdmin) || !inviterLevel.Satisfies(level) {
		return "", &DeniedError{UserID: inviterID, WorkspaceID: workspaceID, Required: LevelAdmin}
	}

	id := ulid.Make().String()
	ws.invites[id] = invite{userID: inviteeID, level: level}
	return id, nil
}

// AcceptInvite turns a pending invite into a membership. Invites are single use.
func (d *MemoryDirectory) AcceptInvite(ctx context.Context, workspaceID, inviteID string) (string, error) {
	d.mu.Lock()
	ws, ok := d.workspaces[workspaceID]
	if !ok {
		d.mu.Unlock()
		return "", ErrWorkspaceNotFound
	}
	inv, ok := ws.invites[inviteID]
	if !ok {
		d.mu.Unlock()
		return "", ErrInviteNotFound
	}
	delete(ws.invites, inviteID)
	if current := ws.members[inv.userID]; current < inv.level {
		ws.members[inv.userID] = inv.level
	}
	level := ws.members[inv.userID]
	d.mu.Unlock()

	d.publish(workspaceID, inv.userID, level, inv.userID)
	return inv.userID, nil
}

// Grant sets a member's level directly.
func (d *MemoryDirectory) Grant(ctx context.Context, workspaceID, userID string, level Level) error {
	d.mu.Lock()
	ws, ok := d.workspaces[workspaceID]
	if !ok {
		d.mu.Unlock()
		return ErrWorkspaceNotFound
	}
	ws.members[userID] = level
	d.mu.Unlock()

	d.publish(workspaceID, userID, level, "")
	return nil
}

// Revoke removes a member. Revoking a non-member is a no-op.
func (d *MemoryDirectory) Revoke(ctx context.Context, workspaceID, userID string) error {
	d.mu.Lock()
	ws, ok := d.workspaces[workspaceID]
	if !ok {
		d.mu.Unlock()
		return ErrWorkspaceNotFound
	}
	_, member := ws.members[userID]
	delete(ws.members, userID)
	d.mu.Unlock()

	if member {
		d.publish(workspaceID, userID, LevelNone, "")
	}
	return nil
}

func (d *MemoryDirectory) publish(workspaceID, userID string, level Level, actorID string) {
	if d.bus == nil {
		return
	}
	data := event.WorkspaceMemberUpdatedData{
		WorkspaceID: workspaceID,
		UserID:      userID,
		ActorID:     actorID,
	}
	if level != LevelNone {
		data.Level = level.String()
	}
	d.bus.Publish(event.Event{Type: event.WorkspaceMemberUpdated, Data: data})
}
