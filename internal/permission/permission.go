// Package permission decides whether a user may act on a workspace.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Level is a workspace permission level. Levels are totally ordered.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelAdmin
	LevelOwner
)

var levelNames = map[Level]string{
	LevelNone:  "none",
	LevelRead:  "read",
	LevelWrite: "write",
	LevelAdmin: "admin",
	LevelOwner: "owner",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Satisfies reports whether l grants at least the required level.
func (l Level) Satisfies(required Level) bool {
	return l >= required
}

// ParseLevel parses a level name such as "write". Unknown names return an error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	case "admin":
		return LevelAdmin, nil
	case "owner":
		return LevelOwner, nil
	}
	return LevelNone, fmt.Errorf("unknown permission level %q", s)
}

// Decision is the outcome of a permission check.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// ErrPermissionDenied is matched by every *DeniedError.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError is returned when a user lacks the required level on a workspace.
type DeniedError struct {
	UserID      string
	WorkspaceID string
	Required    Level
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: user %s lacks %s on workspace %s", e.UserID, e.Required, e.WorkspaceID)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// IsDenied checks if an error is a permission denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// Directory is the source of workspace membership.
type Directory interface {
	// Workspace reports whether the workspace is known to the directory.
	// Unknown workspaces are treated as local.
	Workspace(ctx context.Context, workspaceID string) (bool, error)
	// Role returns the user's level on a known workspace; ok is false when
	// the user is not a member.
	Role(ctx context.Context, workspaceID, userID string) (level Level, ok bool, err error)
}
