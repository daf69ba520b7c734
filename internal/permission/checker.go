package permission

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/logging"
)

// Gateway answers permission checks against a Directory.
// It holds no state of its own; every check re-reads membership.
type Gateway struct {
	dir Directory
	log zerolog.Logger
}

// NewGateway creates a gateway backed by the given directory.
func NewGateway(dir Directory) *Gateway {
	return &Gateway{dir: dir, log: logging.Component("permission")}
}

// Check decides whether userID holds at least level on workspaceID.
// Workspaces unknown to the directory are local and always allowed.
// Directory failures are logged and deny.
func (g *Gateway) Check(ctx context.Context, userID, workspaceID string, level Level) Decision {
	known, err := g.dir.Workspace(ctx, workspaceID)
	if err != nil {
		g.log.Error().Err(err).Str("workspace", workspaceID).Msg("workspace lookup failed")
		return Deny
	}
	if !known {
		return Allow
	}

	role, ok, err := g.dir.Role(ctx, workspaceID, userID)
	if err != nil {
		g.log.Error().Err(err).Str("workspace", workspaceID).Str("user", userID).Msg("role lookup failed")
		return Deny
	}
	if !ok || !role.Satisfies(level) {
		return Deny
	}
	return Allow
}

// Require is Check expressed as an error: a denial returns *DeniedError.
func (g *Gateway) Require(ctx context.Context, userID, workspaceID string, level Level) error {
	if g.Check(ctx, userID, workspaceID, level) == Allow {
		return nil
	}
	logging.Refused(&g.log, logging.KindPermissionDenied, userID).
		Str("workspace", workspaceID).
		Stringer("required", level).
		Msg("access denied")
	return &DeniedError{UserID: userID, WorkspaceID: workspaceID, Required: level}
}
