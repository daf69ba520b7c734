// Package permission decides whether a user may act on a workspace.
//
// # Levels
//
// Levels are totally ordered: read < write < admin < owner. A member holding a
// level satisfies every request for that level or below.
//
// # Gateway
//
// Gateway.Check returns Allow or Deny and never an error:
//
//   - A workspace unknown to the Directory is a local workspace and is always allowed.
//   - A known (cloud) workspace requires a membership at or above the requested level.
//   - A Directory failure is logged and denies.
//
// Gateway.Require wraps a denial as *DeniedError, which matches ErrPermissionDenied
// under errors.Is. Decisions are never cached; each call re-reads membership.
//
// # MemoryDirectory
//
// MemoryDirectory is the in-process Directory used by the development server and
// tests. It can be seeded from configuration and supports an invite/accept flow:
//
//	dir := permission.NewMemoryDirectory(bus)
//	ws := dir.CreateWorkspace(ctx, "alice")            // alice is owner
//	inv, _ := dir.Invite(ctx, ws, "alice", "bob", permission.LevelWrite)
//	dir.AcceptInvite(ctx, ws, inv)                      // bob is now a writer
//
// Membership changes publish workspace.member.updated events.
package permission
