package authz

import (
	"sort"

	"github.com/yukikurage/workspace-api/internal/models"
)

// Actor is a snapshot of who is asking: their identity and every role they
// hold. It is built once per request so that evaluation never touches the
// store.
type Actor struct {
	UserID          uint64                 `json:"user_id"`
	IsPlatformAdmin bool                   `json:"is_platform_admin"`
	WorkspaceRoles  map[uint64]models.Role `json:"workspace_roles"`
	TeamRoles       map[uint64]models.Role `json:"team_roles"`
}

// WorkspaceRole returns the actor's role in a workspace.
func (a *Actor) WorkspaceRole(workspaceID uint64) (models.Role, bool) {
	if a == nil {
		return "", false
	}
	role, ok := a.WorkspaceRoles[workspaceID]
	return role, ok
}

// TeamRole returns the actor's role in a team.
func (a *Actor) TeamRole(teamID uint64) (models.Role, bool) {
	if a == nil {
		return "", false
	}
	role, ok := a.TeamRoles[teamID]
	return role, ok
}

// IsMember reports whether the actor belongs to the workspace at all.
func (a *Actor) IsMember(workspaceID uint64) bool {
	_, ok := a.WorkspaceRole(workspaceID)
	return ok
}

// Has reports whether the actor's role in the scope grants perm. Global
// scope (nil) is only granted to platform admins.
func (a *Actor) Has(workspaceID *uint64, perm Permission) bool {
	if a == nil {
		return false
	}
	if workspaceID == nil {
		return a.IsPlatformAdmin
	}
	role, ok := a.WorkspaceRoles[*workspaceID]
	return ok && RoleHas(role, perm)
}

// HasInTeam is Has for a team scope.
func (a *Actor) HasInTeam(teamID *uint64, perm Permission) bool {
	if teamID == nil {
		return false
	}
	role, ok := a.TeamRole(*teamID)
	return ok && RoleHas(role, perm)
}

// WorkspaceIDs lists the workspaces the actor belongs to in ascending order.
func (a *Actor) WorkspaceIDs() []uint64 {
	if a == nil {
		return nil
	}
	ids := make([]uint64, 0, len(a.WorkspaceRoles))
	for id := range a.WorkspaceRoles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
