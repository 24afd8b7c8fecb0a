package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code,omitempty"`
	OwnerID    uint64    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`

	Owner    Optional[*UserDTO]     `json:"owner,omitzero"`
	Members  Optional[[]MemberDTO]  `json:"members,omitzero"`
	Teams    Optional[[]TeamDTO]    `json:"teams,omitzero"`
	Projects Optional[[]ProjectDTO] `json:"projects,omitzero"`
}

// WorkspaceWithRoleDTO represents a workspace with the user's role
type WorkspaceWithRoleDTO struct {
	WorkspaceDTO
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

// WorkspaceDetailDTO represents detailed workspace information
type WorkspaceDetailDTO struct {
	WorkspaceDTO
	Members  []MemberDTO `json:"members"`
	YourRole models.Role `json:"your_role"`
}

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	Workspace Optional[*WorkspaceDTO] `json:"workspace,omitzero"`
	Members   Optional[[]MemberDTO]   `json:"members,omitzero"`
	Projects  Optional[[]ProjectDTO]  `json:"projects,omitzero"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	WorkspaceID uint64               `json:"workspace_id"`
	TeamID      *uint64              `json:"team_id"`
	OwnerID     uint64               `json:"owner_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`

	Owner     Optional[*UserDTO]          `json:"owner,omitzero"`
	Team      Optional[*TeamDTO]          `json:"team,omitzero"`
	Workspace Optional[*WorkspaceDTO]     `json:"workspace,omitzero"`
	Tasks     Optional[[]TaskListItemDTO] `json:"tasks,omitzero"`
	Pipelines Optional[[]PipelineDTO]     `json:"pipelines,omitzero"`
}

// toWorkspaceDTO converts the scalar columns. The invite code is included
// only when asked for.
func toWorkspaceDTO(ws *models.Workspace, includeInviteCode bool) WorkspaceDTO {
	d := WorkspaceDTO{
		ID:        ws.ID,
		Name:      ws.Name,
		OwnerID:   ws.OwnerID,
		CreatedAt: ws.CreatedAt,
	}
	if includeInviteCode {
		d.InviteCode = ws.InviteCode
	}
	return d
}

func workspaceOrNil(ws *models.Workspace) *WorkspaceDTO {
	if ws == nil {
		return nil
	}
	d := toWorkspaceDTO(ws, false)
	return &d
}

// ToWorkspaceDTO converts a Workspace model. Members who may manage the
// membership see the invite code.
func ToWorkspaceDTO(ws *models.Workspace, loaded graph.Loaded, pc Context) WorkspaceDTO {
	d := toWorkspaceDTO(ws, pc.Actor.Has(ws.ScopeWorkspaceID(), authz.PermManageMembers))
	d.Owner = whenLoaded(loaded, "owner", func() *UserDTO { return userOrNil(ws.Owner) })
	d.Members = whenLoaded(loaded, "members", func() []MemberDTO {
		return mapSlice(ws.Members, ToMemberDTO)
	})
	d.Teams = whenLoaded(loaded, "teams", func() []TeamDTO {
		return mapSlice(ws.Teams, func(t *models.Team) TeamDTO { return ToTeamDTO(t, nil, pc) })
	})
	d.Projects = whenLoaded(loaded, "projects", func() []ProjectDTO {
		return mapSlice(ws.Projects, func(p *models.Project) ProjectDTO { return ToProjectDTO(p, nil, pc) })
	})
	return d
}

// ToWorkspaceWithRoleDTO converts a membership to the workspace it grants
func ToWorkspaceWithRoleDTO(member *models.WorkspaceMember) WorkspaceWithRoleDTO {
	d := WorkspaceWithRoleDTO{Role: member.Role, JoinedAt: member.JoinedAt}
	if member.Workspace != nil {
		d.WorkspaceDTO = toWorkspaceDTO(member.Workspace, false)
	} else {
		d.ID = member.WorkspaceID
	}
	return d
}

// ToWorkspaceDetailDTO converts a workspace with members to detailed DTO
func ToWorkspaceDetailDTO(ws *models.Workspace, members []models.WorkspaceMember, yourRole models.Role) WorkspaceDetailDTO {
	canInvite := authz.RoleHas(yourRole, authz.PermManageMembers)
	return WorkspaceDetailDTO{
		WorkspaceDTO: toWorkspaceDTO(ws, canInvite),
		Members:      mapSlice(members, ToMemberDTO),
		YourRole:     yourRole,
	}
}

func ToTeamDTO(team *models.Team, loaded graph.Loaded, pc Context) TeamDTO {
	return TeamDTO{
		ID:          team.ID,
		WorkspaceID: team.WorkspaceID,
		Name:        team.Name,
		Description: team.Description,
		CreatedAt:   team.CreatedAt,
		Workspace:   whenLoaded(loaded, "workspace", func() *WorkspaceDTO { return workspaceOrNil(team.Workspace) }),
		Members: whenLoaded(loaded, "members", func() []MemberDTO {
			return mapSlice(team.Members, ToTeamMemberDTO)
		}),
		Projects: whenLoaded(loaded, "projects", func() []ProjectDTO {
			return mapSlice(team.Projects, func(p *models.Project) ProjectDTO { return ToProjectDTO(p, nil, pc) })
		}),
	}
}

func ToProjectDTO(p *models.Project, loaded graph.Loaded, pc Context) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		TeamID:      p.TeamID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Owner:       whenLoaded(loaded, "owner", func() *UserDTO { return userOrNil(p.Owner) }),
		Team: whenLoaded(loaded, "team", func() *TeamDTO {
			if p.Team == nil {
				return nil
			}
			d := ToTeamDTO(p.Team, nil, pc)
			return &d
		}),
		Workspace: whenLoaded(loaded, "workspace", func() *WorkspaceDTO { return workspaceOrNil(p.Workspace) }),
		Tasks: whenLoaded(loaded, "tasks", func() []TaskListItemDTO {
			return mapSlice(p.Tasks, func(t *models.Task) TaskListItemDTO { return ToTaskListItemDTO(t, pc.now()) })
		}),
		Pipelines: whenLoaded(loaded, "pipelines", func() []PipelineDTO {
			// statuses are preloaded with the pipelines
			return mapSlice(p.Pipelines, func(pl *models.Pipeline) PipelineDTO {
				return ToPipelineDTO(pl, graph.NewLoaded("statuses"))
			})
		}),
	}
}
