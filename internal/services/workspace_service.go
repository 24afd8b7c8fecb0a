package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrWorkspaceNotFound          = notFound("workspace")
	ErrInvalidWorkspaceName       = invalid("workspace name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = notFound("invite code")
	ErrAlreadyWorkspaceMember     = conflict("user is already a member of this workspace")
	ErrCannotRemoveYourself       = invalid("cannot remove yourself from the workspace")
	ErrWorkspaceMemberNotFound    = notFound("workspace member")
	ErrInvalidRole                = invalid("unknown role")
	ErrOnlyOwnerGrantsOwner       = forbidden("only owners can grant or revoke the owner role")
	ErrLastOwner                  = invalid("a workspace must keep at least one owner")
	ErrTeamNotFound               = notFound("team")
	ErrInvalidTeamName            = invalid("team name cannot be empty")
	ErrAlreadyTeamMember          = conflict("user is already a member of this team")
	ErrTeamMemberNotFound         = notFound("team member")
	ErrProjectNotFound            = notFound("project")
	ErrInvalidProjectName         = invalid("project name cannot be empty")
)

// WorkspaceService provides business logic for workspaces, their members,
// teams and projects.
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	projects      repository.Store[models.Project]
	actors        *ActorService
	activity      *ActivityService
	eval          *authz.Evaluator
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, projects repository.Store[models.Project], actors *ActorService, activity *ActivityService, eval *authz.Evaluator) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		projects:      projects,
		actors:        actors,
		activity:      activity,
		eval:          eval,
	}
}

// CreateWorkspace creates a new workspace and makes the actor its owner.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, actor *authz.Actor, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidWorkspaceName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	ws := &models.Workspace{
		Name:       name,
		InviteCode: inviteCode,
		OwnerID:    actor.UserID,
	}
	owner := &models.WorkspaceMember{
		UserID:   actor.UserID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.workspaceRepo.Create(ctx, ws, owner); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	s.actors.Invalidate(ctx, actor.UserID)

	s.activity.Track(ctx, Change{Actor: actor, Entity: ws, Action: "created", New: ws})
	return ws, nil
}

// ListWorkspacesForUser returns the memberships of the actor with their workspaces.
func (s *WorkspaceService) ListWorkspacesForUser(ctx context.Context, actor *authz.Actor) ([]models.WorkspaceMember, error) {
	memberships, err := s.workspaceRepo.ListMembersByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return memberships, nil
}

// GetWorkspace returns a workspace the actor can see.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, actor *authz.Actor, workspaceID uint64) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, lookupErr(err, ErrWorkspaceNotFound, "workspace")
	}
	if err := authorize(s.eval, actor, authz.ActionView, ws, ErrWorkspaceNotFound); err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspaceWithMembers returns a workspace and all of its members.
func (s *WorkspaceService) GetWorkspaceWithMembers(ctx context.Context, actor *authz.Actor, workspaceID uint64) (*models.Workspace, []models.WorkspaceMember, error) {
	ws, err := s.GetWorkspace(ctx, actor, workspaceID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.workspaceRepo.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list workspace members: %w", err)
	}

	return ws, members, nil
}

// UpdateWorkspaceName renames a workspace.
func (s *WorkspaceService) UpdateWorkspaceName(ctx context.Context, actor *authz.Actor, workspaceID uint64, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidWorkspaceName
	}

	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, lookupErr(err, ErrWorkspaceNotFound, "workspace")
	}
	if err := authorize(s.eval, actor, authz.ActionUpdate, ws, ErrWorkspaceNotFound); err != nil {
		return nil, err
	}

	old := map[string]string{"name": ws.Name}
	ws.Name = name
	if err := s.workspaceRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: ws, Action: "updated", Old: old, New: map[string]string{"name": name}})
	return ws, nil
}

// DeleteWorkspace removes a workspace with everything in it.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, actor *authz.Actor, workspaceID uint64) error {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return lookupErr(err, ErrWorkspaceNotFound, "workspace")
	}
	if err := authorize(s.eval, actor, authz.ActionDelete, ws, ErrWorkspaceNotFound); err != nil {
		return err
	}

	members, err := s.workspaceRepo.ListMembers(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list workspace members: %w", err)
	}

	if err := s.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	ids := make([]uint64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	s.actors.Invalidate(ctx, ids...)
	s.activity.Track(ctx, Change{Actor: actor, Entity: ws, Action: "deleted", Old: ws})
	return nil
}

// JoinWorkspaceByInvite adds the actor to a workspace as a member.
func (s *WorkspaceService) JoinWorkspaceByInvite(ctx context.Context, actor *authz.Actor, inviteCode string) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByInviteCode(ctx, strings.TrimSpace(inviteCode))
	if err != nil {
		return nil, lookupErr(err, ErrInvalidInviteCode, "workspace by invite code")
	}

	if _, err := s.workspaceRepo.FindMember(ctx, ws.ID, actor.UserID); err == nil {
		return nil, ErrAlreadyWorkspaceMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      actor.UserID,
		Role:        models.RoleMember,
		JoinedAt:    time.Now(),
	}

	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyWorkspaceMember
		}
		return nil, fmt.Errorf("failed to add member to workspace: %w", err)
	}
	s.actors.Invalidate(ctx, actor.UserID)

	s.activity.Track(ctx, Change{Actor: actor, Entity: ws, Action: "member_joined", New: map[string]any{"user_id": actor.UserID, "role": member.Role}})
	return ws, nil
}

// RegenerateInviteCode generates a new invite code for the workspace.
func (s *WorkspaceService) RegenerateInviteCode(ctx context.Context, actor *authz.Actor, workspaceID uint64) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, lookupErr(err, ErrWorkspaceNotFound, "workspace")
	}
	if !actor.IsMember(workspaceID) {
		return nil, ErrWorkspaceNotFound
	}
	if !actor.Has(&workspaceID, authz.PermManageMembers) {
		return nil, forbidden("cannot manage invitations")
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	ws.InviteCode = code
	if err := s.workspaceRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return ws, nil
}

// ChangeMemberRole sets targetID's role. Only owners hand out or take away
// the owner role, and the last owner cannot step down.
func (s *WorkspaceService) ChangeMemberRole(ctx context.Context, actor *authz.Actor, workspaceID, targetID uint64, role models.Role) (*models.WorkspaceMember, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.requireMemberManager(actor, workspaceID); err != nil {
		return nil, err
	}

	member, err := s.workspaceRepo.FindMember(ctx, workspaceID, targetID)
	if err != nil {
		return nil, lookupErr(err, ErrWorkspaceMemberNotFound, "workspace member")
	}
	if member.Role == role {
		return member, nil
	}

	actorRole, _ := actor.WorkspaceRole(workspaceID)
	if (role == models.RoleOwner || member.Role == models.RoleOwner) && actorRole != models.RoleOwner {
		return nil, ErrOnlyOwnerGrantsOwner
	}
	if member.Role == models.RoleOwner {
		owners, err := s.workspaceRepo.CountByRole(ctx, workspaceID, models.RoleOwner)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	old := member.Role
	if err := s.workspaceRepo.UpdateMemberRole(ctx, workspaceID, targetID, role); err != nil {
		return nil, lookupErr(err, ErrWorkspaceMemberNotFound, "workspace member")
	}
	member.Role = role
	s.actors.Invalidate(ctx, targetID)

	s.activity.Track(ctx, Change{
		Actor:  actor,
		Entity: &models.Workspace{ID: workspaceID},
		Action: "member_role_changed",
		Old:    map[string]any{"user_id": targetID, "role": old},
		New:    map[string]any{"user_id": targetID, "role": role},
	})
	return member, nil
}

// RemoveMember removes a member from the workspace.
func (s *WorkspaceService) RemoveMember(ctx context.Context, actor *authz.Actor, workspaceID, targetID uint64) error {
	if targetID == actor.UserID {
		return ErrCannotRemoveYourself
	}
	if err := s.requireMemberManager(actor, workspaceID); err != nil {
		return err
	}

	member, err := s.workspaceRepo.FindMember(ctx, workspaceID, targetID)
	if err != nil {
		return lookupErr(err, ErrWorkspaceMemberNotFound, "workspace member")
	}
	if member.Role == models.RoleOwner {
		if role, _ := actor.WorkspaceRole(workspaceID); role != models.RoleOwner {
			return ErrOnlyOwnerGrantsOwner
		}
	}

	if err := s.workspaceRepo.RemoveMember(ctx, workspaceID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.actors.Invalidate(ctx, targetID)

	s.activity.Track(ctx, Change{Actor: actor, Entity: &models.Workspace{ID: workspaceID}, Action: "member_removed", Old: map[string]any{"user_id": targetID, "role": member.Role}})
	return nil
}

func (s *WorkspaceService) requireMemberManager(actor *authz.Actor, workspaceID uint64) error {
	if !actor.IsMember(workspaceID) {
		return ErrWorkspaceNotFound
	}
	if !actor.Has(&workspaceID, authz.PermManageMembers) {
		return forbidden("cannot manage members")
	}
	return nil
}

// CreateTeam creates a team; the actor becomes its first member as manager.
func (s *WorkspaceService) CreateTeam(ctx context.Context, actor *authz.Actor, workspaceID uint64, name, description string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTeamName
	}
	if err := authorizeCreate(s.eval, actor, models.KindTeam, &workspaceID); err != nil {
		return nil, err
	}

	team := &models.Team{WorkspaceID: workspaceID, Name: name, Description: description}
	lead := &models.TeamMember{UserID: actor.UserID, Role: models.RoleManager, JoinedAt: time.Now()}
	if err := s.workspaceRepo.CreateTeam(ctx, team, lead); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	team.Members = []models.TeamMember{*lead}
	s.actors.Invalidate(ctx, actor.UserID)

	s.activity.Track(ctx, Change{Actor: actor, Entity: team, Action: "created", New: team})
	return team, nil
}

// ListTeams lists the teams of a workspace.
func (s *WorkspaceService) ListTeams(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Team, error) {
	if !actor.IsMember(workspaceID) {
		return nil, ErrWorkspaceNotFound
	}
	teams, err := s.workspaceRepo.ListTeams(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// AddTeamMember adds a workspace member to a team.
func (s *WorkspaceService) AddTeamMember(ctx context.Context, actor *authz.Actor, teamID, userID uint64, role models.Role) (*models.TeamMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() || role == models.RoleOwner {
		return nil, ErrInvalidRole
	}

	team, err := s.findTeam(ctx, actor, teamID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.FindMember(ctx, team.WorkspaceID, userID); err != nil {
		return nil, lookupErr(err, ErrWorkspaceMemberNotFound, "workspace member")
	}

	member := &models.TeamMember{TeamID: teamID, UserID: userID, Role: role, JoinedAt: time.Now()}
	if err := s.workspaceRepo.AddTeamMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyTeamMember
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}
	s.actors.Invalidate(ctx, userID)

	return member, nil
}

// RemoveTeamMember removes someone from a team.
func (s *WorkspaceService) RemoveTeamMember(ctx context.Context, actor *authz.Actor, teamID, userID uint64) error {
	if _, err := s.findTeam(ctx, actor, teamID, authz.ActionUpdate); err != nil {
		return err
	}
	if err := s.workspaceRepo.RemoveTeamMember(ctx, teamID, userID); err != nil {
		return lookupErr(err, ErrTeamMemberNotFound, "team member")
	}
	s.actors.Invalidate(ctx, userID)
	return nil
}

func (s *WorkspaceService) findTeam(ctx context.Context, actor *authz.Actor, teamID uint64, action authz.Action) (*models.Team, error) {
	team, err := s.workspaceRepo.FindTeam(ctx, teamID)
	if err != nil {
		return nil, lookupErr(err, ErrTeamNotFound, "team")
	}
	if err := authorize(s.eval, actor, action, team, ErrTeamNotFound); err != nil {
		return nil, err
	}
	return team, nil
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	WorkspaceID uint64
	TeamID      *uint64
	Name        string
	Description string
}

// CreateProject creates a project owned by the actor.
func (s *WorkspaceService) CreateProject(ctx context.Context, actor *authz.Actor, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}
	if err := authorizeCreate(s.eval, actor, models.KindProject, &input.WorkspaceID); err != nil {
		return nil, err
	}
	if input.TeamID != nil {
		team, err := s.workspaceRepo.FindTeam(ctx, *input.TeamID)
		if err != nil {
			return nil, lookupErr(err, ErrTeamNotFound, "team")
		}
		if team.WorkspaceID != input.WorkspaceID {
			return nil, ErrTeamNotFound
		}
	}

	project := &models.Project{
		WorkspaceID: input.WorkspaceID,
		TeamID:      input.TeamID,
		OwnerID:     actor.UserID,
		Name:        name,
		Description: input.Description,
		Status:      models.ProjectStatusActive,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: project, Action: "created", New: project})
	return project, nil
}

// ListProjects lists the projects of a workspace, active ones first.
func (s *WorkspaceService) ListProjects(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Project, error) {
	if !actor.IsMember(workspaceID) {
		return nil, ErrWorkspaceNotFound
	}
	projects, _, err := s.projects.List(ctx, repository.Query{
		Where: map[string]interface{}{"workspace_id": workspaceID},
		Order: "status ASC, name ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// SetProjectStatus archives or reactivates a project.
func (s *WorkspaceService) SetProjectStatus(ctx context.Context, actor *authz.Actor, projectID uint64, status models.ProjectStatus) (*models.Project, error) {
	if status != models.ProjectStatusActive && status != models.ProjectStatusArchived {
		return nil, invalid("unknown project status")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr(err, ErrProjectNotFound, "project")
	}
	if err := authorize(s.eval, actor, authz.ActionUpdate, project, ErrProjectNotFound); err != nil {
		return nil, err
	}

	old := project.Status
	project.Status = status
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: project, Action: "status_changed", Old: map[string]any{"status": old}, New: map[string]any{"status": status}})
	return project, nil
}
