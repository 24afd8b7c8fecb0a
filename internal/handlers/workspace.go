package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// WorkspaceHandler serves workspaces, their members, teams and projects.
type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
	eval             *authz.Evaluator
}

func NewWorkspaceHandler(workspaceService *services.WorkspaceService, eval *authz.Evaluator) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		eval:             eval,
	}
}

// CreateWorkspace creates a new workspace owned by the current user
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ws, err := h.workspaceService.CreateWorkspace(c.Request.Context(), actor, req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// the actor snapshot predates the new membership
	owner := models.WorkspaceMember{WorkspaceID: ws.ID, UserID: actor.UserID, Role: models.RoleOwner, JoinedAt: ws.CreatedAt}
	c.JSON(http.StatusCreated, dto.ToWorkspaceDetailDTO(ws, []models.WorkspaceMember{owner}, models.RoleOwner))
}

// ListWorkspaces returns every workspace the current user belongs to
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	members, err := h.workspaceService.ListWorkspacesForUser(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapItems(members, dto.ToWorkspaceWithRoleDTO))
}

// GetWorkspace returns a workspace with its members
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	ws, members, err := h.workspaceService.GetWorkspaceWithMembers(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	role, _ := actor.WorkspaceRole(workspaceID)
	c.JSON(http.StatusOK, dto.ToWorkspaceDetailDTO(ws, members, role))
}

// UpdateWorkspace renames a workspace
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ws, err := h.workspaceService.UpdateWorkspaceName(c.Request.Context(), actor, workspaceID, req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(ws, nil, presentContext(actor, h.eval)))
}

// DeleteWorkspace deletes a workspace and everything in it
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(c.Request.Context(), actor, workspaceID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// JoinWorkspace adds the current user to the workspace owning the invite code
func (h *WorkspaceHandler) JoinWorkspace(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ws, err := h.workspaceService.JoinWorkspaceByInvite(c.Request.Context(), actor, req.InviteCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(ws, nil, presentContext(actor, h.eval)))
}

// RegenerateInviteCode replaces the workspace's invite code
func (h *WorkspaceHandler) RegenerateInviteCode(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	ws, err := h.workspaceService.RegenerateInviteCode(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite_code": ws.InviteCode})
}

// ChangeMemberRole updates a member's role
func (h *WorkspaceHandler) ChangeMemberRole(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.workspaceService.ChangeMemberRole(c.Request.Context(), actor, workspaceID, targetID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(member))
}

// RemoveMember removes a user from the workspace
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(c.Request.Context(), actor, workspaceID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *WorkspaceHandler) CreateTeam(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.workspaceService.CreateTeam(c.Request.Context(), actor, workspaceID, req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDTO(team, nil, presentContext(actor, h.eval)))
}

func (h *WorkspaceHandler) ListTeams(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	teams, err := h.workspaceService.ListTeams(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(teams, func(t *models.Team) dto.TeamDTO {
		return dto.ToTeamDTO(t, nil, pc)
	}))
}

// AddTeamMember adds a workspace member to a team
func (h *WorkspaceHandler) AddTeamMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "teamId")
	if !ok {
		return
	}

	var req struct {
		UserID uint64      `json:"user_id" binding:"required"`
		Role   models.Role `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	member, err := h.workspaceService.AddTeamMember(c.Request.Context(), actor, teamID, req.UserID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamMemberDTO(member))
}

func (h *WorkspaceHandler) RemoveTeamMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "teamId")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveTeamMember(c.Request.Context(), actor, teamID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *WorkspaceHandler) CreateProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		TeamID      *uint64 `json:"team_id"`
	}
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.workspaceService.CreateProject(c.Request.Context(), actor, services.CreateProjectInput{
		WorkspaceID: workspaceID,
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(project, nil, presentContext(actor, h.eval)))
}

func (h *WorkspaceHandler) ListProjects(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	projects, err := h.workspaceService.ListProjects(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(projects, func(p *models.Project) dto.ProjectDTO {
		return dto.ToProjectDTO(p, nil, pc)
	}))
}

// SetProjectStatus archives or reactivates a project
func (h *WorkspaceHandler) SetProjectStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "projectId")
	if !ok {
		return
	}

	var req struct {
		Status models.ProjectStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.workspaceService.SetProjectStatus(c.Request.Context(), actor, projectID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(project, nil, presentContext(actor, h.eval)))
}
