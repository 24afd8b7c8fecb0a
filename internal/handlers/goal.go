package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type GoalHandler struct {
	goalService *services.GoalService
	eval        *authz.Evaluator
}

func NewGoalHandler(goalService *services.GoalService, eval *authz.Evaluator) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
		eval:        eval,
	}
}

// CreateGoal creates a draft goal owned by the current user
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		TeamID      *uint64    `json:"team_id"`
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		TargetValue float64    `json:"target_value"`
		Unit        string     `json:"unit"`
		StartDate   *time.Time `json:"start_date"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), actor, services.CreateGoalInput{
		WorkspaceID: workspaceID,
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToGoalDTO(goal, nil, presentContext(actor, h.eval)))
}

// ListGoals lists goals, optionally filtered by ?status=
func (h *GoalHandler) ListGoals(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var status *models.GoalStatus
	if raw := c.Query("status"); raw != "" {
		s := models.GoalStatus(raw)
		status = &s
	}

	goals, err := h.goalService.ListGoals(c.Request.Context(), actor, workspaceID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	loaded := graph.NewLoaded("owner")
	c.JSON(http.StatusOK, mapItems(goals, func(g *models.Goal) dto.GoalDTO {
		return dto.ToGoalDTO(g, loaded, pc)
	}))
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	goalID, ok := paramID(c, "goalId")
	if !ok {
		return
	}

	var req struct {
		Title        *string            `json:"title"`
		Description  *string            `json:"description"`
		Status       *models.GoalStatus `json:"status"`
		TargetValue  *float64           `json:"target_value"`
		CurrentValue *float64           `json:"current_value"`
		Unit         *string            `json:"unit"`
		StartDate    *time.Time         `json:"start_date"`
		DueDate      *time.Time         `json:"due_date"`
	}
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), actor, goalID, services.UpdateGoalInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGoalDTO(goal, nil, presentContext(actor, h.eval)))
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	goalID, ok := paramID(c, "goalId")
	if !ok {
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), actor, goalID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
