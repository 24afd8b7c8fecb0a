package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/recurrence"
	"github.com/yukikurage/workspace-api/internal/services"
)

type RecurringHandler struct {
	recurringService *services.RecurringService
	eval             *authz.Evaluator
}

func NewRecurringHandler(recurringService *services.RecurringService, eval *authz.Evaluator) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
		eval:             eval,
	}
}

// CreateRecurring stores a schedule. The worker generates the tasks.
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID   *uint64              `json:"project_id"`
		AssigneeID  *uint64              `json:"assignee_id"`
		Title       string               `json:"title" binding:"required"`
		Description string               `json:"description"`
		Frequency   recurrence.Frequency `json:"frequency" binding:"required"`
		Interval    int                  `json:"interval"`
		DaysOfWeek  []int                `json:"days_of_week"`
		DayOfMonth  *int                 `json:"day_of_month"`
		StartDate   time.Time            `json:"start_date" binding:"required"`
		EndDate     *time.Time           `json:"end_date"`
	}
	if !bindJSON(c, &req) {
		return
	}

	rt, err := h.recurringService.CreateRecurring(c.Request.Context(), actor, services.CreateRecurringInput{
		WorkspaceID: workspaceID,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Frequency:   req.Frequency,
		Interval:    req.Interval,
		DaysOfWeek:  req.DaysOfWeek,
		DayOfMonth:  req.DayOfMonth,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToRecurringTaskDTO(rt, nil, presentContext(actor, h.eval)))
}

func (h *RecurringHandler) ListRecurring(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	items, err := h.recurringService.ListRecurring(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(items, func(r *models.RecurringTask) dto.RecurringTaskDTO {
		return dto.ToRecurringTaskDTO(r, nil, pc)
	}))
}

// SetActive pauses or resumes a schedule
func (h *RecurringHandler) SetActive(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "recurringId")
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	rt, err := h.recurringService.SetActive(c.Request.Context(), actor, id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRecurringTaskDTO(rt, nil, presentContext(actor, h.eval)))
}

func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "recurringId")
	if !ok {
		return
	}

	if err := h.recurringService.DeleteRecurring(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
