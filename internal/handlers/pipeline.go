package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// PipelineHandler serves kanban pipelines, their statuses and task placement.
type PipelineHandler struct {
	pipelineService *services.PipelineService
}

func NewPipelineHandler(pipelineService *services.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipelineService: pipelineService}
}

var pipelineLoaded = graph.NewLoaded("statuses")

func (h *PipelineHandler) CreatePipeline(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID *uint64  `json:"project_id"`
		Name      string   `json:"name" binding:"required"`
		IsDefault bool     `json:"is_default"`
		Statuses  []string `json:"statuses"`
	}
	if !bindJSON(c, &req) {
		return
	}

	pipeline, err := h.pipelineService.CreatePipeline(c.Request.Context(), actor, services.CreatePipelineInput{
		WorkspaceID: workspaceID,
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		IsDefault:   req.IsDefault,
		Statuses:    req.Statuses,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPipelineDTO(pipeline, pipelineLoaded))
}

// ListPipelines returns the workspace's pipelines with their statuses
func (h *PipelineHandler) ListPipelines(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	pipelines, err := h.pipelineService.ListPipelines(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapItems(pipelines, func(p *models.Pipeline) dto.PipelineDTO {
		return dto.ToPipelineDTO(p, pipelineLoaded)
	}))
}

func (h *PipelineHandler) DeletePipeline(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pipelineID, ok := paramID(c, "pipelineId")
	if !ok {
		return
	}

	if err := h.pipelineService.DeletePipeline(c.Request.Context(), actor, pipelineID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// AddStatus appends a status column to a pipeline
func (h *PipelineHandler) AddStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pipelineID, ok := paramID(c, "pipelineId")
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if !bindJSON(c, &req) {
		return
	}

	status, err := h.pipelineService.AddStatus(c.Request.Context(), actor, pipelineID, req.Name, req.Color)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPipelineStatusDTO(status, nil))
}

func (h *PipelineHandler) DeleteStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	statusID, ok := paramID(c, "statusId")
	if !ok {
		return
	}

	if err := h.pipelineService.DeleteStatus(c.Request.Context(), actor, statusID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// PlaceTask puts a task on a pipeline in the given status column
func (h *PipelineHandler) PlaceTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pipelineID, ok := paramID(c, "pipelineId")
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	var req struct {
		StatusID uint64 `json:"status_id" binding:"required"`
		Order    int    `json:"order"`
	}
	if !bindJSON(c, &req) {
		return
	}

	placement, err := h.pipelineService.PlaceTask(c.Request.Context(), actor, taskID, pipelineID, req.StatusID, req.Order)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":     placement.TaskID,
		"pipeline_id": placement.PipelineID,
		"status_id":   placement.StatusID,
		"order":       placement.Order,
	})
}
