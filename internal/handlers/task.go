package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	eval        *authz.Evaluator
}

func NewTaskHandler(taskService *services.TaskService, eval *authz.Evaluator) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		eval:        eval,
	}
}

var taskLoaded = graph.NewLoaded("creator", "assignee")

// ListTasks returns the tasks the current user can read.
// Supports workspace_id, project_id, parent_id, root_only, assigned_to_me,
// created_by_me, due_today, status and sort=due_date.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{}
	if input.WorkspaceID, ok = queryID(c, "workspace_id"); !ok {
		return
	}
	if input.ProjectID, ok = queryID(c, "project_id"); !ok {
		return
	}
	if input.ParentID, ok = queryID(c, "parent_id"); !ok {
		return
	}
	input.RootOnly = queryBool(c, "root_only")
	input.AssignedToMe = queryBool(c, "assigned_to_me")
	input.CreatedByMe = queryBool(c, "created_by_me")
	input.DueToday = queryBool(c, "due_today")
	input.SortByDueDate = c.Query("sort") == "due_date"
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}

	params := pagination(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), actor, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total, time.Now()))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actor, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task, taskLoaded, presentContext(actor, h.eval)))
}

// CreateTask creates a new task in a workspace
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		WorkspaceID uint64            `json:"workspace_id" binding:"required"`
		ProjectID   *uint64           `json:"project_id"`
		ParentID    *uint64           `json:"parent_id"`
		AssigneeID  *uint64           `json:"assignee_id"`
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		DueDate     *time.Time        `json:"due_date"`
	}
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		WorkspaceID: req.WorkspaceID,
		ProjectID:   req.ProjectID,
		ParentID:    req.ParentID,
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(task, taskLoaded, presentContext(actor, h.eval)))
}

// UpdateTask applies a partial update. clear_due_date and clear_assignee
// unset the corresponding columns.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	var req struct {
		Title            *string            `json:"title"`
		Description      *string            `json:"description"`
		Status           *models.TaskStatus `json:"status"`
		DueDate          *time.Time         `json:"due_date"`
		ClearDueDate     bool               `json:"clear_due_date"`
		AssigneeID       *uint64            `json:"assignee_id"`
		ClearAssignee    bool               `json:"clear_assignee"`
		TimeSpentSeconds *int64             `json:"time_spent_seconds"`
	}
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, taskID, services.UpdateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           req.Status,
		DueDate:          req.DueDate,
		ClearDueDate:     req.ClearDueDate,
		AssigneeID:       req.AssigneeID,
		ClearAssignee:    req.ClearAssignee,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task, taskLoaded, presentContext(actor, h.eval)))
}

// MoveTask changes a task's parent. A null parent_id makes it a root task.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	var req struct {
		ParentID *uint64 `json:"parent_id"`
	}
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.MoveTask(c.Request.Context(), actor, taskID, req.ParentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task, taskLoaded, presentContext(actor, h.eval)))
}

func (h *TaskHandler) ToggleTaskStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTaskStatus(c.Request.Context(), actor, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task, taskLoaded, presentContext(actor, h.eval)))
}

// DeleteTask deletes a task and its subtasks
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, taskID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *TaskHandler) AddDependency(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	var req struct {
		DependsOnID uint64                `json:"depends_on_id" binding:"required"`
		Type        models.DependencyType `json:"type"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Type == "" {
		req.Type = models.DependencyBlocks
	}

	dep, err := h.taskService.AddDependency(c.Request.Context(), actor, taskID, req.DependsOnID, req.Type)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"task_id":       dep.TaskID,
		"depends_on_id": dep.DependsOnID,
		"type":          dep.Type,
		"created_at":    dep.CreatedAt,
	})
}

func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}
	dependsOnID, ok := paramID(c, "dependsOnId")
	if !ok {
		return
	}

	if err := h.taskService.RemoveDependency(c.Request.Context(), actor, taskID, dependsOnID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *TaskHandler) CreateTag(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
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

	tag, err := h.taskService.CreateTag(c.Request.Context(), actor, workspaceID, req.Name, req.Color)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTagDTO(tag))
}

func (h *TaskHandler) ListTags(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	tags, err := h.taskService.ListTags(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapItems(tags, dto.ToTagDTO))
}

func (h *TaskHandler) AddTag(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}
	tagID, ok := paramID(c, "tagId")
	if !ok {
		return
	}

	if err := h.taskService.AddTag(c.Request.Context(), actor, taskID, tagID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *TaskHandler) RemoveTag(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}
	tagID, ok := paramID(c, "tagId")
	if !ok {
		return
	}

	if err := h.taskService.RemoveTag(c.Request.Context(), actor, taskID, tagID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// GenerateTasks asks the AI for task suggestions. Nothing is stored; the
// client creates the tasks it keeps.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		Text        string `json:"text" binding:"required"`
		WorkspaceID uint64 `json:"workspace_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), actor, services.GenerateTasksInput{
		WorkspaceID: req.WorkspaceID,
		Text:        req.Text,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) SuggestSubtasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return
	}

	tasks, err := h.taskService.SuggestSubtasks(c.Request.Context(), actor, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// queryBool treats any value strconv accepts as true as set.
func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
