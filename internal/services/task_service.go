package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

var (
	ErrTaskNotFound           = notFound("task")
	ErrParentTaskNotFound     = notFound("parent task")
	ErrTitleRequired          = invalid("title is required")
	ErrTitleEmpty             = invalid("title cannot be empty")
	ErrInvalidTaskStatus      = invalid("unknown task status")
	ErrInvalidTaskAssignee    = invalid("assignee is not a member of the workspace")
	ErrTaskCycle              = invalid("a task cannot be moved below itself or its subtasks")
	ErrTaskScopeMismatch      = invalid("related task belongs to another workspace")
	ErrSelfDependency         = invalid("a task cannot depend on itself")
	ErrDependencyCycle        = invalid("dependency would create a cycle")
	ErrInvalidDependencyType  = invalid("unknown dependency type")
	ErrDependencyExists       = conflict("dependency already exists")
	ErrDependencyNotFound     = notFound("dependency")
	ErrTagNotFound            = notFound("tag")
	ErrInvalidTagName         = invalid("tag name cannot be empty")
	ErrTagExists              = conflict("a tag with this name already exists")
	ErrTagAlreadyOnTask       = conflict("tag is already on this task")
	ErrAIServiceNotConfigured = fmt.Errorf("AI %w", ErrUnavailable)
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
	ErrAITextRequired         = invalid("text is required")
)

// TaskGenerator turns free text into task suggestions.
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	tags      repository.Store[models.Tag]
	resolver  *graph.Resolver
	activity  *ActivityService
	eval      *authz.Evaluator
	generator TaskGenerator
}

// NewTaskService creates a new TaskService. generator may be nil.
func NewTaskService(taskRepo repository.TaskRepository, tags repository.Store[models.Tag], resolver *graph.Resolver, activity *ActivityService, eval *authz.Evaluator, generator TaskGenerator) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		tags:      tags,
		resolver:  resolver,
		activity:  activity,
		eval:      eval,
		generator: generator,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	WorkspaceID   *uint64
	ProjectID     *uint64
	ParentID      *uint64
	RootOnly      bool
	AssignedToMe  bool
	CreatedByMe   bool
	DueToday      bool
	Status        *models.TaskStatus
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	WorkspaceID uint64
	ProjectID   *uint64
	ParentID    *uint64
	AssigneeID  *uint64
	Title       string
	Description string
	Status      models.TaskStatus
	DueDate     *time.Time
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	DueDate          *time.Time
	ClearDueDate     bool
	AssigneeID       *uint64
	ClearAssignee    bool
	TimeSpentSeconds *int64
}

var taskPreloads = []string{"Creator", "Assignee"}

// ListTasks returns tasks in the workspaces the actor can read
func (s *TaskService) ListTasks(ctx context.Context, actor *authz.Actor, input ListTasksInput) ([]models.Task, int64, error) {
	var workspaceIDs []uint64
	if input.WorkspaceID != nil {
		if !actor.Has(input.WorkspaceID, authz.PermViewContent) {
			return nil, 0, ErrWorkspaceNotFound
		}
		workspaceIDs = []uint64{*input.WorkspaceID}
	} else {
		for _, id := range actor.WorkspaceIDs() {
			if actor.Has(&id, authz.PermViewContent) {
				workspaceIDs = append(workspaceIDs, id)
			}
		}
	}

	if len(workspaceIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		WorkspaceIDs:  workspaceIDs,
		ProjectID:     input.ProjectID,
		ParentID:      input.ParentID,
		RootOnly:      input.RootOnly,
		Status:        input.Status,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssigneeID = &actor.UserID
	}
	if input.CreatedByMe {
		filter.CreatorID = &actor.UserID
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with its creator and assignee
func (s *TaskService) GetTask(ctx context.Context, actor *authz.Actor, taskID uint64) (*models.Task, error) {
	return s.findTask(ctx, actor, taskID, authz.ActionView, taskPreloads...)
}

// CreateTask validates and stores a new task
func (s *TaskService) CreateTask(ctx context.Context, actor *authz.Actor, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}

	if err := authorizeCreate(s.eval, actor, models.KindTask, &input.WorkspaceID); err != nil {
		return nil, err
	}

	task := &models.Task{
		WorkspaceID: input.WorkspaceID,
		ProjectID:   input.ProjectID,
		ParentID:    input.ParentID,
		CreatorID:   actor.UserID,
		AssigneeID:  input.AssigneeID,
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
	}
	if task.Status == models.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := s.ensureProject(ctx, input.WorkspaceID, input.ProjectID); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if err := s.ensureParent(ctx, task, *input.ParentID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureAssignee(ctx, input.WorkspaceID, input.AssigneeID); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created, err := s.taskRepo.FindByID(ctx, task.ID, taskPreloads...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  created,
		Action:  "created",
		New:     created,
		Event:   webhooks.EventTaskCreated,
		Payload: created,
	})
	return created, nil
}

// UpdateTask applies a partial update
func (s *TaskService) UpdateTask(ctx context.Context, actor *authz.Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := *task

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		setStatus(task, *input.Status)
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.ensureAssignee(ctx, task.WorkspaceID, input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.TimeSpentSeconds != nil {
		if *input.TimeSpentSeconds < 0 {
			return nil, invalid("time spent cannot be negative")
		}
		task.TimeSpentSeconds = *input.TimeSpentSeconds
	}

	return s.save(ctx, actor, task, &old, "updated")
}

// MoveTask re-parents a task. A nil parentID makes it a root task.
func (s *TaskService) MoveTask(ctx context.Context, actor *authz.Actor, taskID uint64, parentID *uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := *task

	if parentID != nil {
		if err := s.ensureParent(ctx, task, *parentID); err != nil {
			return nil, err
		}
	}
	task.ParentID = parentID

	return s.save(ctx, actor, task, &old, "moved")
}

// ToggleTaskStatus toggles a task between todo and done
func (s *TaskService) ToggleTaskStatus(ctx context.Context, actor *authz.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := *task

	if task.Status == models.TaskStatusDone {
		setStatus(task, models.TaskStatusTodo)
	} else {
		setStatus(task, models.TaskStatusDone)
	}

	return s.save(ctx, actor, task, &old, "status_changed")
}

// DeleteTask deletes a task together with all of its subtasks
func (s *TaskService) DeleteTask(ctx context.Context, actor *authz.Actor, taskID uint64) error {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionDelete)
	if err != nil {
		return err
	}

	descendants, err := s.resolver.Descendants(ctx, models.KindTask, taskID)
	if err != nil {
		return fmt.Errorf("failed to collect subtasks: %w", err)
	}
	ids := append([]uint64{taskID}, descendants...)

	if err := s.taskRepo.Delete(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  task,
		Action:  "deleted",
		Old:     task,
		Event:   webhooks.EventTaskDeleted,
		Payload: map[string]any{"id": task.ID, "workspace_id": task.WorkspaceID, "deleted_ids": ids},
	})
	return nil
}

// AddDependency records that taskID depends on dependsOnID. Blocking edges
// may not form a cycle.
func (s *TaskService) AddDependency(ctx context.Context, actor *authz.Actor, taskID, dependsOnID uint64, depType models.DependencyType) (*models.TaskDependency, error) {
	if depType == "" {
		depType = models.DependencyBlocks
	}
	if depType != models.DependencyBlocks && depType != models.DependencyRelatesTo {
		return nil, ErrInvalidDependencyType
	}
	if taskID == dependsOnID {
		return nil, ErrSelfDependency
	}

	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	other, err := s.findTask(ctx, actor, dependsOnID, authz.ActionView)
	if err != nil {
		return nil, err
	}
	if other.WorkspaceID != task.WorkspaceID {
		return nil, ErrTaskScopeMismatch
	}

	if depType == models.DependencyBlocks {
		edges, err := s.taskRepo.DependencyEdges(ctx, task.WorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load dependencies: %w", err)
		}
		if reaches(edges, dependsOnID, taskID) {
			return nil, ErrDependencyCycle
		}
	}

	dep := &models.TaskDependency{TaskID: taskID, DependsOnID: dependsOnID, Type: depType}
	if err := s.taskRepo.AddDependency(ctx, dep); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDependencyExists
		}
		return nil, fmt.Errorf("failed to add dependency: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: task, Action: "dependency_added", New: dep})
	return dep, nil
}

// RemoveDependency deletes the edge taskID -> dependsOnID
func (s *TaskService) RemoveDependency(ctx context.Context, actor *authz.Actor, taskID, dependsOnID uint64) error {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return err
	}
	if err := s.taskRepo.RemoveDependency(ctx, taskID, dependsOnID); err != nil {
		return lookupErr(err, ErrDependencyNotFound, "dependency")
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: task, Action: "dependency_removed", Old: map[string]uint64{"depends_on_id": dependsOnID}})
	return nil
}

// reaches reports whether to can be reached from from along the edges.
func reaches(edges []models.TaskDependency, from, to uint64) bool {
	adjacent := make(map[uint64][]uint64, len(edges))
	for _, e := range edges {
		adjacent[e.TaskID] = append(adjacent[e.TaskID], e.DependsOnID)
	}

	visited := map[uint64]bool{}
	stack := []uint64{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, adjacent[n]...)
	}
	return false
}

// CreateTag creates a workspace tag
func (s *TaskService) CreateTag(ctx context.Context, actor *authz.Actor, workspaceID uint64, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTagName
	}
	if err := authorizeCreate(s.eval, actor, models.KindTag, &workspaceID); err != nil {
		return nil, err
	}

	tag := &models.Tag{WorkspaceID: workspaceID, Name: name, Color: color}
	if err := s.tags.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// ListTags lists the tags of a workspace by name
func (s *TaskService) ListTags(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Tag, error) {
	if !actor.Has(&workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	tags, _, err := s.tags.List(ctx, repository.Query{
		Where: map[string]interface{}{"workspace_id": workspaceID},
		Order: "name ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// AddTag puts a tag of the same workspace on a task
func (s *TaskService) AddTag(ctx context.Context, actor *authz.Actor, taskID, tagID uint64) error {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return err
	}
	tag, err := s.tags.FindByID(ctx, tagID)
	if err != nil {
		return lookupErr(err, ErrTagNotFound, "tag")
	}
	if tag.WorkspaceID != task.WorkspaceID {
		return ErrTagNotFound
	}

	if err := s.taskRepo.AddTag(ctx, &models.TaskTag{TaskID: taskID, TagID: tagID}); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrTagAlreadyOnTask
		}
		return fmt.Errorf("failed to tag task: %w", err)
	}
	return nil
}

// RemoveTag takes a tag off a task
func (s *TaskService) RemoveTag(ctx context.Context, actor *authz.Actor, taskID, tagID uint64) error {
	if _, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate); err != nil {
		return err
	}
	if err := s.taskRepo.RemoveTag(ctx, taskID, tagID); err != nil {
		return lookupErr(err, ErrTagNotFound, "task tag")
	}
	return nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	WorkspaceID uint64
	Text        string
}

// GenerateTasks uses AI to suggest tasks from text. Nothing is stored.
func (s *TaskService) GenerateTasks(ctx context.Context, actor *authz.Actor, input GenerateTasksInput) ([]GeneratedTask, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrAITextRequired
	}
	if err := authorizeCreate(s.eval, actor, models.KindTask, &input.WorkspaceID); err != nil {
		return nil, err
	}
	return s.generate(ctx, input.Text)
}

// SuggestSubtasks asks the AI to break an existing task down.
func (s *TaskService) SuggestSubtasks(ctx context.Context, actor *authz.Actor, taskID uint64) ([]GeneratedTask, error) {
	task, err := s.findTask(ctx, actor, taskID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Break this task into concrete subtasks.\nTitle: %s\nDescription: %s", task.Title, task.Description)
	if task.DueDate != nil {
		text += "\nThe parent task is due " + task.DueDate.Format(time.RFC3339) + "; subtasks must be due before it."
	}
	return s.generate(ctx, text)
}

func (s *TaskService) generate(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.generator.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) findTask(ctx context.Context, actor *authz.Actor, taskID uint64, action authz.Action, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		return nil, lookupErr(err, ErrTaskNotFound, "task")
	}
	if err := authorize(s.eval, actor, action, task, ErrTaskNotFound); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) save(ctx context.Context, actor *authz.Actor, task, old *models.Task, action string) (*models.Task, error) {
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	updated, err := s.taskRepo.FindByID(ctx, task.ID, taskPreloads...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  updated,
		Action:  action,
		Old:     old,
		New:     updated,
		Event:   webhooks.EventTaskUpdated,
		Payload: updated,
	})
	return updated, nil
}

func (s *TaskService) ensureParent(ctx context.Context, task *models.Task, parentID uint64) error {
	err := s.resolver.EnsureParent(ctx, task, parentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, graph.ErrNotFound):
		return ErrParentTaskNotFound
	case errors.Is(err, graph.ErrScopeMismatch):
		return ErrTaskScopeMismatch
	case errors.Is(err, graph.ErrCycle):
		return ErrTaskCycle
	}
	return fmt.Errorf("failed to verify parent task: %w", err)
}

func (s *TaskService) ensureProject(ctx context.Context, workspaceID uint64, projectID *uint64) error {
	if projectID == nil {
		return nil
	}
	project, err := s.resolver.ResolveRef(ctx, models.Ref{Kind: models.KindProject, ID: *projectID})
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}
	if ws := project.ScopeWorkspaceID(); ws == nil || *ws != workspaceID {
		return ErrProjectNotFound
	}
	return nil
}

func (s *TaskService) ensureAssignee(ctx context.Context, workspaceID uint64, assigneeID *uint64) error {
	if assigneeID == nil {
		return nil
	}
	count, err := s.taskRepo.CountMembersByIDs(ctx, []uint64{*assigneeID}, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	if count != 1 {
		return ErrInvalidTaskAssignee
	}
	return nil
}

// setStatus keeps CompletedAt in step with the status.
func setStatus(task *models.Task, status models.TaskStatus) {
	if status == models.TaskStatusDone && task.Status != models.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	} else if status != models.TaskStatusDone {
		task.CompletedAt = nil
	}
	task.Status = status
}
