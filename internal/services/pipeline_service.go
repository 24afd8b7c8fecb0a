package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
)

var (
	ErrPipelineNotFound       = notFound("pipeline")
	ErrPipelineStatusNotFound = notFound("pipeline status")
	ErrInvalidPipelineName    = invalid("pipeline name cannot be empty")
	ErrStatusNotInPipeline    = invalid("status does not belong to the pipeline")
	ErrPipelineNeedsStatus    = invalid("a pipeline needs at least one status")
)

// PipelineService manages kanban pipelines and task placement on them.
type PipelineService struct {
	pipelines repository.Store[models.Pipeline]
	statuses  repository.Store[models.PipelineStatus]
	placement repository.Store[models.TaskPipeline]
	taskRepo  repository.TaskRepository
	activity  *ActivityService
	eval      *authz.Evaluator
}

func NewPipelineService(pipelines repository.Store[models.Pipeline], statuses repository.Store[models.PipelineStatus], placement repository.Store[models.TaskPipeline], taskRepo repository.TaskRepository, activity *ActivityService, eval *authz.Evaluator) *PipelineService {
	return &PipelineService{
		pipelines: pipelines,
		statuses:  statuses,
		placement: placement,
		taskRepo:  taskRepo,
		activity:  activity,
		eval:      eval,
	}
}

// CreatePipelineInput represents input for creating a pipeline
type CreatePipelineInput struct {
	WorkspaceID uint64
	ProjectID   *uint64
	Name        string
	IsDefault   bool
	// Statuses are column names in board order; the first is the default.
	Statuses []string
}

// CreatePipeline creates a pipeline with its columns
func (s *PipelineService) CreatePipeline(ctx context.Context, actor *authz.Actor, input CreatePipelineInput) (*models.Pipeline, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidPipelineName
	}
	var columns []string
	for _, c := range input.Statuses {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, ErrPipelineNeedsStatus
	}
	if err := authorizeCreate(s.eval, actor, models.KindPipeline, &input.WorkspaceID); err != nil {
		return nil, err
	}

	pipeline := &models.Pipeline{
		WorkspaceID: input.WorkspaceID,
		ProjectID:   input.ProjectID,
		Name:        name,
		IsDefault:   input.IsDefault,
	}
	if err := s.pipelines.Create(ctx, pipeline); err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	for i, c := range columns {
		status := models.PipelineStatus{
			PipelineID:  pipeline.ID,
			WorkspaceID: input.WorkspaceID,
			Name:        c,
			Position:    i,
			IsDefault:   i == 0,
		}
		if err := s.statuses.Create(ctx, &status); err != nil {
			return nil, fmt.Errorf("failed to create pipeline status: %w", err)
		}
		pipeline.Statuses = append(pipeline.Statuses, status)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: pipeline, Action: "created", New: pipeline})
	return pipeline, nil
}

// ListPipelines lists the pipelines of a workspace with their columns
func (s *PipelineService) ListPipelines(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Pipeline, error) {
	if !actor.Has(&workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	pipelines, _, err := s.pipelines.List(ctx, repository.Query{
		Where:   map[string]interface{}{"workspace_id": workspaceID},
		Order:   "id ASC",
		Preload: []string{"Statuses"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	return pipelines, nil
}

// AddStatus appends a column to a pipeline
func (s *PipelineService) AddStatus(ctx context.Context, actor *authz.Actor, pipelineID uint64, name, color string) (*models.PipelineStatus, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("status name cannot be empty")
	}
	pipeline, err := s.findPipeline(ctx, actor, pipelineID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	var positions []int
	if err := s.statuses.Pluck(ctx, "position", repository.Query{
		Where: map[string]interface{}{"pipeline_id": pipelineID},
	}, &positions); err != nil {
		return nil, fmt.Errorf("failed to read status positions: %w", err)
	}
	next := 0
	for _, p := range positions {
		if p >= next {
			next = p + 1
		}
	}

	status := &models.PipelineStatus{
		PipelineID:  pipeline.ID,
		WorkspaceID: pipeline.WorkspaceID,
		Name:        name,
		Color:       color,
		Position:    next,
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to create pipeline status: %w", err)
	}
	return status, nil
}

// DeletePipeline removes a pipeline, its columns and task placements. The
// default pipeline cannot be deleted.
func (s *PipelineService) DeletePipeline(ctx context.Context, actor *authz.Actor, pipelineID uint64) error {
	pipeline, err := s.findPipeline(ctx, actor, pipelineID, authz.ActionDelete)
	if err != nil {
		return err
	}

	where := map[string]interface{}{"pipeline_id": pipelineID}
	if _, err := s.placement.DeleteWhere(ctx, where); err != nil {
		return fmt.Errorf("failed to remove task placements: %w", err)
	}
	if _, err := s.statuses.DeleteWhere(ctx, where); err != nil {
		return fmt.Errorf("failed to remove pipeline statuses: %w", err)
	}
	if err := s.pipelines.Delete(ctx, pipeline); err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: pipeline, Action: "deleted", Old: pipeline})
	return nil
}

// DeleteStatus removes a column. Default columns and columns that still hold
// tasks cannot be removed.
func (s *PipelineService) DeleteStatus(ctx context.Context, actor *authz.Actor, statusID uint64) error {
	status, err := s.statuses.FindByID(ctx, statusID)
	if err != nil {
		return lookupErr(err, ErrPipelineStatusNotFound, "pipeline status")
	}
	if err := authorize(s.eval, actor, authz.ActionDelete, status, ErrPipelineStatusNotFound); err != nil {
		return err
	}

	_, used, err := s.placement.List(ctx, repository.Query{
		Where:    map[string]interface{}{"status_id": statusID},
		PageSize: 1,
		Page:     1,
	})
	if err != nil {
		return fmt.Errorf("failed to check status usage: %w", err)
	}
	if used > 0 {
		return conflict("status still has tasks")
	}

	if err := s.statuses.Delete(ctx, status); err != nil {
		return fmt.Errorf("failed to delete pipeline status: %w", err)
	}
	return nil
}

// PlaceTask puts a task in a pipeline column, or moves it there
func (s *PipelineService) PlaceTask(ctx context.Context, actor *authz.Actor, taskID, pipelineID, statusID uint64, order int) (*models.TaskPipeline, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, ErrTaskNotFound, "task")
	}
	if err := authorize(s.eval, actor, authz.ActionUpdate, task, ErrTaskNotFound); err != nil {
		return nil, err
	}

	pipeline, err := s.findPipeline(ctx, actor, pipelineID, authz.ActionView)
	if err != nil {
		return nil, err
	}
	if pipeline.WorkspaceID != task.WorkspaceID {
		return nil, ErrPipelineNotFound
	}

	status, err := s.statuses.FindByID(ctx, statusID)
	if err != nil {
		return nil, lookupErr(err, ErrStatusNotInPipeline, "pipeline status")
	}
	if status.PipelineID != pipelineID {
		return nil, ErrStatusNotInPipeline
	}

	placement := &models.TaskPipeline{
		TaskID:     taskID,
		PipelineID: pipelineID,
		StatusID:   statusID,
		Order:      order,
	}
	if err := s.taskRepo.PlaceInPipeline(ctx, placement); err != nil {
		return nil, fmt.Errorf("failed to place task: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: task, Action: "moved_on_board", New: placement})
	return placement, nil
}

func (s *PipelineService) findPipeline(ctx context.Context, actor *authz.Actor, pipelineID uint64, action authz.Action) (*models.Pipeline, error) {
	pipeline, err := s.pipelines.FindByID(ctx, pipelineID)
	if err != nil {
		return nil, lookupErr(err, ErrPipelineNotFound, "pipeline")
	}
	if err := authorize(s.eval, actor, action, pipeline, ErrPipelineNotFound); err != nil {
		return nil, err
	}
	return pipeline, nil
}
