package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/recurrence"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/webhooks"
	"gorm.io/datatypes"
)

var (
	ErrRecurringNotFound = notFound("recurring task")
	ErrRecurringEndDate  = invalid("end date must not be before start date")
)

// RunResult summarizes one pass over due recurring tasks.
type RunResult struct {
	Generated   int
	Deactivated int
	Failed      int
}

type RecurringService struct {
	repo     repository.RecurringRepository
	taskRepo repository.TaskRepository
	activity *ActivityService
	eval     *authz.Evaluator
}

func NewRecurringService(repo repository.RecurringRepository, taskRepo repository.TaskRepository, activity *ActivityService, eval *authz.Evaluator) *RecurringService {
	return &RecurringService{repo: repo, taskRepo: taskRepo, activity: activity, eval: eval}
}

type CreateRecurringInput struct {
	WorkspaceID uint64
	ProjectID   *uint64
	AssigneeID  *uint64
	Title       string
	Description string
	Frequency   recurrence.Frequency
	Interval    int
	DaysOfWeek  []int
	DayOfMonth  *int
	StartDate   time.Time
	EndDate     *time.Time
}

// CreateRecurring stores a schedule. The first task comes due on StartDate.
func (s *RecurringService) CreateRecurring(ctx context.Context, actor *authz.Actor, input CreateRecurringInput) (*models.RecurringTask, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Interval == 0 {
		input.Interval = 1
	}
	if input.StartDate.IsZero() {
		input.StartDate = time.Now()
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, ErrRecurringEndDate
	}

	rt := &models.RecurringTask{
		WorkspaceID: input.WorkspaceID,
		ProjectID:   input.ProjectID,
		CreatorID:   actor.UserID,
		AssigneeID:  input.AssigneeID,
		Title:       title,
		Description: input.Description,
		Frequency:   input.Frequency,
		Interval:    input.Interval,
		DaysOfWeek:  datatypes.JSONSlice[int](input.DaysOfWeek),
		DayOfMonth:  input.DayOfMonth,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		NextDueDate: input.StartDate,
		IsActive:    true,
	}
	if err := rt.Rule().Validate(); err != nil {
		return nil, invalid(err.Error())
	}
	if err := authorizeCreate(s.eval, actor, models.KindRecurringTask, &input.WorkspaceID); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		count, err := s.taskRepo.CountMembersByIDs(ctx, []uint64{*input.AssigneeID}, input.WorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify assignee: %w", err)
		}
		if count != 1 {
			return nil, ErrInvalidTaskAssignee
		}
	}

	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to create recurring task: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: rt, Action: "created", New: rt})
	return rt, nil
}

// ListRecurring lists the schedules of a workspace by next due date
func (s *RecurringService) ListRecurring(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.RecurringTask, error) {
	if !actor.Has(&workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	rules, _, err := s.repo.List(ctx, repository.Query{
		Where: map[string]interface{}{"workspace_id": workspaceID},
		Order: "next_due_date ASC, id ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring tasks: %w", err)
	}
	return rules, nil
}

// SetActive pauses or resumes a schedule
func (s *RecurringService) SetActive(ctx context.Context, actor *authz.Actor, id uint64, active bool) (*models.RecurringTask, error) {
	rt, err := s.find(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	rt.IsActive = active
	if err := s.repo.Update(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to update recurring task: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: rt, Action: "updated", New: map[string]bool{"is_active": active}})
	return rt, nil
}

// DeleteRecurring deletes a schedule; tasks it already generated stay
func (s *RecurringService) DeleteRecurring(ctx context.Context, actor *authz.Actor, id uint64) error {
	rt, err := s.find(ctx, actor, id, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rt); err != nil {
		return fmt.Errorf("failed to delete recurring task: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: rt, Action: "deleted", Old: rt})
	return nil
}

// RunDue generates one task for every schedule that is due at now and
// advances it. Schedules past their end date are deactivated instead. A
// failing schedule is logged and skipped so the others still run.
func (s *RecurringService) RunDue(ctx context.Context, now time.Time, limit int) (RunResult, error) {
	var res RunResult

	due, err := s.repo.Due(ctx, now, limit)
	if err != nil {
		return res, fmt.Errorf("failed to load due recurring tasks: %w", err)
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rt := &due[i]

		if !rt.IsDue(now) {
			rt.IsActive = false
			if err := s.repo.Update(ctx, rt); err != nil {
				return res, fmt.Errorf("failed to deactivate recurring task %d: %w", rt.ID, err)
			}
			res.Deactivated++
			continue
		}

		task, err := s.generate(ctx, rt, now)
		if err != nil {
			res.Failed++
			log.Error().Err(err).Uint64("recurring_task_id", rt.ID).Msg("failed to generate recurring task")
			continue
		}
		res.Generated++
		if !rt.IsActive {
			res.Deactivated++
		}

		s.activity.Track(ctx, Change{
			Entity:      task,
			Action:      "created",
			Description: fmt.Sprintf("generated from recurring task %d", rt.ID),
			New:         task,
			Event:       webhooks.EventTaskCreated,
			Payload:     task,
		})
	}

	return res, nil
}

func (s *RecurringService) generate(ctx context.Context, rt *models.RecurringTask, now time.Time) (*models.Task, error) {
	due := rt.NextDueDate
	next, err := recurrence.NextOccurrence(rt.Rule(), due)
	if err != nil {
		if errors.Is(err, recurrence.ErrInvalidRule) {
			rt.IsActive = false
			if uerr := s.repo.Update(ctx, rt); uerr != nil {
				return nil, fmt.Errorf("failed to deactivate invalid rule: %w", uerr)
			}
		}
		return nil, err
	}

	task := &models.Task{
		WorkspaceID: rt.WorkspaceID,
		ProjectID:   rt.ProjectID,
		CreatorID:   rt.CreatorID,
		AssigneeID:  rt.AssigneeID,
		Title:       rt.Title,
		Description: rt.Description,
		Status:      models.TaskStatusTodo,
		DueDate:     &due,
	}

	rt.NextDueDate = next
	rt.LastGeneratedAt = &now
	if rt.EndDate != nil && next.After(*rt.EndDate) {
		rt.IsActive = false
	}

	if err := s.repo.Generate(ctx, rt, task); err != nil {
		return nil, fmt.Errorf("failed to store generated task: %w", err)
	}
	return task, nil
}

func (s *RecurringService) find(ctx context.Context, actor *authz.Actor, id uint64, action authz.Action) (*models.RecurringTask, error) {
	rt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrRecurringNotFound, "recurring task")
	}
	if err := authorize(s.eval, actor, action, rt, ErrRecurringNotFound); err != nil {
		return nil, err
	}
	return rt, nil
}
