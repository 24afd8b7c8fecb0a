package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

var (
	ErrGoalNotFound      = notFound("goal")
	ErrInvalidGoalStatus = invalid("unknown goal status")
	ErrInvalidGoalTarget = invalid("target value cannot be negative")
	ErrGoalDates         = invalid("due date must not be before start date")
)

type GoalService struct {
	goals    repository.Store[models.Goal]
	teams    repository.WorkspaceRepository
	activity *ActivityService
	eval     *authz.Evaluator
}

func NewGoalService(goals repository.Store[models.Goal], teams repository.WorkspaceRepository, activity *ActivityService, eval *authz.Evaluator) *GoalService {
	return &GoalService{goals: goals, teams: teams, activity: activity, eval: eval}
}

type CreateGoalInput struct {
	WorkspaceID uint64
	TeamID      *uint64
	Title       string
	Description string
	TargetValue float64
	Unit        string
	StartDate   *time.Time
	DueDate     *time.Time
}

type UpdateGoalInput struct {
	Title        *string
	Description  *string
	Status       *models.GoalStatus
	TargetValue  *float64
	CurrentValue *float64
	Unit         *string
	StartDate    *time.Time
	DueDate      *time.Time
}

// CreateGoal creates a goal in draft status owned by the actor
func (s *GoalService) CreateGoal(ctx context.Context, actor *authz.Actor, input CreateGoalInput) (*models.Goal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.TargetValue < 0 {
		return nil, ErrInvalidGoalTarget
	}
	if input.StartDate != nil && input.DueDate != nil && input.DueDate.Before(*input.StartDate) {
		return nil, ErrGoalDates
	}
	if err := authorizeCreate(s.eval, actor, models.KindGoal, &input.WorkspaceID); err != nil {
		return nil, err
	}
	if input.TeamID != nil {
		team, err := s.teams.FindTeam(ctx, *input.TeamID)
		if err != nil {
			return nil, lookupErr(err, ErrTeamNotFound, "team")
		}
		if team.WorkspaceID != input.WorkspaceID {
			return nil, ErrTeamNotFound
		}
	}

	goal := &models.Goal{
		WorkspaceID: input.WorkspaceID,
		TeamID:      input.TeamID,
		OwnerID:     actor.UserID,
		Title:       title,
		Description: input.Description,
		Status:      models.GoalStatusDraft,
		TargetValue: input.TargetValue,
		Unit:        input.Unit,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: goal, Action: "created", New: goal})
	return goal, nil
}

// ListGoals lists the goals of a workspace, soonest due first
func (s *GoalService) ListGoals(ctx context.Context, actor *authz.Actor, workspaceID uint64, status *models.GoalStatus) ([]models.Goal, error) {
	if !actor.Has(&workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	where := map[string]interface{}{"workspace_id": workspaceID}
	if status != nil {
		where["status"] = *status
	}
	goals, _, err := s.goals.List(ctx, repository.Query{
		Where:   where,
		Order:   "due_date IS NULL, due_date ASC, id ASC",
		Preload: []string{"Owner"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// UpdateGoal updates status and progress
func (s *GoalService) UpdateGoal(ctx context.Context, actor *authz.Actor, goalID uint64, input UpdateGoalInput) (*models.Goal, error) {
	goal, err := s.findGoal(ctx, actor, goalID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := *goal

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		goal.Title = title
	}
	if input.Description != nil {
		goal.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidGoalStatus
		}
		goal.Status = *input.Status
	}
	if input.TargetValue != nil {
		if *input.TargetValue < 0 {
			return nil, ErrInvalidGoalTarget
		}
		goal.TargetValue = *input.TargetValue
	}
	if input.CurrentValue != nil {
		goal.CurrentValue = *input.CurrentValue
	}
	if input.Unit != nil {
		goal.Unit = *input.Unit
	}
	if input.StartDate != nil {
		goal.StartDate = input.StartDate
	}
	if input.DueDate != nil {
		goal.DueDate = input.DueDate
	}
	if goal.StartDate != nil && goal.DueDate != nil && goal.DueDate.Before(*goal.StartDate) {
		return nil, ErrGoalDates
	}

	if err := s.goals.Update(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  goal,
		Action:  "updated",
		Old:     &old,
		New:     goal,
		Event:   webhooks.EventGoalUpdated,
		Payload: goal,
	})
	return goal, nil
}

// DeleteGoal deletes a goal
func (s *GoalService) DeleteGoal(ctx context.Context, actor *authz.Actor, goalID uint64) error {
	goal, err := s.findGoal(ctx, actor, goalID, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.goals.Delete(ctx, goal); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: goal, Action: "deleted", Old: goal})
	return nil
}

func (s *GoalService) findGoal(ctx context.Context, actor *authz.Actor, goalID uint64, action authz.Action) (*models.Goal, error) {
	goal, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, lookupErr(err, ErrGoalNotFound, "goal")
	}
	if err := authorize(s.eval, actor, action, goal, ErrGoalNotFound); err != nil {
		return nil, err
	}
	return goal, nil
}
