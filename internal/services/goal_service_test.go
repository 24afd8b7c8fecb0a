package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

type GoalServiceTestSuite struct {
	ServiceTestSuite
	svc *GoalService
}

func (s *GoalServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewGoalService(repository.NewStore[models.Goal](s.db), s.workspaces, s.activity, s.eval)
}

func TestGoalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GoalServiceTestSuite))
}

func (s *GoalServiceTestSuite) TestCreateGoal() {
	start := time.Now()
	due := start.Add(30 * 24 * time.Hour)
	goal, err := s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{
		WorkspaceID: s.ws.ID,
		Title:       "Ship 10 features",
		TargetValue: 10,
		Unit:        "features",
		StartDate:   &start,
		DueDate:     &due,
	})
	s.Require().NoError(err)
	s.Equal(models.GoalStatusDraft, goal.Status)
	s.Equal(s.member.ID, goal.OwnerID)

	_, err = s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "x", StartDate: &due, DueDate: &start})
	s.ErrorIs(err, ErrGoalDates)

	_, err = s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "x", TargetValue: -1})
	s.ErrorIs(err, ErrInvalidGoalTarget)

	missing := uint64(9999)
	_, err = s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "x", TeamID: &missing})
	s.ErrorIs(err, ErrTeamNotFound)
}

func (s *GoalServiceTestSuite) TestUpdateGoal() {
	goal, err := s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "Revenue", TargetValue: 100})
	s.Require().NoError(err)

	active := models.GoalStatusActive
	progress := 42.5
	updated, err := s.svc.UpdateGoal(s.ctx, s.actor(s.member), goal.ID, UpdateGoalInput{Status: &active, CurrentValue: &progress})
	s.Require().NoError(err)
	s.Equal(models.GoalStatusActive, updated.Status)
	s.InDelta(42.5, updated.CurrentValue, 0.001)
	s.Contains(s.events.names(), webhooks.EventGoalUpdated)

	bogus := models.GoalStatus("paused")
	_, err = s.svc.UpdateGoal(s.ctx, s.actor(s.member), goal.ID, UpdateGoalInput{Status: &bogus})
	s.ErrorIs(err, ErrInvalidGoalStatus)

	_, err = s.svc.UpdateGoal(s.ctx, s.actor(s.viewer), goal.ID, UpdateGoalInput{Status: &active})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.UpdateGoal(s.ctx, s.actor(s.outsider), goal.ID, UpdateGoalInput{Status: &active})
	s.ErrorIs(err, ErrGoalNotFound)
}

func (s *GoalServiceTestSuite) TestListAndDeleteGoals() {
	soon := time.Now().Add(24 * time.Hour)
	later := soon.Add(24 * time.Hour)
	_, err := s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "undated"})
	s.Require().NoError(err)
	second, err := s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "later", DueDate: &later})
	s.Require().NoError(err)
	first, err := s.svc.CreateGoal(s.ctx, s.actor(s.member), CreateGoalInput{WorkspaceID: s.ws.ID, Title: "soon", DueDate: &soon})
	s.Require().NoError(err)

	goals, err := s.svc.ListGoals(s.ctx, s.actor(s.viewer), s.ws.ID, nil)
	s.Require().NoError(err)
	s.Require().Len(goals, 3)
	s.Equal(first.ID, goals[0].ID)
	s.Equal(second.ID, goals[1].ID)
	s.Equal("undated", goals[2].Title)

	draft := models.GoalStatusDraft
	goals, err = s.svc.ListGoals(s.ctx, s.actor(s.viewer), s.ws.ID, &draft)
	s.Require().NoError(err)
	s.Len(goals, 3)

	s.ErrorIs(s.svc.DeleteGoal(s.ctx, s.actor(s.viewer), first.ID), ErrForbidden)
	s.Require().NoError(s.svc.DeleteGoal(s.ctx, s.actor(s.owner), first.ID))
	goals, err = s.svc.ListGoals(s.ctx, s.actor(s.viewer), s.ws.ID, nil)
	s.Require().NoError(err)
	s.Len(goals, 2)
}
