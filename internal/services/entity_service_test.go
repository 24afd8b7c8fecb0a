package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/testutil"
)

type EntityServiceTestSuite struct {
	ServiceTestSuite
	svc *EntityService
}

func (s *EntityServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewEntityService(s.resolver, s.eval)
}

func TestEntityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntityServiceTestSuite))
}

func (s *EntityServiceTestSuite) TestGet_PresentsRequestedRelations() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "ship it")

	out, err := s.svc.Get(s.ctx, s.actor(s.viewer), "task", task.ID, []string{"creator"})
	s.Require().NoError(err)
	d, ok := out.(dto.TaskDTO)
	s.Require().True(ok)
	s.Equal("ship it", d.Title)

	creator, ok := d.Creator.Get()
	s.Require().True(ok)
	s.Equal(s.owner.ID, creator.ID)
	s.False(d.Assignee.Present())
}

func (s *EntityServiceTestSuite) TestGet_Errors() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "ship it")

	_, err := s.svc.Get(s.ctx, s.actor(s.viewer), "spaceship", task.ID, nil)
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.Get(s.ctx, s.actor(s.viewer), "task", task.ID, []string{"owner"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.Get(s.ctx, s.actor(s.viewer), "task", 9999, nil)
	s.ErrorIs(err, ErrEntityNotFound)

	_, err = s.svc.Get(s.ctx, s.actor(s.outsider), "task", task.ID, nil)
	s.ErrorIs(err, ErrEntityNotFound)
}

func (s *EntityServiceTestSuite) TestCheck() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "ship it")

	ok, err := s.svc.Check(s.ctx, s.actor(s.owner), "task", task.ID, "delete")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.svc.Check(s.ctx, s.actor(s.member), "task", task.ID, "delete")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.svc.Check(s.ctx, s.actor(s.member), "task", task.ID, "launch")
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.Check(s.ctx, s.actor(s.outsider), "task", task.ID, "view")
	s.ErrorIs(err, ErrEntityNotFound)
}

func (s *EntityServiceTestSuite) TestRelations() {
	names, err := s.svc.Relations(string(models.KindTask))
	s.Require().NoError(err)
	s.Contains(names, "tags")
	s.Contains(names, "ancestors")

	_, err = s.svc.Relations("spaceship")
	s.ErrorIs(err, ErrValidation)
}
