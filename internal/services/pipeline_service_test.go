package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/testutil"
)

type PipelineServiceTestSuite struct {
	ServiceTestSuite
	svc *PipelineService
}

func (s *PipelineServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewPipelineService(
		repository.NewStore[models.Pipeline](s.db),
		repository.NewStore[models.PipelineStatus](s.db),
		repository.NewStore[models.TaskPipeline](s.db),
		s.tasks,
		s.activity,
		s.eval,
	)
}

func TestPipelineServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineServiceTestSuite))
}

func (s *PipelineServiceTestSuite) createBoard(isDefault bool) *models.Pipeline {
	pipeline, err := s.svc.CreatePipeline(s.ctx, s.actor(s.owner), CreatePipelineInput{
		WorkspaceID: s.ws.ID,
		Name:        "Board",
		IsDefault:   isDefault,
		Statuses:    []string{"Todo", " ", "Doing", "Done"},
	})
	s.Require().NoError(err)
	return pipeline
}

func (s *PipelineServiceTestSuite) TestCreatePipeline() {
	pipeline := s.createBoard(false)

	s.Require().Len(pipeline.Statuses, 3)
	s.True(pipeline.Statuses[0].IsDefault)
	s.False(pipeline.Statuses[1].IsDefault)
	s.Equal(2, pipeline.Statuses[2].Position)

	_, err := s.svc.CreatePipeline(s.ctx, s.actor(s.owner), CreatePipelineInput{WorkspaceID: s.ws.ID, Name: "Empty"})
	s.ErrorIs(err, ErrPipelineNeedsStatus)

	_, err = s.svc.CreatePipeline(s.ctx, s.actor(s.member), CreatePipelineInput{WorkspaceID: s.ws.ID, Name: "Mine", Statuses: []string{"a"}})
	s.ErrorIs(err, ErrForbidden)

	pipelines, err := s.svc.ListPipelines(s.ctx, s.actor(s.viewer), s.ws.ID)
	s.Require().NoError(err)
	s.Require().Len(pipelines, 1)
	s.Len(pipelines[0].Statuses, 3)
}

func (s *PipelineServiceTestSuite) TestAddStatus_AppendsAtEnd() {
	pipeline := s.createBoard(false)

	status, err := s.svc.AddStatus(s.ctx, s.actor(s.owner), pipeline.ID, "Archived", "#999")
	s.Require().NoError(err)
	s.Equal(3, status.Position)
	s.False(status.IsDefault)
}

func (s *PipelineServiceTestSuite) TestDeleteGuards() {
	def := s.createBoard(true)
	s.ErrorIs(s.svc.DeletePipeline(s.ctx, s.actor(s.owner), def.ID), ErrForbidden)
	s.ErrorIs(s.svc.DeleteStatus(s.ctx, s.actor(s.owner), def.Statuses[0].ID), ErrForbidden)

	other := s.createBoard(false)
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "card")
	_, err := s.svc.PlaceTask(s.ctx, s.actor(s.owner), task.ID, other.ID, other.Statuses[1].ID, 0)
	s.Require().NoError(err)

	s.ErrorIs(s.svc.DeleteStatus(s.ctx, s.actor(s.owner), other.Statuses[1].ID), ErrConflict)
	s.NoError(s.svc.DeleteStatus(s.ctx, s.actor(s.owner), other.Statuses[2].ID))

	s.Require().NoError(s.svc.DeletePipeline(s.ctx, s.actor(s.owner), other.ID))
	s.Zero(s.countRows(&models.TaskPipeline{}, map[string]interface{}{"pipeline_id": other.ID}))
	s.Zero(s.countRows(&models.PipelineStatus{}, map[string]interface{}{"pipeline_id": other.ID}))
}

func (s *PipelineServiceTestSuite) TestPlaceTask() {
	board := s.createBoard(false)
	second := s.createBoard(false)
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "card")

	placed, err := s.svc.PlaceTask(s.ctx, s.actor(s.member), task.ID, board.ID, board.Statuses[0].ID, 1)
	s.Require().NoError(err)
	s.Equal(board.Statuses[0].ID, placed.StatusID)

	// moving within the same pipeline updates the placement
	_, err = s.svc.PlaceTask(s.ctx, s.actor(s.member), task.ID, board.ID, board.Statuses[2].ID, 0)
	s.Require().NoError(err)
	var placements []models.TaskPipeline
	s.Require().NoError(s.db.Where("task_id = ?", task.ID).Find(&placements).Error)
	s.Require().Len(placements, 1)
	s.Equal(board.Statuses[2].ID, placements[0].StatusID)

	_, err = s.svc.PlaceTask(s.ctx, s.actor(s.member), task.ID, board.ID, second.Statuses[0].ID, 0)
	s.ErrorIs(err, ErrStatusNotInPipeline)

	_, err = s.svc.PlaceTask(s.ctx, s.actor(s.viewer), task.ID, board.ID, board.Statuses[0].ID, 0)
	s.ErrorIs(err, ErrForbidden)

	otherWS := testutil.CreateWorkspace(s.T(), s.db, "Other", s.member)
	foreign := testutil.CreateTask(s.T(), s.db, otherWS, s.member, "elsewhere")
	_, err = s.svc.PlaceTask(s.ctx, s.actor(s.member), foreign.ID, board.ID, board.Statuses[0].ID, 0)
	s.ErrorIs(err, ErrPipelineNotFound)
}
