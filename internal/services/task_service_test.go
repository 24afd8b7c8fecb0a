package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/testutil"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

type stubGenerator struct {
	tasks []GeneratedTask
	err   error
	text  string
}

func (g *stubGenerator) GenerateTasksFromText(_ context.Context, text string) ([]GeneratedTask, error) {
	g.text = text
	return g.tasks, g.err
}

type TaskServiceTestSuite struct {
	ServiceTestSuite
	svc       *TaskService
	generator *stubGenerator
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.generator = &stubGenerator{}
	s.svc = NewTaskService(s.tasks, repository.NewStore[models.Tag](s.db), s.resolver, s.activity, s.eval, s.generator)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func (s *TaskServiceTestSuite) TestCreateTask() {
	due := time.Now().Add(48 * time.Hour)
	task, err := s.svc.CreateTask(s.ctx, s.actor(s.member), CreateTaskInput{
		WorkspaceID: s.ws.ID,
		Title:       "  Write report  ",
		AssigneeID:  &s.viewer.ID,
		DueDate:     &due,
	})
	s.Require().NoError(err)

	s.Equal("Write report", task.Title)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(s.member.ID, task.CreatorID)
	s.Require().NotNil(task.Assignee)
	s.Equal(s.viewer.ID, task.Assignee.ID)
	s.Nil(task.CompletedAt)

	s.Equal([]string{webhooks.EventTaskCreated}, s.events.names())
	s.Equal(int64(1), s.countRows(&models.ActivityLog{}, map[string]interface{}{"subject_type": models.KindTask, "subject_id": task.ID}))
	s.Equal(int64(1), s.countRows(&models.AuditLog{}, map[string]interface{}{"auditable_type": models.KindTask, "auditable_id": task.ID}))
}

func (s *TaskServiceTestSuite) TestCreateTask_Validation() {
	actor := s.actor(s.member)

	_, err := s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "   "})
	s.ErrorIs(err, ErrTitleRequired)
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x", Status: "LATER"})
	s.ErrorIs(err, ErrInvalidTaskStatus)

	_, err = s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x", AssigneeID: &s.outsider.ID})
	s.ErrorIs(err, ErrInvalidTaskAssignee)

	missing := uint64(9999)
	_, err = s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x", ParentID: &missing})
	s.ErrorIs(err, ErrParentTaskNotFound)

	_, err = s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x", ProjectID: &missing})
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *TaskServiceTestSuite) TestCreateTask_Authorization() {
	_, err := s.svc.CreateTask(s.ctx, s.actor(s.viewer), CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x"})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.CreateTask(s.ctx, s.actor(s.outsider), CreateTaskInput{WorkspaceID: s.ws.ID, Title: "x"})
	s.ErrorIs(err, ErrWorkspaceNotFound)
}

func (s *TaskServiceTestSuite) TestCreateTask_ParentInOtherWorkspace() {
	otherWS := testutil.CreateWorkspace(s.T(), s.db, "Other", s.owner)
	foreign := testutil.CreateTask(s.T(), s.db, otherWS, s.owner, "foreign")

	_, err := s.svc.CreateTask(s.ctx, s.actor(s.owner), CreateTaskInput{WorkspaceID: s.ws.ID, Title: "child", ParentID: &foreign.ID})
	s.ErrorIs(err, ErrTaskScopeMismatch)
}

func (s *TaskServiceTestSuite) TestGetTask_HidesOtherWorkspaces() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "secret")

	_, err := s.svc.GetTask(s.ctx, s.actor(s.outsider), task.ID)
	s.ErrorIs(err, ErrTaskNotFound)

	got, err := s.svc.GetTask(s.ctx, s.actor(s.viewer), task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)
	s.Require().NotNil(got.Creator)
}

func (s *TaskServiceTestSuite) TestListTasks() {
	mine := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "mine")
	testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "theirs")
	otherWS := testutil.CreateWorkspace(s.T(), s.db, "Other", s.outsider)
	testutil.CreateTask(s.T(), s.db, otherWS, s.outsider, "elsewhere")

	tasks, total, err := s.svc.ListTasks(s.ctx, s.actor(s.member), ListTasksInput{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(tasks, 2)

	tasks, total, err = s.svc.ListTasks(s.ctx, s.actor(s.member), ListTasksInput{CreatedByMe: true})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(mine.ID, tasks[0].ID)

	_, _, err = s.svc.ListTasks(s.ctx, s.actor(s.member), ListTasksInput{WorkspaceID: &otherWS.ID})
	s.ErrorIs(err, ErrWorkspaceNotFound)

	tasks, total, err = s.svc.ListTasks(s.ctx, s.actor(testutil.CreateUser(s.T(), s.db, "loner")), ListTasksInput{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(tasks)
}

func (s *TaskServiceTestSuite) TestUpdateTask() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "draft")
	actor := s.actor(s.member)

	title := "final"
	done := models.TaskStatusDone
	spent := int64(90)
	updated, err := s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Title: &title, Status: &done, TimeSpentSeconds: &spent})
	s.Require().NoError(err)
	s.Equal("final", updated.Title)
	s.Equal(models.TaskStatusDone, updated.Status)
	s.NotNil(updated.CompletedAt)
	s.Equal(int64(90), updated.TimeSpentSeconds)

	todo := models.TaskStatusTodo
	updated, err = s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Status: &todo})
	s.Require().NoError(err)
	s.Nil(updated.CompletedAt)

	empty := " "
	_, err = s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Title: &empty})
	s.ErrorIs(err, ErrTitleEmpty)

	negative := int64(-1)
	_, err = s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{TimeSpentSeconds: &negative})
	s.ErrorIs(err, ErrValidation)

	s.Contains(s.events.names(), webhooks.EventTaskUpdated)
}

func (s *TaskServiceTestSuite) TestUpdateTask_Permissions() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "owned")
	title := "hijack"

	// a plain member neither created nor is assigned the task
	_, err := s.svc.UpdateTask(s.ctx, s.actor(s.member), task.ID, UpdateTaskInput{Title: &title})
	s.ErrorIs(err, ErrForbidden)

	task.AssigneeID = &s.member.ID
	s.Require().NoError(s.db.Save(task).Error)
	_, err = s.svc.UpdateTask(s.ctx, s.actor(s.member), task.ID, UpdateTaskInput{Title: &title})
	s.NoError(err)

	// assignees may update but not delete
	s.ErrorIs(s.svc.DeleteTask(s.ctx, s.actor(s.member), task.ID), ErrForbidden)
}

func (s *TaskServiceTestSuite) TestRemovedCreatorLosesAccess() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "mine")
	workspaces := NewWorkspaceService(s.workspaces, repository.NewStore[models.Project](s.db), s.actors, s.activity, s.eval)
	s.Require().NoError(workspaces.RemoveMember(s.ctx, s.actor(s.owner), s.ws.ID, s.member.ID))

	former := s.actor(s.member)
	s.False(former.IsMember(s.ws.ID))

	_, err := s.svc.GetTask(s.ctx, former, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)

	title := "still mine"
	_, err = s.svc.UpdateTask(s.ctx, former, task.ID, UpdateTaskInput{Title: &title})
	s.ErrorIs(err, ErrTaskNotFound)
	s.ErrorIs(s.svc.DeleteTask(s.ctx, former, task.ID), ErrTaskNotFound)

	_, err = NewEntityService(s.resolver, s.eval).Get(s.ctx, former, "task", task.ID, []string{"workspace"})
	s.ErrorIs(err, ErrEntityNotFound)

	s.Equal(int64(1), s.countRows(&models.Task{}, map[string]interface{}{"id": task.ID, "title": "mine"}))
}

func (s *TaskServiceTestSuite) TestToggleTaskStatus() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "toggle")
	actor := s.actor(s.member)

	toggled, err := s.svc.ToggleTaskStatus(s.ctx, actor, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusDone, toggled.Status)
	s.NotNil(toggled.CompletedAt)

	toggled, err = s.svc.ToggleTaskStatus(s.ctx, actor, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusTodo, toggled.Status)
	s.Nil(toggled.CompletedAt)
}

func (s *TaskServiceTestSuite) TestMoveTask_RejectsCycles() {
	actor := s.actor(s.owner)
	root := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "root")
	child, err := s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "child", ParentID: &root.ID})
	s.Require().NoError(err)
	grandchild, err := s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "grandchild", ParentID: &child.ID})
	s.Require().NoError(err)

	_, err = s.svc.MoveTask(s.ctx, actor, root.ID, &grandchild.ID)
	s.ErrorIs(err, ErrTaskCycle)

	_, err = s.svc.MoveTask(s.ctx, actor, root.ID, &root.ID)
	s.ErrorIs(err, ErrTaskCycle)

	moved, err := s.svc.MoveTask(s.ctx, actor, grandchild.ID, nil)
	s.Require().NoError(err)
	s.Nil(moved.ParentID)
}

func (s *TaskServiceTestSuite) TestDeleteTask_RemovesSubtree() {
	actor := s.actor(s.owner)
	root := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "root")
	child, err := s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "child", ParentID: &root.ID})
	s.Require().NoError(err)
	_, err = s.svc.CreateTask(s.ctx, actor, CreateTaskInput{WorkspaceID: s.ws.ID, Title: "grandchild", ParentID: &child.ID})
	s.Require().NoError(err)
	sibling := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "sibling")

	s.Require().NoError(s.svc.DeleteTask(s.ctx, actor, root.ID))

	s.Equal(int64(1), s.countRows(&models.Task{}, map[string]interface{}{"workspace_id": s.ws.ID}))
	_, err = s.svc.GetTask(s.ctx, actor, sibling.ID)
	s.NoError(err)
	s.Contains(s.events.names(), webhooks.EventTaskDeleted)
}

func (s *TaskServiceTestSuite) TestDependencies() {
	actor := s.actor(s.owner)
	a := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "a")
	b := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "b")
	c := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "c")

	_, err := s.svc.AddDependency(s.ctx, actor, a.ID, b.ID, "")
	s.Require().NoError(err)
	_, err = s.svc.AddDependency(s.ctx, actor, b.ID, c.ID, models.DependencyBlocks)
	s.Require().NoError(err)

	_, err = s.svc.AddDependency(s.ctx, actor, c.ID, a.ID, models.DependencyBlocks)
	s.ErrorIs(err, ErrDependencyCycle)

	// non-blocking links may point anywhere
	_, err = s.svc.AddDependency(s.ctx, actor, c.ID, a.ID, models.DependencyRelatesTo)
	s.NoError(err)

	_, err = s.svc.AddDependency(s.ctx, actor, a.ID, b.ID, models.DependencyBlocks)
	s.ErrorIs(err, ErrDependencyExists)

	_, err = s.svc.AddDependency(s.ctx, actor, a.ID, a.ID, models.DependencyBlocks)
	s.ErrorIs(err, ErrSelfDependency)

	_, err = s.svc.AddDependency(s.ctx, actor, a.ID, b.ID, "duplicates")
	s.ErrorIs(err, ErrInvalidDependencyType)

	s.Require().NoError(s.svc.RemoveDependency(s.ctx, actor, a.ID, b.ID))
	s.ErrorIs(s.svc.RemoveDependency(s.ctx, actor, a.ID, b.ID), ErrDependencyNotFound)
}

func (s *TaskServiceTestSuite) TestReaches() {
	edges := []models.TaskDependency{
		{TaskID: 1, DependsOnID: 2},
		{TaskID: 2, DependsOnID: 3},
		{TaskID: 4, DependsOnID: 4},
	}
	s.True(reaches(edges, 1, 3))
	s.False(reaches(edges, 3, 1))
	s.True(reaches(edges, 4, 4))
	s.False(reaches(edges, 4, 1))
}

func (s *TaskServiceTestSuite) TestTags() {
	actor := s.actor(s.owner)
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "tagged")

	tag, err := s.svc.CreateTag(s.ctx, actor, s.ws.ID, " urgent ", "#f00")
	s.Require().NoError(err)
	s.Equal("urgent", tag.Name)

	_, err = s.svc.CreateTag(s.ctx, actor, s.ws.ID, "urgent", "")
	s.ErrorIs(err, ErrTagExists)

	_, err = s.svc.CreateTag(s.ctx, s.actor(s.member), s.ws.ID, "by member", "")
	s.NoError(err)

	s.Require().NoError(s.svc.AddTag(s.ctx, actor, task.ID, tag.ID))
	s.ErrorIs(s.svc.AddTag(s.ctx, actor, task.ID, tag.ID), ErrTagAlreadyOnTask)

	otherWS := testutil.CreateWorkspace(s.T(), s.db, "Other", s.owner)
	foreign, err := s.svc.CreateTag(s.ctx, s.actor(s.owner), otherWS.ID, "foreign", "")
	s.Require().NoError(err)
	s.ErrorIs(s.svc.AddTag(s.ctx, s.actor(s.owner), task.ID, foreign.ID), ErrTagNotFound)

	tags, err := s.svc.ListTags(s.ctx, s.actor(s.viewer), s.ws.ID)
	s.Require().NoError(err)
	s.Len(tags, 2)

	s.Require().NoError(s.svc.RemoveTag(s.ctx, actor, task.ID, tag.ID))
	s.ErrorIs(s.svc.RemoveTag(s.ctx, actor, task.ID, tag.ID), ErrTagNotFound)
}

func (s *TaskServiceTestSuite) TestGenerateTasks() {
	past := time.Now().Add(-72 * time.Hour)
	s.generator.tasks = []GeneratedTask{
		{Title: "Draft outline"},
		{Title: "  "},
		{Title: "Review", DueDate: &past},
	}

	tasks, err := s.svc.GenerateTasks(s.ctx, s.actor(s.member), GenerateTasksInput{WorkspaceID: s.ws.ID, Text: "plan the launch"})
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("Draft outline", tasks[0].Title)
	s.Nil(tasks[1].DueDate)
	s.Equal("plan the launch", s.generator.text)

	_, err = s.svc.GenerateTasks(s.ctx, s.actor(s.member), GenerateTasksInput{WorkspaceID: s.ws.ID, Text: " "})
	s.ErrorIs(err, ErrAITextRequired)

	s.generator.tasks = []GeneratedTask{{Title: ""}}
	_, err = s.svc.GenerateTasks(s.ctx, s.actor(s.member), GenerateTasksInput{WorkspaceID: s.ws.ID, Text: "x"})
	s.ErrorIs(err, ErrAINoValidTasks)

	s.generator.tasks = nil
	_, err = s.svc.GenerateTasks(s.ctx, s.actor(s.member), GenerateTasksInput{WorkspaceID: s.ws.ID, Text: "x"})
	s.ErrorIs(err, ErrAINoTasksGenerated)
}

func (s *TaskServiceTestSuite) TestGenerateTasks_WithoutGenerator() {
	svc := NewTaskService(s.tasks, repository.NewStore[models.Tag](s.db), s.resolver, s.activity, s.eval, nil)
	_, err := svc.GenerateTasks(s.ctx, s.actor(s.member), GenerateTasksInput{WorkspaceID: s.ws.ID, Text: "x"})
	s.ErrorIs(err, ErrAIServiceNotConfigured)
}

func (s *TaskServiceTestSuite) TestSuggestSubtasks() {
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.member, "Ship v2")
	s.generator.tasks = []GeneratedTask{{Title: "Freeze scope"}}

	tasks, err := s.svc.SuggestSubtasks(s.ctx, s.actor(s.member), task.ID)
	s.Require().NoError(err)
	s.Len(tasks, 1)
	s.Contains(s.generator.text, "Ship v2")
}
