package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/testutil"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	owner *models.User
	ws    *models.Workspace
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	s.owner = testutil.CreateUser(s.T(), s.db, "owner")
	s.ws = testutil.CreateWorkspace(s.T(), s.db, "Acme", s.owner)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) TestCreateWithPersonalWorkspace() {
	repo := NewUserRepository(s.db)

	user := &models.User{Username: "alice", PasswordHash: "x"}
	ws := &models.Workspace{Name: "alice's workspace", InviteCode: "ALICE"}
	member := &models.WorkspaceMember{Role: models.RoleOwner, JoinedAt: time.Now()}
	s.Require().NoError(repo.CreateWithPersonalWorkspace(s.ctx, user, ws, member))

	s.Equal(user.ID, ws.OwnerID)
	s.Equal(ws.ID, member.WorkspaceID)

	found, err := repo.FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	dup := &models.User{Username: "alice", PasswordHash: "y"}
	err = repo.CreateWithPersonalWorkspace(s.ctx, dup, &models.Workspace{Name: "other", InviteCode: "OTHER"}, &models.WorkspaceMember{Role: models.RoleOwner})
	s.ErrorIs(err, ErrCreateUser)
	s.ErrorIs(err, ErrConflict)

	var count int64
	s.db.Model(&models.Workspace{}).Where("invite_code = ?", "OTHER").Count(&count)
	s.Zero(count, "failed signup must not leave a workspace behind")
}

func (s *RepositoryTestSuite) TestWorkspaceMembers() {
	repo := NewWorkspaceRepository(s.db)
	bob := testutil.CreateUser(s.T(), s.db, "bob")

	member := &models.WorkspaceMember{WorkspaceID: s.ws.ID, UserID: bob.ID, Role: models.RoleMember, JoinedAt: time.Now()}
	s.Require().NoError(repo.AddMember(s.ctx, member))
	s.ErrorIs(repo.AddMember(s.ctx, member), ErrConflict)

	s.Require().NoError(repo.UpdateMemberRole(s.ctx, s.ws.ID, bob.ID, models.RoleAdmin))
	found, err := repo.FindMember(s.ctx, s.ws.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, found.Role)

	s.ErrorIs(repo.UpdateMemberRole(s.ctx, s.ws.ID, 9999, models.RoleAdmin), gorm.ErrRecordNotFound)

	owners, err := repo.CountByRole(s.ctx, s.ws.ID, models.RoleOwner)
	s.Require().NoError(err)
	s.EqualValues(1, owners)

	members, err := repo.ListMembers(s.ctx, s.ws.ID)
	s.Require().NoError(err)
	s.Len(members, 2)
	s.NotNil(members[0].User)
}

func (s *RepositoryTestSuite) TestRemoveMemberDropsTeamMemberships() {
	repo := NewWorkspaceRepository(s.db)
	bob := testutil.CreateUser(s.T(), s.db, "bob")
	testutil.AddMember(s.T(), s.db, s.ws, bob, models.RoleMember)

	team := &models.Team{WorkspaceID: s.ws.ID, Name: "Platform"}
	s.Require().NoError(repo.CreateTeam(s.ctx, team, &models.TeamMember{UserID: bob.ID, Role: models.RoleManager, JoinedAt: time.Now()}))

	teams, err := repo.ListTeamMembershipsByUserID(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Len(teams, 1)

	s.Require().NoError(repo.RemoveMember(s.ctx, s.ws.ID, bob.ID))

	teams, err = repo.ListTeamMembershipsByUserID(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Empty(teams)
	_, err = repo.FindMember(s.ctx, s.ws.ID, bob.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestDeleteWorkspaceCascades() {
	repo := NewWorkspaceRepository(s.db)
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "Ship it")

	s.Require().NoError(repo.Delete(s.ctx, s.ws.ID))

	_, err := repo.FindByID(s.ctx, s.ws.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
	s.ErrorIs(s.db.First(&models.Task{}, task.ID).Error, gorm.ErrRecordNotFound)

	var members int64
	s.db.Model(&models.WorkspaceMember{}).Where("workspace_id = ?", s.ws.ID).Count(&members)
	s.Zero(members)
}

func (s *RepositoryTestSuite) TestTaskListFilters() {
	repo := NewTaskRepository(s.db)
	bob := testutil.CreateUser(s.T(), s.db, "bob")

	root := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "Root")
	child := &models.Task{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, ParentID: &root.ID, AssigneeID: &bob.ID, Title: "Child", Status: models.TaskStatusTodo}
	s.Require().NoError(repo.Create(s.ctx, child))
	testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "Other root")

	tasks, total, err := repo.List(s.ctx, TaskFilter{WorkspaceIDs: []uint64{s.ws.ID}, RootOnly: true})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(tasks, 2)

	tasks, total, err = repo.List(s.ctx, TaskFilter{WorkspaceIDs: []uint64{s.ws.ID}, AssigneeID: &bob.ID})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(child.ID, tasks[0].ID)
	s.Require().NotNil(tasks[0].Assignee)
	s.Equal(bob.ID, tasks[0].Assignee.ID)

	tasks, total, err = repo.List(s.ctx, TaskFilter{WorkspaceIDs: []uint64{s.ws.ID}, Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Len(tasks, 1)

	tasks, total, err = repo.List(s.ctx, TaskFilter{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(tasks)
}

func (s *RepositoryTestSuite) TestTaskPivots() {
	repo := NewTaskRepository(s.db)
	a := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "A")
	b := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "B")

	tag := &models.Tag{WorkspaceID: s.ws.ID, Name: "bug"}
	s.Require().NoError(s.db.Create(tag).Error)

	s.Require().NoError(repo.AddTag(s.ctx, &models.TaskTag{TaskID: a.ID, TagID: tag.ID}))
	s.ErrorIs(repo.AddTag(s.ctx, &models.TaskTag{TaskID: a.ID, TagID: tag.ID}), ErrConflict)

	dep := &models.TaskDependency{TaskID: a.ID, DependsOnID: b.ID, Type: models.DependencyBlocks}
	s.Require().NoError(repo.AddDependency(s.ctx, dep))
	s.ErrorIs(repo.AddDependency(s.ctx, &models.TaskDependency{TaskID: a.ID, DependsOnID: b.ID, Type: models.DependencyBlocks}), ErrConflict)

	edges, err := repo.DependencyEdges(s.ctx, s.ws.ID)
	s.Require().NoError(err)
	s.Len(edges, 1)

	s.Require().NoError(repo.Delete(s.ctx, []uint64{b.ID}))

	edges, err = repo.DependencyEdges(s.ctx, s.ws.ID)
	s.Require().NoError(err)
	s.Empty(edges)

	s.ErrorIs(repo.RemoveTag(s.ctx, a.ID, 9999), gorm.ErrRecordNotFound)
	s.NoError(repo.RemoveTag(s.ctx, a.ID, tag.ID))
}

func (s *RepositoryTestSuite) TestPlaceInPipelineMovesExistingPlacement() {
	repo := NewTaskRepository(s.db)
	task := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "Card")

	pipeline := &models.Pipeline{WorkspaceID: s.ws.ID, Name: "Board"}
	s.Require().NoError(s.db.Create(pipeline).Error)
	todo := &models.PipelineStatus{PipelineID: pipeline.ID, WorkspaceID: s.ws.ID, Name: "Todo"}
	done := &models.PipelineStatus{PipelineID: pipeline.ID, WorkspaceID: s.ws.ID, Name: "Done", Position: 1}
	s.Require().NoError(s.db.Create(todo).Error)
	s.Require().NoError(s.db.Create(done).Error)

	s.Require().NoError(repo.PlaceInPipeline(s.ctx, &models.TaskPipeline{TaskID: task.ID, PipelineID: pipeline.ID, StatusID: todo.ID, Order: 1}))
	s.Require().NoError(repo.PlaceInPipeline(s.ctx, &models.TaskPipeline{TaskID: task.ID, PipelineID: pipeline.ID, StatusID: done.ID, Order: 4}))

	var placements []models.TaskPipeline
	s.Require().NoError(s.db.Where("task_id = ?", task.ID).Find(&placements).Error)
	s.Require().Len(placements, 1)
	s.Equal(done.ID, placements[0].StatusID)
	s.Equal(4, placements[0].Order)
}

func (s *RepositoryTestSuite) TestStoreListAndUpsert() {
	goals := NewStore[models.Goal](s.db)
	for _, title := range []string{"A", "B", "C"} {
		s.Require().NoError(goals.Create(s.ctx, &models.Goal{WorkspaceID: s.ws.ID, OwnerID: s.owner.ID, Title: title, Status: models.GoalStatusDraft}))
	}

	page, total, err := goals.List(s.ctx, Query{
		Where:    map[string]interface{}{"workspace_id": s.ws.ID},
		Order:    "title DESC",
		Page:     1,
		PageSize: 2,
	})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(page, 2)
	s.Equal("C", page[0].Title)

	prefs := NewStore[models.UserPreference](s.db)
	conflict := []string{"user_id", "key"}
	update := []string{"value", "updated_at"}
	s.Require().NoError(prefs.Upsert(s.ctx, &models.UserPreference{UserID: s.owner.ID, Key: "theme", Value: datatypes.JSON(`"dark"`)}, conflict, update))
	s.Require().NoError(prefs.Upsert(s.ctx, &models.UserPreference{UserID: s.owner.ID, Key: "theme", Value: datatypes.JSON(`"light"`)}, conflict, update))

	pref, err := prefs.FindOne(s.ctx, map[string]interface{}{"user_id": s.owner.ID, "key": "theme"})
	s.Require().NoError(err)
	s.JSONEq(`"light"`, string(pref.Value))

	n, err := prefs.DeleteWhere(s.ctx, map[string]interface{}{"user_id": s.owner.ID})
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *RepositoryTestSuite) TestTakenSlugsIncludesDeletedPages() {
	repo := NewWikiRepository(s.db)
	page := &models.Wiki{WorkspaceID: s.ws.ID, AuthorID: s.owner.ID, Title: "Setup", Slug: "setup"}
	s.Require().NoError(repo.Create(s.ctx, page))
	s.Require().NoError(repo.Create(s.ctx, &models.Wiki{WorkspaceID: s.ws.ID, AuthorID: s.owner.ID, Title: "Setup", Slug: "setup-2"}))
	s.Require().NoError(repo.Delete(s.ctx, page))

	slugs, err := repo.TakenSlugs(s.ctx, s.ws.ID, "setup")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"setup", "setup-2"}, slugs)
}

func (s *RepositoryTestSuite) TestConversationParticipants() {
	repo := NewConversationRepository(s.db)
	bob := testutil.CreateUser(s.T(), s.db, "bob")

	conv := &models.Conversation{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, Title: "Launch"}
	s.Require().NoError(repo.Create(s.ctx, conv, []models.ConversationParticipant{
		{UserID: s.owner.ID, Role: models.RoleOwner, Status: models.ParticipantActive, JoinedAt: time.Now()},
	}))

	bobRow := &models.ConversationParticipant{ConversationID: conv.ID, UserID: bob.ID, Role: models.RoleMember, Status: models.ParticipantActive, JoinedAt: time.Now()}
	s.Require().NoError(repo.AddParticipant(s.ctx, bobRow))
	s.ErrorIs(repo.AddParticipant(s.ctx, bobRow), ErrConflict)

	s.Require().NoError(repo.UpdateParticipant(s.ctx, conv.ID, bob.ID, map[string]interface{}{"status": models.ParticipantLeft}))

	convs, err := repo.ListForUser(s.ctx, s.ws.ID, bob.ID)
	s.Require().NoError(err)
	s.Empty(convs)

	convs, err = repo.ListForUser(s.ctx, s.ws.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Require().Len(convs, 1)
	s.Len(convs[0].Participants, 2)
}

func (s *RepositoryTestSuite) TestDueDeliveries() {
	repo := NewWebhookRepository(s.db)
	hook := &models.Webhook{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, URL: "http://example.test", Secret: "s", IsActive: true}
	s.Require().NoError(repo.Create(s.ctx, hook))

	now := time.Now()
	later := now.Add(time.Hour)
	s.Require().NoError(repo.EnqueueDeliveries(s.ctx, []models.WebhookDelivery{
		{WebhookID: hook.ID, WorkspaceID: s.ws.ID, EventID: "a", Event: "task.created", Status: models.DeliveryPending, NextAttemptAt: &now},
		{WebhookID: hook.ID, WorkspaceID: s.ws.ID, EventID: "b", Event: "task.created", Status: models.DeliveryPending, NextAttemptAt: &later},
		{WebhookID: hook.ID, WorkspaceID: s.ws.ID, EventID: "c", Event: "task.created", Status: models.DeliveryPending, Attempts: 5, NextAttemptAt: &now},
		{WebhookID: hook.ID, WorkspaceID: s.ws.ID, EventID: "d", Event: "task.created", Status: models.DeliveryDelivered, NextAttemptAt: &now},
	}))

	due, err := repo.DueDeliveries(s.ctx, now.Add(time.Second), 5, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("a", due[0].EventID)
	s.Require().NotNil(due[0].Webhook)
	s.Equal(hook.URL, due[0].Webhook.URL)
}

func (s *RepositoryTestSuite) TestRecurringDueAndGenerate() {
	repo := NewRecurringRepository(s.db)
	now := time.Now()
	rule := &models.RecurringTask{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, Title: "Standup", Frequency: "daily", Interval: 1, StartDate: now, NextDueDate: now.Add(-time.Minute), IsActive: true}
	s.Require().NoError(repo.Create(s.ctx, rule))
	s.Require().NoError(repo.Create(s.ctx, &models.RecurringTask{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, Title: "Later", Frequency: "daily", Interval: 1, StartDate: now, NextDueDate: now.Add(time.Hour), IsActive: true}))

	due, err := repo.Due(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	task := &models.Task{WorkspaceID: s.ws.ID, CreatorID: s.owner.ID, Title: "Standup", Status: models.TaskStatusTodo}
	rule.NextDueDate = now.Add(24 * time.Hour)
	s.Require().NoError(repo.Generate(s.ctx, rule, task))
	s.NotZero(task.ID)

	due, err = repo.Due(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Empty(due)
}

func TestStore_PropagatesDriverErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	boom := errors.New("connection refused")
	mock.ExpectQuery("SELECT").WillReturnError(boom)

	_, err = NewStore[models.Goal](db).FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrConflict)
	assert.Nil(t, translate(nil))

	other := errors.New("disk full")
	assert.Equal(t, other, translate(other))
}
