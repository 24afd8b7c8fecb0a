// Package testutil builds in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// NewDB returns a migrated in-memory SQLite database. The pool is pinned to a
// single connection so every query sees the same memory database; code under
// test must use the transaction handle inside Transaction callbacks.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreateUser inserts a user with a unique username derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     fmt.Sprintf("%s-%d", name, seq.Add(1)),
		PasswordHash: "hashedpassword",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateWorkspace inserts a workspace owned by owner, including the owner
// membership row.
func CreateWorkspace(t testing.TB, db *gorm.DB, name string, owner *models.User) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{
		Name:       name,
		InviteCode: fmt.Sprintf("CODE-%d", seq.Add(1)),
		OwnerID:    owner.ID,
	}
	require.NoError(t, db.Create(ws).Error)
	AddMember(t, db, ws, owner, models.RoleOwner)
	return ws
}

// AddMember inserts a workspace membership.
func AddMember(t testing.TB, db *gorm.DB, ws *models.Workspace, user *models.User, role models.Role) {
	t.Helper()
	require.NoError(t, db.Create(&models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      user.ID,
		Role:        role,
		JoinedAt:    time.Now(),
	}).Error)
}

// CreateTask inserts a root task.
func CreateTask(t testing.TB, db *gorm.DB, ws *models.Workspace, creator *models.User, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		WorkspaceID: ws.ID,
		CreatorID:   creator.ID,
		Title:       title,
		Status:      models.TaskStatusTodo,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// CreateWiki inserts a wiki page under parentID (nil for a root page).
func CreateWiki(t testing.TB, db *gorm.DB, ws *models.Workspace, author *models.User, title string, parentID *uint64) *models.Wiki {
	t.Helper()
	wiki := &models.Wiki{
		WorkspaceID: ws.ID,
		AuthorID:    author.ID,
		ParentID:    parentID,
		Title:       title,
		Slug:        fmt.Sprintf("page-%d", seq.Add(1)),
	}
	require.NoError(t, db.Create(wiki).Error)
	return wiki
}
