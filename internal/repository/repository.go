package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// ErrConflict is returned when a write would duplicate a unique key, such as
// a second row for the same pivot pair.
var ErrConflict = errors.New("record already exists")

// translate maps store errors onto the repository taxonomy. Anything else is
// returned untouched so callers can still match driver errors.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithPersonalWorkspace creates a user, their personal workspace,
	// and the owner membership within a single transaction.
	CreateWithPersonalWorkspace(ctx context.Context, user *models.User, ws *models.Workspace, member *models.WorkspaceMember) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindWithMemberships loads a user with every workspace membership and
	// its workspace.
	FindWithMemberships(ctx context.Context, id uint64) (*models.User, error)

	// UpdatePasswordHash replaces the stored hash.
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
}

// WorkspaceRepository defines the interface for workspace, membership and
// team data access
type WorkspaceRepository interface {
	// Create creates a workspace together with its owner membership
	Create(ctx context.Context, ws *models.Workspace, owner *models.WorkspaceMember) error

	FindByID(ctx context.Context, id uint64) (*models.Workspace, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Workspace, error)
	Update(ctx context.Context, ws *models.Workspace) error

	// Delete deletes a workspace and all related data
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member; a second membership for the same user is ErrConflict
	AddMember(ctx context.Context, member *models.WorkspaceMember) error
	UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.Role) error
	RemoveMember(ctx context.Context, workspaceID, userID uint64) error
	FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error)
	CountByRole(ctx context.Context, workspaceID uint64, role models.Role) (int64, error)

	// ListMembersByUserID lists all workspaces a user is a member of
	ListMembersByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error)

	// ListMembers lists all members of a workspace
	ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error)

	CreateTeam(ctx context.Context, team *models.Team, lead *models.TeamMember) error
	FindTeam(ctx context.Context, id uint64) (*models.Team, error)
	ListTeams(ctx context.Context, workspaceID uint64) ([]models.Team, error)
	AddTeamMember(ctx context.Context, member *models.TeamMember) error
	RemoveTeamMember(ctx context.Context, teamID, userID uint64) error
	ListTeamMembershipsByUserID(ctx context.Context, userID uint64) ([]models.TeamMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes the tasks and drops their pivot rows
	Delete(ctx context.Context, ids []uint64) error

	// AddTag links a tag; linking the same tag twice is ErrConflict
	AddTag(ctx context.Context, link *models.TaskTag) error
	RemoveTag(ctx context.Context, taskID, tagID uint64) error

	// AddDependency stores an edge; a repeated edge is ErrConflict
	AddDependency(ctx context.Context, dep *models.TaskDependency) error
	RemoveDependency(ctx context.Context, taskID, dependsOnID uint64) error

	// DependencyEdges returns every blocking edge between tasks of a workspace
	DependencyEdges(ctx context.Context, workspaceID uint64) ([]models.TaskDependency, error)

	// PlaceInPipeline inserts or moves the task within a pipeline
	PlaceInPipeline(ctx context.Context, placement *models.TaskPipeline) error

	// CountMembersByIDs counts how many of the given user IDs belong to the workspace
	CountMembersByIDs(ctx context.Context, userIDs []uint64, workspaceID uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	WorkspaceIDs  []uint64
	ProjectID     *uint64
	ParentID      *uint64
	RootOnly      bool
	Status        *models.TaskStatus
	CreatorID     *uint64
	AssigneeID    *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}
