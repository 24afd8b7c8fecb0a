package repository

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	if len(filter.WorkspaceIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.workspace_id IN ?", filter.WorkspaceIDs)

	// Apply filters
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.ParentID != nil {
		query = query.Where("tasks.parent_id = ?", *filter.ParentID)
	} else if filter.RootOnly {
		query = query.Where("tasks.parent_id IS NULL")
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.CreatorID != nil {
		query = query.Where("tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC").Order("tasks.id DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(pageScope(filter.Page, filter.PageSize))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error)
}

// Delete soft deletes the tasks and removes their pivot rows
func (r *GormTaskRepository) Delete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskPipeline{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN ? OR depends_on_id IN ?", ids, ids).Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, ids).Error
	})
}

// AddTag links a tag to a task
func (r *GormTaskRepository) AddTag(ctx context.Context, link *models.TaskTag) error {
	return translate(r.db.WithContext(ctx).Create(link).Error)
}

// RemoveTag unlinks a tag from a task
func (r *GormTaskRepository) RemoveTag(ctx context.Context, taskID, tagID uint64) error {
	return deleteOne(r.db.WithContext(ctx).Where("task_id = ? AND tag_id = ?", taskID, tagID), &models.TaskTag{})
}

// AddDependency stores a dependency edge
func (r *GormTaskRepository) AddDependency(ctx context.Context, dep *models.TaskDependency) error {
	return translate(r.db.WithContext(ctx).Create(dep).Error)
}

// RemoveDependency removes a dependency edge
func (r *GormTaskRepository) RemoveDependency(ctx context.Context, taskID, dependsOnID uint64) error {
	return deleteOne(r.db.WithContext(ctx).Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID), &models.TaskDependency{})
}

// DependencyEdges lists the blocking edges between live tasks of a workspace
func (r *GormTaskRepository) DependencyEdges(ctx context.Context, workspaceID uint64) ([]models.TaskDependency, error) {
	var edges []models.TaskDependency
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = task_dependencies.task_id AND tasks.deleted_at IS NULL").
		Where("tasks.workspace_id = ? AND task_dependencies.type = ?", workspaceID, models.DependencyBlocks).
		Find(&edges).Error
	return edges, err
}

// PlaceInPipeline inserts the placement, or moves the task if it is already on the pipeline
func (r *GormTaskRepository) PlaceInPipeline(ctx context.Context, placement *models.TaskPipeline) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "pipeline_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status_id", "order", "updated_at"}),
		}).
		Create(placement).Error
}

// CountMembersByIDs counts how many of the given user IDs are members of the workspace
func (r *GormTaskRepository) CountMembersByIDs(ctx context.Context, userIDs []uint64, workspaceID uint64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN workspace_members ON users.id = workspace_members.user_id").
		Where("workspace_members.workspace_id = ? AND users.id IN ?", workspaceID, userIDs).
		Count(&count).Error

	return count, err
}

func deleteOne(query *gorm.DB, model interface{}) error {
	result := query.Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
