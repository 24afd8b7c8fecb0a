package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               uint64            `json:"id"`
	WorkspaceID      uint64            `json:"workspace_id"`
	ProjectID        *uint64           `json:"project_id"`
	ParentID         *uint64           `json:"parent_id"`
	CreatorID        uint64            `json:"creator_id"`
	AssigneeID       *uint64           `json:"assignee_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Status           models.TaskStatus `json:"status"`
	DueDate          *time.Time        `json:"due_date"`
	CompletedAt      *time.Time        `json:"completed_at"`
	TimeSpentSeconds int64             `json:"time_spent_seconds"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	IsOverdue          bool             `json:"is_overdue"`
	IsRoot             bool             `json:"is_root"`
	TimeAgo            string           `json:"time_ago"`
	TimeSpentFormatted string           `json:"time_spent_formatted"`
	FullPath           Optional[string] `json:"full_path,omitzero"`
	Depth              Optional[int]    `json:"depth,omitzero"`

	Creator      Optional[*UserDTO]            `json:"creator,omitzero"`
	Assignee     Optional[*UserDTO]            `json:"assignee,omitzero"`
	Workspace    Optional[*WorkspaceDTO]       `json:"workspace,omitzero"`
	Project      Optional[*ProjectDTO]         `json:"project,omitzero"`
	Parent       Optional[*TaskListItemDTO]    `json:"parent,omitzero"`
	Children     Optional[[]TaskListItemDTO]   `json:"children,omitzero"`
	Tags         Optional[[]TaskTagDTO]        `json:"tags,omitzero"`
	Pipelines    Optional[[]TaskPipelineDTO]   `json:"pipelines,omitzero"`
	Dependencies Optional[[]TaskDependencyDTO] `json:"dependencies,omitzero"`
	Dependents   Optional[[]TaskDependencyDTO] `json:"dependents,omitzero"`
	Comments     Optional[[]CommentDTO]        `json:"comments,omitzero"`
	Attachments  Optional[[]AttachmentDTO]     `json:"attachments,omitzero"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID          uint64            `json:"id"`
	WorkspaceID uint64            `json:"workspace_id"`
	ParentID    *uint64           `json:"parent_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"due_date"`
	CreatorID   uint64            `json:"creator_id"`
	AssigneeID  *uint64           `json:"assignee_id"`
	IsOverdue   bool              `json:"is_overdue"`
	Creator     *UserDTO          `json:"creator,omitempty"`
	Assignee    *UserDTO          `json:"assignee,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO `json:"tasks"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// TagDTO represents a tag in API responses
type TagDTO struct {
	ID          uint64 `json:"id"`
	WorkspaceID uint64 `json:"workspace_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
}

// TaskTagDTO is a tag annotated with when it was attached to the task
type TaskTagDTO struct {
	TagDTO
	AttachedAt time.Time `json:"attached_at"`
}

// TaskPipelineDTO is a pipeline annotated with the task's placement in it
type TaskPipelineDTO struct {
	PipelineDTO
	StatusID uint64             `json:"status_id"`
	Order    int                `json:"order"`
	Status   *PipelineStatusDTO `json:"status"`
}

// TaskDependencyDTO is the task on the other side of a dependency edge
type TaskDependencyDTO struct {
	ID        uint64                `json:"id"`
	Title     string                `json:"title"`
	Status    models.TaskStatus     `json:"status"`
	Type      models.DependencyType `json:"type"`
	CreatedAt time.Time             `json:"created_at"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task *models.Task, loaded graph.Loaded, pc Context) TaskDTO {
	now := pc.now()
	return TaskDTO{
		ID:                 task.ID,
		WorkspaceID:        task.WorkspaceID,
		ProjectID:          task.ProjectID,
		ParentID:           task.ParentID,
		CreatorID:          task.CreatorID,
		AssigneeID:         task.AssigneeID,
		Title:              task.Title,
		Description:        task.Description,
		Status:             task.Status,
		DueDate:            task.DueDate,
		CompletedAt:        task.CompletedAt,
		TimeSpentSeconds:   task.TimeSpentSeconds,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
		IsOverdue:          task.IsOverdue(now),
		IsRoot:             graph.IsRoot(task),
		TimeAgo:            TimeAgo(task.CreatedAt, now),
		TimeSpentFormatted: FormatDuration(time.Duration(task.TimeSpentSeconds) * time.Second),

		Creator:   whenLoaded(loaded, "creator", func() *UserDTO { return userOrNil(task.Creator) }),
		Assignee:  whenLoaded(loaded, "assignee", func() *UserDTO { return userOrNil(task.Assignee) }),
		Workspace: whenLoaded(loaded, "workspace", func() *WorkspaceDTO { return workspaceOrNil(task.Workspace) }),
		Project: whenLoaded(loaded, "project", func() *ProjectDTO {
			if task.Project == nil {
				return nil
			}
			d := ToProjectDTO(task.Project, nil, pc)
			return &d
		}),
		Parent: whenLoaded(loaded, "parent", func() *TaskListItemDTO {
			if task.Parent == nil {
				return nil
			}
			d := ToTaskListItemDTO(task.Parent, now)
			return &d
		}),
		Children: whenLoaded(loaded, "children", func() []TaskListItemDTO {
			return mapSlice(task.Children, func(t *models.Task) TaskListItemDTO { return ToTaskListItemDTO(t, now) })
		}),
		Tags: whenLoaded(loaded, "tags", func() []TaskTagDTO {
			return mapSlice(task.TaskTags, toTaskTagDTO)
		}),
		Pipelines: whenLoaded(loaded, "pipelines", func() []TaskPipelineDTO {
			return mapSlice(task.Pipelines, toTaskPipelineDTO)
		}),
		Dependencies: whenLoaded(loaded, "dependencies", func() []TaskDependencyDTO {
			return mapSlice(task.Dependencies, func(d *models.TaskDependency) TaskDependencyDTO {
				return toTaskDependencyDTO(d, d.DependsOnID, d.DependsOn)
			})
		}),
		Dependents: whenLoaded(loaded, "dependents", func() []TaskDependencyDTO {
			return mapSlice(task.Dependents, func(d *models.TaskDependency) TaskDependencyDTO {
				return toTaskDependencyDTO(d, d.TaskID, d.Task)
			})
		}),
		Comments: whenLoaded(loaded, "comments", func() []CommentDTO {
			return mapSlice(task.Comments, func(c *models.Comment) CommentDTO {
				return ToCommentDTO(c, graph.NewLoaded("author"), pc)
			})
		}),
		Attachments: whenLoaded(loaded, "attachments", func() []AttachmentDTO {
			return mapSlice(task.Attachments, func(a *models.Attachment) AttachmentDTO { return ToAttachmentDTO(a, nil) })
		}),
	}
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO. Creator and
// assignee are included when preloaded.
func ToTaskListItemDTO(task *models.Task, now time.Time) TaskListItemDTO {
	return TaskListItemDTO{
		ID:          task.ID,
		WorkspaceID: task.WorkspaceID,
		ParentID:    task.ParentID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		IsOverdue:   task.IsOverdue(now),
		Creator:     userOrNil(task.Creator),
		Assignee:    userOrNil(task.Assignee),
		CreatedAt:   task.CreatedAt,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64, now time.Time) TaskListResponse {
	return TaskListResponse{
		Tasks: mapSlice(tasks, func(t *models.Task) TaskListItemDTO {
			return ToTaskListItemDTO(t, now)
		}),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

func ToTagDTO(tag *models.Tag) TagDTO {
	return TagDTO{
		ID:          tag.ID,
		WorkspaceID: tag.WorkspaceID,
		Name:        tag.Name,
		Color:       tag.Color,
	}
}

func toTaskTagDTO(tt *models.TaskTag) TaskTagDTO {
	d := TaskTagDTO{TagDTO: TagDTO{ID: tt.TagID}, AttachedAt: tt.CreatedAt}
	if tt.Tag != nil {
		d.TagDTO = ToTagDTO(tt.Tag)
	}
	return d
}

func toTaskPipelineDTO(tp *models.TaskPipeline) TaskPipelineDTO {
	d := TaskPipelineDTO{
		PipelineDTO: PipelineDTO{ID: tp.PipelineID},
		StatusID:    tp.StatusID,
		Order:       tp.Order,
	}
	if tp.Pipeline != nil {
		d.PipelineDTO = ToPipelineDTO(tp.Pipeline, nil)
	}
	if tp.Status != nil {
		s := ToPipelineStatusDTO(tp.Status, nil)
		d.Status = &s
	}
	return d
}

func toTaskDependencyDTO(dep *models.TaskDependency, otherID uint64, other *models.Task) TaskDependencyDTO {
	d := TaskDependencyDTO{ID: otherID, Type: dep.Type, CreatedAt: dep.CreatedAt}
	if other != nil {
		d.Title = other.Title
		d.Status = other.Status
	}
	return d
}
