package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID               uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID      uint64         `gorm:"not null;index" json:"workspace_id"`
	ProjectID        *uint64        `gorm:"index" json:"project_id"`
	ParentID         *uint64        `gorm:"index" json:"parent_id"`
	CreatorID        uint64         `gorm:"not null;index" json:"creator_id"`
	AssigneeID       *uint64        `gorm:"index" json:"assignee_id"`
	Title            string         `gorm:"not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	Status           TaskStatus     `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	DueDate          *time.Time     `gorm:"index" json:"due_date"`
	CompletedAt      *time.Time     `json:"completed_at"`
	TimeSpentSeconds int64          `gorm:"not null;default:0" json:"time_spent_seconds"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator      *User            `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee     *User            `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Workspace    *Workspace       `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Project      *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Parent       *Task            `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children     []Task           `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	TaskTags     []TaskTag        `gorm:"foreignKey:TaskID" json:"tags,omitempty"`
	Pipelines    []TaskPipeline   `gorm:"foreignKey:TaskID" json:"pipelines,omitempty"`
	Dependencies []TaskDependency `gorm:"foreignKey:TaskID" json:"dependencies,omitempty"`
	Dependents   []TaskDependency `gorm:"foreignKey:DependsOnID" json:"dependents,omitempty"`
	Comments     []Comment        `gorm:"polymorphic:Subject;polymorphicValue:task" json:"comments,omitempty"`
	Attachments  []Attachment     `gorm:"polymorphic:Attachable;polymorphicValue:task" json:"attachments,omitempty"`
}

func (t *Task) EntityRef() Ref { return Ref{Kind: KindTask, ID: t.ID} }
func (t *Task) ScopeWorkspaceID() *uint64 { return scope(t.WorkspaceID) }
func (t *Task) ParentKey() *uint64 { return copyID(t.ParentID) }
func (t *Task) Label() string { return t.Title }

// IsOverdue reports whether an unfinished task has passed its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != TaskStatusDone && t.DueDate.Before(now)
}

type DependencyType string

const (
	DependencyBlocks    DependencyType = "blocks"
	DependencyRelatesTo DependencyType = "relates_to"
)

// TaskDependency is a directed edge: TaskID depends on DependsOnID.
type TaskDependency struct {
	TaskID      uint64         `gorm:"primarykey" json:"task_id"`
	DependsOnID uint64         `gorm:"primarykey;index" json:"depends_on_id"`
	Type        DependencyType `gorm:"type:varchar(20);not null;default:'blocks'" json:"type"`
	CreatedAt   time.Time      `json:"created_at"`

	// Relations
	Task      *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	DependsOn *Task `gorm:"foreignKey:DependsOnID" json:"depends_on,omitempty"`
}

// TaskTag is the task/tag pivot.
type TaskTag struct {
	TaskID    uint64    `gorm:"primarykey" json:"task_id"`
	TagID     uint64    `gorm:"primarykey;index" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Tag  *Tag  `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}

type Tag struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;uniqueIndex:idx_tags_workspace_name" json:"workspace_id"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_tags_workspace_name" json:"name"`
	Color       string    `gorm:"type:varchar(20)" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *Tag) EntityRef() Ref { return Ref{Kind: KindTag, ID: t.ID} }
func (t *Tag) ScopeWorkspaceID() *uint64 { return scope(t.WorkspaceID) }
