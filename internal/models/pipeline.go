package models

import "time"

type Pipeline struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;index" json:"workspace_id"`
	ProjectID   *uint64   `gorm:"index" json:"project_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Statuses []PipelineStatus `gorm:"foreignKey:PipelineID" json:"statuses,omitempty"`
}

func (p *Pipeline) EntityRef() Ref { return Ref{Kind: KindPipeline, ID: p.ID} }
func (p *Pipeline) ScopeWorkspaceID() *uint64 { return scope(p.WorkspaceID) }

type PipelineStatus struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	PipelineID  uint64    `gorm:"not null;index" json:"pipeline_id"`
	WorkspaceID uint64    `gorm:"not null;index" json:"workspace_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Color       string    `gorm:"type:varchar(20)" json:"color"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Pipeline *Pipeline `gorm:"foreignKey:PipelineID" json:"pipeline,omitempty"`
}

func (s *PipelineStatus) EntityRef() Ref { return Ref{Kind: KindPipelineStatus, ID: s.ID} }
func (s *PipelineStatus) ScopeWorkspaceID() *uint64 { return scope(s.WorkspaceID) }

// TaskPipeline places a task on a pipeline board. The column is named "order"
// for compatibility with existing clients; always refer to it through gorm so
// it gets quoted.
type TaskPipeline struct {
	TaskID     uint64    `gorm:"primarykey" json:"task_id"`
	PipelineID uint64    `gorm:"primarykey;index" json:"pipeline_id"`
	StatusID   uint64    `gorm:"not null;index" json:"status_id"`
	Order      int       `gorm:"column:order;not null;default:0" json:"order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Task     *Task           `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Pipeline *Pipeline       `gorm:"foreignKey:PipelineID" json:"pipeline,omitempty"`
	Status   *PipelineStatus `gorm:"foreignKey:StatusID" json:"status,omitempty"`
}
