package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID uint64         `gorm:"not null;index" json:"workspace_id"`
	TeamID      *uint64        `gorm:"index" json:"team_id"`
	OwnerID     uint64         `gorm:"not null" json:"owner_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Status      ProjectStatus  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner     *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Team      *Team      `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Tasks     []Task     `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
	Pipelines []Pipeline `gorm:"foreignKey:ProjectID" json:"pipelines,omitempty"`
}

func (p *Project) EntityRef() Ref { return Ref{Kind: KindProject, ID: p.ID} }
func (p *Project) ScopeWorkspaceID() *uint64 { return scope(p.WorkspaceID) }
