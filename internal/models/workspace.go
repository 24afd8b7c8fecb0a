package models

import (
	"time"

	"gorm.io/gorm"
)

type Workspace struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	InviteCode string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	OwnerID    uint64         `gorm:"not null;index" json:"owner_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner    *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Teams    []Team            `gorm:"foreignKey:WorkspaceID" json:"teams,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects,omitempty"`
}

func (w *Workspace) EntityRef() Ref { return Ref{Kind: KindWorkspace, ID: w.ID} }
func (w *Workspace) ScopeWorkspaceID() *uint64 { return scope(w.ID) }

// WorkspaceMember is the workspace/user pivot. The composite primary key keeps
// (workspace_id, user_id) unique.
type WorkspaceMember struct {
	WorkspaceID uint64    `gorm:"primarykey" json:"workspace_id"`
	UserID      uint64    `gorm:"primarykey;index" json:"user_id"`
	Role        Role      `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt    time.Time `json:"joined_at"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
