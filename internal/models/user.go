package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	IsAdmin      bool           `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Memberships     []WorkspaceMember `gorm:"foreignKey:UserID" json:"-"`
	TeamMemberships []TeamMember      `gorm:"foreignKey:UserID" json:"-"`
	AssignedTasks   []Task            `gorm:"foreignKey:AssigneeID" json:"-"`
}

func (u *User) EntityRef() Ref { return Ref{Kind: KindUser, ID: u.ID} }
func (u *User) ScopeWorkspaceID() *uint64 { return nil }

// SharesWorkspace reports whether the preloaded memberships include workspaceID.
func (u *User) SharesWorkspace(workspaceID uint64) bool {
	for _, m := range u.Memberships {
		if m.WorkspaceID == workspaceID {
			return true
		}
	}
	return false
}
