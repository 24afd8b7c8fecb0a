package models

import "time"

type Team struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;index" json:"workspace_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Workspace *Workspace   `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Members   []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Projects  []Project    `gorm:"foreignKey:TeamID" json:"projects,omitempty"`
}

func (t *Team) EntityRef() Ref { return Ref{Kind: KindTeam, ID: t.ID} }
func (t *Team) ScopeWorkspaceID() *uint64 { return scope(t.WorkspaceID) }

// TeamMember is the team/user pivot.
type TeamMember struct {
	TeamID   uint64    `gorm:"primarykey" json:"team_id"`
	UserID   uint64    `gorm:"primarykey;index" json:"user_id"`
	Role     Role      `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
