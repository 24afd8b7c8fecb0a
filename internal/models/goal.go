package models

import (
	"time"

	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalStatusDraft     GoalStatus = "draft"
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusDraft, GoalStatusActive, GoalStatusCompleted, GoalStatusCancelled:
		return true
	}
	return false
}

type Goal struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID  uint64         `gorm:"not null;index" json:"workspace_id"`
	TeamID       *uint64        `gorm:"index" json:"team_id"`
	OwnerID      uint64         `gorm:"not null;index" json:"owner_id"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Status       GoalStatus     `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	TargetValue  float64        `gorm:"not null;default:0" json:"target_value"`
	CurrentValue float64        `gorm:"not null;default:0" json:"current_value"`
	Unit         string         `gorm:"type:varchar(50)" json:"unit"`
	StartDate    *time.Time     `json:"start_date"`
	DueDate      *time.Time     `json:"due_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner    *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Team     *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Comments []Comment `gorm:"polymorphic:Subject;polymorphicValue:goal" json:"comments,omitempty"`
}

func (g *Goal) EntityRef() Ref { return Ref{Kind: KindGoal, ID: g.ID} }
func (g *Goal) ScopeWorkspaceID() *uint64 { return scope(g.WorkspaceID) }
