package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserPreference stores one JSON value per (user_id, key).
type UserPreference struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	UserID    uint64         `gorm:"not null;uniqueIndex:idx_user_preferences_user_key" json:"user_id"`
	Key       string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_preferences_user_key" json:"key"`
	Value     datatypes.JSON `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (p *UserPreference) EntityRef() Ref { return Ref{Kind: KindUserPreference, ID: p.ID} }
func (p *UserPreference) ScopeWorkspaceID() *uint64 { return nil }
