package models

import "time"

// Setting is a key/value pair scoped to a workspace, or global when
// WorkspaceID is nil. System settings are seeded and cannot be deleted.
type Setting struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID *uint64   `gorm:"uniqueIndex:idx_settings_scope_key" json:"workspace_id"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_settings_scope_key" json:"key"`
	Value       string    `gorm:"type:text" json:"value"`
	IsSecret    bool      `gorm:"not null;default:false" json:"is_secret"`
	IsSystem    bool      `gorm:"not null;default:false" json:"is_system"`
	UpdatedByID *uint64   `json:"updated_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Setting) EntityRef() Ref { return Ref{Kind: KindSetting, ID: s.ID} }
func (s *Setting) ScopeWorkspaceID() *uint64 { return copyID(s.WorkspaceID) }
