package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the user-facing feed of what happened to a subject.
type ActivityLog struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID *uint64        `gorm:"index" json:"workspace_id"`
	UserID      *uint64        `gorm:"index" json:"user_id"`
	SubjectType EntityKind     `gorm:"type:varchar(50);not null;index:idx_activity_subject" json:"subject_type"`
	SubjectID   uint64         `gorm:"not null;index:idx_activity_subject" json:"subject_id"`
	Action      string         `gorm:"type:varchar(50);not null" json:"action"`
	Description string         `gorm:"type:varchar(255)" json:"description"`
	OldValues   datatypes.JSON `json:"old_values"`
	NewValues   datatypes.JSON `json:"new_values"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent   string         `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *ActivityLog) EntityRef() Ref { return Ref{Kind: KindActivityLog, ID: a.ID} }
func (a *ActivityLog) ScopeWorkspaceID() *uint64 { return copyID(a.WorkspaceID) }
func (a *ActivityLog) MorphRef() Ref { return Ref{Kind: a.SubjectType, ID: a.SubjectID} }

// AuditLog is the compliance trail of data changes.
type AuditLog struct {
	ID            uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID   *uint64        `gorm:"index" json:"workspace_id"`
	UserID        *uint64        `gorm:"index" json:"user_id"`
	Event         string         `gorm:"type:varchar(50);not null" json:"event"`
	AuditableType EntityKind     `gorm:"type:varchar(50);not null;index:idx_audit_auditable" json:"auditable_type"`
	AuditableID   uint64         `gorm:"not null;index:idx_audit_auditable" json:"auditable_id"`
	OldValues     datatypes.JSON `json:"old_values"`
	NewValues     datatypes.JSON `json:"new_values"`
	URL           string         `gorm:"type:varchar(2048)" json:"url"`
	IPAddress     string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent     string         `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *AuditLog) EntityRef() Ref { return Ref{Kind: KindAuditLog, ID: a.ID} }
func (a *AuditLog) ScopeWorkspaceID() *uint64 { return copyID(a.WorkspaceID) }
func (a *AuditLog) MorphRef() Ref { return Ref{Kind: a.AuditableType, ID: a.AuditableID} }
