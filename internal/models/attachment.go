package models

import "time"

// Attachment metadata. The blob itself lives in object storage under StorageKey.
type Attachment struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	WorkspaceID    uint64     `gorm:"not null;index" json:"workspace_id"`
	AttachableType EntityKind `gorm:"type:varchar(50);not null;index:idx_attachments_attachable" json:"attachable_type"`
	AttachableID   uint64     `gorm:"not null;index:idx_attachments_attachable" json:"attachable_id"`
	UploaderID     uint64     `gorm:"not null" json:"uploader_id"`
	FileName       string     `gorm:"type:varchar(255);not null" json:"file_name"`
	MimeType       string     `gorm:"type:varchar(100);not null" json:"mime_type"`
	Size           int64      `gorm:"not null" json:"size"`
	StorageKey     string     `gorm:"type:varchar(512);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time  `json:"created_at"`

	// Relations
	Uploader *User `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
}

func (a *Attachment) EntityRef() Ref { return Ref{Kind: KindAttachment, ID: a.ID} }
func (a *Attachment) ScopeWorkspaceID() *uint64 { return scope(a.WorkspaceID) }
func (a *Attachment) MorphRef() Ref { return Ref{Kind: a.AttachableType, ID: a.AttachableID} }
