package models

import (
	"time"

	"gorm.io/gorm"
)

type Wiki struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID uint64         `gorm:"not null;uniqueIndex:idx_wikis_workspace_slug" json:"workspace_id"`
	ProjectID   *uint64        `gorm:"index" json:"project_id"`
	ParentID    *uint64        `gorm:"index" json:"parent_id"`
	AuthorID    uint64         `gorm:"not null" json:"author_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_wikis_workspace_slug" json:"slug"`
	Content     string         `gorm:"type:text" json:"content"`
	IsPublished bool           `gorm:"not null;default:false" json:"is_published"`
	Position    int            `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Author      *User        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Parent      *Wiki        `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children    []Wiki       `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Comments    []Comment    `gorm:"polymorphic:Subject;polymorphicValue:wiki" json:"comments,omitempty"`
	Attachments []Attachment `gorm:"polymorphic:Attachable;polymorphicValue:wiki" json:"attachments,omitempty"`
}

func (w *Wiki) EntityRef() Ref { return Ref{Kind: KindWiki, ID: w.ID} }
func (w *Wiki) ScopeWorkspaceID() *uint64 { return scope(w.WorkspaceID) }
func (w *Wiki) ParentKey() *uint64 { return copyID(w.ParentID) }
func (w *Wiki) Label() string { return w.Title }
