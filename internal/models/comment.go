package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment threads hang off a subject (task, wiki, goal) and may reply to
// another comment on the same subject.
type Comment struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID uint64         `gorm:"not null;index" json:"workspace_id"`
	SubjectType EntityKind     `gorm:"type:varchar(50);not null;index:idx_comments_subject" json:"subject_type"`
	SubjectID   uint64         `gorm:"not null;index:idx_comments_subject" json:"subject_id"`
	ParentID    *uint64        `gorm:"index" json:"parent_id"`
	AuthorID    uint64         `gorm:"not null" json:"author_id"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	EditedAt    *time.Time     `json:"edited_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Parent    *Comment   `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Replies   []Comment  `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	Reactions []Reaction `gorm:"polymorphic:Reactable;polymorphicValue:comment" json:"reactions,omitempty"`
	Mentions  []Mention  `gorm:"polymorphic:Mentionable;polymorphicValue:comment" json:"mentions,omitempty"`
}

func (c *Comment) EntityRef() Ref { return Ref{Kind: KindComment, ID: c.ID} }
func (c *Comment) ScopeWorkspaceID() *uint64 { return scope(c.WorkspaceID) }
func (c *Comment) ParentKey() *uint64 { return copyID(c.ParentID) }
func (c *Comment) MorphRef() Ref { return Ref{Kind: c.SubjectType, ID: c.SubjectID} }

// Label is the first line of the body, shortened for breadcrumbs.
func (c *Comment) Label() string {
	const maxLen = 40
	body := []rune(c.Body)
	for i, r := range body {
		if r == '\n' {
			body = body[:i]
			break
		}
	}
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}

type Reaction struct {
	ID            uint64     `gorm:"primarykey" json:"id"`
	WorkspaceID   uint64     `gorm:"not null;index" json:"workspace_id"`
	ReactableType EntityKind `gorm:"type:varchar(50);not null;uniqueIndex:idx_reactions_unique" json:"reactable_type"`
	ReactableID   uint64     `gorm:"not null;uniqueIndex:idx_reactions_unique" json:"reactable_id"`
	UserID        uint64     `gorm:"not null;uniqueIndex:idx_reactions_unique" json:"user_id"`
	Type          string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_reactions_unique" json:"type"`
	CreatedAt     time.Time  `json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *Reaction) EntityRef() Ref { return Ref{Kind: KindReaction, ID: r.ID} }
func (r *Reaction) ScopeWorkspaceID() *uint64 { return scope(r.WorkspaceID) }
func (r *Reaction) MorphRef() Ref { return Ref{Kind: r.ReactableType, ID: r.ReactableID} }

type Mention struct {
	ID              uint64     `gorm:"primarykey" json:"id"`
	WorkspaceID     uint64     `gorm:"not null;index" json:"workspace_id"`
	MentionableType EntityKind `gorm:"type:varchar(50);not null;index:idx_mentions_mentionable" json:"mentionable_type"`
	MentionableID   uint64     `gorm:"not null;index:idx_mentions_mentionable" json:"mentionable_id"`
	UserID          uint64     `gorm:"not null;index" json:"user_id"`
	MentionedByID   uint64     `gorm:"not null" json:"mentioned_by_id"`
	IsRead          bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt          *time.Time `json:"read_at"`
	CreatedAt       time.Time  `json:"created_at"`

	// Relations
	User        *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MentionedBy *User `gorm:"foreignKey:MentionedByID" json:"mentioned_by,omitempty"`
}

func (m *Mention) EntityRef() Ref { return Ref{Kind: KindMention, ID: m.ID} }
func (m *Mention) ScopeWorkspaceID() *uint64 { return scope(m.WorkspaceID) }
func (m *Mention) MorphRef() Ref { return Ref{Kind: m.MentionableType, ID: m.MentionableID} }
