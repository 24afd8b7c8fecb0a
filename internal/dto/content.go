package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

// GoalDTO represents a goal with its computed progress
type GoalDTO struct {
	ID           uint64            `json:"id"`
	WorkspaceID  uint64            `json:"workspace_id"`
	TeamID       *uint64           `json:"team_id"`
	OwnerID      uint64            `json:"owner_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       models.GoalStatus `json:"status"`
	TargetValue  float64           `json:"target_value"`
	CurrentValue float64           `json:"current_value"`
	Unit         string            `json:"unit"`
	Progress     float64           `json:"progress"`
	StartDate    *time.Time        `json:"start_date"`
	DueDate      *time.Time        `json:"due_date"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	Owner    Optional[*UserDTO]     `json:"owner,omitzero"`
	Team     Optional[*TeamDTO]     `json:"team,omitzero"`
	Comments Optional[[]CommentDTO] `json:"comments,omitzero"`
}

// WikiDTO represents a wiki page
type WikiDTO struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id"`
	ProjectID   *uint64   `json:"project_id"`
	ParentID    *uint64   `json:"parent_id"`
	AuthorID    uint64    `json:"author_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	IsPublished bool      `json:"is_published"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	IsRoot   bool             `json:"is_root"`
	FullPath Optional[string] `json:"full_path,omitzero"`
	Depth    Optional[int]    `json:"depth,omitzero"`

	Author      Optional[*UserDTO]         `json:"author,omitzero"`
	Parent      Optional[*WikiSummaryDTO]  `json:"parent,omitzero"`
	Children    Optional[[]WikiSummaryDTO] `json:"children,omitzero"`
	Comments    Optional[[]CommentDTO]     `json:"comments,omitzero"`
	Attachments Optional[[]AttachmentDTO]  `json:"attachments,omitzero"`
}

// WikiSummaryDTO is a wiki page without its content
type WikiSummaryDTO struct {
	ID       uint64  `json:"id"`
	ParentID *uint64 `json:"parent_id"`
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Position int     `json:"position"`
}

// CommentDTO represents a comment on any commentable record
type CommentDTO struct {
	ID          uint64            `json:"id"`
	WorkspaceID uint64            `json:"workspace_id"`
	SubjectType models.EntityKind `json:"subject_type"`
	SubjectID   uint64            `json:"subject_id"`
	ParentID    *uint64           `json:"parent_id"`
	AuthorID    uint64            `json:"author_id"`
	Body        string            `json:"body"`
	IsEdited    bool              `json:"is_edited"`
	EditedAt    *time.Time        `json:"edited_at"`
	CreatedAt   time.Time         `json:"created_at"`
	TimeAgo     string            `json:"time_ago"`
	IsRoot      bool              `json:"is_root"`
	FullPath    Optional[string]  `json:"full_path,omitzero"`
	Depth       Optional[int]     `json:"depth,omitzero"`

	Author    Optional[*UserDTO]      `json:"author,omitzero"`
	Parent    Optional[*CommentDTO]   `json:"parent,omitzero"`
	Replies   Optional[[]CommentDTO]  `json:"replies,omitzero"`
	Reactions Optional[[]ReactionDTO] `json:"reactions,omitzero"`
	Mentions  Optional[[]MentionDTO]  `json:"mentions,omitzero"`
	Subject   Optional[any]           `json:"subject,omitzero"`
}

type AttachmentDTO struct {
	ID             uint64            `json:"id"`
	WorkspaceID    uint64            `json:"workspace_id"`
	AttachableType models.EntityKind `json:"attachable_type"`
	AttachableID   uint64            `json:"attachable_id"`
	UploaderID     uint64            `json:"uploader_id"`
	FileName       string            `json:"file_name"`
	MimeType       string            `json:"mime_type"`
	Size           int64             `json:"size"`
	SizeFormatted  string            `json:"size_formatted"`
	CreatedAt      time.Time         `json:"created_at"`
	DownloadURL    string            `json:"download_url,omitempty"`

	Uploader Optional[*UserDTO] `json:"uploader,omitzero"`
	Subject  Optional[any]      `json:"subject,omitzero"`
}

type ReactionDTO struct {
	ID            uint64            `json:"id"`
	ReactableType models.EntityKind `json:"reactable_type"`
	ReactableID   uint64            `json:"reactable_id"`
	UserID        uint64            `json:"user_id"`
	Type          string            `json:"type"`
	CreatedAt     time.Time         `json:"created_at"`

	User    Optional[*UserDTO] `json:"user,omitzero"`
	Subject Optional[any]      `json:"subject,omitzero"`
}

type MentionDTO struct {
	ID              uint64            `json:"id"`
	MentionableType models.EntityKind `json:"mentionable_type"`
	MentionableID   uint64            `json:"mentionable_id"`
	UserID          uint64            `json:"user_id"`
	MentionedByID   uint64            `json:"mentioned_by_id"`
	IsRead          bool              `json:"is_read"`
	ReadAt          *time.Time        `json:"read_at"`
	CreatedAt       time.Time         `json:"created_at"`

	User        Optional[*UserDTO] `json:"user,omitzero"`
	MentionedBy Optional[*UserDTO] `json:"mentioned_by,omitzero"`
	Subject     Optional[any]      `json:"subject,omitzero"`
}

func ToGoalDTO(g *models.Goal, loaded graph.Loaded, pc Context) GoalDTO {
	return GoalDTO{
		ID:           g.ID,
		WorkspaceID:  g.WorkspaceID,
		TeamID:       g.TeamID,
		OwnerID:      g.OwnerID,
		Title:        g.Title,
		Description:  g.Description,
		Status:       g.Status,
		TargetValue:  g.TargetValue,
		CurrentValue: g.CurrentValue,
		Unit:         g.Unit,
		Progress:     RoundPercent(g.CurrentValue, g.TargetValue),
		StartDate:    g.StartDate,
		DueDate:      g.DueDate,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		Owner:        whenLoaded(loaded, "owner", func() *UserDTO { return userOrNil(g.Owner) }),
		Team: whenLoaded(loaded, "team", func() *TeamDTO {
			if g.Team == nil {
				return nil
			}
			d := ToTeamDTO(g.Team, nil, pc)
			return &d
		}),
		Comments: whenLoaded(loaded, "comments", func() []CommentDTO {
			return mapSlice(g.Comments, func(c *models.Comment) CommentDTO {
				return ToCommentDTO(c, graph.NewLoaded("author"), pc)
			})
		}),
	}
}

func ToWikiDTO(w *models.Wiki, loaded graph.Loaded, pc Context) WikiDTO {
	return WikiDTO{
		ID:          w.ID,
		WorkspaceID: w.WorkspaceID,
		ProjectID:   w.ProjectID,
		ParentID:    w.ParentID,
		AuthorID:    w.AuthorID,
		Title:       w.Title,
		Slug:        w.Slug,
		Content:     w.Content,
		IsPublished: w.IsPublished,
		Position:    w.Position,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		IsRoot:      graph.IsRoot(w),
		Author:      whenLoaded(loaded, "author", func() *UserDTO { return userOrNil(w.Author) }),
		Parent: whenLoaded(loaded, "parent", func() *WikiSummaryDTO {
			if w.Parent == nil {
				return nil
			}
			d := ToWikiSummaryDTO(w.Parent)
			return &d
		}),
		Children: whenLoaded(loaded, "children", func() []WikiSummaryDTO {
			return mapSlice(w.Children, ToWikiSummaryDTO)
		}),
		Comments: whenLoaded(loaded, "comments", func() []CommentDTO {
			return mapSlice(w.Comments, func(c *models.Comment) CommentDTO {
				return ToCommentDTO(c, graph.NewLoaded("author"), pc)
			})
		}),
		Attachments: whenLoaded(loaded, "attachments", func() []AttachmentDTO {
			return mapSlice(w.Attachments, func(a *models.Attachment) AttachmentDTO { return ToAttachmentDTO(a, nil) })
		}),
	}
}

func ToWikiSummaryDTO(w *models.Wiki) WikiSummaryDTO {
	return WikiSummaryDTO{
		ID:       w.ID,
		ParentID: w.ParentID,
		Title:    w.Title,
		Slug:     w.Slug,
		Position: w.Position,
	}
}

func ToCommentDTO(c *models.Comment, loaded graph.Loaded, pc Context) CommentDTO {
	return CommentDTO{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		SubjectType: c.SubjectType,
		SubjectID:   c.SubjectID,
		ParentID:    c.ParentID,
		AuthorID:    c.AuthorID,
		Body:        c.Body,
		IsEdited:    c.EditedAt != nil,
		EditedAt:    c.EditedAt,
		CreatedAt:   c.CreatedAt,
		TimeAgo:     TimeAgo(c.CreatedAt, pc.now()),
		IsRoot:      graph.IsRoot(c),
		Author:      whenLoaded(loaded, "author", func() *UserDTO { return userOrNil(c.Author) }),
		Parent: whenLoaded(loaded, "parent", func() *CommentDTO {
			if c.Parent == nil {
				return nil
			}
			d := ToCommentDTO(c.Parent, nil, pc)
			return &d
		}),
		Replies: whenLoaded(loaded, "replies", func() []CommentDTO {
			return mapSlice(c.Replies, func(r *models.Comment) CommentDTO {
				return ToCommentDTO(r, graph.NewLoaded("author"), pc)
			})
		}),
		Reactions: whenLoaded(loaded, "reactions", func() []ReactionDTO {
			return mapSlice(c.Reactions, func(r *models.Reaction) ReactionDTO { return ToReactionDTO(r, nil) })
		}),
		Mentions: whenLoaded(loaded, "mentions", func() []MentionDTO {
			return mapSlice(c.Mentions, func(m *models.Mention) MentionDTO { return ToMentionDTO(m, nil) })
		}),
	}
}

func ToAttachmentDTO(a *models.Attachment, loaded graph.Loaded) AttachmentDTO {
	return AttachmentDTO{
		ID:             a.ID,
		WorkspaceID:    a.WorkspaceID,
		AttachableType: a.AttachableType,
		AttachableID:   a.AttachableID,
		UploaderID:     a.UploaderID,
		FileName:       a.FileName,
		MimeType:       a.MimeType,
		Size:           a.Size,
		SizeFormatted:  FormatBytes(a.Size),
		CreatedAt:      a.CreatedAt,
		Uploader:       whenLoaded(loaded, "uploader", func() *UserDTO { return userOrNil(a.Uploader) }),
	}
}

func ToReactionDTO(r *models.Reaction, loaded graph.Loaded) ReactionDTO {
	return ReactionDTO{
		ID:            r.ID,
		ReactableType: r.ReactableType,
		ReactableID:   r.ReactableID,
		UserID:        r.UserID,
		Type:          r.Type,
		CreatedAt:     r.CreatedAt,
		User:          whenLoaded(loaded, "user", func() *UserDTO { return userOrNil(r.User) }),
	}
}

func ToMentionDTO(m *models.Mention, loaded graph.Loaded) MentionDTO {
	return MentionDTO{
		ID:              m.ID,
		MentionableType: m.MentionableType,
		MentionableID:   m.MentionableID,
		UserID:          m.UserID,
		MentionedByID:   m.MentionedByID,
		IsRead:          m.IsRead,
		ReadAt:          m.ReadAt,
		CreatedAt:       m.CreatedAt,
		User:            whenLoaded(loaded, "user", func() *UserDTO { return userOrNil(m.User) }),
		MentionedBy:     whenLoaded(loaded, "mentioned_by", func() *UserDTO { return userOrNil(m.MentionedBy) }),
	}
}
