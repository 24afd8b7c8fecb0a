package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

type ConversationDTO struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id"`
	CreatorID   uint64    `json:"creator_id"`
	Title       string    `json:"title"`
	IsDirect    bool      `json:"is_direct"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Creator      Optional[*UserDTO]         `json:"creator,omitzero"`
	Participants Optional[[]ParticipantDTO] `json:"participants,omitzero"`
	Messages     Optional[[]MessageDTO]     `json:"messages,omitzero"`
}

// ParticipantDTO is a user annotated with the participation pivot
type ParticipantDTO struct {
	UserDTO
	Role       models.Role              `json:"role"`
	Status     models.ParticipantStatus `json:"status"`
	JoinedAt   time.Time                `json:"joined_at"`
	LastReadAt *time.Time               `json:"last_read_at"`
}

type MessageDTO struct {
	ID             uint64     `json:"id"`
	ConversationID uint64     `json:"conversation_id"`
	SenderID       uint64     `json:"sender_id"`
	Body           string     `json:"body"`
	IsEdited       bool       `json:"is_edited"`
	EditedAt       *time.Time `json:"edited_at"`
	CreatedAt      time.Time  `json:"created_at"`
	TimeAgo        string     `json:"time_ago"`

	Sender       Optional[*UserDTO]         `json:"sender,omitzero"`
	Conversation Optional[*ConversationDTO] `json:"conversation,omitzero"`
	Reactions    Optional[[]ReactionDTO]    `json:"reactions,omitzero"`
	Mentions     Optional[[]MentionDTO]     `json:"mentions,omitzero"`
}

func ToConversationDTO(c *models.Conversation, loaded graph.Loaded, pc Context) ConversationDTO {
	return ConversationDTO{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		CreatorID:   c.CreatorID,
		Title:       c.Title,
		IsDirect:    c.IsDirect,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Creator:     whenLoaded(loaded, "creator", func() *UserDTO { return userOrNil(c.Creator) }),
		Participants: whenLoaded(loaded, "participants", func() []ParticipantDTO {
			return mapSlice(c.Participants, ToParticipantDTO)
		}),
		Messages: whenLoaded(loaded, "messages", func() []MessageDTO {
			return mapSlice(c.Messages, func(m *models.Message) MessageDTO {
				return ToMessageDTO(m, graph.NewLoaded("sender"), pc)
			})
		}),
	}
}

func ToParticipantDTO(p *models.ConversationParticipant) ParticipantDTO {
	d := ParticipantDTO{
		UserDTO:    UserDTO{ID: p.UserID},
		Role:       p.Role,
		Status:     p.Status,
		JoinedAt:   p.JoinedAt,
		LastReadAt: p.LastReadAt,
	}
	if p.User != nil {
		d.UserDTO = ToUserDTO(*p.User)
	}
	return d
}

func ToMessageDTO(m *models.Message, loaded graph.Loaded, pc Context) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		IsEdited:       m.EditedAt != nil,
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
		TimeAgo:        TimeAgo(m.CreatedAt, pc.now()),
		Sender:         whenLoaded(loaded, "sender", func() *UserDTO { return userOrNil(m.Sender) }),
		Conversation: whenLoaded(loaded, "conversation", func() *ConversationDTO {
			if m.Conversation == nil {
				return nil
			}
			d := ToConversationDTO(m.Conversation, nil, pc)
			return &d
		}),
		Reactions: whenLoaded(loaded, "reactions", func() []ReactionDTO {
			return mapSlice(m.Reactions, func(r *models.Reaction) ReactionDTO { return ToReactionDTO(r, nil) })
		}),
		Mentions: whenLoaded(loaded, "mentions", func() []MentionDTO {
			return mapSlice(m.Mentions, func(mn *models.Mention) MentionDTO { return ToMentionDTO(mn, nil) })
		}),
	}
}
