package models

import "time"

type Conversation struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;index" json:"workspace_id"`
	CreatorID   uint64    `gorm:"not null" json:"creator_id"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	IsDirect    bool      `gorm:"not null;default:false" json:"is_direct"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Creator      *User                     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (c *Conversation) EntityRef() Ref { return Ref{Kind: KindConversation, ID: c.ID} }
func (c *Conversation) ScopeWorkspaceID() *uint64 { return scope(c.WorkspaceID) }

// Participant returns the preloaded participation row for userID, if any.
func (c *Conversation) Participant(userID uint64) (*ConversationParticipant, bool) {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantMuted  ParticipantStatus = "muted"
	ParticipantLeft   ParticipantStatus = "left"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantActive, ParticipantMuted, ParticipantLeft:
		return true
	}
	return false
}

// ConversationParticipant is the conversation/user pivot. Role uses the
// owner/admin/member subset of Role.
type ConversationParticipant struct {
	ConversationID uint64            `gorm:"primarykey" json:"conversation_id"`
	UserID         uint64            `gorm:"primarykey;index" json:"user_id"`
	Role           Role              `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status         ParticipantStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	JoinedAt       time.Time         `json:"joined_at"`
	LastReadAt     *time.Time        `json:"last_read_at"`

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Active reports whether the participant still belongs to the conversation.
func (p *ConversationParticipant) Active() bool {
	return p.Status != ParticipantLeft
}

type Message struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	ConversationID uint64     `gorm:"not null;index" json:"conversation_id"`
	WorkspaceID    uint64     `gorm:"not null;index" json:"workspace_id"`
	SenderID       uint64     `gorm:"not null" json:"sender_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	EditedAt       *time.Time `json:"edited_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Sender       *User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
	Reactions    []Reaction    `gorm:"polymorphic:Reactable;polymorphicValue:message" json:"reactions,omitempty"`
	Mentions     []Mention     `gorm:"polymorphic:Mentionable;polymorphicValue:message" json:"mentions,omitempty"`
}

func (m *Message) EntityRef() Ref { return Ref{Kind: KindMessage, ID: m.ID} }
func (m *Message) ScopeWorkspaceID() *uint64 { return scope(m.WorkspaceID) }
