package repository

import (
	"context"
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WikiRepository adds slug lookups to the plain wiki store.
type WikiRepository interface {
	Store[models.Wiki]

	// TakenSlugs lists slugs in the workspace starting with prefix,
	// including those of soft-deleted pages since they still hold the unique key.
	TakenSlugs(ctx context.Context, workspaceID uint64, prefix string) ([]string, error)
}

type GormWikiRepository struct {
	*GormStore[models.Wiki]
}

func NewWikiRepository(db *gorm.DB) WikiRepository {
	return &GormWikiRepository{GormStore: &GormStore[models.Wiki]{db: db}}
}

func (r *GormWikiRepository) TakenSlugs(ctx context.Context, workspaceID uint64, prefix string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Wiki{}).
		Where("workspace_id = ? AND slug LIKE ?", workspaceID, prefix+"%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

// CommentRepository adds the edit path, which rewrites the body and the
// comment's mentions together.
type CommentRepository interface {
	Store[models.Comment]

	// UpdateWithMentions saves comment, inserts added and deletes the mentions
	// of the comment held by removedUserIDs in one transaction.
	UpdateWithMentions(ctx context.Context, comment *models.Comment, added []models.Mention, removedUserIDs []uint64) error
}

type GormCommentRepository struct {
	*GormStore[models.Comment]
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{GormStore: &GormStore[models.Comment]{db: db}}
}

func (r *GormCommentRepository) UpdateWithMentions(ctx context.Context, comment *models.Comment, added []models.Mention, removedUserIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(comment).Error; err != nil {
			return translate(err)
		}
		if len(removedUserIDs) > 0 {
			err := tx.Where("mentionable_type = ? AND mentionable_id = ? AND user_id IN ?", models.KindComment, comment.ID, removedUserIDs).
				Delete(&models.Mention{}).Error
			if err != nil {
				return err
			}
		}
		if len(added) == 0 {
			return nil
		}
		return translate(tx.Create(&added).Error)
	})
}

// ConversationRepository handles conversations and their participant pivot.
type ConversationRepository interface {
	// Create stores the conversation and its initial participants together
	Create(ctx context.Context, conv *models.Conversation, participants []models.ConversationParticipant) error
	FindByID(ctx context.Context, id uint64) (*models.Conversation, error)
	ListForUser(ctx context.Context, workspaceID, userID uint64) ([]models.Conversation, error)

	// AddParticipant adds someone; a second row for the same user is ErrConflict
	AddParticipant(ctx context.Context, p *models.ConversationParticipant) error
	UpdateParticipant(ctx context.Context, conversationID, userID uint64, fields map[string]interface{}) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uint64, page, pageSize int) ([]models.Message, int64, error)
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Create(ctx context.Context, conv *models.Conversation, participants []models.ConversationParticipant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "Messages").Create(conv).Error; err != nil {
			return translate(err)
		}
		for i := range participants {
			participants[i].ConversationID = conv.ID
		}
		if len(participants) == 0 {
			return nil
		}
		return translate(tx.Create(&participants).Error)
	})
}

// FindByID loads the conversation with its participants, which authorization needs.
func (r *GormConversationRepository) FindByID(ctx context.Context, id uint64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Preload("Participants.User").First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser lists conversations the user still participates in.
func (r *GormConversationRepository) ListForUser(ctx context.Context, workspaceID, userID uint64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversations.workspace_id = ? AND conversation_participants.user_id = ? AND conversation_participants.status <> ?",
			workspaceID, userID, models.ParticipantLeft).
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Find(&convs).Error
	return convs, err
}

func (r *GormConversationRepository) AddParticipant(ctx context.Context, p *models.ConversationParticipant) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *GormConversationRepository) UpdateParticipant(ctx context.Context, conversationID, userID uint64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateMessage stores the message and bumps the conversation so listings
// show the most recent activity first.
func (r *GormConversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender", "Conversation").Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (r *GormConversationRepository) ListMessages(ctx context.Context, conversationID uint64, page, pageSize int) ([]models.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	messages := []models.Message{}
	err := query.Preload("Sender").
		Order("created_at DESC").Order("id DESC").
		Scopes(pageScope(page, pageSize)).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// RecurringRepository handles recurring task rules and the tasks they spawn.
type RecurringRepository interface {
	Store[models.RecurringTask]

	// Due lists active rules whose next due date is not after now
	Due(ctx context.Context, now time.Time, limit int) ([]models.RecurringTask, error)

	// Generate creates task and saves the advanced rule in one transaction
	Generate(ctx context.Context, rule *models.RecurringTask, task *models.Task) error
}

type GormRecurringRepository struct {
	*GormStore[models.RecurringTask]
}

func NewRecurringRepository(db *gorm.DB) RecurringRepository {
	return &GormRecurringRepository{GormStore: &GormStore[models.RecurringTask]{db: db}}
}

func (r *GormRecurringRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.RecurringTask, error) {
	var rules []models.RecurringTask
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_due_date <= ?", true, now).
		Order("next_due_date").Order("id").
		Limit(limit).
		Find(&rules).Error
	return rules, err
}

func (r *GormRecurringRepository) Generate(ctx context.Context, rule *models.RecurringTask, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Omit("Creator", "Assignee", "Project").Save(rule).Error
	})
}
