package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound     = notFound("conversation")
	ErrMessageNotFound          = notFound("message")
	ErrParticipantNotFound      = notFound("participant")
	ErrAlreadyParticipant       = conflict("user already participates in this conversation")
	ErrDirectNeedsOnePeer       = invalid("a direct conversation has exactly one other participant")
	ErrDirectIsClosed           = invalid("participants cannot be added to a direct conversation")
	ErrInvalidParticipant       = invalid("participants must be members of the workspace")
	ErrInvalidParticipantRole   = invalid("participant role must be owner, admin or member")
	ErrInvalidParticipantStatus = invalid("unknown participant status")
	ErrMessageBodyRequired      = invalid("message body is required")
	ErrNotParticipant           = forbidden("only active participants can post")
)

type ConversationService struct {
	convRepo   repository.ConversationRepository
	messages   repository.Store[models.Message]
	workspaces repository.WorkspaceRepository
	mentioner  *mentioner
	activity   *ActivityService
	eval       *authz.Evaluator
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messages repository.Store[models.Message],
	mentions repository.Store[models.Mention],
	users repository.UserRepository,
	workspaces repository.WorkspaceRepository,
	activity *ActivityService,
	eval *authz.Evaluator,
) *ConversationService {
	return &ConversationService{
		convRepo:   convRepo,
		messages:   messages,
		workspaces: workspaces,
		mentioner:  &mentioner{users: users, workspaces: workspaces, mentions: mentions},
		activity:   activity,
		eval:       eval,
	}
}

type CreateConversationInput struct {
	WorkspaceID    uint64
	Title          string
	IsDirect       bool
	ParticipantIDs []uint64
}

// CreateConversation starts a conversation. The creator joins as owner and
// everyone else as member.
func (s *ConversationService) CreateConversation(ctx context.Context, actor *authz.Actor, input CreateConversationInput) (*models.Conversation, error) {
	if err := authorizeCreate(s.eval, actor, models.KindConversation, &input.WorkspaceID); err != nil {
		return nil, err
	}

	others := make([]uint64, 0, len(input.ParticipantIDs))
	for _, id := range uniqueUint64(input.ParticipantIDs) {
		if id != actor.UserID {
			others = append(others, id)
		}
	}
	if input.IsDirect && len(others) != 1 {
		return nil, ErrDirectNeedsOnePeer
	}
	for _, id := range others {
		if err := s.ensureMember(ctx, input.WorkspaceID, id); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	participants := []models.ConversationParticipant{{
		UserID:   actor.UserID,
		Role:     models.RoleOwner,
		Status:   models.ParticipantActive,
		JoinedAt: now,
	}}
	for _, id := range others {
		participants = append(participants, models.ConversationParticipant{
			UserID:   id,
			Role:     models.RoleMember,
			Status:   models.ParticipantActive,
			JoinedAt: now,
		})
	}

	conv := &models.Conversation{
		WorkspaceID: input.WorkspaceID,
		CreatorID:   actor.UserID,
		Title:       strings.TrimSpace(input.Title),
		IsDirect:    input.IsDirect,
	}
	if err := s.convRepo.Create(ctx, conv, participants); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	created, err := s.convRepo.FindByID(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload conversation: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: created, Action: "created", New: map[string]any{"participants": append([]uint64{actor.UserID}, others...)}})
	return created, nil
}

// GetConversation returns a conversation the actor participates in
func (s *ConversationService) GetConversation(ctx context.Context, actor *authz.Actor, convID uint64) (*models.Conversation, error) {
	return s.findConversation(ctx, actor, convID, authz.ActionView)
}

// ListConversations lists the actor's conversations in a workspace, most recent first
func (s *ConversationService) ListConversations(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Conversation, error) {
	if !actor.IsMember(workspaceID) {
		return nil, ErrWorkspaceNotFound
	}
	convs, err := s.convRepo.ListForUser(ctx, workspaceID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// AddParticipant adds a workspace member. Someone who left is re-activated
// with the new role.
func (s *ConversationService) AddParticipant(ctx context.Context, actor *authz.Actor, convID, userID uint64, role models.Role) (*models.ConversationParticipant, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleOwner && role != models.RoleAdmin && role != models.RoleMember {
		return nil, ErrInvalidParticipantRole
	}

	conv, err := s.findConversation(ctx, actor, convID, authz.ActionView)
	if err != nil {
		return nil, err
	}
	if !s.eval.CanManageParticipants(actor, conv) {
		return nil, forbidden("cannot manage participants")
	}
	if conv.IsDirect {
		return nil, ErrDirectIsClosed
	}
	if err := s.ensureMember(ctx, conv.WorkspaceID, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	if existing, ok := conv.Participant(userID); ok {
		if existing.Active() {
			return nil, ErrAlreadyParticipant
		}
		fields := map[string]interface{}{"status": models.ParticipantActive, "role": role, "joined_at": now}
		if err := s.convRepo.UpdateParticipant(ctx, convID, userID, fields); err != nil {
			return nil, fmt.Errorf("failed to re-add participant: %w", err)
		}
		existing.Status, existing.Role, existing.JoinedAt = models.ParticipantActive, role, now
		return existing, nil
	}

	p := &models.ConversationParticipant{
		ConversationID: convID,
		UserID:         userID,
		Role:           role,
		Status:         models.ParticipantActive,
		JoinedAt:       now,
	}
	if err := s.convRepo.AddParticipant(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyParticipant
		}
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: conv, Action: "participant_added", New: map[string]any{"user_id": userID, "role": role}})
	return p, nil
}

// UpdateParticipantStatus mutes, unmutes or removes a participant. Anyone may
// change their own status; changing someone else's needs manager rights.
func (s *ConversationService) UpdateParticipantStatus(ctx context.Context, actor *authz.Actor, convID, userID uint64, status models.ParticipantStatus) error {
	if !status.Valid() {
		return ErrInvalidParticipantStatus
	}

	conv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		return lookupErr(err, ErrConversationNotFound, "conversation")
	}
	if _, ok := conv.Participant(actor.UserID); !ok {
		return ErrConversationNotFound
	}
	if _, ok := conv.Participant(userID); !ok {
		return ErrParticipantNotFound
	}
	if !s.eval.CanUpdateParticipant(actor, conv, userID) {
		return forbidden("cannot change another participant")
	}

	if err := s.convRepo.UpdateParticipant(ctx, convID, userID, map[string]interface{}{"status": status}); err != nil {
		return lookupErr(err, ErrParticipantNotFound, "participant")
	}
	return nil
}

// MarkRead records that the actor has read the conversation up to now
func (s *ConversationService) MarkRead(ctx context.Context, actor *authz.Actor, convID uint64) (time.Time, error) {
	if _, err := s.findConversation(ctx, actor, convID, authz.ActionView); err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	if err := s.convRepo.UpdateParticipant(ctx, convID, actor.UserID, map[string]interface{}{"last_read_at": now}); err != nil {
		return time.Time{}, lookupErr(err, ErrParticipantNotFound, "participant")
	}
	return now, nil
}

// PostMessage adds a message from an active participant
func (s *ConversationService) PostMessage(ctx context.Context, actor *authz.Actor, convID uint64, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrMessageBodyRequired
	}
	conv, err := s.findConversation(ctx, actor, convID, authz.ActionView)
	if err != nil {
		return nil, err
	}
	if p, ok := conv.Participant(actor.UserID); !ok || !p.Active() {
		return nil, ErrNotParticipant
	}

	msg := &models.Message{
		ConversationID: convID,
		WorkspaceID:    conv.WorkspaceID,
		SenderID:       actor.UserID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	if _, err := s.mentioner.record(ctx, actor, msg.EntityRef(), conv.WorkspaceID, body); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages pages through a conversation, newest first
func (s *ConversationService) ListMessages(ctx context.Context, actor *authz.Actor, convID uint64, page, pageSize int) ([]models.Message, int64, error) {
	if _, err := s.findConversation(ctx, actor, convID, authz.ActionView); err != nil {
		return nil, 0, err
	}
	params := utils.NewPaginationParams(page, pageSize)
	messages, total, err := s.convRepo.ListMessages(ctx, convID, params.Page, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

// DeleteMessage removes a message; senders, conversation admins and
// workspace managers may do so.
func (s *ConversationService) DeleteMessage(ctx context.Context, actor *authz.Actor, messageID uint64) error {
	msg, err := s.messages.FindByID(ctx, messageID, graph.GuardPreloads(models.KindMessage)...)
	if err != nil {
		return lookupErr(err, ErrMessageNotFound, "message")
	}
	if err := authorize(s.eval, actor, authz.ActionDelete, msg, ErrMessageNotFound); err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, msg); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (s *ConversationService) findConversation(ctx context.Context, actor *authz.Actor, convID uint64, action authz.Action) (*models.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		return nil, lookupErr(err, ErrConversationNotFound, "conversation")
	}
	if !s.eval.Can(actor, action, conv) {
		// conversations are private to their participants
		if _, ok := conv.Participant(actor.UserID); !ok {
			return nil, ErrConversationNotFound
		}
		return nil, forbidden(fmt.Sprintf("cannot %s this conversation", action))
	}
	return conv, nil
}

func (s *ConversationService) ensureMember(ctx context.Context, workspaceID, userID uint64) error {
	if _, err := s.workspaces.FindMember(ctx, workspaceID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidParticipant
		}
		return fmt.Errorf("failed to verify participant: %w", err)
	}
	return nil
}
