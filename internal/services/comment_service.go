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
	"github.com/yukikurage/workspace-api/internal/webhooks"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound        = notFound("comment")
	ErrCommentSubjectNotFound = notFound("comment subject")
	ErrParentCommentNotFound  = notFound("parent comment")
	ErrReplyElsewhere         = invalid("a reply must be on the same subject as its parent")
	ErrNotCommentable         = invalid("comments are not supported on this kind")
	ErrCommentBodyRequired    = invalid("comment body is required")
	ErrNotReactable           = invalid("reactions are not supported on this kind")
	ErrReactionTypeRequired   = invalid("reaction type is required")
	ErrReactionTargetNotFound = notFound("reaction target")
	ErrMentionNotFound        = notFound("mention")
)

var commentable = map[models.EntityKind]bool{
	models.KindTask: true,
	models.KindWiki: true,
	models.KindGoal: true,
}

var reactable = map[models.EntityKind]bool{
	models.KindComment: true,
	models.KindMessage: true,
}

// CommentService handles comment threads, reactions and mentions.
type CommentService struct {
	comments  repository.CommentRepository
	reactions repository.Store[models.Reaction]
	mentions  repository.Store[models.Mention]
	mentioner *mentioner
	resolver  *graph.Resolver
	activity  *ActivityService
	eval      *authz.Evaluator
}

func NewCommentService(
	comments repository.CommentRepository,
	reactions repository.Store[models.Reaction],
	mentions repository.Store[models.Mention],
	users repository.UserRepository,
	workspaces repository.WorkspaceRepository,
	resolver *graph.Resolver,
	activity *ActivityService,
	eval *authz.Evaluator,
) *CommentService {
	return &CommentService{
		comments:  comments,
		reactions: reactions,
		mentions:  mentions,
		mentioner: &mentioner{users: users, workspaces: workspaces, mentions: mentions},
		resolver:  resolver,
		activity:  activity,
		eval:      eval,
	}
}

// CreateCommentInput represents input for commenting on a subject
type CreateCommentInput struct {
	Subject  models.Ref
	ParentID *uint64
	Body     string
}

// CreateComment posts a comment or a reply. Everyone who can see the subject
// and create content in its workspace may comment.
func (s *CommentService) CreateComment(ctx context.Context, actor *authz.Actor, input CreateCommentInput) (*models.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrCommentBodyRequired
	}
	if !commentable[input.Subject.Kind] {
		return nil, ErrNotCommentable
	}

	subject, err := s.resolver.ResolveRef(ctx, input.Subject)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, ErrCommentSubjectNotFound
		}
		return nil, fmt.Errorf("failed to find comment subject: %w", err)
	}
	if err := authorize(s.eval, actor, authz.ActionView, subject, ErrCommentSubjectNotFound); err != nil {
		return nil, err
	}
	workspaceID := *subject.ScopeWorkspaceID()
	if err := authorizeCreate(s.eval, actor, models.KindComment, &workspaceID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		WorkspaceID: workspaceID,
		SubjectType: input.Subject.Kind,
		SubjectID:   input.Subject.ID,
		ParentID:    input.ParentID,
		AuthorID:    actor.UserID,
		Body:        body,
	}
	if input.ParentID != nil {
		err := s.resolver.EnsureParent(ctx, comment, *input.ParentID)
		switch {
		case errors.Is(err, graph.ErrNotFound):
			return nil, ErrParentCommentNotFound
		case errors.Is(err, graph.ErrScopeMismatch):
			return nil, ErrReplyElsewhere
		case err != nil:
			return nil, fmt.Errorf("failed to verify parent comment: %w", err)
		}
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if _, err := s.mentioner.record(ctx, actor, comment.EntityRef(), workspaceID, body); err != nil {
		return nil, err
	}

	created, err := s.comments.FindByID(ctx, comment.ID, "Author", "Mentions")
	if err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  created,
		Action:  "created",
		New:     created,
		Event:   webhooks.EventCommentCreated,
		Payload: created,
	})
	return created, nil
}

// ListComments lists the comments on a subject, oldest first
func (s *CommentService) ListComments(ctx context.Context, actor *authz.Actor, subjectRef models.Ref, page, pageSize int) ([]models.Comment, int64, error) {
	if !commentable[subjectRef.Kind] {
		return nil, 0, ErrNotCommentable
	}
	subject, err := s.resolver.ResolveRef(ctx, subjectRef)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, 0, ErrCommentSubjectNotFound
		}
		return nil, 0, fmt.Errorf("failed to find comment subject: %w", err)
	}
	if err := authorize(s.eval, actor, authz.ActionView, subject, ErrCommentSubjectNotFound); err != nil {
		return nil, 0, err
	}

	comments, total, err := s.comments.List(ctx, repository.Query{
		Where:    map[string]interface{}{"subject_type": subjectRef.Kind, "subject_id": subjectRef.ID},
		Order:    "created_at ASC, id ASC",
		Preload:  []string{"Author", "Reactions"},
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

// UpdateComment edits the body. Mentions of users no longer named are
// dropped and new names are mentioned; the rest keep their read state.
func (s *CommentService) UpdateComment(ctx context.Context, actor *authz.Actor, commentID uint64, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentBodyRequired
	}
	comment, err := s.findComment(ctx, actor, commentID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := comment.Body

	added, removed, err := s.mentioner.diff(ctx, actor, comment.EntityRef(), comment.WorkspaceID, body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	comment.Body = body
	comment.EditedAt = &now
	if err := s.comments.UpdateWithMentions(ctx, comment, added, removed); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: comment, Action: "updated", Old: map[string]string{"body": old}, New: map[string]string{"body": body}})
	return comment, nil
}

// DeleteComment deletes a comment with its replies, reactions and mentions
func (s *CommentService) DeleteComment(ctx context.Context, actor *authz.Actor, commentID uint64) error {
	comment, err := s.findComment(ctx, actor, commentID, authz.ActionDelete)
	if err != nil {
		return err
	}

	replies, err := s.resolver.Descendants(ctx, models.KindComment, commentID)
	if err != nil {
		return fmt.Errorf("failed to collect replies: %w", err)
	}
	ids := append([]uint64{commentID}, replies...)

	if _, err := s.reactions.DeleteWhere(ctx, map[string]interface{}{"reactable_type": models.KindComment, "reactable_id": ids}); err != nil {
		return fmt.Errorf("failed to delete reactions: %w", err)
	}
	if _, err := s.mentions.DeleteWhere(ctx, map[string]interface{}{"mentionable_type": models.KindComment, "mentionable_id": ids}); err != nil {
		return fmt.Errorf("failed to delete mentions: %w", err)
	}
	if _, err := s.comments.DeleteWhere(ctx, map[string]interface{}{"id": ids}); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: comment, Action: "deleted", Old: map[string]any{"deleted_ids": ids}})
	return nil
}

// ToggleReaction adds the actor's reaction, or removes it when it already
// exists. added reports which happened.
func (s *CommentService) ToggleReaction(ctx context.Context, actor *authz.Actor, target models.Ref, reactionType string) (reaction *models.Reaction, added bool, err error) {
	reactionType = strings.TrimSpace(reactionType)
	if reactionType == "" {
		return nil, false, ErrReactionTypeRequired
	}
	if !reactable[target.Kind] {
		return nil, false, ErrNotReactable
	}

	entity, err := s.resolver.ResolveRef(ctx, target)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, false, ErrReactionTargetNotFound
		}
		return nil, false, fmt.Errorf("failed to find reaction target: %w", err)
	}
	if err := authorize(s.eval, actor, authz.ActionView, entity, ErrReactionTargetNotFound); err != nil {
		return nil, false, err
	}

	where := map[string]interface{}{
		"reactable_type": target.Kind,
		"reactable_id":   target.ID,
		"user_id":        actor.UserID,
		"type":           reactionType,
	}
	existing, err := s.reactions.FindOne(ctx, where)
	switch {
	case err == nil:
		if err := s.reactions.Delete(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to remove reaction: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("failed to find reaction: %w", err)
	}

	reaction = &models.Reaction{
		WorkspaceID:   *entity.ScopeWorkspaceID(),
		ReactableType: target.Kind,
		ReactableID:   target.ID,
		UserID:        actor.UserID,
		Type:          reactionType,
	}
	if err := s.reactions.Create(ctx, reaction); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// a concurrent request added the same reaction
			return reaction, true, nil
		}
		return nil, false, fmt.Errorf("failed to add reaction: %w", err)
	}
	return reaction, true, nil
}

// ListMentions lists the actor's mentions, newest first
func (s *CommentService) ListMentions(ctx context.Context, actor *authz.Actor, unreadOnly bool, page, pageSize int) ([]models.Mention, int64, error) {
	where := map[string]interface{}{"user_id": actor.UserID}
	if unreadOnly {
		where["is_read"] = false
	}
	mentions, total, err := s.mentions.List(ctx, repository.Query{
		Where:    where,
		Order:    "created_at DESC, id DESC",
		Preload:  []string{"MentionedBy"},
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mentions: %w", err)
	}
	return mentions, total, nil
}

// MarkMentionRead marks one of the actor's mentions as read
func (s *CommentService) MarkMentionRead(ctx context.Context, actor *authz.Actor, mentionID uint64) (*models.Mention, error) {
	mention, err := s.mentions.FindByID(ctx, mentionID)
	if err != nil {
		return nil, lookupErr(err, ErrMentionNotFound, "mention")
	}
	if err := authorize(s.eval, actor, authz.ActionUpdate, mention, ErrMentionNotFound); err != nil {
		return nil, err
	}
	if mention.IsRead {
		return mention, nil
	}

	now := time.Now()
	mention.IsRead = true
	mention.ReadAt = &now
	if err := s.mentions.Update(ctx, mention); err != nil {
		return nil, fmt.Errorf("failed to mark mention read: %w", err)
	}
	return mention, nil
}

func (s *CommentService) findComment(ctx context.Context, actor *authz.Actor, commentID uint64, action authz.Action) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, lookupErr(err, ErrCommentNotFound, "comment")
	}
	if err := authorize(s.eval, actor, action, comment, ErrCommentNotFound); err != nil {
		return nil, err
	}
	return comment, nil
}
