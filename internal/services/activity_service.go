package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/datatypes"
)

// EventPublisher queues outbound webhook events.
type EventPublisher interface {
	Enqueue(ctx context.Context, workspaceID uint64, event string, payload any) error
}

// Change describes one mutation for the activity feed, the audit trail and
// webhook subscribers. Event may be empty.
type Change struct {
	Actor       *authz.Actor
	Entity      models.Entity
	Action      string
	Description string
	Old         any
	New         any
	Event       string
	Payload     any
}

// ActivityService records and lists activity and audit entries.
type ActivityService struct {
	activity repository.Store[models.ActivityLog]
	audit    repository.Store[models.AuditLog]
	events   EventPublisher
}

// NewActivityService creates a new ActivityService. events may be nil.
func NewActivityService(activity repository.Store[models.ActivityLog], audit repository.Store[models.AuditLog], events EventPublisher) *ActivityService {
	return &ActivityService{activity: activity, audit: audit, events: events}
}

// Track writes the activity and audit rows and queues the webhook event.
// Failures are logged; the mutation being tracked has already happened.
func (s *ActivityService) Track(ctx context.Context, ch Change) {
	if s == nil || ch.Entity == nil {
		return
	}
	if err := s.Record(ctx, ch); err != nil {
		log.Error().Err(err).Str("entity", ch.Entity.EntityRef().String()).Str("action", ch.Action).Msg("failed to record activity")
	}

	ws := ch.Entity.ScopeWorkspaceID()
	if ch.Event == "" || s.events == nil || ws == nil {
		return
	}
	if err := s.events.Enqueue(ctx, *ws, ch.Event, ch.Payload); err != nil {
		log.Error().Err(err).Str("event", ch.Event).Uint64("workspace_id", *ws).Msg("failed to enqueue webhook event")
	}
}

// Record writes one activity row and one audit row for ch.
func (s *ActivityService) Record(ctx context.Context, ch Change) error {
	oldValues, err := encodeValues(ch.Old)
	if err != nil {
		return err
	}
	newValues, err := encodeValues(ch.New)
	if err != nil {
		return err
	}

	meta := RequestMetaFrom(ctx)
	ref := ch.Entity.EntityRef()
	ws := ch.Entity.ScopeWorkspaceID()
	var userID *uint64
	if ch.Actor != nil {
		id := ch.Actor.UserID
		userID = &id
	}

	entry := &models.ActivityLog{
		WorkspaceID: ws,
		UserID:      userID,
		SubjectType: ref.Kind,
		SubjectID:   ref.ID,
		Action:      ch.Action,
		Description: ch.Description,
		OldValues:   oldValues,
		NewValues:   newValues,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}

	audit := &models.AuditLog{
		WorkspaceID:   ws,
		UserID:        userID,
		Event:         ch.Action,
		AuditableType: ref.Kind,
		AuditableID:   ref.ID,
		OldValues:     oldValues,
		NewValues:     newValues,
		URL:           meta.URL,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	}
	if err := s.audit.Create(ctx, audit); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func encodeValues(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change values: %w", err)
	}
	return datatypes.JSON(data), nil
}

// ActivityFilter narrows a listing to one subject.
type ActivityFilter struct {
	WorkspaceID uint64
	Subject     *models.Ref
	Page        int
	PageSize    int
}

// ListActivity returns the workspace feed, newest first.
func (s *ActivityService) ListActivity(ctx context.Context, actor *authz.Actor, filter ActivityFilter) ([]models.ActivityLog, int64, error) {
	if !actor.Has(&filter.WorkspaceID, authz.PermViewContent) {
		return nil, 0, ErrWorkspaceNotFound
	}

	where := map[string]interface{}{"workspace_id": filter.WorkspaceID}
	if filter.Subject != nil {
		where["subject_type"] = filter.Subject.Kind
		where["subject_id"] = filter.Subject.ID
	}

	logs, total, err := s.activity.List(ctx, repository.Query{
		Where:    where,
		Order:    "created_at DESC, id DESC",
		Preload:  []string{"User"},
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, total, nil
}

// ListAudit returns the audit trail of a workspace; only roles that may see
// audit details can read it at all.
func (s *ActivityService) ListAudit(ctx context.Context, actor *authz.Actor, filter ActivityFilter) ([]models.AuditLog, int64, error) {
	if !actor.IsMember(filter.WorkspaceID) {
		return nil, 0, ErrWorkspaceNotFound
	}
	if !actor.Has(&filter.WorkspaceID, authz.PermViewAuditDetails) {
		return nil, 0, forbidden("cannot view the audit trail")
	}

	where := map[string]interface{}{"workspace_id": filter.WorkspaceID}
	if filter.Subject != nil {
		where["auditable_type"] = filter.Subject.Kind
		where["auditable_id"] = filter.Subject.ID
	}

	logs, total, err := s.audit.List(ctx, repository.Query{
		Where:    where,
		Order:    "created_at DESC, id DESC",
		Preload:  []string{"User"},
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit trail: %w", err)
	}
	return logs, total, nil
}
