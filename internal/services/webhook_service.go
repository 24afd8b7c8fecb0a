package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"github.com/yukikurage/workspace-api/internal/webhooks"
	"gorm.io/datatypes"
)

var (
	ErrWebhookNotFound         = notFound("webhook")
	ErrWebhookDeliveryNotFound = notFound("webhook delivery")
	ErrInvalidWebhookURL       = invalid("webhook URL must be an absolute http(s) URL")
	ErrUnknownWebhookEvent     = invalid("unknown webhook event")
	ErrDeliveryNotRetryable    = conflict("only failed deliveries can be retried")
)

// SubscribableEvents are the events a webhook may subscribe to; "*" means all.
var SubscribableEvents = []string{
	webhooks.EventTaskCreated,
	webhooks.EventTaskUpdated,
	webhooks.EventTaskDeleted,
	webhooks.EventCommentCreated,
	webhooks.EventGoalUpdated,
	webhooks.EventInvoicePaid,
}

type WebhookService struct {
	repo     repository.WebhookRepository
	activity *ActivityService
	eval     *authz.Evaluator
}

func NewWebhookService(repo repository.WebhookRepository, activity *ActivityService, eval *authz.Evaluator) *WebhookService {
	return &WebhookService{repo: repo, activity: activity, eval: eval}
}

type CreateWebhookInput struct {
	WorkspaceID uint64
	URL         string
	Events      []string
}

type UpdateWebhookInput struct {
	URL      *string
	Events   []string
	IsActive *bool
}

// CreateWebhook registers an endpoint with a freshly generated secret
func (s *WebhookService) CreateWebhook(ctx context.Context, actor *authz.Actor, input CreateWebhookInput) (*models.Webhook, error) {
	endpoint, err := validateWebhookURL(input.URL)
	if err != nil {
		return nil, err
	}
	events, err := validateEvents(input.Events)
	if err != nil {
		return nil, err
	}
	if err := authorizeCreate(s.eval, actor, models.KindWebhook, &input.WorkspaceID); err != nil {
		return nil, err
	}

	secret, err := utils.RandomHex(constants.WebhookSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	hook := &models.Webhook{
		WorkspaceID: input.WorkspaceID,
		CreatorID:   actor.UserID,
		URL:         endpoint,
		Secret:      secret,
		Events:      datatypes.JSONSlice[string](events),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, hook); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: hook, Action: "created", New: map[string]any{"url": hook.URL, "events": events}})
	return hook, nil
}

// ListWebhooks lists the webhooks of a workspace
func (s *WebhookService) ListWebhooks(ctx context.Context, actor *authz.Actor, workspaceID uint64) ([]models.Webhook, error) {
	if !actor.IsMember(workspaceID) {
		return nil, ErrWorkspaceNotFound
	}
	if !actor.Has(&workspaceID, authz.PermManageWebhooks) {
		return nil, forbidden("cannot manage webhooks")
	}
	hooks, _, err := s.repo.List(ctx, repository.Query{
		Where: map[string]interface{}{"workspace_id": workspaceID},
		Order: "id ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return hooks, nil
}

// GetWebhook returns one webhook
func (s *WebhookService) GetWebhook(ctx context.Context, actor *authz.Actor, webhookID uint64) (*models.Webhook, error) {
	return s.findWebhook(ctx, actor, webhookID, authz.ActionView)
}

// UpdateWebhook changes the URL, subscriptions or active flag
func (s *WebhookService) UpdateWebhook(ctx context.Context, actor *authz.Actor, webhookID uint64, input UpdateWebhookInput) (*models.Webhook, error) {
	hook, err := s.findWebhook(ctx, actor, webhookID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if input.URL != nil {
		endpoint, err := validateWebhookURL(*input.URL)
		if err != nil {
			return nil, err
		}
		hook.URL = endpoint
	}
	if input.Events != nil {
		events, err := validateEvents(input.Events)
		if err != nil {
			return nil, err
		}
		hook.Events = datatypes.JSONSlice[string](events)
	}
	if input.IsActive != nil {
		hook.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, hook); err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: hook, Action: "updated", New: map[string]any{"url": hook.URL, "events": hook.Events, "is_active": hook.IsActive}})
	return hook, nil
}

// RotateSecret replaces the signing secret
func (s *WebhookService) RotateSecret(ctx context.Context, actor *authz.Actor, webhookID uint64) (*models.Webhook, error) {
	hook, err := s.findWebhook(ctx, actor, webhookID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	secret, err := utils.RandomHex(constants.WebhookSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	hook.Secret = secret
	if err := s.repo.Update(ctx, hook); err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: hook, Action: "secret_rotated"})
	return hook, nil
}

// DeleteWebhook removes a webhook and its delivery history
func (s *WebhookService) DeleteWebhook(ctx context.Context, actor *authz.Actor, webhookID uint64) error {
	hook, err := s.findWebhook(ctx, actor, webhookID, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, hook); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: hook, Action: "deleted", Old: map[string]any{"url": hook.URL}})
	return nil
}

// Ping queues a test delivery to this webhook only, whatever its subscriptions.
func (s *WebhookService) Ping(ctx context.Context, actor *authz.Actor, webhookID uint64) (*models.WebhookDelivery, error) {
	hook, err := s.findWebhook(ctx, actor, webhookID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	eventID := uuid.NewString()
	payload, err := json.Marshal(map[string]any{"webhook_id": hook.ID, "sent_by": actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ping: %w", err)
	}
	deliveries := []models.WebhookDelivery{{
		WebhookID:     hook.ID,
		WorkspaceID:   hook.WorkspaceID,
		EventID:       eventID,
		Event:         webhooks.EventPing,
		Payload:       datatypes.JSON(payload),
		Status:        models.DeliveryPending,
		NextAttemptAt: &now,
	}}
	if err := s.repo.EnqueueDeliveries(ctx, deliveries); err != nil {
		return nil, fmt.Errorf("failed to queue ping: %w", err)
	}
	return &deliveries[0], nil
}

// ListDeliveries pages through a webhook's deliveries, newest first
func (s *WebhookService) ListDeliveries(ctx context.Context, actor *authz.Actor, webhookID uint64, page, pageSize int) ([]models.WebhookDelivery, int64, error) {
	if _, err := s.findWebhook(ctx, actor, webhookID, authz.ActionView); err != nil {
		return nil, 0, err
	}
	deliveries, total, err := s.repo.ListDeliveries(ctx, webhookID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, total, nil
}

// RetryDelivery puts a failed delivery back in the queue with a fresh
// attempt budget.
func (s *WebhookService) RetryDelivery(ctx context.Context, actor *authz.Actor, deliveryID uint64) (*models.WebhookDelivery, error) {
	delivery, err := s.repo.FindDelivery(ctx, deliveryID)
	if err != nil {
		return nil, lookupErr(err, ErrWebhookDeliveryNotFound, "webhook delivery")
	}
	if err := authorize(s.eval, actor, authz.ActionView, delivery, ErrWebhookDeliveryNotFound); err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliveryFailed {
		return nil, ErrDeliveryNotRetryable
	}

	now := time.Now()
	delivery.Status = models.DeliveryPending
	delivery.Attempts = 0
	delivery.NextAttemptAt = &now
	if err := s.repo.SaveDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to requeue delivery: %w", err)
	}
	return delivery, nil
}

func (s *WebhookService) findWebhook(ctx context.Context, actor *authz.Actor, webhookID uint64, action authz.Action) (*models.Webhook, error) {
	hook, err := s.repo.FindByID(ctx, webhookID)
	if err != nil {
		return nil, lookupErr(err, ErrWebhookNotFound, "webhook")
	}
	if err := authorize(s.eval, actor, action, hook, ErrWebhookNotFound); err != nil {
		return nil, err
	}
	return hook, nil
}

func validateWebhookURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidWebhookURL
	}
	return u.String(), nil
}

func validateEvents(events []string) ([]string, error) {
	out := make([]string, 0, len(events))
	seen := map[string]bool{}
	for _, e := range events {
		e = strings.TrimSpace(e)
		if seen[e] {
			continue
		}
		if e != "*" && !knownEvent(e) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWebhookEvent, e)
		}
		seen[e] = true
		out = append(out, e)
	}
	return out, nil
}

func knownEvent(e string) bool {
	for _, known := range SubscribableEvents {
		if known == e {
			return true
		}
	}
	return false
}
