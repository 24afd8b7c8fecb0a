package repository

import (
	"context"
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// WebhookRepository stores webhooks and their delivery queue.
type WebhookRepository interface {
	Store[models.Webhook]

	// Active lists the enabled webhooks of a workspace
	Active(ctx context.Context, workspaceID uint64) ([]models.Webhook, error)

	// Remove deletes the webhook together with its deliveries
	Remove(ctx context.Context, hook *models.Webhook) error

	EnqueueDeliveries(ctx context.Context, deliveries []models.WebhookDelivery) error

	// DueDeliveries lists pending deliveries whose next attempt is not after now
	DueDeliveries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.WebhookDelivery, error)
	FindDelivery(ctx context.Context, id uint64) (*models.WebhookDelivery, error)
	SaveDelivery(ctx context.Context, d *models.WebhookDelivery) error
	ListDeliveries(ctx context.Context, webhookID uint64, page, pageSize int) ([]models.WebhookDelivery, int64, error)
}

type GormWebhookRepository struct {
	*GormStore[models.Webhook]
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &GormWebhookRepository{GormStore: &GormStore[models.Webhook]{db: db}}
}

func (r *GormWebhookRepository) Active(ctx context.Context, workspaceID uint64) ([]models.Webhook, error) {
	var hooks []models.Webhook
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND is_active = ?", workspaceID, true).
		Order("id").
		Find(&hooks).Error
	return hooks, err
}

func (r *GormWebhookRepository) Remove(ctx context.Context, hook *models.Webhook) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("webhook_id = ?", hook.ID).Delete(&models.WebhookDelivery{}).Error; err != nil {
			return err
		}
		return tx.Delete(hook).Error
	})
}

func (r *GormWebhookRepository) EnqueueDeliveries(ctx context.Context, deliveries []models.WebhookDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Omit("Webhook").Create(&deliveries).Error)
}

// DueDeliveries preloads the webhook so the caller has URL and secret at hand.
func (r *GormWebhookRepository) DueDeliveries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Preload("Webhook").
		Where("status = ? AND attempts < ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
			models.DeliveryPending, maxAttempts, now).
		Order("id").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *GormWebhookRepository) FindDelivery(ctx context.Context, id uint64) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormWebhookRepository) SaveDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Omit("Webhook").Save(d).Error
}

func (r *GormWebhookRepository) ListDeliveries(ctx context.Context, webhookID uint64, page, pageSize int) ([]models.WebhookDelivery, int64, error) {
	store := &GormStore[models.WebhookDelivery]{db: r.db}
	return store.List(ctx, Query{
		Where:    map[string]interface{}{"webhook_id": webhookID},
		Order:    "id DESC",
		Page:     page,
		PageSize: pageSize,
	})
}
