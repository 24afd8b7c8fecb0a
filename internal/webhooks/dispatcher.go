// Package webhooks queues workspace events and delivers them to subscribed
// endpoints with signed, retried POST requests.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/datatypes"
)

// Events emitted by the API.
const (
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskDeleted    = "task.deleted"
	EventCommentCreated = "comment.created"
	EventGoalUpdated    = "goal.updated"
	EventInvoicePaid    = "invoice.paid"
	EventPing           = "webhook.ping"
)

// maxErrorBody caps how much of a failed response is kept on the delivery.
const maxErrorBody = 1024

// Envelope is the JSON body posted to endpoints.
type Envelope struct {
	ID          string          `json:"id"`
	Event       string          `json:"event"`
	WorkspaceID uint64          `json:"workspace_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Data        json.RawMessage `json:"data"`
}

// Result summarizes one ProcessDue pass.
type Result struct {
	Delivered int
	Retrying  int
	Failed    int
}

type Dispatcher struct {
	repo   repository.WebhookRepository
	client *http.Client
	batch  int
	now    func() time.Time
	logger zerolog.Logger
}

// NewDispatcher returns a dispatcher posting with client. A nil client gets
// a 10 second timeout.
func NewDispatcher(repo repository.WebhookRepository, client *http.Client, batch int) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if batch <= 0 {
		batch = constants.WebhookBatchSize
	}
	return &Dispatcher{
		repo:   repo,
		client: client,
		batch:  batch,
		now:    time.Now,
		logger: log.With().Str("component", "webhooks").Logger(),
	}
}

// Enqueue writes one pending delivery per active webhook of the workspace
// that subscribes to event. Nothing is sent here.
func (d *Dispatcher) Enqueue(ctx context.Context, workspaceID uint64, event string, payload any) error {
	hooks, err := d.repo.Active(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to load webhooks: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	now := d.now()
	var deliveries []models.WebhookDelivery
	for _, hook := range hooks {
		if !hook.Subscribes(event) {
			continue
		}
		deliveries = append(deliveries, models.WebhookDelivery{
			WebhookID:     hook.ID,
			WorkspaceID:   workspaceID,
			EventID:       uuid.NewString(),
			Event:         event,
			Payload:       datatypes.JSON(data),
			Status:        models.DeliveryPending,
			NextAttemptAt: &now,
		})
	}

	if err := d.repo.EnqueueDeliveries(ctx, deliveries); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", event, err)
	}
	return nil
}

// ProcessDue attempts every delivery that is due, up to the batch size.
func (d *Dispatcher) ProcessDue(ctx context.Context) (Result, error) {
	var res Result

	due, err := d.repo.DueDeliveries(ctx, d.now(), constants.MaxWebhookAttempts, d.batch)
	if err != nil {
		return res, fmt.Errorf("failed to load due deliveries: %w", err)
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		delivery := &due[i]
		d.attempt(ctx, delivery)

		switch delivery.Status {
		case models.DeliveryDelivered:
			res.Delivered++
		case models.DeliveryFailed:
			res.Failed++
		default:
			res.Retrying++
		}

		if err := d.repo.SaveDelivery(ctx, delivery); err != nil {
			return res, fmt.Errorf("failed to save delivery %d: %w", delivery.ID, err)
		}
	}

	return res, nil
}

// attempt posts once and records the outcome on the delivery.
func (d *Dispatcher) attempt(ctx context.Context, delivery *models.WebhookDelivery) {
	start := d.now()
	delivery.Attempts++
	delivery.LastAttemptAt = &start

	status, err := d.post(ctx, delivery)
	delivery.ResponseStatus = status
	delivery.DurationMs = d.now().Sub(start).Milliseconds()

	logger := d.logger.With().
		Uint64("delivery_id", delivery.ID).
		Uint64("webhook_id", delivery.WebhookID).
		Str("event", delivery.Event).
		Int("attempt", delivery.Attempts).
		Logger()

	if err == nil {
		delivery.Status = models.DeliveryDelivered
		delivery.DeliveredAt = &start
		delivery.NextAttemptAt = nil
		delivery.LastError = ""
		logger.Info().Int("status", status).Msg("webhook delivered")
		return
	}

	delivery.LastError = err.Error()
	if delivery.Attempts >= constants.MaxWebhookAttempts {
		delivery.Status = models.DeliveryFailed
		delivery.NextAttemptAt = nil
		logger.Warn().Err(err).Msg("webhook delivery failed permanently")
		return
	}

	next := start.Add(Backoff(delivery.Attempts))
	delivery.NextAttemptAt = &next
	logger.Info().Err(err).Time("next_attempt_at", next).Msg("webhook delivery will be retried")
}

func (d *Dispatcher) post(ctx context.Context, delivery *models.WebhookDelivery) (int, error) {
	hook := delivery.Webhook
	if hook == nil {
		return 0, fmt.Errorf("webhook %d no longer exists", delivery.WebhookID)
	}
	if !hook.IsActive {
		return 0, fmt.Errorf("webhook %d is disabled", hook.ID)
	}

	body, err := json.Marshal(Envelope{
		ID:          delivery.EventID,
		Event:       delivery.Event,
		WorkspaceID: delivery.WorkspaceID,
		CreatedAt:   delivery.CreatedAt,
		Data:        json.RawMessage(delivery.Payload),
	})
	if err != nil {
		return 0, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "workspace-api-webhooks/1.0")
	req.Header.Set(constants.WebhookEventHead, delivery.Event)
	req.Header.Set(constants.WebhookDeliveryHead, delivery.EventID)
	req.Header.Set(constants.WebhookSignatureHead, "sha256="+Sign(hook.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, fmt.Errorf("endpoint responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Backoff is the wait after the given number of failed attempts: 2^n minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	return time.Duration(1<<uint(attempts)) * time.Minute
}
