package models

import (
	"time"

	"gorm.io/datatypes"
)

type Webhook struct {
	ID          uint64                      `gorm:"primarykey" json:"id"`
	WorkspaceID uint64                      `gorm:"not null;index" json:"workspace_id"`
	CreatorID   uint64                      `gorm:"not null" json:"creator_id"`
	URL         string                      `gorm:"type:varchar(2048);not null" json:"url"`
	Secret      string                      `gorm:"type:varchar(128);not null" json:"-"`
	Events      datatypes.JSONSlice[string] `json:"events"`
	IsActive    bool                        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`

	// Relations
	Deliveries []WebhookDelivery `gorm:"foreignKey:WebhookID" json:"deliveries,omitempty"`
}

func (w *Webhook) EntityRef() Ref { return Ref{Kind: KindWebhook, ID: w.ID} }
func (w *Webhook) ScopeWorkspaceID() *uint64 { return scope(w.WorkspaceID) }

// Subscribes reports whether the webhook wants event. An empty list or "*"
// subscribes to everything.
func (w *Webhook) Subscribes(event string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

type WebhookDelivery struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	WebhookID      uint64         `gorm:"not null;index" json:"webhook_id"`
	WorkspaceID    uint64         `gorm:"not null;index" json:"workspace_id"`
	EventID        string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	Event          string         `gorm:"type:varchar(100);not null" json:"event"`
	Payload        datatypes.JSON `json:"payload"`
	Status         DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_deliveries_due" json:"status"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  *time.Time     `gorm:"index:idx_deliveries_due" json:"next_attempt_at"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at"`
	ResponseStatus int            `json:"response_status"`
	LastError      string         `gorm:"type:text" json:"last_error"`
	DurationMs     int64          `json:"duration_ms"`
	DeliveredAt    *time.Time     `json:"delivered_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relations
	Webhook *Webhook `gorm:"foreignKey:WebhookID" json:"webhook,omitempty"`
}

func (d *WebhookDelivery) EntityRef() Ref { return Ref{Kind: KindWebhookDelivery, ID: d.ID} }
func (d *WebhookDelivery) ScopeWorkspaceID() *uint64 { return scope(d.WorkspaceID) }
