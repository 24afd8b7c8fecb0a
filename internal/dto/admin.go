package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/recurrence"
)

type InvoiceDTO struct {
	ID              uint64               `json:"id"`
	WorkspaceID     uint64               `json:"workspace_id"`
	Number          string               `json:"number"`
	Status          models.InvoiceStatus `json:"status"`
	AmountCents     int64                `json:"amount_cents"`
	AmountFormatted string               `json:"amount_formatted"`
	Currency        string               `json:"currency"`
	DueDate         *time.Time           `json:"due_date"`
	PaidAt          *time.Time           `json:"paid_at"`
	IsOverdue       bool                 `json:"is_overdue"`
	CreatedAt       time.Time            `json:"created_at"`
}

type SettingDTO struct {
	ID          uint64           `json:"id"`
	WorkspaceID *uint64          `json:"workspace_id"`
	Key         string           `json:"key"`
	Value       Optional[string] `json:"value,omitzero"`
	IsSecret    bool             `json:"is_secret"`
	IsSystem    bool             `json:"is_system"`
	UpdatedByID *uint64          `json:"updated_by_id"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type WebhookDTO struct {
	ID          uint64           `json:"id"`
	WorkspaceID uint64           `json:"workspace_id"`
	CreatorID   uint64           `json:"creator_id"`
	URL         string           `json:"url"`
	Events      []string         `json:"events"`
	IsActive    bool             `json:"is_active"`
	Secret      Optional[string] `json:"secret,omitzero"`
	CreatedAt   time.Time        `json:"created_at"`

	Deliveries Optional[[]WebhookDeliveryDTO] `json:"deliveries,omitzero"`
}

type WebhookDeliveryDTO struct {
	ID                uint64                `json:"id"`
	WebhookID         uint64                `json:"webhook_id"`
	EventID           string                `json:"event_id"`
	Event             string                `json:"event"`
	Payload           json.RawMessage       `json:"payload"`
	Status            models.DeliveryStatus `json:"status"`
	Attempts          int                   `json:"attempts"`
	NextAttemptAt     *time.Time            `json:"next_attempt_at"`
	LastAttemptAt     *time.Time            `json:"last_attempt_at"`
	ResponseStatus    int                   `json:"response_status"`
	LastError         string                `json:"last_error"`
	DurationMs        int64                 `json:"duration_ms"`
	DurationFormatted string                `json:"duration_formatted"`
	DeliveredAt       *time.Time            `json:"delivered_at"`
	CreatedAt         time.Time             `json:"created_at"`

	Webhook Optional[*WebhookDTO] `json:"webhook,omitzero"`
}

// ActivityLogDTO omits the request metadata and value diffs unless the
// viewer may see audit details.
type ActivityLogDTO struct {
	ID          uint64            `json:"id"`
	WorkspaceID *uint64           `json:"workspace_id"`
	UserID      *uint64           `json:"user_id"`
	SubjectType models.EntityKind `json:"subject_type"`
	SubjectID   uint64            `json:"subject_id"`
	Action      string            `json:"action"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	TimeAgo     string            `json:"time_ago"`

	IPAddress Optional[string]          `json:"ip_address,omitzero"`
	UserAgent Optional[string]          `json:"user_agent,omitzero"`
	OldValues Optional[json.RawMessage] `json:"old_values,omitzero"`
	NewValues Optional[json.RawMessage] `json:"new_values,omitzero"`

	User    Optional[*UserDTO] `json:"user,omitzero"`
	Subject Optional[any]      `json:"subject,omitzero"`
}

type AuditLogDTO struct {
	ID            uint64            `json:"id"`
	WorkspaceID   *uint64           `json:"workspace_id"`
	UserID        *uint64           `json:"user_id"`
	Event         string            `json:"event"`
	AuditableType models.EntityKind `json:"auditable_type"`
	AuditableID   uint64            `json:"auditable_id"`
	URL           string            `json:"url"`
	CreatedAt     time.Time         `json:"created_at"`

	IPAddress Optional[string]          `json:"ip_address,omitzero"`
	UserAgent Optional[string]          `json:"user_agent,omitzero"`
	OldValues Optional[json.RawMessage] `json:"old_values,omitzero"`
	NewValues Optional[json.RawMessage] `json:"new_values,omitzero"`

	User    Optional[*UserDTO] `json:"user,omitzero"`
	Subject Optional[any]      `json:"subject,omitzero"`
}

type RecurringTaskDTO struct {
	ID              uint64               `json:"id"`
	WorkspaceID     uint64               `json:"workspace_id"`
	ProjectID       *uint64              `json:"project_id"`
	CreatorID       uint64               `json:"creator_id"`
	AssigneeID      *uint64              `json:"assignee_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Frequency       recurrence.Frequency `json:"frequency"`
	Interval        int                  `json:"interval"`
	DaysOfWeek      []int                `json:"days_of_week"`
	DayOfMonth      *int                 `json:"day_of_month"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         *time.Time           `json:"end_date"`
	NextDueDate     time.Time            `json:"next_due_date"`
	LastGeneratedAt *time.Time           `json:"last_generated_at"`
	IsActive        bool                 `json:"is_active"`
	IsDue           bool                 `json:"is_due"`

	Creator  Optional[*UserDTO]    `json:"creator,omitzero"`
	Assignee Optional[*UserDTO]    `json:"assignee,omitzero"`
	Project  Optional[*ProjectDTO] `json:"project,omitzero"`
}

func ToInvoiceDTO(inv *models.Invoice, pc Context) InvoiceDTO {
	return InvoiceDTO{
		ID:              inv.ID,
		WorkspaceID:     inv.WorkspaceID,
		Number:          inv.Number,
		Status:          inv.Status,
		AmountCents:     inv.AmountCents,
		AmountFormatted: FormatAmount(inv.AmountCents, inv.Currency),
		Currency:        inv.Currency,
		DueDate:         inv.DueDate,
		PaidAt:          inv.PaidAt,
		IsOverdue:       inv.Status == models.InvoiceStatusOpen && inv.DueDate != nil && inv.DueDate.Before(pc.now()),
		CreatedAt:       inv.CreatedAt,
	}
}

// FormatAmount renders minor units as "12.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func ToSettingDTO(s *models.Setting, pc Context) SettingDTO {
	d := SettingDTO{
		ID:          s.ID,
		WorkspaceID: s.WorkspaceID,
		Key:         s.Key,
		IsSecret:    s.IsSecret,
		IsSystem:    s.IsSystem,
		UpdatedByID: s.UpdatedByID,
		UpdatedAt:   s.UpdatedAt,
	}
	if pc.canField(s, authz.FieldSettingValue) {
		d.Value = Some(s.Value)
	}
	return d
}

func ToWebhookDTO(w *models.Webhook, loaded graph.Loaded, pc Context) WebhookDTO {
	events := []string(w.Events)
	if events == nil {
		events = []string{}
	}
	d := WebhookDTO{
		ID:          w.ID,
		WorkspaceID: w.WorkspaceID,
		CreatorID:   w.CreatorID,
		URL:         w.URL,
		Events:      events,
		IsActive:    w.IsActive,
		CreatedAt:   w.CreatedAt,
		Deliveries: whenLoaded(loaded, "deliveries", func() []WebhookDeliveryDTO {
			return mapSlice(w.Deliveries, func(del *models.WebhookDelivery) WebhookDeliveryDTO {
				return ToWebhookDeliveryDTO(del, nil, pc)
			})
		}),
	}
	if pc.canField(w, authz.FieldWebhookSecret) {
		d.Secret = Some(w.Secret)
	}
	return d
}

func ToWebhookDeliveryDTO(del *models.WebhookDelivery, loaded graph.Loaded, pc Context) WebhookDeliveryDTO {
	return WebhookDeliveryDTO{
		ID:                del.ID,
		WebhookID:         del.WebhookID,
		EventID:           del.EventID,
		Event:             del.Event,
		Payload:           rawJSON(del.Payload),
		Status:            del.Status,
		Attempts:          del.Attempts,
		NextAttemptAt:     del.NextAttemptAt,
		LastAttemptAt:     del.LastAttemptAt,
		ResponseStatus:    del.ResponseStatus,
		LastError:         del.LastError,
		DurationMs:        del.DurationMs,
		DurationFormatted: FormatDuration(time.Duration(del.DurationMs) * time.Millisecond),
		DeliveredAt:       del.DeliveredAt,
		CreatedAt:         del.CreatedAt,
		Webhook: whenLoaded(loaded, "webhook", func() *WebhookDTO {
			if del.Webhook == nil {
				return nil
			}
			d := ToWebhookDTO(del.Webhook, nil, pc)
			return &d
		}),
	}
}

// logDetails fills the gated request metadata of a log entry.
func logDetails(e models.Entity, pc Context, ip, ua string, oldValues, newValues []byte) (Optional[string], Optional[string], Optional[json.RawMessage], Optional[json.RawMessage]) {
	var (
		ipOut, uaOut   Optional[string]
		oldOut, newOut Optional[json.RawMessage]
	)
	if pc.canField(e, authz.FieldIPAddress) {
		ipOut = Some(ip)
	}
	if pc.canField(e, authz.FieldUserAgent) {
		uaOut = Some(ua)
	}
	if pc.canField(e, authz.FieldOldValues) {
		oldOut = Some(rawJSON(oldValues))
	}
	if pc.canField(e, authz.FieldNewValues) {
		newOut = Some(rawJSON(newValues))
	}
	return ipOut, uaOut, oldOut, newOut
}

func ToActivityLogDTO(l *models.ActivityLog, loaded graph.Loaded, pc Context) ActivityLogDTO {
	d := ActivityLogDTO{
		ID:          l.ID,
		WorkspaceID: l.WorkspaceID,
		UserID:      l.UserID,
		SubjectType: l.SubjectType,
		SubjectID:   l.SubjectID,
		Action:      l.Action,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
		TimeAgo:     TimeAgo(l.CreatedAt, pc.now()),
		User:        whenLoaded(loaded, "user", func() *UserDTO { return userOrNil(l.User) }),
	}
	d.IPAddress, d.UserAgent, d.OldValues, d.NewValues = logDetails(l, pc, l.IPAddress, l.UserAgent, l.OldValues, l.NewValues)
	return d
}

func ToAuditLogDTO(l *models.AuditLog, loaded graph.Loaded, pc Context) AuditLogDTO {
	d := AuditLogDTO{
		ID:            l.ID,
		WorkspaceID:   l.WorkspaceID,
		UserID:        l.UserID,
		Event:         l.Event,
		AuditableType: l.AuditableType,
		AuditableID:   l.AuditableID,
		URL:           l.URL,
		CreatedAt:     l.CreatedAt,
		User:          whenLoaded(loaded, "user", func() *UserDTO { return userOrNil(l.User) }),
	}
	d.IPAddress, d.UserAgent, d.OldValues, d.NewValues = logDetails(l, pc, l.IPAddress, l.UserAgent, l.OldValues, l.NewValues)
	return d
}

func ToRecurringTaskDTO(r *models.RecurringTask, loaded graph.Loaded, pc Context) RecurringTaskDTO {
	days := []int(r.DaysOfWeek)
	if days == nil {
		days = []int{}
	}
	return RecurringTaskDTO{
		ID:              r.ID,
		WorkspaceID:     r.WorkspaceID,
		ProjectID:       r.ProjectID,
		CreatorID:       r.CreatorID,
		AssigneeID:      r.AssigneeID,
		Title:           r.Title,
		Description:     r.Description,
		Frequency:       r.Frequency,
		Interval:        r.Interval,
		DaysOfWeek:      days,
		DayOfMonth:      r.DayOfMonth,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		NextDueDate:     r.NextDueDate,
		LastGeneratedAt: r.LastGeneratedAt,
		IsActive:        r.IsActive,
		IsDue:           r.IsDue(pc.now()),
		Creator:         whenLoaded(loaded, "creator", func() *UserDTO { return userOrNil(r.Creator) }),
		Assignee:        whenLoaded(loaded, "assignee", func() *UserDTO { return userOrNil(r.Assignee) }),
		Project: whenLoaded(loaded, "project", func() *ProjectDTO {
			if r.Project == nil {
				return nil
			}
			d := ToProjectDTO(r.Project, nil, pc)
			return &d
		}),
	}
}
