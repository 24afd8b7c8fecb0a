package models

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

type Invoice struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	WorkspaceID uint64        `gorm:"not null;index" json:"workspace_id"`
	Number      string        `gorm:"type:varchar(50);not null;uniqueIndex" json:"number"`
	Status      InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	AmountCents int64         `gorm:"not null" json:"amount_cents"`
	Currency    string        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	DueDate     *time.Time    `json:"due_date"`
	PaidAt      *time.Time    `json:"paid_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (i *Invoice) EntityRef() Ref { return Ref{Kind: KindInvoice, ID: i.ID} }
func (i *Invoice) ScopeWorkspaceID() *uint64 { return scope(i.WorkspaceID) }
