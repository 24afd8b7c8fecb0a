package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

var (
	ErrInvoiceNotFound      = notFound("invoice")
	ErrInvalidAmount        = invalid("amount must be positive")
	ErrInvalidCurrency      = invalid("currency must be a three letter code")
	ErrInvoiceAlreadyPaid   = conflict("invoice is already paid")
	ErrInvoiceVoid          = conflict("invoice is void")
	ErrNumberGenerationFail = errors.New("failed to generate a unique invoice number")
)

const invoiceNumberAttempts = 3

type BillingService struct {
	invoices repository.Store[models.Invoice]
	activity *ActivityService
	eval     *authz.Evaluator
	now      func() time.Time
}

func NewBillingService(invoices repository.Store[models.Invoice], activity *ActivityService, eval *authz.Evaluator) *BillingService {
	return &BillingService{invoices: invoices, activity: activity, eval: eval, now: time.Now}
}

type CreateInvoiceInput struct {
	WorkspaceID uint64
	AmountCents int64
	Currency    string
	DueDate     *time.Time
}

// CreateInvoice issues an open invoice with a generated number
func (s *BillingService) CreateInvoice(ctx context.Context, actor *authz.Actor, input CreateInvoiceInput) (*models.Invoice, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 || strings.Trim(currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return nil, ErrInvalidCurrency
	}
	if err := authorizeCreate(s.eval, actor, models.KindInvoice, &input.WorkspaceID); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		WorkspaceID: input.WorkspaceID,
		Status:      models.InvoiceStatusOpen,
		AmountCents: input.AmountCents,
		Currency:    currency,
		DueDate:     input.DueDate,
	}

	for attempt := 0; ; attempt++ {
		suffix, err := utils.RandomHex(4)
		if err != nil {
			return nil, ErrNumberGenerationFail
		}
		invoice.Number = fmt.Sprintf("INV-%s-%s", s.now().Format("200601"), strings.ToUpper(suffix))

		err = s.invoices.Create(ctx, invoice)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("failed to create invoice: %w", err)
		}
		if attempt+1 >= invoiceNumberAttempts {
			return nil, ErrNumberGenerationFail
		}
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: invoice, Action: "created", New: invoice})
	return invoice, nil
}

// ListInvoices lists a workspace's invoices, newest first
func (s *BillingService) ListInvoices(ctx context.Context, actor *authz.Actor, workspaceID uint64, page, pageSize int) ([]models.Invoice, int64, error) {
	if !actor.IsMember(workspaceID) {
		return nil, 0, ErrWorkspaceNotFound
	}
	if !actor.Has(&workspaceID, authz.PermManageBilling) {
		return nil, 0, forbidden("cannot view billing")
	}
	invoices, total, err := s.invoices.List(ctx, repository.Query{
		Where:    map[string]interface{}{"workspace_id": workspaceID},
		Order:    "created_at DESC, id DESC",
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// MarkPaid settles an open invoice
func (s *BillingService) MarkPaid(ctx context.Context, actor *authz.Actor, invoiceID uint64) (*models.Invoice, error) {
	invoice, err := s.findInvoice(ctx, actor, invoiceID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	switch invoice.Status {
	case models.InvoiceStatusPaid:
		return nil, ErrInvoiceAlreadyPaid
	case models.InvoiceStatusVoid:
		return nil, ErrInvoiceVoid
	}

	now := s.now()
	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = &now
	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	s.activity.Track(ctx, Change{
		Actor:   actor,
		Entity:  invoice,
		Action:  "paid",
		New:     map[string]any{"status": invoice.Status, "paid_at": now},
		Event:   webhooks.EventInvoicePaid,
		Payload: invoice,
	})
	return invoice, nil
}

// VoidInvoice cancels an unpaid invoice
func (s *BillingService) VoidInvoice(ctx context.Context, actor *authz.Actor, invoiceID uint64) (*models.Invoice, error) {
	invoice, err := s.findInvoice(ctx, actor, invoiceID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	old := invoice.Status
	invoice.Status = models.InvoiceStatusVoid
	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: invoice, Action: "voided", Old: map[string]any{"status": old}})
	return invoice, nil
}

// DeleteInvoice deletes an invoice. Paid invoices are kept for the books.
func (s *BillingService) DeleteInvoice(ctx context.Context, actor *authz.Actor, invoiceID uint64) error {
	invoice, err := s.findInvoice(ctx, actor, invoiceID, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.invoices.Delete(ctx, invoice); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: invoice, Action: "deleted", Old: invoice})
	return nil
}

func (s *BillingService) findInvoice(ctx context.Context, actor *authz.Actor, invoiceID uint64, action authz.Action) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, lookupErr(err, ErrInvoiceNotFound, "invoice")
	}
	if err := authorize(s.eval, actor, action, invoice, ErrInvoiceNotFound); err != nil {
		return nil, err
	}
	return invoice, nil
}
