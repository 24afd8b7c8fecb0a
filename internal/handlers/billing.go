package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type BillingHandler struct {
	billingService *services.BillingService
	eval           *authz.Evaluator
}

func NewBillingHandler(billingService *services.BillingService, eval *authz.Evaluator) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		eval:           eval,
	}
}

// CreateInvoice issues an open invoice
func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		AmountCents int64      `json:"amount_cents" binding:"required"`
		Currency    string     `json:"currency"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.billingService.CreateInvoice(c.Request.Context(), actor, services.CreateInvoiceInput{
		WorkspaceID: workspaceID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceDTO(inv, presentContext(actor, h.eval)))
}

func (h *BillingHandler) ListInvoices(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}
	params := pagination(c)

	invoices, total, err := h.billingService.ListInvoices(c.Request.Context(), actor, workspaceID, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	items := mapItems(invoices, func(inv *models.Invoice) dto.InvoiceDTO {
		return dto.ToInvoiceDTO(inv, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, params.Page, params.Limit, total))
}

func (h *BillingHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.billingService.MarkPaid)
}

func (h *BillingHandler) VoidInvoice(c *gin.Context) {
	h.transition(c, h.billingService.VoidInvoice)
}

// DeleteInvoice deletes an unpaid invoice
func (h *BillingHandler) DeleteInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	invoiceID, ok := paramID(c, "invoiceId")
	if !ok {
		return
	}

	if err := h.billingService.DeleteInvoice(c.Request.Context(), actor, invoiceID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

type invoiceTransition func(ctx context.Context, actor *authz.Actor, invoiceID uint64) (*models.Invoice, error)

func (h *BillingHandler) transition(c *gin.Context, apply invoiceTransition) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	invoiceID, ok := paramID(c, "invoiceId")
	if !ok {
		return
	}

	inv, err := apply(c.Request.Context(), actor, invoiceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceDTO(inv, presentContext(actor, h.eval)))
}
