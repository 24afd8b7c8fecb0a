package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
	eval           *authz.Evaluator
}

func NewWebhookHandler(webhookService *services.WebhookService, eval *authz.Evaluator) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		eval:           eval,
	}
}

// CreateWebhook subscribes a URL to workspace events. The response carries
// the signing secret.
func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		URL    string   `json:"url" binding:"required"`
		Events []string `json:"events" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	webhook, err := h.webhookService.CreateWebhook(c.Request.Context(), actor, services.CreateWebhookInput{
		WorkspaceID: workspaceID,
		URL:         req.URL,
		Events:      req.Events,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWebhookDTO(webhook, nil, presentContext(actor, h.eval)))
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	webhooks, err := h.webhookService.ListWebhooks(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(webhooks, func(w *models.Webhook) dto.WebhookDTO {
		return dto.ToWebhookDTO(w, nil, pc)
	}))
}

func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}

	webhook, err := h.webhookService.GetWebhook(c.Request.Context(), actor, webhookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWebhookDTO(webhook, nil, presentContext(actor, h.eval)))
}

func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}

	var req struct {
		URL      *string  `json:"url"`
		Events   []string `json:"events"`
		IsActive *bool    `json:"is_active"`
	}
	if !bindJSON(c, &req) {
		return
	}

	webhook, err := h.webhookService.UpdateWebhook(c.Request.Context(), actor, webhookID, services.UpdateWebhookInput{
		URL:      req.URL,
		Events:   req.Events,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWebhookDTO(webhook, nil, presentContext(actor, h.eval)))
}

// RotateSecret replaces the signing secret
func (h *WebhookHandler) RotateSecret(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}

	webhook, err := h.webhookService.RotateSecret(c.Request.Context(), actor, webhookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWebhookDTO(webhook, nil, presentContext(actor, h.eval)))
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}

	if err := h.webhookService.DeleteWebhook(c.Request.Context(), actor, webhookID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// Ping queues a test delivery
func (h *WebhookHandler) Ping(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}

	delivery, err := h.webhookService.Ping(c.Request.Context(), actor, webhookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToWebhookDeliveryDTO(delivery, nil, presentContext(actor, h.eval)))
}

func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	webhookID, ok := paramID(c, "webhookId")
	if !ok {
		return
	}
	params := pagination(c)

	deliveries, total, err := h.webhookService.ListDeliveries(c.Request.Context(), actor, webhookID, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	items := mapItems(deliveries, func(d *models.WebhookDelivery) dto.WebhookDeliveryDTO {
		return dto.ToWebhookDeliveryDTO(d, nil, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, params.Page, params.Limit, total))
}

// RetryDelivery puts a failed delivery back in the queue
func (h *WebhookHandler) RetryDelivery(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	deliveryID, ok := paramID(c, "deliveryId")
	if !ok {
		return
	}

	delivery, err := h.webhookService.RetryDelivery(c.Request.Context(), actor, deliveryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToWebhookDeliveryDTO(delivery, nil, presentContext(actor, h.eval)))
}
