package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type ConversationHandler struct {
	conversationService *services.ConversationService
	eval                *authz.Evaluator
}

func NewConversationHandler(conversationService *services.ConversationService, eval *authz.Evaluator) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		eval:                eval,
	}
}

var conversationLoaded = graph.NewLoaded("participants")

// CreateConversation starts a conversation. The current user joins as owner.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		Title          string   `json:"title"`
		IsDirect       bool     `json:"is_direct"`
		ParticipantIDs []uint64 `json:"participant_ids"`
	}
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.conversationService.CreateConversation(c.Request.Context(), actor, services.CreateConversationInput{
		WorkspaceID:    workspaceID,
		Title:          req.Title,
		IsDirect:       req.IsDirect,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToConversationDTO(conv, conversationLoaded, presentContext(actor, h.eval)))
}

// ListConversations lists the conversations the current user takes part in
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	convs, err := h.conversationService.ListConversations(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(convs, func(m *models.Conversation) dto.ConversationDTO {
		return dto.ToConversationDTO(m, conversationLoaded, pc)
	}))
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}

	conv, err := h.conversationService.GetConversation(c.Request.Context(), actor, convID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToConversationDTO(conv, conversationLoaded, presentContext(actor, h.eval)))
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}

	var req struct {
		UserID uint64      `json:"user_id" binding:"required"`
		Role   models.Role `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	participant, err := h.conversationService.AddParticipant(c.Request.Context(), actor, convID, req.UserID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToParticipantDTO(participant))
}

// UpdateParticipantStatus mutes, unmutes or leaves a conversation
func (h *ConversationHandler) UpdateParticipantStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	var req struct {
		Status models.ParticipantStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.conversationService.UpdateParticipantStatus(c.Request.Context(), actor, convID, userID, req.Status); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}

	readAt, err := h.conversationService.MarkRead(c.Request.Context(), actor, convID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"last_read_at": readAt})
}

func (h *ConversationHandler) PostMessage(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.conversationService.PostMessage(c.Request.Context(), actor, convID, req.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageDTO(msg, nil, presentContext(actor, h.eval)))
}

// ListMessages pages through a conversation, newest first
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	convID, ok := paramID(c, "conversationId")
	if !ok {
		return
	}
	params := pagination(c)

	msgs, total, err := h.conversationService.ListMessages(c.Request.Context(), actor, convID, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	loaded := graph.NewLoaded("sender")
	items := mapItems(msgs, func(m *models.Message) dto.MessageDTO {
		return dto.ToMessageDTO(m, loaded, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, params.Page, params.Limit, total))
}

func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	messageID, ok := paramID(c, "messageId")
	if !ok {
		return
	}

	if err := h.conversationService.DeleteMessage(c.Request.Context(), actor, messageID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
