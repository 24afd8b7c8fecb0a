package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// CommentHandler serves comments, reactions and the mention inbox.
type CommentHandler struct {
	commentService *services.CommentService
	eval           *authz.Evaluator
}

func NewCommentHandler(commentService *services.CommentService, eval *authz.Evaluator) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		eval:           eval,
	}
}

// CreateComment posts a comment on a task, wiki page or goal
func (h *CommentHandler) CreateComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		SubjectType string  `json:"subject_type" binding:"required"`
		SubjectID   uint64  `json:"subject_id" binding:"required"`
		ParentID    *uint64 `json:"parent_id"`
		Body        string  `json:"body" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	subject, ok := parseRef(c, req.SubjectType, strconv.FormatUint(req.SubjectID, 10))
	if !ok {
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), actor, services.CreateCommentInput{
		Subject:  subject,
		ParentID: req.ParentID,
		Body:     req.Body,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(comment, nil, presentContext(actor, h.eval)))
}

// ListComments returns the comments on ?subject_type=&subject_id=, oldest first
func (h *CommentHandler) ListComments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	subject, ok := refQuery(c, "subject")
	if !ok {
		return
	}
	params := pagination(c)

	comments, total, err := h.commentService.ListComments(c.Request.Context(), actor, subject, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	loaded := graph.NewLoaded("author", "reactions")
	items := mapItems(comments, func(m *models.Comment) dto.CommentDTO {
		return dto.ToCommentDTO(m, loaded, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, params.Page, params.Limit, total))
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), actor, commentID, req.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentDTO(comment, nil, presentContext(actor, h.eval)))
}

// DeleteComment deletes a comment together with its replies
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), actor, commentID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}

// ToggleReaction adds the reaction, or removes it when the user already
// reacted with the same type.
func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		TargetType string `json:"target_type" binding:"required"`
		TargetID   uint64 `json:"target_id" binding:"required"`
		Type       string `json:"type" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	target, ok := parseRef(c, req.TargetType, strconv.FormatUint(req.TargetID, 10))
	if !ok {
		return
	}

	reaction, added, err := h.commentService.ToggleReaction(c.Request.Context(), actor, target, req.Type)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !added {
		c.JSON(http.StatusOK, gin.H{"added": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"added":    true,
		"reaction": dto.ToReactionDTO(reaction, nil),
	})
}

// ListMentions returns the current user's mentions. ?unread=true limits the
// list to unread ones.
func (h *CommentHandler) ListMentions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := pagination(c)

	mentions, total, err := h.commentService.ListMentions(c.Request.Context(), actor, queryBool(c, "unread"), params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	loaded := graph.NewLoaded("mentioned_by")
	items := mapItems(mentions, func(m *models.Mention) dto.MentionDTO {
		return dto.ToMentionDTO(m, loaded)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, params.Page, params.Limit, total))
}

func (h *CommentHandler) MarkMentionRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	mentionID, ok := paramID(c, "mentionId")
	if !ok {
		return
	}

	mention, err := h.commentService.MarkMentionRead(c.Request.Context(), actor, mentionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMentionDTO(mention, nil))
}
