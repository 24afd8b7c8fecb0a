package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/services"
)

type WikiHandler struct {
	wikiService *services.WikiService
	eval        *authz.Evaluator
}

func NewWikiHandler(wikiService *services.WikiService, eval *authz.Evaluator) *WikiHandler {
	return &WikiHandler{
		wikiService: wikiService,
		eval:        eval,
	}
}

// CreateWiki creates a page. The slug is derived from the title when omitted.
func (h *WikiHandler) CreateWiki(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID   *uint64 `json:"project_id"`
		ParentID    *uint64 `json:"parent_id"`
		Title       string  `json:"title" binding:"required"`
		Slug        string  `json:"slug"`
		Content     string  `json:"content"`
		IsPublished bool    `json:"is_published"`
		Position    int     `json:"position"`
	}
	if !bindJSON(c, &req) {
		return
	}

	wiki, err := h.wikiService.CreateWiki(c.Request.Context(), actor, services.CreateWikiInput{
		WorkspaceID: workspaceID,
		ProjectID:   req.ProjectID,
		ParentID:    req.ParentID,
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		IsPublished: req.IsPublished,
		Position:    req.Position,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWikiDTO(wiki, nil, presentContext(actor, h.eval)))
}

// ListWikis lists root pages, or the children of parent_id
func (h *WikiHandler) ListWikis(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}
	parentID, ok := queryID(c, "parent_id")
	if !ok {
		return
	}

	wikis, err := h.wikiService.ListWikis(c.Request.Context(), actor, workspaceID, parentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapItems(wikis, dto.ToWikiSummaryDTO))
}

func (h *WikiHandler) GetWikiBySlug(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	wiki, err := h.wikiService.GetWikiBySlug(c.Request.Context(), actor, workspaceID, c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWikiDTO(wiki, nil, presentContext(actor, h.eval)))
}

func (h *WikiHandler) UpdateWiki(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	wikiID, ok := paramID(c, "wikiId")
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Slug        *string `json:"slug"`
		Content     *string `json:"content"`
		IsPublished *bool   `json:"is_published"`
		Position    *int    `json:"position"`
	}
	if !bindJSON(c, &req) {
		return
	}

	wiki, err := h.wikiService.UpdateWiki(c.Request.Context(), actor, wikiID, services.UpdateWikiInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		IsPublished: req.IsPublished,
		Position:    req.Position,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWikiDTO(wiki, nil, presentContext(actor, h.eval)))
}

// MoveWiki re-parents a page. A null parent_id makes it a root page.
func (h *WikiHandler) MoveWiki(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	wikiID, ok := paramID(c, "wikiId")
	if !ok {
		return
	}

	var req struct {
		ParentID *uint64 `json:"parent_id"`
	}
	if !bindJSON(c, &req) {
		return
	}

	wiki, err := h.wikiService.MoveWiki(c.Request.Context(), actor, wikiID, req.ParentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWikiDTO(wiki, nil, presentContext(actor, h.eval)))
}

// DeleteWiki deletes a page and its subpages
func (h *WikiHandler) DeleteWiki(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	wikiID, ok := paramID(c, "wikiId")
	if !ok {
		return
	}

	if err := h.wikiService.DeleteWiki(c.Request.Context(), actor, wikiID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
