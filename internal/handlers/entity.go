package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/services"
)

// EntityHandler exposes any record by kind and id, with the relations named
// in ?include= loaded.
type EntityHandler struct {
	entityService *services.EntityService
}

func NewEntityHandler(entityService *services.EntityService) *EntityHandler {
	return &EntityHandler{entityService: entityService}
}

// GetEntity handles GET /entities/:kind/:entityId?include=creator,tags
func (h *EntityHandler) GetEntity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "entityId")
	if !ok {
		return
	}

	out, err := h.entityService.Get(c.Request.Context(), actor, c.Param("kind"), id, includes(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// CheckPermission reports whether the current user may perform :action
func (h *EntityHandler) CheckPermission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "entityId")
	if !ok {
		return
	}

	allowed, err := h.entityService.Check(c.Request.Context(), actor, c.Param("kind"), id, c.Param("action"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": c.Param("action"), "allowed": allowed})
}

// ListRelations lists what ?include= accepts for :kind
func (h *EntityHandler) ListRelations(c *gin.Context) {
	relations, err := h.entityService.Relations(c.Param("kind"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"kind": c.Param("kind"), "relations": relations})
}

func includes(c *gin.Context) []string {
	var out []string
	for _, name := range strings.Split(c.Query("include"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
