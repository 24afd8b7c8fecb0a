package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/services"
)

// PreferenceHandler serves the current user's preferences.
type PreferenceHandler struct {
	preferenceService *services.PreferenceService
}

func NewPreferenceHandler(preferenceService *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

func (h *PreferenceHandler) ListPreferences(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	prefs, err := h.preferenceService.ListPreferences(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapItems(prefs, dto.ToUserPreferenceDTO))
}

func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	pref, err := h.preferenceService.GetPreference(c.Request.Context(), actor, c.Param("key"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserPreferenceDTO(pref))
}

// SetPreference stores any JSON value under :key
func (h *PreferenceHandler) SetPreference(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		Value json.RawMessage `json:"value" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	pref, err := h.preferenceService.SetPreference(c.Request.Context(), actor, c.Param("key"), req.Value)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserPreferenceDTO(pref))
}

func (h *PreferenceHandler) DeletePreference(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.preferenceService.DeletePreference(c.Request.Context(), actor, c.Param("key")); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
